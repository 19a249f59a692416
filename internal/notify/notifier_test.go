package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/jobradar/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- モック ---

type mockUserLister struct {
	users []*model.User
	err   error
}

func (m *mockUserLister) ListActive(_ context.Context) ([]*model.User, error) {
	return m.users, m.err
}

type mockMatcher struct {
	jobsByUser map[int64][]*model.Job
	err        error
}

func (m *mockMatcher) JobsForUser(_ context.Context, u *model.User, _ time.Time) ([]*model.Job, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.jobsByUser[u.TelegramID], nil
}

type mockSender struct {
	sent      []string
	chatIDs   []int64
	failChats map[int64]bool
}

func (m *mockSender) SendMessage(_ context.Context, chatID int64, text string) error {
	if m.failChats[chatID] {
		return errors.New("bot was blocked by the user")
	}
	m.sent = append(m.sent, text)
	m.chatIDs = append(m.chatIDs, chatID)
	return nil
}

type mockCategoryLister struct {
	categories []model.Category
}

func (m *mockCategoryLister) ListAll(_ context.Context) ([]model.Category, error) {
	return m.categories, nil
}

type mockMetrics struct {
	sent   int
	failed int
}

func (m *mockMetrics) RecordNotificationSent()    { m.sent++ }
func (m *mockMetrics) RecordNotificationFailure() { m.failed++ }

func newTestNotifier(users *mockUserLister, matcher *mockMatcher, sender *mockSender, metrics *mockMetrics) *Notifier {
	return NewNotifier(
		users,
		matcher,
		sender,
		&mockCategoryLister{categories: []model.Category{{ID: "cat-it", Name: "IT"}}},
		metrics,
		1000, // テストでは実質待ちなし
		testLogger(),
	)
}

// --- テスト ---

// TestNotifyAll_OneMessagePerJob は1求人1メッセージで配信されることをテストする。
func TestNotifyAll_OneMessagePerJob(t *testing.T) {
	users := &mockUserLister{users: []*model.User{
		{ID: "u1", TelegramID: 100, IsActive: true},
		{ID: "u2", TelegramID: 200, IsActive: true},
	}}
	matcher := &mockMatcher{jobsByUser: map[int64][]*model.Job{
		100: {
			{ID: "j1", Title: "Go Developer", Source: "JobSearch.az", URL: "https://example.com/1", CategoryID: "cat-it"},
			{ID: "j2", Title: "SRE", Source: "Busy.az", URL: "https://example.com/2"},
		},
		200: {
			{ID: "j1", Title: "Go Developer", Source: "JobSearch.az", URL: "https://example.com/1", CategoryID: "cat-it"},
		},
	}}
	sender := &mockSender{}
	metrics := &mockMetrics{}

	n := newTestNotifier(users, matcher, sender, metrics)
	if err := n.NotifyAll(context.Background(), time.Now()); err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}

	if len(sender.sent) != 3 {
		t.Fatalf("送信数が一致しない: got %d, want 3", len(sender.sent))
	}
	if metrics.sent != 3 {
		t.Errorf("送信メトリクスが記録されるべき: got %d", metrics.sent)
	}
}

// TestNotifyAll_SendFailureIsolation は個々の送信失敗が他の配信を
// 止めないことをテストする。
func TestNotifyAll_SendFailureIsolation(t *testing.T) {
	users := &mockUserLister{users: []*model.User{
		{ID: "u1", TelegramID: 100, IsActive: true},
		{ID: "u2", TelegramID: 200, IsActive: true},
	}}
	job := &model.Job{ID: "j1", Title: "Go Developer", Source: "JobSearch.az", URL: "https://example.com/1"}
	matcher := &mockMatcher{jobsByUser: map[int64][]*model.Job{
		100: {job},
		200: {job},
	}}
	sender := &mockSender{failChats: map[int64]bool{100: true}}
	metrics := &mockMetrics{}

	n := newTestNotifier(users, matcher, sender, metrics)
	if err := n.NotifyAll(context.Background(), time.Now()); err != nil {
		t.Fatalf("送信失敗はエラーにすべきではない: %v", err)
	}

	if len(sender.chatIDs) != 1 || sender.chatIDs[0] != 200 {
		t.Errorf("失敗したユーザー以外には配信されるべき: %v", sender.chatIDs)
	}
	if metrics.failed != 1 || metrics.sent != 1 {
		t.Errorf("メトリクスが記録されるべき: sent=%d failed=%d", metrics.sent, metrics.failed)
	}
}

// TestNotifyAll_NoActiveUsers は通知対象がいないときに何も送らないことをテストする。
func TestNotifyAll_NoActiveUsers(t *testing.T) {
	sender := &mockSender{}
	n := newTestNotifier(&mockUserLister{}, &mockMatcher{}, sender, &mockMetrics{})

	if err := n.NotifyAll(context.Background(), time.Now()); err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Errorf("何も送信されるべきではない: %v", sender.sent)
	}
}

// TestNotifyAll_MatchFailureSkipsUser は照合失敗のユーザーをスキップして
// 続行することをテストする。
func TestNotifyAll_MatchFailureSkipsUser(t *testing.T) {
	users := &mockUserLister{users: []*model.User{
		{ID: "u1", TelegramID: 100, IsActive: true},
	}}
	matcher := &mockMatcher{err: errors.New("connection lost")}
	sender := &mockSender{}

	n := newTestNotifier(users, matcher, sender, &mockMetrics{})
	if err := n.NotifyAll(context.Background(), time.Now()); err != nil {
		t.Fatalf("照合失敗はエラーにすべきではない: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Errorf("照合失敗のユーザーには送信すべきではない: %v", sender.sent)
	}
}

// TestFormatJob は通知メッセージの整形をテストする。
func TestFormatJob(t *testing.T) {
	j := &model.Job{
		Title:    "Go Developer",
		Company:  "Acme Corp",
		Location: "Baku",
		Source:   "JobSearch.az",
		URL:      "https://example.com/1",
	}

	got := FormatJob(j, "IT")
	for _, want := range []string{
		"*New Job Posting*",
		"*Go Developer*",
		"*Company:* Acme Corp",
		"*Location:* Baku",
		"*Category:* IT",
		"*Source:* JobSearch.az",
		"[View Job](https://example.com/1)",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("メッセージに %q を含むべき:\n%s", want, got)
		}
	}
}

// TestFormatJob_MissingFields は欠損フィールドの既定文言をテストする。
func TestFormatJob_MissingFields(t *testing.T) {
	j := &model.Job{Title: "Go Developer", Source: "Busy.az", URL: "https://example.com/1"}

	got := FormatJob(j, "")
	if !strings.Contains(got, "*Company:* Not specified") {
		t.Errorf("会社名の既定文言が使われるべき:\n%s", got)
	}
	if !strings.Contains(got, "*Category:* Not specified") {
		t.Errorf("カテゴリの既定文言が使われるべき:\n%s", got)
	}
}
