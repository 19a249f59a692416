package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/jobradar/internal/model"
)

// mockJobLister はJobListerのテスト用実装。
type mockJobLister struct {
	jobs           []*model.Job
	err            error
	gotSince       time.Time
	gotCategoryIDs []string
}

func (m *mockJobLister) ListScrapedSince(_ context.Context, since time.Time, categoryIDs []string) ([]*model.Job, error) {
	m.gotSince = since
	m.gotCategoryIDs = categoryIDs
	if m.err != nil {
		return nil, m.err
	}

	// カテゴリ絞り込みはSQL側の挙動を模倣する
	if len(categoryIDs) == 0 {
		return m.jobs, nil
	}
	var filtered []*model.Job
	for _, j := range m.jobs {
		for _, id := range categoryIDs {
			if j.CategoryID == id {
				filtered = append(filtered, j)
				break
			}
		}
	}
	return filtered, nil
}

func userWith(categories []model.Category, keywords []model.Keyword) *model.User {
	return &model.User{
		ID:         "u-1",
		TelegramID: 100,
		IsActive:   true,
		Categories: categories,
		Keywords:   keywords,
	}
}

// TestMatches_NoFilters はフィルタ未設定のユーザーに全求人が合致することをテストする。
func TestMatches_NoFilters(t *testing.T) {
	j := &model.Job{Title: "Backend Developer", CategoryID: "cat-it"}
	if !Matches(j, userWith(nil, nil)) {
		t.Error("フィルタ未設定のユーザーには全求人が合致すべき")
	}
}

// TestMatches_CategoryOnly はカテゴリ集合のOR判定をテストする。
func TestMatches_CategoryOnly(t *testing.T) {
	u := userWith([]model.Category{{ID: "cat-it", Name: "IT"}, {ID: "cat-fin", Name: "Finance"}}, nil)

	if !Matches(&model.Job{Title: "Dev", CategoryID: "cat-fin"}, u) {
		t.Error("集合内のカテゴリは合致すべき")
	}
	if Matches(&model.Job{Title: "Dev", CategoryID: "cat-sales"}, u) {
		t.Error("集合外のカテゴリは合致すべきではない")
	}
	if Matches(&model.Job{Title: "Dev", CategoryID: ""}, u) {
		t.Error("カテゴリ未解決の求人はカテゴリフィルタに合致すべきではない")
	}
}

// TestMatches_KeywordOnly はキーワード集合の部分一致OR判定をテストする。
func TestMatches_KeywordOnly(t *testing.T) {
	u := userWith(nil, []model.Keyword{{ID: "k1", Word: "python"}, {ID: "k2", Word: "go"}})

	if !Matches(&model.Job{Title: "Senior Python Developer"}, u) {
		t.Error("大文字小文字を区別せず部分一致すべき")
	}
	if !Matches(&model.Job{Title: "Django Engineer"}, u) {
		t.Error("単語中の部分一致も合致すべき")
	}
	if Matches(&model.Job{Title: "Sales Manager"}, u) {
		t.Error("どのキーワードも含まないタイトルは合致すべきではない")
	}
}

// TestMatches_BothStagesRequired はカテゴリとキーワードの両方を満たす
// 必要があることをテストする。
func TestMatches_BothStagesRequired(t *testing.T) {
	u := userWith(
		[]model.Category{{ID: "cat-it", Name: "IT"}},
		[]model.Keyword{{ID: "k1", Word: "developer"}},
	)

	if !Matches(&model.Job{Title: "Backend Developer", CategoryID: "cat-it"}, u) {
		t.Error("両方を満たす求人は合致すべき")
	}
	if Matches(&model.Job{Title: "Backend Developer", CategoryID: "cat-fin"}, u) {
		t.Error("カテゴリだけ外れる求人は合致すべきではない")
	}
	if Matches(&model.Job{Title: "System Administrator", CategoryID: "cat-it"}, u) {
		t.Error("キーワードだけ外れる求人は合致すべきではない")
	}
}

// TestJobsForUser_KeywordFilterInMemory はキーワード照合がメモリ上で
// 適用されることをテストする。
func TestJobsForUser_KeywordFilterInMemory(t *testing.T) {
	lister := &mockJobLister{
		jobs: []*model.Job{
			{ID: "1", Title: "Go Developer", CategoryID: "cat-it"},
			{ID: "2", Title: "Sales Manager", CategoryID: "cat-it"},
			{ID: "3", Title: "Golang Engineer", CategoryID: "cat-it"},
		},
	}
	s := NewMatchService(lister, testLogger())

	u := userWith(nil, []model.Keyword{{ID: "k1", Word: "go"}})
	got, err := s.JobsForUser(context.Background(), u, time.Now())
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("合致数が一致しない: got %d, want 2", len(got))
	}
	if got[0].ID != "1" || got[1].ID != "3" {
		t.Errorf("取り込み順が保たれるべき: got %s, %s", got[0].ID, got[1].ID)
	}
}

// TestJobsForUser_CategoryIDsPassedToRepo はカテゴリIDがリポジトリに
// 渡されることをテストする。
func TestJobsForUser_CategoryIDsPassedToRepo(t *testing.T) {
	lister := &mockJobLister{
		jobs: []*model.Job{
			{ID: "1", Title: "Dev", CategoryID: "cat-it"},
			{ID: "2", Title: "Dev", CategoryID: "cat-fin"},
		},
	}
	s := NewMatchService(lister, testLogger())

	u := userWith([]model.Category{{ID: "cat-it", Name: "IT"}}, nil)
	got, err := s.JobsForUser(context.Background(), u, time.Now())
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	if len(lister.gotCategoryIDs) != 1 || lister.gotCategoryIDs[0] != "cat-it" {
		t.Errorf("カテゴリIDが渡されるべき: got %v", lister.gotCategoryIDs)
	}
	if len(got) != 1 || got[0].ID != "1" {
		t.Errorf("カテゴリ絞り込みの結果が一致しない: got %v", got)
	}
}

// TestJobsForUser_RepoError はリポジトリのエラーを伝播することをテストする。
func TestJobsForUser_RepoError(t *testing.T) {
	lister := &mockJobLister{err: errors.New("connection lost")}
	s := NewMatchService(lister, testLogger())

	if _, err := s.JobsForUser(context.Background(), userWith(nil, nil), time.Now()); err == nil {
		t.Error("リポジトリのエラーは伝播すべき")
	}
}
