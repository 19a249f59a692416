// Package notify は新着求人のユーザー通知を提供する。
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/jobradar/internal/model"
)

// ActiveUserLister は通知対象ユーザーの取得インターフェース。
type ActiveUserLister interface {
	ListActive(ctx context.Context) ([]*model.User, error)
}

// Matcher はユーザーごとの求人照合インターフェース。
type Matcher interface {
	JobsForUser(ctx context.Context, user *model.User, since time.Time) ([]*model.Job, error)
}

// Sender はメッセージ送信のインターフェース。
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// CategoryLister はカテゴリマスタの参照インターフェース。
type CategoryLister interface {
	ListAll(ctx context.Context) ([]model.Category, error)
}

// Metrics は通知が記録するメトリクスのインターフェース。
type Metrics interface {
	RecordNotificationSent()
	RecordNotificationFailure()
}

// Notifier は新着求人を通知有効な全ユーザーに配信する。
// Telegram APIの流量制限に合わせて送信をペーシングする。
type Notifier struct {
	users      ActiveUserLister
	matcher    Matcher
	sender     Sender
	categories CategoryLister
	metrics    Metrics
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewNotifier はNotifierの新しいインスタンスを生成する。
// ratePerSecは1秒あたりの最大送信数。
func NewNotifier(
	users ActiveUserLister,
	matcher Matcher,
	sender Sender,
	categories CategoryLister,
	metrics Metrics,
	ratePerSec float64,
	logger *slog.Logger,
) *Notifier {
	return &Notifier{
		users:      users,
		matcher:    matcher,
		sender:     sender,
		categories: categories,
		metrics:    metrics,
		limiter:    rate.NewLimiter(rate.Limit(ratePerSec), 1),
		logger:     logger,
	}
}

// NotifyAll はsince以降（境界を含む）に取り込まれた求人を、各ユーザーの
// フィルタで絞り込んで1求人1メッセージで配信する。個々の送信失敗は
// 記録してスキップし、他のユーザー・他の求人への配信は続行する。
func (n *Notifier) NotifyAll(ctx context.Context, since time.Time) error {
	users, err := n.users.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("通知対象ユーザーの取得に失敗しました: %w", err)
	}
	if len(users) == 0 {
		return nil
	}

	categoryNames := n.categoryNames(ctx)

	var sent, failed int
	for _, u := range users {
		jobs, err := n.matcher.JobsForUser(ctx, u, since)
		if err != nil {
			n.logger.Warn("ユーザーの求人照合に失敗しました",
				slog.Int64("telegram_id", u.TelegramID),
				slog.String("error", err.Error()),
			)
			continue
		}

		for _, j := range jobs {
			if err := n.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("通知の配信が中断されました: %w", err)
			}

			if err := n.sender.SendMessage(ctx, u.TelegramID, FormatJob(j, categoryNames[j.CategoryID])); err != nil {
				n.logger.Warn("通知の送信に失敗しました",
					slog.Int64("telegram_id", u.TelegramID),
					slog.String("job_id", j.ID),
					slog.String("error", err.Error()),
				)
				n.metrics.RecordNotificationFailure()
				failed++
				continue
			}
			n.metrics.RecordNotificationSent()
			sent++
		}
	}

	n.logger.Info("通知の配信が完了しました",
		slog.Int("user_count", len(users)),
		slog.Int("sent", sent),
		slog.Int("failed", failed),
	)

	return nil
}

// categoryNames はカテゴリID→名前のマップを作る。取得に失敗しても
// 通知自体は止めず、カテゴリ名なしで配信する。
func (n *Notifier) categoryNames(ctx context.Context) map[string]string {
	names := make(map[string]string)
	categories, err := n.categories.ListAll(ctx)
	if err != nil {
		n.logger.Warn("カテゴリ一覧の取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return names
	}
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	return names
}

// FormatJob は1求人の通知メッセージを整形する。
func FormatJob(j *model.Job, categoryName string) string {
	return fmt.Sprintf("🔍 *New Job Posting*\n\n"+
		"*%s*\n"+
		"*Company:* %s\n"+
		"*Location:* %s\n"+
		"*Category:* %s\n"+
		"*Source:* %s\n\n"+
		"[View Job](%s)",
		j.Title,
		orNotSpecified(j.Company),
		orNotSpecified(j.Location),
		orNotSpecified(categoryName),
		j.Source,
		j.URL,
	)
}

func orNotSpecified(s string) string {
	if s == "" {
		return "Not specified"
	}
	return s
}
