package job

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/jobradar/internal/model"
)

// JobLister は期間指定の求人取得のインターフェース。
type JobLister interface {
	ListScrapedSince(ctx context.Context, since time.Time, categoryIDs []string) ([]*model.Job, error)
}

// MatchService はユーザーのフィルタと求人の照合を担う。
// カテゴリの絞り込みはSQL側で行い、タイトルキーワードの照合は
// メモリ上で行う。
type MatchService struct {
	jobs   JobLister
	logger *slog.Logger
}

// NewMatchService はMatchServiceの新しいインスタンスを生成する。
func NewMatchService(jobs JobLister, logger *slog.Logger) *MatchService {
	return &MatchService{
		jobs:   jobs,
		logger: logger,
	}
}

// JobsForUser は指定時刻以降（境界を含む）に取り込まれた求人のうち、
// ユーザーのフィルタに合致するものを取り込み順で返す。
// フィルタ未設定のユーザーには全求人が合致する。
func (s *MatchService) JobsForUser(ctx context.Context, user *model.User, since time.Time) ([]*model.Job, error) {
	jobs, err := s.jobs.ListScrapedSince(ctx, since, user.CategoryIDs())
	if err != nil {
		return nil, fmt.Errorf("求人の取得に失敗: %w", err)
	}

	words := user.KeywordWords()
	if len(words) == 0 {
		return jobs, nil
	}

	matched := make([]*model.Job, 0, len(jobs))
	for _, j := range jobs {
		if titleMatchesAny(j.Title, words) {
			matched = append(matched, j)
		}
	}
	return matched, nil
}

// Matches は単一の求人がユーザーのフィルタに合致するかを判定する。
// カテゴリ集合のいずれかに属し、かつキーワード集合のいずれかをタイトルに
// 含む必要がある。どちらの集合も空なら常に合致する。
func Matches(j *model.Job, user *model.User) bool {
	if len(user.Categories) > 0 {
		found := false
		for _, c := range user.Categories {
			if j.CategoryID != "" && c.ID == j.CategoryID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if len(user.Keywords) > 0 && !titleMatchesAny(j.Title, user.KeywordWords()) {
		return false
	}

	return true
}

// titleMatchesAny はタイトルが単語のいずれかを部分一致で含むかを
// 大文字小文字を区別せず判定する。
func titleMatchesAny(title string, words []string) bool {
	lower := strings.ToLower(title)
	for _, w := range words {
		if strings.Contains(lower, strings.ToLower(w)) {
			return true
		}
	}
	return false
}
