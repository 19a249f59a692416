// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/jobradar/internal/model"
)

// JobRepository は求人データの永続化インターフェース。
type JobRepository interface {
	// InsertNew は求人バッチのうち未保存のものだけを1トランザクションで挿入し、
	// 新規挿入数を返す。同一性判定はURL優先、なければ(external_id, source)。
	// どちらも持たないレコードは常に新規として扱う。
	// カテゴリ名は大文字小文字を区別せず解決し、未登録なら同一トランザクション内で
	// 遅延生成する。途中でエラーが発生した場合はバッチ全体をロールバックし、
	// 挿入数0とエラーを返す。部分コミットは行わない。
	InsertNew(ctx context.Context, records []model.PartialJob, scrapedAt time.Time) (int, error)

	// ListScrapedSince はscraped_atがsince以降（境界を含む）の求人を返す。
	// sinceがゼロ値の場合は全求人を返す。categoryIDsが空でない場合は
	// カテゴリIDがその集合に含まれる求人だけを返す（カテゴリ未設定の求人は除外）。
	// 結果はscraped_at昇順。
	ListScrapedSince(ctx context.Context, since time.Time, categoryIDs []string) ([]*model.Job, error)

	// FindByURL は指定URLの求人を取得する。見つからない場合はnilを返す。
	FindByURL(ctx context.Context, url string) (*model.Job, error)

	// CountAll は保存済み求人の総数を返す。
	CountAll(ctx context.Context) (int, error)
}

// UserRepository はユーザーデータとフィルタ設定の永続化インターフェース。
// フィルタ変更系の各メソッドは1トランザクションで実行され、
// 同一ユーザー行に対する他の操作との間でフィルタ集合の不整合な読み取りは発生しない。
type UserRepository interface {
	// FindByTelegramID は指定のTelegram IDのユーザーをフィルタ付きで取得する。
	// 見つからない場合はnilを返す。
	FindByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)

	// Upsert はユーザーを登録、既存の場合はプロフィールを上書き更新する。
	// 空のプロフィールフィールドで既存値を消すことはない。
	Upsert(ctx context.Context, user *model.User) (*model.User, error)

	// ListActive は通知が有効な全ユーザーをフィルタ付きで返す。
	ListActive(ctx context.Context) ([]*model.User, error)

	// AddCategoryFilter はユーザーにカテゴリフィルタを追加する。
	// カテゴリが未登録の場合は遅延生成する。すでに同じフィルタを持つ場合は
	// false, nilを返す。ユーザーが存在しない場合はErrUserNotFoundを返す。
	AddCategoryFilter(ctx context.Context, telegramID int64, name string) (bool, error)

	// RemoveCategoryFilter はユーザーのカテゴリフィルタを削除する。
	// フィルタを持っていない場合はfalse, nilを返す。
	RemoveCategoryFilter(ctx context.Context, telegramID int64, name string) (bool, error)

	// AddKeywordFilter はユーザーにキーワードフィルタを追加する。
	// キーワードが未登録の場合は遅延生成する。
	AddKeywordFilter(ctx context.Context, telegramID int64, word string) (bool, error)

	// RemoveKeywordFilter はユーザーのキーワードフィルタを削除する。
	RemoveKeywordFilter(ctx context.Context, telegramID int64, word string) (bool, error)

	// ClearFilters はユーザーの全フィルタを削除する。
	// カテゴリ・キーワードのマスタ自体は削除しない。
	ClearFilters(ctx context.Context, telegramID int64) (bool, error)

	// SetActive はユーザーの通知有効フラグを設定する。
	// 一時停止してもフィルタは保持される。
	SetActive(ctx context.Context, telegramID int64, active bool) (bool, error)
}

// CategoryRepository はカテゴリマスタの参照インターフェース。
type CategoryRepository interface {
	// ListAll は全カテゴリを名前昇順で返す。
	ListAll(ctx context.Context) ([]model.Category, error)
}
