// Package model はドメインモデルを定義する。
package model

import "time"

// User は通知を受け取るチャットユーザーを表す。
// TelegramID がチャットプラットフォーム側の安定した外部IDであり、
// 初回コンタクト時に登録され、以後プロフィールは上書き更新される。
type User struct {
	ID         string
	TelegramID int64
	Username   string
	FirstName  string
	LastName   string
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time

	// フィルタ。重複は含まない。一時停止してもフィルタは保持される。
	Categories []Category
	Keywords   []Keyword
}

// CategoryIDs はユーザーのカテゴリフィルタのID集合を返す。
func (u *User) CategoryIDs() []string {
	ids := make([]string, 0, len(u.Categories))
	for _, c := range u.Categories {
		ids = append(ids, c.ID)
	}
	return ids
}

// KeywordWords はユーザーのキーワードフィルタの単語リストを返す。
func (u *User) KeywordWords() []string {
	words := make([]string, 0, len(u.Keywords))
	for _, k := range u.Keywords {
		words = append(words, k.Word)
	}
	return words
}
