// Package model はドメインモデルを定義する。
package model

import "time"

// Job は永続化済みの求人情報を表す。
// 一度保存された求人はイミュータブルであり、再スクレイプで同一求人を
// 検出しても上書き更新は行わない。
type Job struct {
	ID          string
	Title       string
	Company     string
	Location    string
	Description string
	URL         string
	Source      string
	ExternalID  string
	CategoryID  string // カテゴリ未解決の場合は空
	PostedDate  *time.Time
	ScrapedAt   time.Time
	CreatedAt   time.Time
}

// PartialJob はサイトアダプタが抽出した、同一性判定・カテゴリ解決前の
// 求人データを表す。Title と URL 以外は空でもよい。
type PartialJob struct {
	Title        string
	Company      string
	Location     string
	Description  string
	URL          string
	Source       string
	ExternalID   string
	CategoryName string
	PostedDate   *time.Time
}

// Category は求人カテゴリを表す。
// 名前は大文字小文字を区別せず一意で、求人またはフィルタから初めて
// 参照されたときに遅延生成される。削除されることはない。
type Category struct {
	ID   string
	Name string
}

// Keyword はユーザーのタイトルキーワードフィルタを表す。
// 単語は大文字小文字を区別せず一意で、フィルタ追加時に遅延生成される。
type Keyword struct {
	ID   string
	Word string
}
