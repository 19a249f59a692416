// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// ErrUserNotFound は未登録ユーザーに対するフィルタ操作で返される。
// 呼び出し元はこれを失敗結果として扱い、処理を中断してはならない。
var ErrUserNotFound = errors.New("ユーザーが見つかりません")

// NewUserNotFoundError は対象のTelegram IDを含むユーザー未検出エラーを生成する。
func NewUserNotFoundError(telegramID int64) error {
	return fmt.Errorf("telegram_id=%d: %w", telegramID, ErrUserNotFound)
}
