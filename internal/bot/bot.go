// Package bot はTelegramボットの会話ロジックを提供する。
// コマンドのディスパッチと、チャットごとの会話状態の管理を行う。
package bot

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/jobradar/internal/telegram"
)

// longPollTimeoutSec はgetUpdatesのサーバー側保留時間（秒）。
const longPollTimeoutSec = 30

// pollRetryInterval は更新取得が失敗したときの再試行間隔。
const pollRetryInterval = 5 * time.Second

// API はボットが使用するTelegramクライアントのインターフェース。
type API interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]telegram.Update, error)
}

// state は1チャットの会話状態を表す。
type state int

const (
	stateIdle state = iota
	stateAwaitingCategoryName
	stateAwaitingKeywordName
	stateAwaitingRemovalChoice
)

// removalChoice は削除候補の番号付きリストの1項目。
type removalChoice struct {
	isCategory bool
	value      string
}

// session は1チャットの会話状態を保持する。
type session struct {
	state   state
	choices []removalChoice
}

// Bot はTelegramボット本体。
// 受信した各イベントは、1つのストア操作を完了させるか、
// 会話状態をIdleに戻すかのどちらかで終わる。
type Bot struct {
	api    API
	users  UserService
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[int64]*session
}

// New はBotの新しいインスタンスを生成する。
func New(api API, users UserService, logger *slog.Logger) *Bot {
	return &Bot{
		api:      api,
		users:    users,
		logger:   logger,
		sessions: make(map[int64]*session),
	}
}

// Run はロングポーリングで更新を受信し続ける。
// コンテキストのキャンセルで正常終了する。
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("ボットの受信ループを開始します")

	var offset int64
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("ボットの受信ループを終了します")
			return nil
		default:
		}

		updates, err := b.api.GetUpdates(ctx, offset, longPollTimeoutSec)
		if err != nil {
			if ctx.Err() != nil {
				b.logger.Info("ボットの受信ループを終了します")
				return nil
			}
			b.logger.Warn("更新の取得に失敗しました。再試行します",
				slog.String("error", err.Error()),
			)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(pollRetryInterval):
			}
			continue
		}

		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			b.handleUpdate(ctx, u)
		}
	}
}

// handleUpdate は1件の更新を処理する。テキストメッセージ以外は無視する。
func (b *Bot) handleUpdate(ctx context.Context, u telegram.Update) {
	if u.Message == nil || u.Message.From == nil || u.Message.Text == "" {
		return
	}
	b.handleMessage(ctx, u.Message)
}

// sessionFor はチャットのセッションを取得する。なければ生成する。
func (b *Bot) sessionFor(chatID int64) *session {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[chatID]
	if !ok {
		s = &session{state: stateIdle}
		b.sessions[chatID] = s
	}
	return s
}

// reply は返信を送る。送信失敗はログに記録するだけで処理を止めない。
func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	if err := b.api.SendMessage(ctx, chatID, text); err != nil {
		b.logger.Warn("返信の送信に失敗しました",
			slog.Int64("chat_id", chatID),
			slog.String("error", err.Error()),
		)
	}
}
