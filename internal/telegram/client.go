// Package telegram はTelegram Bot APIのクライアントを提供する。
// メッセージ送信とロングポーリングによる更新取得を含む。
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
)

// defaultBaseURL はTelegram Bot APIのベースURL。
const defaultBaseURL = "https://api.telegram.org"

// Update はgetUpdatesで受信する更新を表す。
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

// Message は受信メッセージを表す。
type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text"`
}

// User はTelegramユーザーを表す。
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Chat はチャットを表す。
type Chat struct {
	ID int64 `json:"id"`
}

// apiResponse はBot APIの共通レスポンス形式。
type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
}

// Client はTelegram Bot APIのクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	token      string
	baseURL    string // テスト用にベースURLを差し替え可能
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(httpClient *http.Client, token string, logger *slog.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		token:      token,
		baseURL:    defaultBaseURL,
	}
}

// SendMessage は指定チャットにMarkdown形式のメッセージを送信する。
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	params := url.Values{}
	params.Set("chat_id", strconv.FormatInt(chatID, 10))
	params.Set("text", text)
	params.Set("parse_mode", "Markdown")

	if _, err := c.call(ctx, "sendMessage", params); err != nil {
		return fmt.Errorf("メッセージの送信に失敗しました: %w", err)
	}
	return nil
}

// GetUpdates はロングポーリングで更新を取得する。
// offsetには前回処理した更新IDの次の値を渡す。timeoutSecは
// サーバー側の保留時間（秒）。
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]Update, error) {
	params := url.Values{}
	params.Set("timeout", strconv.Itoa(timeoutSec))
	if offset != 0 {
		params.Set("offset", strconv.FormatInt(offset, 10))
	}

	result, err := c.call(ctx, "getUpdates", params)
	if err != nil {
		return nil, fmt.Errorf("更新の取得に失敗しました: %w", err)
	}

	var updates []Update
	if err := json.Unmarshal(result, &updates); err != nil {
		return nil, fmt.Errorf("更新リストのパースに失敗しました: %w", err)
	}
	return updates, nil
}

// call はBot APIのメソッドを呼び出し、resultフィールドを返す。
func (c *Client) call(ctx context.Context, method string, params url.Values) (json.RawMessage, error) {
	reqURL := fmt.Sprintf("%s/bot%s/%s?%s", c.baseURL, c.token, method, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Telegram APIの呼び出しに失敗しました",
			slog.String("method", method),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		c.logger.Error("Telegram APIのレスポンスのパースに失敗しました",
			slog.String("method", method),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}

	if !apiResp.OK {
		c.logger.Error("Telegram APIがエラーを返しました",
			slog.String("method", method),
			slog.Int("http_status", resp.StatusCode),
			slog.String("description", apiResp.Description),
		)
		return nil, fmt.Errorf("Telegram APIエラー: %s", apiResp.Description)
	}

	return apiResp.Result, nil
}
