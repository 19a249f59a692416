// Package scraper は求人サイトのスクレイピング機能を提供する。
// サイトごとのアダプタ、ページネーションエンジン、コレクタを含む。
package scraper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hitoshi/jobradar/internal/model"
)

// userAgent は全フェッチで使用するUser-Agentヘッダ。
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// fullPageThreshold は「満杯のページ」とみなす求人数の下限。
// 1ページの求人数がこれを下回ったら最終ページと判断してページネーションを打ち切る。
const fullPageThreshold = 10

// SiteConfig は1つの求人サイトの静的設定を表す。
type SiteConfig struct {
	Key        string // サイト識別子（メトリクスのラベルとログで使用）
	Name       string // 表示名（保存時のsource列に入る）
	ListingURL string // 一覧ページのURL
	BaseURL    string // 相対リンク解決用のベースURL
}

// SiteAdapter は1つの求人サイトの取得とパースを担う。
// 実装は一覧ページのHTMLから求人を抽出し、必要に応じて詳細ページを
// 追加フェッチする。個々の求人のパース失敗はその求人のスキップに留め、
// ページ全体を失敗させてはならない。
type SiteAdapter interface {
	// Site はこのアダプタのサイト設定を返す。
	Site() SiteConfig

	// FetchListingPage は指定ページ番号の一覧ページHTMLを取得する。
	FetchListingPage(ctx context.Context, page int) (string, error)

	// ParseListing は一覧ページHTMLから求人を抽出する。
	// 詳細ページのフェッチ失敗は該当フィールドを空のままにして続行する。
	ParseListing(ctx context.Context, html string) []model.PartialJob
}

// TextSanitizer は説明文のサニタイズのインターフェース。
type TextSanitizer interface {
	Sanitize(rawHTML string) string
}

// site は各アダプタが埋め込む共通基盤。
// 設定、HTTPクライアント、サニタイザ、ロガーを保持する。
type site struct {
	cfg         SiteConfig
	client      *http.Client
	sanitizer   TextSanitizer
	logger      *slog.Logger
	maxBodySize int64
}

// Site はサイト設定を返す。
func (s *site) Site() SiteConfig {
	return s.cfg
}

// FetchListingPage は指定ページ番号の一覧ページHTMLを取得する。
// 2ページ目以降は ?page=N クエリを付与する。
func (s *site) FetchListingPage(ctx context.Context, page int) (string, error) {
	return s.getPage(ctx, listingPageURL(s.cfg.ListingURL, page))
}

// getPage は指定URLのHTMLを取得する。
// 非2xxレスポンスとネットワークエラーはどちらもフェッチ失敗として扱う。
func (s *site) getPage(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("リクエスト作成に失敗: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ページの取得に失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ページの取得に失敗: HTTPステータス %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBodySize))
	if err != nil {
		return "", fmt.Errorf("レスポンスボディの読み取りに失敗: %w", err)
	}

	return string(body), nil
}

// resolveURL は相対リンクをベースURLで絶対URLに解決する。
func (s *site) resolveURL(href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	base, err := url.Parse(s.cfg.BaseURL)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// listingPageURL は一覧ページのURLを組み立てる。1ページ目はそのまま返す。
func listingPageURL(listingURL string, page int) string {
	if page <= 1 {
		return listingURL
	}
	sep := "?"
	if strings.Contains(listingURL, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%spage=%d", listingURL, sep, page)
}

// parsePostedDate はサイト固有の固定フォーマットで掲載日をパースする。
// プレフィックス（例: "Posted on:"）を除去してから解析し、
// 失敗した場合はnilを返す。パース失敗でエラーを上げることはない。
func parsePostedDate(raw, prefix, layout string) *time.Time {
	s := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), prefix))
	if s == "" {
		return nil
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return nil
	}
	return &t
}

// Crawl はアダプタに1..maxPagesのページを順に要求し、求人を集める。
// ページのフェッチ失敗、求人0件、満杯に満たないページのいずれかで打ち切る。
// 1ページ目のフェッチに失敗した場合のみエラーを返す。2ページ目以降の
// 失敗はそこまでの収集結果を返して正常終了とする。
func Crawl(ctx context.Context, adapter SiteAdapter, maxPages int, logger *slog.Logger) ([]model.PartialJob, error) {
	cfg := adapter.Site()
	var all []model.PartialJob

	for page := 1; page <= maxPages; page++ {
		html, err := adapter.FetchListingPage(ctx, page)
		if err != nil {
			logger.Warn("一覧ページの取得に失敗しました",
				slog.String("site", cfg.Key),
				slog.Int("page", page),
				slog.String("error", err.Error()),
			)
			if page == 1 {
				return nil, err
			}
			break
		}

		jobs := adapter.ParseListing(ctx, html)
		if len(jobs) == 0 {
			logger.Info("一覧ページに求人がありません",
				slog.String("site", cfg.Key),
				slog.Int("page", page),
			)
			break
		}

		all = append(all, jobs...)

		// 満杯に満たないページは最終ページとみなす
		if len(jobs) < fullPageThreshold {
			break
		}
	}

	logger.Info("サイトのスクレイプが完了しました",
		slog.String("site", cfg.Key),
		slog.Int("job_count", len(all)),
	)

	return all, nil
}
