package scraper

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"
	"golang.org/x/net/html"

	"github.com/hitoshi/jobradar/internal/model"
)

// BusyAdapter はBusy.azのアダプタ。
// このサイトは求人一覧をRSS/Atomフィードでも配信しているため、
// HTMLのスクレイピングではなくフィードを取り込む。一覧URLが
// フィードそのものでない場合はHTMLのheadから自動検出する。
type BusyAdapter struct {
	site
	parser *gofeed.Parser
}

// NewBusyAdapter はBusy.azのアダプタを生成する。
func NewBusyAdapter(deps Deps) *BusyAdapter {
	return &BusyAdapter{
		site:   newSite(busySite, deps),
		parser: gofeed.NewParser(),
	}
}

// FetchListingPage は1ページ目のみ取得する。フィードはページネーション
// されないため、2ページ目以降は空を返して巡回を打ち切らせる。
func (a *BusyAdapter) FetchListingPage(ctx context.Context, page int) (string, error) {
	if page > 1 {
		return "", nil
	}
	return a.getPage(ctx, a.cfg.ListingURL)
}

// ParseListing はフィードから求人を抽出する。引数がHTMLの場合は
// フィードリンクを自動検出し、フィード本体を追加フェッチする。
func (a *BusyAdapter) ParseListing(ctx context.Context, body string) []model.PartialJob {
	if strings.TrimSpace(body) == "" {
		return nil
	}

	feedBody := body
	if !isFeedXML(body) {
		feedURL := discoverFeedURL(body, a.cfg.BaseURL)
		if feedURL == "" {
			a.logger.Warn("フィードリンクが見つかりません",
				slog.String("site", a.cfg.Key),
			)
			return nil
		}
		fetched, err := a.getPage(ctx, feedURL)
		if err != nil {
			a.logger.Warn("フィードの取得に失敗しました",
				slog.String("site", a.cfg.Key),
				slog.String("url", feedURL),
				slog.String("error", err.Error()),
			)
			return nil
		}
		feedBody = fetched
	}

	feed, err := a.parser.ParseString(feedBody)
	if err != nil {
		a.logger.Warn("フィードのパースに失敗しました",
			slog.String("site", a.cfg.Key),
			slog.String("error", err.Error()),
		)
		return nil
	}

	var jobs []model.PartialJob
	for _, item := range feed.Items {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}

		job := model.PartialJob{
			Title:        title,
			Location:     "Azerbaijan",
			CategoryName: "IT",
			URL:          a.resolveURL(strings.TrimSpace(item.Link)),
			Source:       a.cfg.Name,
			PostedDate:   item.PublishedParsed,
		}
		if item.Author != nil {
			job.Company = strings.TrimSpace(item.Author.Name)
		}
		if len(item.Categories) > 0 {
			if c := strings.TrimSpace(item.Categories[0]); c != "" {
				job.CategoryName = c
			}
		}
		if item.Description != "" {
			job.Description = a.sanitizer.Sanitize(item.Description)
		}

		if guid := strings.TrimSpace(item.GUID); guid != "" {
			job.ExternalID = guid
		} else if m := trailingNumericID.FindStringSubmatch(job.URL); m != nil {
			job.ExternalID = m[1]
		}

		jobs = append(jobs, job)
	}

	return jobs
}

// isFeedXML はボディの先頭部分からRSS/Atomフィードかを判定する。
func isFeedXML(body string) bool {
	checkSize := 4096
	if len(body) < checkSize {
		checkSize = len(body)
	}
	prefix := strings.ToLower(body[:checkSize])

	if strings.Contains(prefix, "<rss") {
		return true
	}
	if strings.Contains(prefix, "<rdf:rdf") {
		return true
	}
	return strings.Contains(prefix, "<feed") && strings.Contains(prefix, "http://www.w3.org/2005/atom")
}

// discoverFeedURL はHTMLのheadからrel="alternate"のフィードリンクを探し、
// 最初に見つかったものを絶対URLで返す。見つからなければ空文字列を返す。
func discoverFeedURL(htmlBody, baseURL string) string {
	baseU, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}

	tokenizer := html.NewTokenizer(strings.NewReader(htmlBody))
	inHead := false

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return ""

		case html.StartTagToken, html.SelfClosingTagToken:
			tn, hasAttr := tokenizer.TagName()
			tagName := string(tn)

			if tagName == "head" {
				inHead = true
				continue
			}
			if tagName == "body" {
				return ""
			}
			if !inHead || tagName != "link" || !hasAttr {
				continue
			}

			var rel, linkType, href string
			for {
				key, val, more := tokenizer.TagAttr()
				switch strings.ToLower(string(key)) {
				case "rel":
					rel = strings.ToLower(string(val))
				case "type":
					linkType = strings.ToLower(string(val))
				case "href":
					href = string(val)
				}
				if !more {
					break
				}
			}

			if rel != "alternate" || href == "" {
				continue
			}
			if linkType != "application/rss+xml" && linkType != "application/atom+xml" {
				continue
			}

			ref, err := url.Parse(href)
			if err != nil {
				continue
			}
			return baseU.ResolveReference(ref).String()

		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			if string(tn) == "head" {
				return ""
			}
		}
	}
}
