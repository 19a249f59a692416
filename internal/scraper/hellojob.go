package scraper

import (
	"context"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hitoshi/jobradar/internal/model"
)

// HelloJobAdapter はHelloJob.azのアダプタ。
type HelloJobAdapter struct {
	site
}

// NewHelloJobAdapter はHelloJob.azのアダプタを生成する。
func NewHelloJobAdapter(deps Deps) *HelloJobAdapter {
	return &HelloJobAdapter{site: newSite(helloJobSite, deps)}
}

// ParseListing は一覧ページHTMLから求人を抽出する。
func (a *HelloJobAdapter) ParseListing(ctx context.Context, rawHTML string) []model.PartialJob {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		a.logger.Warn("一覧ページのパースに失敗しました",
			slog.String("site", a.cfg.Key),
			slog.String("error", err.Error()),
		)
		return nil
	}

	var jobs []model.PartialJob
	doc.Find(".vacancy-item").Each(func(_ int, sel *goquery.Selection) {
		title := strings.TrimSpace(sel.Find(".vacancy-name").First().Text())
		if title == "" {
			return
		}

		href, _ := sel.Find("a").First().Attr("href")
		job := model.PartialJob{
			Title:        title,
			Company:      strings.TrimSpace(sel.Find(".company-name").First().Text()),
			Location:     strings.TrimSpace(sel.Find(".location").First().Text()),
			CategoryName: strings.TrimSpace(sel.Find(".category").First().Text()),
			URL:          a.resolveURL(href),
			Source:       a.cfg.Name,
		}

		if job.URL != "" {
			a.fillDetail(ctx, &job)
		}

		jobs = append(jobs, job)
	})

	return jobs
}

func (a *HelloJobAdapter) fillDetail(ctx context.Context, job *model.PartialJob) {
	rawHTML, err := a.getPage(ctx, job.URL)
	if err != nil {
		a.logger.Warn("詳細ページの取得に失敗しました",
			slog.String("site", a.cfg.Key),
			slog.String("url", job.URL),
			slog.String("error", err.Error()),
		)
		return
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return
	}

	if desc := strings.TrimSpace(doc.Find(".vacancy-description").First().Text()); desc != "" {
		job.Description = a.sanitizer.Sanitize(desc)
	}

	job.PostedDate = parsePostedDate(doc.Find(".posted-date").First().Text(), "Posted on:", postedDateLayout)
	job.ExternalID = strings.TrimSpace(doc.Find(".vacancy-id").First().Text())
}
