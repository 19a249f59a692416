package scraper

import (
	"context"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hitoshi/jobradar/internal/model"
)

// GlorriAdapter はGlorri Jobsのアダプタ。
// 勤務地とカテゴリの要素が欠けている掲載が多いため、
// 既定値（Azerbaijan / Technology）で補完する。
type GlorriAdapter struct {
	site
}

// NewGlorriAdapter はGlorri Jobsのアダプタを生成する。
func NewGlorriAdapter(deps Deps) *GlorriAdapter {
	return &GlorriAdapter{site: newSite(glorriSite, deps)}
}

// ParseListing は一覧ページHTMLから求人を抽出する。
func (a *GlorriAdapter) ParseListing(ctx context.Context, rawHTML string) []model.PartialJob {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		a.logger.Warn("一覧ページのパースに失敗しました",
			slog.String("site", a.cfg.Key),
			slog.String("error", err.Error()),
		)
		return nil
	}

	var jobs []model.PartialJob
	doc.Find(".job-card, .job-listing").Each(func(_ int, sel *goquery.Selection) {
		title := strings.TrimSpace(sel.Find(".job-title, .position-title").First().Text())
		if title == "" {
			return
		}

		location := strings.TrimSpace(sel.Find(".location, .job-location").First().Text())
		if location == "" {
			location = "Azerbaijan"
		}
		category := strings.TrimSpace(sel.Find(".category, .job-category").First().Text())
		if category == "" {
			category = "Technology"
		}

		href, _ := sel.Find("a").First().Attr("href")
		job := model.PartialJob{
			Title:        title,
			Company:      strings.TrimSpace(sel.Find(".company-name, .employer").First().Text()),
			Location:     location,
			CategoryName: category,
			URL:          a.resolveURL(href),
			Source:       a.cfg.Name,
		}

		if job.URL != "" {
			if m := trailingNumericID.FindStringSubmatch(job.URL); m != nil {
				job.ExternalID = m[1]
			}
			a.fillDetail(ctx, &job)
		}

		jobs = append(jobs, job)
	})

	return jobs
}

func (a *GlorriAdapter) fillDetail(ctx context.Context, job *model.PartialJob) {
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

	if desc := strings.TrimSpace(doc.Find(".job-description, .description").First().Text()); desc != "" {
		job.Description = a.sanitizer.Sanitize(desc)
	}
}
