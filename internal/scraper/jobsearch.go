package scraper

import (
	"context"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hitoshi/jobradar/internal/model"
)

// JobSearchAdapter はJobSearch.azのアダプタ。
type JobSearchAdapter struct {
	site
}

// NewJobSearchAdapter はJobSearch.azのアダプタを生成する。
func NewJobSearchAdapter(deps Deps) *JobSearchAdapter {
	return &JobSearchAdapter{site: newSite(jobSearchSite, deps)}
}

// ParseListing は一覧ページHTMLから求人を抽出し、各求人の詳細ページを
// 追加フェッチして説明文・掲載日・外部IDを補完する。
func (a *JobSearchAdapter) ParseListing(ctx context.Context, rawHTML string) []model.PartialJob {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		a.logger.Warn("一覧ページのパースに失敗しました",
			slog.String("site", a.cfg.Key),
			slog.String("error", err.Error()),
		)
		return nil
	}

	var jobs []model.PartialJob
	doc.Find(".job-listing").Each(func(_ int, sel *goquery.Selection) {
		titleLink := sel.Find(".job-title a").First()
		title := strings.TrimSpace(titleLink.Text())
		if title == "" {
			return
		}

		href, _ := titleLink.Attr("href")
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

// fillDetail は詳細ページから説明文・掲載日・外部IDを取り込む。
// 取得やパースに失敗しても該当フィールドを空のままにして続行する。
func (a *JobSearchAdapter) fillDetail(ctx context.Context, job *model.PartialJob) {
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

	if desc := strings.TrimSpace(doc.Find(".job-description").First().Text()); desc != "" {
		job.Description = a.sanitizer.Sanitize(desc)
	}

	job.PostedDate = parsePostedDate(doc.Find(".posted-date").First().Text(), "Posted on:", postedDateLayout)

	if id := strings.TrimSpace(doc.Find(".job-id").First().Text()); id != "" {
		job.ExternalID = strings.TrimSpace(strings.TrimPrefix(id, "Job ID:"))
	}
}
