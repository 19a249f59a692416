package scraper

import (
	"context"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hitoshi/jobradar/internal/model"
)

// SmartJobAdapter はSmartJob.azのアダプタ。
// 外部IDは詳細要素ではなくURLパス（/job/<id>）から切り出す。
type SmartJobAdapter struct {
	site
}

// NewSmartJobAdapter はSmartJob.azのアダプタを生成する。
func NewSmartJobAdapter(deps Deps) *SmartJobAdapter {
	return &SmartJobAdapter{site: newSite(smartJobSite, deps)}
}

// ParseListing は一覧ページHTMLから求人を抽出する。
func (a *SmartJobAdapter) ParseListing(ctx context.Context, rawHTML string) []model.PartialJob {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		a.logger.Warn("一覧ページのパースに失敗しました",
			slog.String("site", a.cfg.Key),
			slog.String("error", err.Error()),
		)
		return nil
	}

	var jobs []model.PartialJob
	doc.Find(".job-card").Each(func(_ int, sel *goquery.Selection) {
		title := strings.TrimSpace(sel.Find(".job-title").First().Text())
		if title == "" {
			return
		}

		href, _ := sel.Find("a.job-link").First().Attr("href")
		job := model.PartialJob{
			Title:        title,
			Company:      strings.TrimSpace(sel.Find(".company").First().Text()),
			Location:     strings.TrimSpace(sel.Find(".location").First().Text()),
			CategoryName: strings.TrimSpace(sel.Find(".category").First().Text()),
			URL:          a.resolveURL(href),
			Source:       a.cfg.Name,
		}

		if job.URL != "" {
			job.ExternalID = externalIDFromJobPath(job.URL)
			a.fillDetail(ctx, &job)
		}

		jobs = append(jobs, job)
	})

	return jobs
}

func (a *SmartJobAdapter) fillDetail(ctx context.Context, job *model.PartialJob) {
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

	// プレフィックスなしの日付表記（例: "15 May 2023"）
	job.PostedDate = parsePostedDate(doc.Find(".date").First().Text(), "", postedDateLayout)
}

// externalIDFromJobPath は /job/<id> 形式のURLからIDを切り出す。
func externalIDFromJobPath(jobURL string) string {
	const marker = "/job/"
	i := strings.Index(jobURL, marker)
	if i < 0 {
		return ""
	}
	rest := jobURL[i+len(marker):]
	if j := strings.IndexByte(rest, '/'); j >= 0 {
		rest = rest[:j]
	}
	return rest
}
