package scraper

import (
	"context"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hitoshi/jobradar/internal/model"
)

// KapitalBankAdapter はKapital Bank採用ページのアダプタ。
// PASHA Bankと同様に単一企業のページのため、会社名・勤務地・カテゴリは
// 固定値になる。
type KapitalBankAdapter struct {
	site
}

// NewKapitalBankAdapter はKapital Bank採用ページのアダプタを生成する。
func NewKapitalBankAdapter(deps Deps) *KapitalBankAdapter {
	return &KapitalBankAdapter{site: newSite(kapitalBankSite, deps)}
}

// ParseListing は一覧ページHTMLから求人を抽出する。
func (a *KapitalBankAdapter) ParseListing(ctx context.Context, rawHTML string) []model.PartialJob {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		a.logger.Warn("一覧ページのパースに失敗しました",
			slog.String("site", a.cfg.Key),
			slog.String("error", err.Error()),
		)
		return nil
	}

	var jobs []model.PartialJob
	doc.Find(".vacancy-item, .job-card").Each(func(_ int, sel *goquery.Selection) {
		title := strings.TrimSpace(sel.Find(".vacancy-title, .job-title").First().Text())
		if title == "" {
			return
		}

		href, _ := sel.Find("a").First().Attr("href")
		job := model.PartialJob{
			Title:        title,
			Company:      "Kapital Bank",
			Location:     "Baku, Azerbaijan",
			CategoryName: "Banking",
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

func (a *KapitalBankAdapter) fillDetail(ctx context.Context, job *model.PartialJob) {
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

	if desc := strings.TrimSpace(doc.Find(".vacancy-description, .job-details").First().Text()); desc != "" {
		job.Description = a.sanitizer.Sanitize(desc)
	}
}
