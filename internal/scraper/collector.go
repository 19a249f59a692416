package scraper

import (
	"context"
	"log/slog"

	"github.com/hitoshi/jobradar/internal/model"
)

// CollectorMetrics はコレクタが記録するメトリクスのインターフェース。
type CollectorMetrics interface {
	RecordScrapeSuccess(site string, jobCount int)
	RecordScrapeFailure(site string)
}

// Collector は登録済みの全アダプタを順に実行し、求人を集約する。
// 1つのアダプタの失敗が他のアダプタに波及することはない。
type Collector struct {
	adapters []SiteAdapter
	maxPages int
	metrics  CollectorMetrics
	logger   *slog.Logger
}

// NewCollector はCollectorの新しいインスタンスを生成する。
func NewCollector(adapters []SiteAdapter, maxPages int, metrics CollectorMetrics, logger *slog.Logger) *Collector {
	return &Collector{
		adapters: adapters,
		maxPages: maxPages,
		metrics:  metrics,
		logger:   logger,
	}
}

// Collect は全サイトの求人を登録順に収集する。
// 各サイト内の順序は一覧ページの掲載順を保つ。
func (c *Collector) Collect(ctx context.Context) []model.PartialJob {
	var all []model.PartialJob

	for _, adapter := range c.adapters {
		jobs := c.collectSite(ctx, adapter)
		all = append(all, jobs...)
	}

	c.logger.Info("全サイトの収集が完了しました",
		slog.Int("site_count", len(c.adapters)),
		slog.Int("job_count", len(all)),
	)

	return all
}

// collectSite は1サイト分を収集する。アダプタのpanicはここで回収し、
// そのサイトを0件として続行する。
func (c *Collector) collectSite(ctx context.Context, adapter SiteAdapter) (jobs []model.PartialJob) {
	cfg := adapter.Site()

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("アダプタの実行中にpanicが発生しました",
				slog.String("site", cfg.Key),
				slog.Any("panic", r),
			)
			c.metrics.RecordScrapeFailure(cfg.Key)
			jobs = nil
		}
	}()

	c.logger.Info("サイトのスクレイプを開始します",
		slog.String("site", cfg.Key),
	)

	jobs, err := Crawl(ctx, adapter, c.maxPages, c.logger)
	if err != nil {
		c.metrics.RecordScrapeFailure(cfg.Key)
		return nil
	}
	c.metrics.RecordScrapeSuccess(cfg.Key, len(jobs))
	return jobs
}
