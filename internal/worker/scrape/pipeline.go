// Package scrape は求人スクレイプの周期実行を提供する。
// 収集→保存→通知のパイプラインと、そのスケジューラを含む。
package scrape

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/jobradar/internal/model"
)

// Collector は全サイトの求人収集のインターフェース。
type Collector interface {
	Collect(ctx context.Context) []model.PartialJob
}

// Ingestor は求人バッチ保存のインターフェース。
type Ingestor interface {
	Ingest(ctx context.Context, jobs []model.PartialJob, scrapedAt time.Time) int
}

// Notifier は新着求人通知のインターフェース。
type Notifier interface {
	NotifyAll(ctx context.Context, since time.Time) error
}

// PipelineMetrics はパイプラインが記録するメトリクスのインターフェース。
type PipelineMetrics interface {
	ObserveRunDuration(d time.Duration)
}

// Pipeline は1周期分のスクレイプ処理を実行する。
type Pipeline struct {
	collector Collector
	ingestor  Ingestor
	notifier  Notifier
	metrics   PipelineMetrics
	logger    *slog.Logger
}

// NewPipeline はPipelineの新しいインスタンスを生成する。
func NewPipeline(collector Collector, ingestor Ingestor, notifier Notifier, metrics PipelineMetrics, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		collector: collector,
		ingestor:  ingestor,
		notifier:  notifier,
		metrics:   metrics,
		logger:    logger,
	}
}

// RunOnce は収集→保存→通知の1周期を実行する。
// sinceは前回完了した周期の開始時刻で、通知の対象期間の下限になる。
// 新規保存が0件の周期では通知をスキップする。
func (p *Pipeline) RunOnce(ctx context.Context, since time.Time) {
	start := time.Now()
	p.logger.Info("スクレイプ周期を開始します",
		slog.Time("since", since),
	)

	jobs := p.collector.Collect(ctx)
	inserted := p.ingestor.Ingest(ctx, jobs, start)

	if inserted > 0 {
		if err := p.notifier.NotifyAll(ctx, since); err != nil {
			p.logger.Error("通知の配信に失敗しました",
				slog.String("error", err.Error()),
			)
		}
	}

	duration := time.Since(start)
	p.metrics.ObserveRunDuration(duration)
	p.logger.Info("スクレイプ周期が完了しました",
		slog.Int("collected", len(jobs)),
		slog.Int("inserted", inserted),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)
}
