// Package job は求人の取り込みとフィルタ照合のドメインロジックを提供する。
package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/jobradar/internal/model"
)

// JobInserter は求人バッチ保存のインターフェース。
// repository.JobRepositoryを抽象化してテスタビリティを向上させる。
type JobInserter interface {
	InsertNew(ctx context.Context, jobs []model.PartialJob, scrapedAt time.Time) (int, error)
}

// IngestMetrics は取り込みが記録するメトリクスのインターフェース。
type IngestMetrics interface {
	RecordJobsInserted(count int)
	RecordIngestFailure()
}

// IngestService は収集済み求人のバッチ保存を担う。
type IngestService struct {
	repo    JobInserter
	metrics IngestMetrics
	logger  *slog.Logger
}

// NewIngestService はIngestServiceの新しいインスタンスを生成する。
func NewIngestService(repo JobInserter, metrics IngestMetrics, logger *slog.Logger) *IngestService {
	return &IngestService{
		repo:    repo,
		metrics: metrics,
		logger:  logger,
	}
}

// Ingest は収集済みの求人をひとつのバッチとして保存し、新規保存件数を返す。
// バッチは全件保存されるか、1件も保存されないかのどちらかになる。
// 保存失敗はログとメトリクスに記録して0を返し、呼び出し元の周期処理を
// 止めない。
func (s *IngestService) Ingest(ctx context.Context, jobs []model.PartialJob, scrapedAt time.Time) int {
	if len(jobs) == 0 {
		return 0
	}

	inserted, err := s.repo.InsertNew(ctx, jobs, scrapedAt)
	if err != nil {
		s.logger.Error("求人バッチの保存に失敗しました",
			slog.Int("batch_size", len(jobs)),
			slog.String("error", err.Error()),
		)
		s.metrics.RecordIngestFailure()
		return 0
	}

	s.metrics.RecordJobsInserted(inserted)
	s.logger.Info("求人バッチを保存しました",
		slog.Int("batch_size", len(jobs)),
		slog.Int("inserted", inserted),
	)

	return inserted
}
