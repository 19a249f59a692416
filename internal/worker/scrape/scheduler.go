package scrape

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Runner は1周期分の実行インターフェース。
type Runner interface {
	RunOnce(ctx context.Context, since time.Time)
}

// Scheduler はスクレイプ周期のスケジューリングを行う。
// 起動直後に1回実行し、以降は一定間隔のティッカーで実行する。
// 前の周期が実行中のあいだに発火したティックはスキップされる。
type Scheduler struct {
	runner Runner
	logger *slog.Logger

	// running は実行中の周期を保護する。sinceはこのロックの下でだけ触る。
	running sync.Mutex
	since   time.Time

	wg sync.WaitGroup
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
func NewScheduler(runner Runner, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner: runner,
		logger: logger,
	}
}

// Start は指定間隔でスケジューラを起動する。
// コンテキストがキャンセルされるまで実行を継続し、
// 実行中の周期があればその完了を待ってから戻る。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("スクレイプスケジューラを開始しました",
		slog.Duration("interval", interval),
	)

	// 起動直後に1回実行
	s.spawnTick(ctx)

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			s.logger.Info("スクレイプスケジューラを停止しました")
			return
		case <-ticker.C:
			s.spawnTick(ctx)
		}
	}
}

func (s *Scheduler) spawnTick(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.tick(ctx)
	}()
}

// tick は1周期を実行する。前の周期が実行中の場合は何もせずに戻る。
// sinceは周期が完了したときだけ、その周期の開始時刻に進む。
func (s *Scheduler) tick(ctx context.Context) {
	if !s.running.TryLock() {
		s.logger.Warn("前の周期が実行中のためスキップします")
		return
	}
	defer s.running.Unlock()

	start := time.Now()
	s.runner.RunOnce(ctx, s.since)
	s.since = start
}

// Since は前回完了した周期の開始時刻を返す。一度も完了していなければ
// ゼロ値を返す。
func (s *Scheduler) Since() time.Time {
	s.running.Lock()
	defer s.running.Unlock()
	return s.since
}
