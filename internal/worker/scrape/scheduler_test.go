package scrape

import (
	"context"
	"sync"
	"testing"
	"time"
)

// mockRunner はRunnerのテスト用実装。blockが設定されていれば受信まで待つ。
type mockRunner struct {
	mu     sync.Mutex
	sinces []time.Time
	block  chan struct{}
}

func (m *mockRunner) RunOnce(_ context.Context, since time.Time) {
	m.mu.Lock()
	m.sinces = append(m.sinces, since)
	m.mu.Unlock()
	if m.block != nil {
		<-m.block
	}
}

func (m *mockRunner) runCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sinces)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("条件が時間内に満たされなかった")
}

// TestTick_SkipsWhileRunning は実行中のティックがスキップされることをテストする。
func TestTick_SkipsWhileRunning(t *testing.T) {
	runner := &mockRunner{block: make(chan struct{})}
	s := NewScheduler(runner, testLogger())
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		s.tick(ctx)
		close(done)
	}()

	waitFor(t, func() bool { return runner.runCount() == 1 })

	// 実行中に発火したティックは何も実行しない
	s.tick(ctx)
	if runner.runCount() != 1 {
		t.Errorf("実行中のティックはスキップされるべき: %d回実行", runner.runCount())
	}

	// 実行中はsinceが進まない
	if !s.Since().IsZero() {
		t.Errorf("実行中の周期はsinceを進めるべきではない: %v", s.Since())
	}

	close(runner.block)
	<-done

	if s.Since().IsZero() {
		t.Error("周期の完了でsinceが進むべき")
	}
}

// TestTick_SinceProgression はsinceが前回完了周期の開始時刻になることをテストする。
func TestTick_SinceProgression(t *testing.T) {
	runner := &mockRunner{}
	s := NewScheduler(runner, testLogger())
	ctx := context.Background()

	before := time.Now()
	s.tick(ctx)
	s.tick(ctx)

	if len(runner.sinces) != 2 {
		t.Fatalf("2回実行されるべき: %d回", len(runner.sinces))
	}
	if !runner.sinces[0].IsZero() {
		t.Errorf("最初の周期のsinceはゼロ値であるべき: %v", runner.sinces[0])
	}
	if runner.sinces[1].Before(before) {
		t.Errorf("2回目のsinceは最初の周期の開始時刻であるべき: %v", runner.sinces[1])
	}
}

// TestStart_RunsImmediatelyAndPeriodically は起動直後の実行と周期実行、
// キャンセルでの停止をテストする。
func TestStart_RunsImmediatelyAndPeriodically(t *testing.T) {
	runner := &mockRunner{}
	s := NewScheduler(runner, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		s.Start(ctx, 20*time.Millisecond)
		close(stopped)
	}()

	waitFor(t, func() bool { return runner.runCount() >= 2 })
	cancel()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("キャンセル後にStartは戻るべき")
	}
}
