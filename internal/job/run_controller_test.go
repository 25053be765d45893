package job

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"tokenpulse/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

type stubPipeline struct {
	published string
	block     chan struct{}
	runs      atomic.Int32
	result    domain.RunResult
}

func (p *stubPipeline) Run(ctx context.Context) (domain.RunResult, error) {
	p.runs.Add(1)
	if p.block != nil {
		<-p.block
	}
	return p.result, nil
}

func (p *stubPipeline) PublishedPath() string { return p.published }

type stubStatus struct {
	mu   sync.Mutex
	last *domain.RunResult
}

func (s *stubStatus) SetLastRun(ctx context.Context, result domain.RunResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = &result
	return nil
}

func (s *stubStatus) GetLastRun(ctx context.Context) (*domain.RunResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, nil
}

type stubNotifier struct {
	mu      sync.Mutex
	results []domain.RunResult
}

func (n *stubNotifier) NotifyRunFinished(result domain.RunResult) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.results = append(n.results, result)
}

func (n *stubNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.results)
}

func newController(p *stubPipeline, s *stubStatus, n Notifier, intervalSecs int) *RunController {
	return NewRunController(trace.NewNoopTracerProvider().Tracer("test"), p, s, n, intervalSecs)
}

func TestTriggerRunsInBackground(t *testing.T) {
	p := &stubPipeline{result: domain.RunResult{State: domain.RunStateDone, RecordCount: 5}}
	s := &stubStatus{}
	n := &stubNotifier{}
	c := newController(p, s, n, 0)

	if !c.Trigger(context.Background()) {
		t.Fatal("expected trigger to be accepted")
	}

	select {
	case result := <-c.Completions():
		if result.State != domain.RunStateDone || result.RecordCount != 5 {
			t.Fatalf("unexpected result: %+v", result)
		}
	case <-time.After(time.Second):
		t.Fatal("run did not complete")
	}

	last, err := c.LastRun(context.Background())
	if err != nil || last == nil || last.State != domain.RunStateDone {
		t.Fatalf("expected recorded run, got %+v err=%v", last, err)
	}
	if n.count() != 1 {
		t.Fatalf("expected one notification, got %d", n.count())
	}
}

func TestTriggerSingleFlight(t *testing.T) {
	p := &stubPipeline{block: make(chan struct{})}
	c := newController(p, &stubStatus{}, nil, 0)

	if !c.Trigger(context.Background()) {
		t.Fatal("first trigger must be accepted")
	}
	eventually(t, func() bool { return c.InFlight() })

	if c.Trigger(context.Background()) {
		t.Fatal("overlapping trigger must be rejected")
	}

	close(p.block)
	select {
	case <-c.Completions():
	case <-time.After(time.Second):
		t.Fatal("run did not complete")
	}

	eventually(t, func() bool { return c.Trigger(context.Background()) })
}

func TestTriggerConcurrentExactlyOneAccepted(t *testing.T) {
	p := &stubPipeline{block: make(chan struct{})}
	c := newController(p, &stubStatus{}, nil, 0)

	var accepted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.Trigger(context.Background()) {
				accepted.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := accepted.Load(); got != 1 {
		t.Fatalf("expected exactly one accepted trigger, got %d", got)
	}
	close(p.block)
}

func TestReadyTracksArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.html")
	p := &stubPipeline{published: path}
	c := newController(p, &stubStatus{}, nil, 0)

	if c.Ready() {
		t.Fatal("ready must be false before the artifact exists")
	}
	if err := os.WriteFile(path, []byte("<html></html>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !c.Ready() {
		t.Fatal("ready must be true once the artifact exists")
	}
}

func TestLastRunFallsBackToStatusCache(t *testing.T) {
	s := &stubStatus{last: &domain.RunResult{State: domain.RunStateSkippedEmpty}}
	c := newController(&stubPipeline{}, s, nil, 0)

	last, err := c.LastRun(context.Background())
	if err != nil || last == nil || last.State != domain.RunStateSkippedEmpty {
		t.Fatalf("expected cache fallback, got %+v err=%v", last, err)
	}
}

func TestStartSchedulerTriggersRuns(t *testing.T) {
	p := &stubPipeline{result: domain.RunResult{State: domain.RunStateDone}}
	c := newController(p, &stubStatus{}, nil, 1)

	ctx, cancel := context.WithCancel(context.Background())
	go c.Start(ctx)

	eventually(t, func() bool { return p.runs.Load() > 0 })
	cancel()
}

func TestStartDisabledWaitsForCancel(t *testing.T) {
	p := &stubPipeline{}
	c := newController(p, &stubStatus{}, nil, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
	if p.runs.Load() != 0 {
		t.Fatal("disabled scheduler must not trigger runs")
	}
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met")
}
