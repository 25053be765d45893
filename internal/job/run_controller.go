package job

import (
	"context"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"tokenpulse/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

type PipelineRunner interface {
	Run(ctx context.Context) (domain.RunResult, error)
	PublishedPath() string
}

type StatusRecorder interface {
	SetLastRun(ctx context.Context, result domain.RunResult) error
	GetLastRun(ctx context.Context) (*domain.RunResult, error)
}

// Notifier is told about finished runs. Optional.
type Notifier interface {
	NotifyRunFinished(result domain.RunResult)
}

// RunController dispatches pipeline runs on a background goroutine and
// answers readiness polls. At most one run is in flight at a time:
// overlapping triggers are rejected, not queued, because two interleaved
// runs would race on the snapshot table and the artifact path.
type RunController struct {
	tracer   trace.Tracer
	pipeline PipelineRunner
	status   StatusRecorder
	notifier Notifier
	interval time.Duration

	inFlight    atomic.Bool
	mu          sync.RWMutex
	last        *domain.RunResult
	completions chan domain.RunResult
}

// NewRunController creates the controller. intervalSecs > 0 enables the
// scheduler started by Start; 0 leaves the pipeline on-demand only.
func NewRunController(tracer trace.Tracer, pipeline PipelineRunner, status StatusRecorder, notifier Notifier, intervalSecs int) *RunController {
	return &RunController{
		tracer:      tracer,
		pipeline:    pipeline,
		status:      status,
		notifier:    notifier,
		interval:    time.Duration(intervalSecs) * time.Second,
		completions: make(chan domain.RunResult, 4),
	}
}

// Trigger starts a run in the background and returns immediately.
// Returns false without starting anything when a run is already in
// flight. The run is detached from the caller's context; callers poll
// Ready or LastRun for the outcome.
func (c *RunController) Trigger(ctx context.Context) bool {
	_, span := c.tracer.Start(ctx, "run-controller.trigger")
	defer span.End()

	if !c.inFlight.CompareAndSwap(false, true) {
		log.Println("Trigger rejected: run already in flight")
		return false
	}

	go func() {
		defer c.inFlight.Store(false)

		runCtx := context.Background()
		result, err := c.pipeline.Run(runCtx)
		if err != nil {
			log.Printf("Background run ended in failure: %v", err)
		}
		c.record(runCtx, result)
	}()

	return true
}

// Ready reports whether the published artifact exists at its serving
// path. Cheap enough for fixed-interval client polling.
func (c *RunController) Ready() bool {
	_, err := os.Stat(c.pipeline.PublishedPath())
	return err == nil
}

// InFlight reports whether a run is currently executing.
func (c *RunController) InFlight() bool {
	return c.inFlight.Load()
}

// LastRun returns the most recent run result, falling back to the
// status cache so restarts keep answering. Nil when no run happened.
func (c *RunController) LastRun(ctx context.Context) (*domain.RunResult, error) {
	c.mu.RLock()
	last := c.last
	c.mu.RUnlock()
	if last != nil {
		return last, nil
	}
	return c.status.GetLastRun(ctx)
}

// Completions exposes finished run results for callers that want to
// await instead of poll. Production callers poll Ready; this buffered
// side channel exists for synchronizing on run completion without
// changing the trigger/poll contract.
func (c *RunController) Completions() <-chan domain.RunResult {
	return c.completions
}

// Start runs the interval scheduler. Blocks until ctx is cancelled.
// A no-op (beyond waiting) when no interval is configured.
func (c *RunController) Start(ctx context.Context) {
	if c.interval <= 0 {
		log.Println("Run scheduler disabled, pipeline is on-demand only")
		<-ctx.Done()
		return
	}

	log.Printf("Run scheduler starting (every %s)", c.interval)
	c.Trigger(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Run scheduler stopped")
			return
		case <-ticker.C:
			c.Trigger(ctx)
		}
	}
}

func (c *RunController) record(ctx context.Context, result domain.RunResult) {
	c.mu.Lock()
	c.last = &result
	c.mu.Unlock()

	if err := c.status.SetLastRun(ctx, result); err != nil {
		log.Printf("Failed to record run status: %v", err)
	}
	if c.notifier != nil {
		c.notifier.NotifyRunFinished(result)
	}

	select {
	case c.completions <- result:
	default:
	}
}
