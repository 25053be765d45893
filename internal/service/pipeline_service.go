package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"tokenpulse/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// publishedFile is the fixed filename inside the static-serving
// directory; the original deployment serves it as the site root.
const publishedFile = "index.html"

type MarketProvider interface {
	FetchTopMarkets(ctx context.Context, limit int) ([]domain.CoinSnapshot, error)
}

type SnapshotStore interface {
	ReplaceAll(ctx context.Context, snapshots []domain.CoinSnapshot) error
}

type ChartRenderer interface {
	Build(ctx context.Context, window time.Duration) (string, bool, error)
}

// PipelineService sequences one run: fetch, replace the snapshot, render
// the chart, publish the artifact. Fetch and store faults are fatal to
// the run; chart and publish faults degrade to partial success.
type PipelineService struct {
	tracer    trace.Tracer
	provider  MarketProvider
	store     SnapshotStore
	chart     ChartRenderer
	topN      int
	window    time.Duration
	publicDir string
	now       func() time.Time
}

func NewPipelineService(
	tracer trace.Tracer,
	provider MarketProvider,
	store SnapshotStore,
	chart ChartRenderer,
	topN int,
	window time.Duration,
	publicDir string,
) *PipelineService {
	return &PipelineService{
		tracer:    tracer,
		provider:  provider,
		store:     store,
		chart:     chart,
		topN:      topN,
		window:    window,
		publicDir: publicDir,
		now:       time.Now,
	}
}

// PublishedPath is the well-known serving location of the artifact.
func (s *PipelineService) PublishedPath() string {
	return filepath.Join(s.publicDir, publishedFile)
}

// Run executes one pipeline run to a terminal state. The returned error
// is non-nil only when the run ends in the failed state.
func (s *PipelineService) Run(ctx context.Context) (domain.RunResult, error) {
	ctx, span := s.tracer.Start(ctx, "pipeline.run")
	defer span.End()

	result := domain.RunResult{
		State:     domain.RunStateFetching,
		StartedAt: s.now().UTC(),
	}

	log.Printf("Pipeline run started (top %d, window %s)", s.topN, s.window)

	snapshots, err := s.provider.FetchTopMarkets(ctx, s.topN)
	if err != nil {
		return s.fail(span, result, fmt.Errorf("fetch: %w", err))
	}
	result.RecordCount = len(snapshots)
	span.SetAttributes(attribute.Int("record_count", len(snapshots)))

	if len(snapshots) == 0 {
		// Nothing to store; never clear the table with zero new data.
		// Charting still runs against whatever the prior run stored.
		log.Println("Fetch returned zero records, skipping store")
		result.State = domain.RunStateSkippedEmpty
	} else {
		result.State = domain.RunStateStoring
		if err := s.store.ReplaceAll(ctx, snapshots); err != nil {
			return s.fail(span, result, fmt.Errorf("store: %w", err))
		}
		log.Printf("Snapshot replaced with %d records", len(snapshots))
	}

	terminal := domain.RunStateDone
	if len(snapshots) == 0 {
		terminal = domain.RunStateSkippedEmpty
	}

	result.State = domain.RunStateCharting
	artifact, rendered, err := s.chart.Build(ctx, s.window)
	if err != nil {
		log.Printf("Chart build failed (non-fatal): %v", err)
		result.State = terminal
		result.FinishedAt = s.now().UTC()
		return result, nil
	}
	if !rendered {
		result.State = terminal
		result.FinishedAt = s.now().UTC()
		return result, nil
	}

	result.State = domain.RunStatePublishing
	published, err := s.publish(ctx, artifact)
	if err != nil {
		log.Printf("Publish failed (non-fatal), prior artifact stays in place: %v", err)
	} else {
		result.ArtifactPath = published
	}

	result.State = terminal
	result.FinishedAt = s.now().UTC()
	log.Printf("Pipeline run finished: %s (%d records)", result.State, result.RecordCount)
	return result, nil
}

func (s *PipelineService) fail(span trace.Span, result domain.RunResult, err error) (domain.RunResult, error) {
	span.RecordError(err)
	result.State = domain.RunStateFailed
	result.Error = err.Error()
	result.FinishedAt = s.now().UTC()
	log.Printf("Pipeline run failed: %v", err)
	return result, err
}

// publish copies the artifact into the static-serving directory,
// overwriting the previous one.
func (s *PipelineService) publish(ctx context.Context, artifact string) (string, error) {
	_, span := s.tracer.Start(ctx, "pipeline.publish")
	defer span.End()

	if err := os.MkdirAll(s.publicDir, 0o755); err != nil {
		return "", &domain.PublishError{Err: err}
	}

	src, err := os.Open(artifact)
	if err != nil {
		return "", &domain.PublishError{Err: err}
	}
	defer src.Close()

	target := s.PublishedPath()
	dst, err := os.Create(target)
	if err != nil {
		return "", &domain.PublishError{Err: err}
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", &domain.PublishError{Err: err}
	}

	log.Printf("Chart published to %s", target)
	return target, nil
}
