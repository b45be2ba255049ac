package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/feriando/places-etl/internal/domain"
	"github.com/feriando/places-etl/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Retry policy for a failed refresh: start at 200ms, double each retry, cap
// at 5s, and give up until the next tick after maxAttempts.
const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
	maxAttempts    = 6
)

// Collector produces the unified collection.
type Collector interface {
	Unify(ctx context.Context) (domain.Batch, error)
}

// Loader receives every successfully refreshed collection.
type Loader interface {
	Name() string
	Load(ctx context.Context, run domain.Run, places []domain.Place) error
}

// Snapshot returns the last persisted collection for warm starts.
type Snapshot interface {
	Latest(ctx context.Context) (domain.Run, []domain.Place, error)
}

// Options tunes a Pipeline. Zero values select defaults.
type Options struct {
	// Interval between refreshes. Defaults to one hour.
	Interval time.Duration
	// Clock drives the refresh ticker and retry sleeps.
	Clock clockwork.Clock
	// Snapshot, when set, seeds the serving loader before the first refresh.
	Snapshot Snapshot
	// Sinks receive each collection after the serving loader accepted it.
	Sinks []Loader
}

// Pipeline orchestrates the periodic unify-enrich-load cycle.
type Pipeline struct {
	collector Collector
	enricher  *Enricher
	serving   Loader
	sinks     []Loader
	snapshot  Snapshot
	interval  time.Duration
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
}

// New creates a Pipeline. serving is the loader whose contents answer queries
// (the catalog); readiness follows it.
func New(c Collector, e *Enricher, serving Loader, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Pipeline {
	if opts.Interval <= 0 {
		opts.Interval = time.Hour
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Pipeline{
		collector: c,
		enricher:  e,
		serving:   serving,
		sinks:     opts.Sinks,
		snapshot:  opts.Snapshot,
		interval:  opts.Interval,
		clock:     opts.Clock,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once a non-empty collection is being served,
// or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no places have been loaded yet")
	}
	return nil
}

// Run refreshes immediately and then on every interval until the context is
// cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "interval", p.interval)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	p.warmStart(ctx)

	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.refreshWithRetry(ctx)

		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
		}
	}
}

// warmStart serves the persisted snapshot, if any, until the first refresh
// completes.
func (p *Pipeline) warmStart(ctx context.Context) {
	if p.snapshot == nil {
		return
	}
	run, places, err := p.snapshot.Latest(ctx)
	if err != nil {
		p.logger.Info("no warm start snapshot", "reason", err)
		return
	}
	if len(places) == 0 {
		return
	}
	if err := p.serving.Load(ctx, run, places); err != nil {
		p.logger.Error("warm start failed", "error", err)
		return
	}
	p.metrics.PlacesUnified.Set(float64(len(places)))
	p.ready.Store(true)
	p.logger.Info("warm start from snapshot", "run_id", run.ID, "places", len(places))
}

// cycle is a collection that the serving loader has accepted and that still
// has to reach the sinks.
type cycle struct {
	run    domain.Run
	places []domain.Place
	start  time.Time
	log    *slog.Logger
}

// refreshWithRetry retries a failed refresh with backoff. Once the serving
// loader accepted a collection only the sinks that failed are retried, with
// the same run and places.
func (p *Pipeline) refreshWithRetry(ctx context.Context) {
	backoff := initialBackoff
	var c *cycle
	pending := p.sinks
	for attempt := 1; ; attempt++ {
		var err error
		if c == nil {
			c, err = p.collect(ctx)
		}
		if c != nil {
			pending, err = p.publish(ctx, c, pending)
		}
		if err == nil || ctx.Err() != nil {
			return
		}
		p.logger.Error("refresh failed", "error", err, "attempt", attempt, "pending_sinks", len(pending))
		if attempt >= maxAttempts {
			p.logger.Warn("refresh retries exhausted, waiting for next interval", "attempts", attempt)
			return
		}
		if !p.sleep(ctx, backoff) {
			return
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
}

// Refresh runs one unify-enrich-load cycle without retrying. A failed or
// empty unification leaves the served collection untouched.
func (p *Pipeline) Refresh(ctx context.Context) error {
	c, err := p.collect(ctx)
	if err != nil {
		return err
	}
	_, err = p.publish(ctx, c, p.sinks)
	return err
}

// collect unifies, enriches, and hands the collection to the serving loader.
func (p *Pipeline) collect(ctx context.Context) (*cycle, error) {
	run := domain.NewRun()
	start := p.clock.Now()

	batch, err := p.collector.Unify(ctx)
	if err != nil {
		p.metrics.RefreshRuns.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("unify: %w", err)
	}
	if len(batch.Places) == 0 {
		p.metrics.RefreshRuns.WithLabelValues("error").Inc()
		return nil, errors.New("unify produced no places")
	}

	places := p.enricher.Enrich(ctx, batch.Places)

	if err := p.serving.Load(ctx, run, places); err != nil {
		p.metrics.LoadErrors.WithLabelValues(p.serving.Name()).Inc()
		p.metrics.RefreshRuns.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("load %s: %w", p.serving.Name(), err)
	}
	p.ready.Store(true)
	p.metrics.PlacesUnified.Set(float64(len(places)))

	return &cycle{run: run, places: places, start: start, log: p.logger.With("run_id", run.ID)}, nil
}

// publish loads the collection into sinks and returns the ones that failed.
func (p *Pipeline) publish(ctx context.Context, c *cycle, sinks []Loader) ([]Loader, error) {
	var failed []Loader
	var errs []error
	for _, sink := range sinks {
		if err := sink.Load(ctx, c.run, c.places); err != nil {
			p.metrics.LoadErrors.WithLabelValues(sink.Name()).Inc()
			failed = append(failed, sink)
			errs = append(errs, fmt.Errorf("load %s: %w", sink.Name(), err))
		}
	}
	if len(errs) > 0 {
		p.metrics.RefreshRuns.WithLabelValues("error").Inc()
		return failed, errors.Join(errs...)
	}

	elapsed := p.clock.Since(c.start)
	p.metrics.RefreshDuration.Observe(elapsed.Seconds())
	p.metrics.RefreshRuns.WithLabelValues("success").Inc()
	c.log.Info("refresh complete", "places", len(c.places), "duration", elapsed)
	return nil, nil
}

func (p *Pipeline) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := p.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
