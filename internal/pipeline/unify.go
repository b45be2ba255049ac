package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/feriando/places-etl/internal/domain"
	"github.com/feriando/places-etl/internal/observability"
)

// Mode controls how the Unifier reacts to a failing source.
type Mode string

const (
	// ModeStrict yields an empty collection when any source fails.
	ModeStrict Mode = "strict"
	// ModePartial skips failed sources and unions the rest.
	ModePartial Mode = "partial"
)

// Fetcher retrieves the raw bytes of a source document.
type Fetcher interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// ParseFunc adapts a raw source document into places.
type ParseFunc func(data []byte) (domain.Batch, error)

// Source is one configured input of the unified collection.
type Source struct {
	Name     string
	Location string
	Parse    ParseFunc
}

// Unifier fetches every source, adapts it, and concatenates the results in
// source order.
type Unifier struct {
	sources []Source
	fetcher Fetcher
	mode    Mode
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewUnifier creates a Unifier over sources, which are unioned in the given order.
func NewUnifier(sources []Source, fetcher Fetcher, mode Mode, logger *slog.Logger, metrics *observability.Metrics) *Unifier {
	if mode != ModePartial {
		mode = ModeStrict
	}
	return &Unifier{
		sources: sources,
		fetcher: fetcher,
		mode:    mode,
		logger:  logger,
		metrics: metrics,
	}
}

type sourceResult struct {
	batch domain.Batch
	err   error
}

// Unify returns the unified collection. Sources are fetched concurrently but
// concatenated in configuration order. Every place in the result has a
// non-empty ID that is unique within the collection.
//
// In strict mode any failure returns an empty (non-nil) collection together
// with the joined source errors. In partial mode failed sources are dropped;
// an error is returned only when every source failed.
func (u *Unifier) Unify(ctx context.Context) (domain.Batch, error) {
	results := make([]sourceResult, len(u.sources))

	var wg sync.WaitGroup
	for i := range u.sources {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = u.load(ctx, u.sources[i])
		}(i)
	}
	wg.Wait()

	var errs []error
	out := domain.Batch{Places: []domain.Place{}}
	for i, res := range results {
		src := u.sources[i]
		if res.err != nil {
			u.metrics.SourceErrors.WithLabelValues(src.Name).Inc()
			u.logger.Error("source failed", "source", src.Name, "location", src.Location, "error", res.err)
			errs = append(errs, res.err)
			continue
		}
		u.report(src.Name, res.batch)
		out.Places = append(out.Places, res.batch.Places...)
		out.Diagnostics.Merge(res.batch.Diagnostics)
	}

	if len(errs) > 0 {
		if u.mode == ModeStrict || len(errs) == len(u.sources) {
			return domain.Batch{Places: []domain.Place{}}, errors.Join(errs...)
		}
		u.logger.Warn("unified with partial sources", "failed", len(errs), "total", len(u.sources))
	}

	assignIDs(out.Places)
	return out, nil
}

func (u *Unifier) load(ctx context.Context, src Source) sourceResult {
	start := time.Now()
	data, err := u.fetcher.Fetch(ctx, src.Location)
	u.metrics.FetchDuration.WithLabelValues(src.Name).Observe(time.Since(start).Seconds())
	if err != nil {
		return sourceResult{err: fmt.Errorf("fetch from %s: %w", src.Name, err)}
	}
	batch, err := src.Parse(data)
	if err != nil {
		return sourceResult{err: fmt.Errorf("parse %s: %w", src.Name, err)}
	}
	return sourceResult{batch: batch}
}

func (u *Unifier) report(name string, b domain.Batch) {
	d := b.Diagnostics
	u.metrics.SourcePlaces.WithLabelValues(name).Set(float64(len(b.Places)))
	u.metrics.UnmappedInputs.WithLabelValues("day").Add(float64(len(d.UnmappedDays)))
	u.metrics.UnmappedInputs.WithLabelValues("type").Add(float64(len(d.UnknownTypes)))
	u.metrics.UnmappedInputs.WithLabelValues("zero_coordinates").Add(float64(d.ZeroCoordinates))

	u.logger.Info("source adapted", "source", name, "places", len(b.Places))
	if len(d.UnmappedDays) > 0 || len(d.UnknownTypes) > 0 || d.ZeroCoordinates > 0 {
		u.logger.Warn("source values fell back to defaults",
			"source", name,
			"unmapped_days", d.UnmappedDays,
			"unknown_types", d.UnknownTypes,
			"zero_coordinates", d.ZeroCoordinates,
		)
	}
}

// assignIDs gives every place without an ID, or with one already taken
// earlier in the collection, the positional ID "item_{index+1}".
func assignIDs(places []domain.Place) {
	seen := make(map[string]struct{}, len(places))
	for i := range places {
		id := places[i].ID
		if _, dup := seen[id]; id == "" || dup {
			id = fmt.Sprintf("item_%d", i+1)
			for n := 2; ; n++ {
				if _, taken := seen[id]; !taken {
					break
				}
				id = fmt.Sprintf("item_%d_%d", i+1, n)
			}
			places[i].ID = id
		}
		seen[id] = struct{}{}
	}
}
