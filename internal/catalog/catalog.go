// Package catalog holds the unified collection currently being served.
package catalog

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/feriando/places-etl/internal/domain"
)

// Snapshot is an immutable view of one unified collection.
type Snapshot struct {
	Run    domain.Run
	Places []domain.Place
	Stats  domain.Stats

	byID map[string]int
}

// Catalog serves the latest snapshot to concurrent readers. Refreshes swap in
// a new snapshot atomically; readers never observe a partial collection.
// It implements pipeline.Loader.
type Catalog struct {
	current atomic.Pointer[Snapshot]
}

// New returns an empty catalog.
func New() *Catalog {
	c := &Catalog{}
	c.current.Store(newSnapshot(domain.Run{}, nil))
	return c
}

func newSnapshot(run domain.Run, places []domain.Place) *Snapshot {
	own := make([]domain.Place, len(places))
	copy(own, places)

	byID := make(map[string]int, len(own))
	for i := range own {
		byID[own[i].ID] = i
	}
	return &Snapshot{
		Run:    run,
		Places: own,
		Stats:  domain.Summarize(own),
		byID:   byID,
	}
}

// Name identifies the loader in logs and metrics.
func (c *Catalog) Name() string { return "catalog" }

// Load replaces the served collection.
func (c *Catalog) Load(_ context.Context, run domain.Run, places []domain.Place) error {
	if places == nil {
		return errors.New("catalog: refusing to load a nil collection")
	}
	c.current.Store(newSnapshot(run, places))
	return nil
}

// Snapshot returns the current snapshot. Callers must not modify it.
func (c *Catalog) Snapshot() *Snapshot {
	return c.current.Load()
}

// All returns a copy of the served places.
func (c *Catalog) All() []domain.Place {
	s := c.current.Load()
	out := make([]domain.Place, len(s.Places))
	copy(out, s.Places)
	return out
}

// Get looks up a place by ID.
func (c *Catalog) Get(id string) (domain.Place, bool) {
	s := c.current.Load()
	i, ok := s.byID[id]
	if !ok {
		return domain.Place{}, false
	}
	return s.Places[i], true
}

// Len returns the number of served places.
func (c *Catalog) Len() int {
	return len(c.current.Load().Places)
}
