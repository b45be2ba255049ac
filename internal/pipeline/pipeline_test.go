package pipeline_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/feriando/places-etl/internal/catalog"
	"github.com/feriando/places-etl/internal/domain"
	"github.com/feriando/places-etl/internal/pipeline"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockCollector struct {
	mu     sync.Mutex
	places []domain.Place
	errs   []error // consumed one per call before succeeding
	calls  atomic.Int64
}

func (m *mockCollector) Unify(_ context.Context) (domain.Batch, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		return domain.Batch{Places: []domain.Place{}}, err
	}
	return domain.Batch{Places: append([]domain.Place(nil), m.places...)}, nil
}

type mockLoader struct {
	name     string
	err      error
	failures int // when > 0, err is returned only for the first failures calls
	attempts atomic.Int64

	mu     sync.Mutex
	loaded [][]domain.Place
	runs   []domain.Run
}

func (m *mockLoader) Name() string { return m.name }

func (m *mockLoader) Load(_ context.Context, run domain.Run, places []domain.Place) error {
	n := m.attempts.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil && (m.failures == 0 || n <= int64(m.failures)) {
		return m.err
	}
	m.loaded = append(m.loaded, places)
	m.runs = append(m.runs, run)
	return nil
}

func (m *mockLoader) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.loaded)
}

type mockSnapshot struct {
	run    domain.Run
	places []domain.Place
	err    error
}

func (m *mockSnapshot) Latest(_ context.Context) (domain.Run, []domain.Place, error) {
	return m.run, m.places, m.err
}

type mockGeocoder struct{}

func (mockGeocoder) ForwardGeocode(_ context.Context, _, _ string) (domain.GeocodingResult, error) {
	return domain.GeocodingResult{Lat: -34.6, Lng: -58.4, FormattedAddress: "Buenos Aires"}, nil
}

func samplePlaces() []domain.Place {
	return []domain.Place{
		{ID: "a", Name: "A", Category: domain.CategoryMarkets, Lat: -34.6, Lng: -58.4, GeoSource: domain.GeoSourceOriginal},
		{ID: "b", Name: "B", Category: domain.CategoryFairs, Address: "Defensa 500"},
	}
}

// --- tests ---

func TestPipeline_Refresh_LoadsServingAndSinks(t *testing.T) {
	fakeClock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	domain.SetClock(fakeClock)
	t.Cleanup(func() { domain.SetClock(nil) })

	col := &mockCollector{places: samplePlaces()}
	serving := &mockLoader{name: "catalog"}
	sink := &mockLoader{name: "sqlite"}

	p := pipeline.New(col, pipeline.NewEnricher(nil, discardLogger()), serving, discardLogger(), newTestMetrics(),
		pipeline.Options{Clock: fakeClock, Sinks: []pipeline.Loader{sink}})

	require.Error(t, p.CheckReadiness(context.Background()))
	require.NoError(t, p.Refresh(context.Background()))
	require.NoError(t, p.CheckReadiness(context.Background()))

	require.Equal(t, 1, serving.count())
	require.Equal(t, 1, sink.count())
	if diff := cmp.Diff(samplePlaces(), serving.loaded[0]); diff != "" {
		t.Errorf("serving mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, serving.runs[0], sink.runs[0], "loaders share the run")
	assert.NotEmpty(t, serving.runs[0].ID)
	assert.Equal(t, fakeClock.Now().UTC(), serving.runs[0].StartedAt)
}

func TestPipeline_Refresh_EnrichesUnknownLocations(t *testing.T) {
	col := &mockCollector{places: samplePlaces()}
	serving := &mockLoader{name: "catalog"}

	p := pipeline.New(col, pipeline.NewEnricher(mockGeocoder{}, discardLogger()), serving, discardLogger(), newTestMetrics(), pipeline.Options{})
	require.NoError(t, p.Refresh(context.Background()))

	got := serving.loaded[0]
	assert.Equal(t, domain.GeoSourceOriginal, got[0].GeoSource)
	assert.Equal(t, domain.GeoSourceGeocoded, got[1].GeoSource)
	assert.InDelta(t, -34.6, got[1].Lat, 1e-9)
}

func TestPipeline_Refresh_UnifyErrorKeepsServedCollection(t *testing.T) {
	col := &mockCollector{errs: []error{errors.New("source down")}}
	serving := &mockLoader{name: "catalog"}

	p := pipeline.New(col, nil, serving, discardLogger(), newTestMetrics(), pipeline.Options{})
	err := p.Refresh(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source down")
	assert.Zero(t, serving.count())
	require.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Refresh_EmptyCollectionIsAnError(t *testing.T) {
	col := &mockCollector{}
	serving := &mockLoader{name: "catalog"}

	p := pipeline.New(col, nil, serving, discardLogger(), newTestMetrics(), pipeline.Options{})
	require.Error(t, p.Refresh(context.Background()))
	assert.Zero(t, serving.count())
}

func TestPipeline_Refresh_SinkErrorStillServes(t *testing.T) {
	col := &mockCollector{places: samplePlaces()}
	serving := &mockLoader{name: "catalog"}
	sink := &mockLoader{name: "kafka", err: errors.New("broker down")}

	p := pipeline.New(col, nil, serving, discardLogger(), newTestMetrics(), pipeline.Options{Sinks: []pipeline.Loader{sink}})
	err := p.Refresh(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load kafka")
	assert.Equal(t, 1, serving.count())
	require.NoError(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_WarmStartThenRefresh(t *testing.T) {
	col := &mockCollector{places: samplePlaces()}
	serving := &mockLoader{name: "catalog"}
	snap := &mockSnapshot{run: domain.Run{ID: "old"}, places: samplePlaces()[:1]}

	p := pipeline.New(col, nil, serving, discardLogger(), newTestMetrics(), pipeline.Options{Snapshot: snap})

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	require.Equal(t, 2, serving.count())
	assert.Equal(t, "old", serving.runs[0].ID)
	assert.Len(t, serving.loaded[0], 1)
	assert.Len(t, serving.loaded[1], 2)
}

func TestPipeline_Run_SnapshotMissing(t *testing.T) {
	col := &mockCollector{places: samplePlaces()}
	serving := &mockLoader{name: "catalog"}
	snap := &mockSnapshot{err: errors.New("no snapshot stored")}

	p := pipeline.New(col, nil, serving, discardLogger(), newTestMetrics(), pipeline.Options{Snapshot: snap})

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.Equal(t, 1, serving.count())
}

func TestPipeline_Run_RetriesWithBackoff(t *testing.T) {
	col := &mockCollector{
		places: samplePlaces(),
		errs:   []error{errors.New("first"), errors.New("second")},
	}
	serving := &mockLoader{name: "catalog"}

	p := pipeline.New(col, nil, serving, discardLogger(), newTestMetrics(), pipeline.Options{})

	// 200ms + 400ms of backoff before the third attempt succeeds.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go func() {
		assert.Eventually(t, func() bool { return serving.count() == 1 }, 1500*time.Millisecond, 20*time.Millisecond)
		cancel()
	}()

	require.NoError(t, p.Run(ctx))
	assert.Equal(t, int64(3), col.calls.Load())
	require.NoError(t, p.CheckReadiness(context.Background()))
}

// advanceRetries releases n retry sleeps. Each sleep is a timer waiting next
// to the refresh ticker.
func advanceRetries(ctx context.Context, t *testing.T, clock *clockwork.FakeClock, n int) {
	t.Helper()
	for range n {
		require.NoError(t, clock.BlockUntilContext(ctx, 2))
		clock.Advance(5 * time.Second)
	}
}

func TestPipeline_Run_SinkFailureRetriesOnlyThatSink(t *testing.T) {
	fakeClock := clockwork.NewFakeClock()
	col := &mockCollector{places: samplePlaces()}
	serving := &mockLoader{name: "catalog"}
	kafka := &mockLoader{name: "kafka"}
	store := &mockLoader{name: "sqlite", err: errors.New("disk full")}

	p := pipeline.New(col, nil, serving, discardLogger(), newTestMetrics(), pipeline.Options{
		Clock:    fakeClock,
		Interval: time.Minute,
		Sinks:    []pipeline.Loader{store, kafka},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	advanceRetries(ctx, t, fakeClock, 5)
	require.Eventually(t, func() bool { return store.attempts.Load() == 6 }, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, int64(1), col.calls.Load(), "sources are fetched once per tick")
	assert.Equal(t, 1, serving.count())
	assert.Equal(t, 1, kafka.count(), "healthy sink receives the collection once")
	assert.Equal(t, int64(6), store.attempts.Load())
	require.NoError(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_RecoveredSinkGetsSameRun(t *testing.T) {
	fakeClock := clockwork.NewFakeClock()
	col := &mockCollector{places: samplePlaces()}
	serving := &mockLoader{name: "catalog"}
	kafka := &mockLoader{name: "kafka", err: errors.New("leader not available"), failures: 2}
	store := &mockLoader{name: "sqlite"}

	p := pipeline.New(col, nil, serving, discardLogger(), newTestMetrics(), pipeline.Options{
		Clock:    fakeClock,
		Interval: time.Minute,
		Sinks:    []pipeline.Loader{kafka, store},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	advanceRetries(ctx, t, fakeClock, 2)
	require.Eventually(t, func() bool { return kafka.count() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, int64(1), col.calls.Load())
	assert.Equal(t, int64(3), kafka.attempts.Load())
	require.Equal(t, 1, store.count())
	assert.Equal(t, serving.runs[0].ID, kafka.runs[0].ID)
	assert.Equal(t, store.runs[0].ID, kafka.runs[0].ID)
	if diff := cmp.Diff(store.loaded[0], kafka.loaded[0]); diff != "" {
		t.Errorf("retried sink got a different collection (-stored +published):\n%s", diff)
	}
}

func TestPipeline_Run_RefreshesOnTick(t *testing.T) {
	fakeClock := clockwork.NewFakeClock()
	col := &mockCollector{places: samplePlaces()}
	serving := &mockLoader{name: "catalog"}

	p := pipeline.New(col, nil, serving, discardLogger(), newTestMetrics(),
		pipeline.Options{Clock: fakeClock, Interval: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool { return serving.count() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, fakeClock.BlockUntilContext(ctx, 1))
	fakeClock.Advance(time.Minute)
	require.Eventually(t, func() bool { return serving.count() == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	col := &mockCollector{places: samplePlaces()}
	serving := &mockLoader{name: "catalog"}

	p := pipeline.New(col, nil, serving, discardLogger(), newTestMetrics(), pipeline.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.Run(ctx))
}

func TestPipeline_EndToEndWithCatalog(t *testing.T) {
	u := pipeline.NewUnifier(fixtureSources(), newFixtureFetcher(), pipeline.ModeStrict, discardLogger(), newTestMetrics())
	cat := catalog.New()

	p := pipeline.New(u, nil, cat, discardLogger(), newTestMetrics(), pipeline.Options{})
	require.NoError(t, p.Refresh(context.Background()))

	assert.Equal(t, 6, cat.Len())
	got, ok := cat.Get("c-1")
	require.True(t, ok)
	assert.Equal(t, "Usina del Arte", got.Name)
	assert.Equal(t, 2, cat.Snapshot().Stats.ByCategory[domain.CategoryCulture])
}
