//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/feriando/places-etl/internal/adapter/kafka"
	"github.com/feriando/places-etl/internal/adapter/source"
	"github.com/feriando/places-etl/internal/adapter/sqlite"
	"github.com/feriando/places-etl/internal/catalog"
	"github.com/feriando/places-etl/internal/config"
	"github.com/feriando/places-etl/internal/domain"
	"github.com/feriando/places-etl/internal/observability"
	"github.com/feriando/places-etl/internal/pipeline"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTopic = "test-places"

// publishedMessage holds a deserialized message read from the places topic.
type publishedMessage struct {
	Place   domain.Place
	Key     string
	Headers map[string]string
}

// readPublished reads a single message from the consumer and deserializes it.
func readPublished(ctx context.Context, t *testing.T, consumer *kafkago.Reader) publishedMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from places topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var place domain.Place
	require.NoError(t, json.Unmarshal(msg.Value, &place), "unmarshal place message")

	return publishedMessage{
		Place:   place,
		Key:     string(msg.Key),
		Headers: headers,
	}
}

// TestRefreshEndToEnd wires file sources, the unifier, the catalog, the SQLite
// snapshot, and the Kafka writer, and verifies one refresh reaches all of them.
func TestRefreshEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	markets, fairs, culture := writeSources(t)
	cfg := &config.Config{
		MarketsSource: markets,
		FairsSource:   fairs,
		CultureSource: culture,
		SourceTimeout: 5 * time.Second,
		UnifyMode:     config.UnifyStrict,
		KafkaBrokers:  []string{broker},
		KafkaTopic:    testTopic,
	}

	metrics := observability.NewMetricsForTesting()
	unifier := pipeline.NewUnifier(source.FromConfig(cfg), source.NewFetcher(cfg.SourceTimeout, discardLogger()),
		pipeline.Mode(cfg.UnifyMode), discardLogger(), metrics)

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "places.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	writer := kafka.NewWriter(cfg, discardLogger(), metrics)
	t.Cleanup(func() { _ = writer.Close() })

	cat := catalog.New()
	p := pipeline.New(unifier, nil, cat, discardLogger(), metrics, pipeline.Options{
		Sinks: []pipeline.Loader{store, writer},
	})

	require.NoError(t, p.Refresh(ctx))
	require.NoError(t, p.CheckReadiness(ctx))

	const want = 5 // 2 markets + 2 fairs + 1 cultural space
	assert.Equal(t, want, cat.Len())

	run, stored, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, cat.Snapshot().Run.ID, run.ID)
	require.Len(t, stored, want)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	received := make([]publishedMessage, 0, want)
	for len(received) < want {
		received = append(received, readPublished(ctx, t, consumer))
	}

	keys := map[string]bool{}
	byCategory := map[string]int{}
	for i, pm := range received {
		assert.Equal(t, pm.Place.ID, pm.Key)
		assert.False(t, keys[pm.Key], "duplicate key %s", pm.Key)
		keys[pm.Key] = true

		assert.Equal(t, run.ID, pm.Headers["run_id"])
		assert.Equal(t, pm.Place.Category, pm.Headers["category"])
		_, err := time.Parse(time.RFC3339, pm.Headers["loaded_at"])
		require.NoError(t, err, "loaded_at should be valid RFC3339")

		assert.Equal(t, stored[i].ID, pm.Place.ID, "topic order follows collection order")
		byCategory[pm.Place.Category]++
	}
	assert.Equal(t, 2, byCategory[domain.CategoryMarkets])
	assert.Equal(t, 2, byCategory[domain.CategoryFairs])
	assert.Equal(t, 1, byCategory[domain.CategoryCulture])

	telmo, ok := cat.Get("101")
	require.True(t, ok)
	assert.Equal(t, domain.TypeCrafts, telmo.Type)
	assert.Equal(t, []string{"Domingo"}, telmo.DaysOpen)
}

// TestWarmStartFromSnapshot verifies a restarted pipeline serves the persisted
// collection before any source is reachable.
func TestWarmStartFromSnapshot(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dbPath := filepath.Join(t.TempDir(), "places.db")
	store, err := sqlite.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Load(ctx, domain.Run{ID: "previous", StartedAt: time.Now()},
		[]domain.Place{{ID: "market_1", Name: "Mercado de Belgrano", Category: domain.CategoryMarkets}}))
	require.NoError(t, store.Close())

	reopened, err := sqlite.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	cfg := &config.Config{MarketsSource: "/nonexistent/m.csv", FairsSource: "/nonexistent/f.csv", CultureSource: "/nonexistent/c.json"}
	metrics := observability.NewMetricsForTesting()
	unifier := pipeline.NewUnifier(source.FromConfig(cfg), source.NewFetcher(time.Second, discardLogger()),
		pipeline.ModeStrict, discardLogger(), metrics)

	cat := catalog.New()
	p := pipeline.New(unifier, nil, cat, discardLogger(), metrics, pipeline.Options{Snapshot: reopened})

	runCtx, stop := context.WithTimeout(ctx, 500*time.Millisecond)
	defer stop()
	require.NoError(t, p.Run(runCtx))

	require.NoError(t, p.CheckReadiness(ctx))
	got, ok := cat.Get("market_1")
	require.True(t, ok)
	assert.Equal(t, "Mercado de Belgrano", got.Name)
	assert.Equal(t, "previous", cat.Snapshot().Run.ID)
}
