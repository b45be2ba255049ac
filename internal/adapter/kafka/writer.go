package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/feriando/places-etl/internal/config"
	"github.com/feriando/places-etl/internal/domain"
	"github.com/feriando/places-etl/internal/observability"
	kafkago "github.com/segmentio/kafka-go"
)

// messageWriter is the subset of kafkago.Writer used by Writer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes every unified place to a Kafka topic, one message per place.
// It implements pipeline.Loader.
type Writer struct {
	writer  messageWriter
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewWriter creates a Kafka producer for the configured places topic.
func NewWriter(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger, metrics: metrics}
}

// Name identifies the loader in logs and metrics.
func (w *Writer) Name() string { return "kafka" }

// Load serializes and publishes the collection in a single WriteMessages call.
// Places are keyed by ID so a compacted topic keeps the latest version of each.
func (w *Writer) Load(ctx context.Context, run domain.Run, places []domain.Place) error {
	if len(places) == 0 {
		return nil
	}
	loadedAt := time.Now().UTC()
	msgs := make([]kafkago.Message, len(places))
	for i := range places {
		msg, err := serializeToMessage(places[i], run, loadedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish places: %w", err)
	}
	w.metrics.PlacesPublished.Add(float64(len(msgs)))
	w.logger.Debug("places published", "count", len(msgs), "run_id", run.ID)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a Place into a Kafka message.
func serializeToMessage(place domain.Place, run domain.Run, loadedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(place)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize place %s: %w", place.ID, err)
	}
	return kafkago.Message{
		Key:   []byte(place.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "category", Value: []byte(place.Category)},
			{Key: "run_id", Value: []byte(run.ID)},
			{Key: "loaded_at", Value: []byte(loadedAt.Format(time.RFC3339))},
		},
	}, nil
}
