package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/hms-wildfire-etl/internal/config"
	"github.com/couchcryptid/hms-wildfire-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces one message per record to the product's topic.
// It implements pipeline.Loader.
type Writer struct {
	writer *kafkago.Writer
	topics map[domain.Product]string
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured smoke and fire topics.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		Compression:  kafkago.Snappy,
		BatchBytes:   int64(cfg.KafkaMaxMessageBytes),
	}
	return &Writer{
		writer: w,
		topics: map[domain.Product]string{
			domain.Smoke: cfg.KafkaSmokeTopic,
			domain.Fire:  cfg.KafkaFireTopic,
		},
		logger: logger,
	}
}

func (w *Writer) Name() string { return "kafka" }

// Load publishes all records in a single WriteMessages call.
func (w *Writer) Load(ctx context.Context, records []domain.Record) error {
	if len(records) == 0 {
		return nil
	}
	processedAt := domain.Now()
	msgs := make([]kafkago.Message, len(records))
	for i, r := range records {
		msg, err := serializeToMessage(r, processedAt)
		if err != nil {
			return err
		}
		topic, ok := w.topics[r.Product]
		if !ok {
			return fmt.Errorf("no topic for product %q", r.Product)
		}
		msg.Topic = topic
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write messages: %w", err)
	}
	w.logger.Debug("records published", "sink", w.Name(), "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage encodes a record as a GeoJSON FeatureCollection keyed by
// its date.
func serializeToMessage(r domain.Record, processedAt time.Time) (kafkago.Message, error) {
	data, err := domain.EncodeRecord(r)
	if err != nil {
		return kafkago.Message{}, err
	}
	date := r.Date.Format(domain.DateLayout)
	return kafkago.Message{
		Key:   []byte(date),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "product", Value: []byte(r.Product)},
			{Key: "date", Value: []byte(date)},
			{Key: "feature_count", Value: []byte(strconv.Itoa(r.Dataset.Len()))},
			{Key: "processed_at", Value: []byte(processedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
