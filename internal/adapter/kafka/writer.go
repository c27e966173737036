package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/couchcryptid/geomag-sv-etl/internal/config"
	"github.com/couchcryptid/geomag-sv-etl/internal/domain"
	"github.com/couchcryptid/geomag-sv-etl/internal/observability"
	kafkago "github.com/segmentio/kafka-go"
)

// Message is the JSON value published for every resampled or SV row.
type Message struct {
	RunID       string       `json:"run_id"`
	Observatory string       `json:"observatory"`
	Quantity    string       `json:"quantity"`
	Period      string       `json:"period"`
	Date        string       `json:"date"`
	X           domain.Value `json:"x"`
	Y           domain.Value `json:"y"`
	Z           domain.Value `json:"z"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes products to a Kafka topic.
// It implements pipeline.Loader.
type Writer struct {
	writer    messageWriter
	batchSize int
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, batchSize: cfg.BatchSize, logger: logger, metrics: metrics}
}

func (w *Writer) Name() string { return "kafka" }

// Load publishes every resampled and SV row in WriteMessages calls of at
// most batchSize messages. Daily rows stay on disk.
func (w *Writer) Load(ctx context.Context, products domain.ObservatoryProducts) error {
	var msgs []kafkago.Message
	for _, series := range append(append([]domain.ResampledSeries(nil), products.Resampled...), products.SV...) {
		for _, row := range series.Rows {
			msg, err := serializeToMessage(products, series, row)
			if err != nil {
				return err
			}
			msgs = append(msgs, msg)
		}
	}

	size := max(w.batchSize, 1)
	for start := 0; start < len(msgs); start += size {
		end := min(start+size, len(msgs))
		if err := w.writer.WriteMessages(ctx, msgs[start:end]...); err != nil {
			return fmt.Errorf("publish %s rows: %w", products.Observatory, err)
		}
		w.metrics.RowsPublished.Add(float64(end - start))
	}

	w.logger.Info("products published", "observatory", products.Observatory, "messages", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals one period row into a Kafka message keyed so
// that republishing the same row replaces it on a compacted topic.
func serializeToMessage(p domain.ObservatoryProducts, s domain.ResampledSeries, row domain.ResampledRow) (kafkago.Message, error) {
	date := row.PeriodStart.Format(time.DateOnly)
	data, err := json.Marshal(Message{
		RunID:       p.RunID,
		Observatory: p.Observatory,
		Quantity:    string(s.Quantity),
		Period:      string(s.Period),
		Date:        date,
		X:           row.X,
		Y:           row.Y,
		Z:           row.Z,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize %s row %s: %w", p.Observatory, date, err)
	}
	return kafkago.Message{
		Key:   []byte(strings.Join([]string{p.Observatory, string(s.Quantity), string(s.Period), date}, "|")),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "quantity", Value: []byte(s.Quantity)},
			{Key: "period", Value: []byte(s.Period)},
			{Key: "run_id", Value: []byte(p.RunID)},
			{Key: "processed_at", Value: []byte(p.ProcessedAt.Format(time.RFC3339))},
		},
	}, nil
}
