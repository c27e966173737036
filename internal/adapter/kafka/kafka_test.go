package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/geomag-sv-etl/internal/domain"
	"github.com/couchcryptid/geomag-sv-etl/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	batches [][]kafkago.Message
	err     error
	closed  bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, msgs)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

var processedAt = time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)

func sampleProducts(rows int) domain.ObservatoryProducts {
	field := domain.ResampledSeries{Observatory: "NGK", Period: domain.PeriodMonthly, Quantity: domain.QuantityField}
	sv := domain.ResampledSeries{Observatory: "NGK", Period: domain.PeriodMonthly, Quantity: domain.QuantitySV}
	start := time.Date(1963, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range rows {
		field.Rows = append(field.Rows, domain.ResampledRow{PeriodStart: start.AddDate(0, i, 0), X: domain.Some(18000)})
		sv.Rows = append(sv.Rows, domain.ResampledRow{PeriodStart: start.AddDate(0, i, 0), Z: domain.Some(20)})
	}
	return domain.ObservatoryProducts{
		RunID:       "run-1",
		Observatory: "NGK",
		Resampled:   []domain.ResampledSeries{field},
		SV:          []domain.ResampledSeries{sv},
		ProcessedAt: processedAt,
	}
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func newTestWriter(fw *fakeWriter, batchSize int) *Writer {
	return &Writer{
		writer:    fw,
		batchSize: batchSize,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics:   observability.NewMetricsForTesting(),
	}
}

func TestSerializeToMessage(t *testing.T) {
	p := sampleProducts(0)
	series := p.SV[0]
	row := domain.ResampledRow{PeriodStart: time.Date(1963, 7, 15, 0, 0, 0, 0, time.UTC), X: domain.Some(-12.5)}

	msg, err := serializeToMessage(p, series, row)
	require.NoError(t, err)

	assert.Equal(t, "NGK|sv|monthly|1963-07-15", string(msg.Key))
	assert.JSONEq(t, `{"run_id":"run-1","observatory":"NGK","quantity":"sv","period":"monthly",
		"date":"1963-07-15","x":-12.5,"y":null,"z":null}`, string(msg.Value))
	require.Len(t, msg.Headers, 4)
	assert.Equal(t, "quantity", msg.Headers[0].Key)
	assert.Equal(t, []byte("sv"), msg.Headers[0].Value)
	assert.Equal(t, "period", msg.Headers[1].Key)
	assert.Equal(t, "run_id", msg.Headers[2].Key)
	assert.Equal(t, "processed_at", msg.Headers[3].Key)
	assert.Equal(t, []byte(processedAt.Format(time.RFC3339)), msg.Headers[3].Value)

	var decoded Message
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.False(t, decoded.Y.Valid())
}

func TestWriter_LoadChunks(t *testing.T) {
	tests := []struct {
		name      string
		rows      int
		batchSize int
		want      []int
	}{
		{"single batch", 2, 10, []int{4}},
		{"exact multiple", 3, 3, []int{3, 3}},
		{"remainder", 3, 4, []int{4, 2}},
		{"nothing to publish", 0, 5, nil},
		{"zero batch size sends one at a time", 1, 0, []int{1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fw := &fakeWriter{}
			w := newTestWriter(fw, tt.batchSize)
			require.NoError(t, w.Load(context.Background(), sampleProducts(tt.rows)))

			var sizes []int
			for _, b := range fw.batches {
				sizes = append(sizes, len(b))
			}
			assert.Equal(t, tt.want, sizes)
			assert.InDelta(t, float64(2*tt.rows), counterValue(t, w.metrics.RowsPublished), 0)
		})
	}
}

func TestWriter_LoadError(t *testing.T) {
	fw := &fakeWriter{err: errors.New("broker down")}
	w := newTestWriter(fw, 10)

	err := w.Load(context.Background(), sampleProducts(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish NGK rows")
	assert.Zero(t, counterValue(t, w.metrics.RowsPublished))

	require.NoError(t, w.Close())
	assert.True(t, fw.closed)
}
