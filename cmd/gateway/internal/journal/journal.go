package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-ticker/pkg/models"
)

// Journal appends every tick to a Kafka topic, one message per quote.
type Journal struct {
	logger *zap.Logger
	writer KafkaWriter
	clock  Clock

	mu  sync.Mutex
	seq map[string]int64
}

func New(logger *zap.Logger, writer KafkaWriter, clock Clock) *Journal {
	return &Journal{
		logger: logger,
		writer: writer,
		clock:  clock,
		seq:    make(map[string]int64),
	}
}

func (j *Journal) Record(ctx context.Context, snap models.Snapshot) error {
	if len(snap) == 0 {
		return nil
	}

	ts := j.clock.Now().UnixMicro()
	msgs := make([]kafka.Message, 0, len(snap))

	j.mu.Lock()
	for _, q := range snap {
		j.seq[q.Symbol]++
		payload, err := json.Marshal(models.StockUpdate{
			Symbol:    q.Symbol,
			Price:     q.Price,
			Timestamp: ts,
			SeqID:     j.seq[q.Symbol],
		})
		if err != nil {
			j.mu.Unlock()
			return fmt.Errorf("encode %s: %w", q.Symbol, err)
		}
		msgs = append(msgs, kafka.Message{Key: []byte(q.Symbol), Value: payload})
	}
	j.mu.Unlock()

	if err := j.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write tick: %w", err)
	}
	j.logger.Debug("Journaled tick", zap.Int("quotes", len(msgs)))
	return nil
}

// Close flushes buffered messages.
func (j *Journal) Close() error {
	return j.writer.Close()
}
