package journal

import (
	"context"
	"encoding/json"
	"errors"
	"hash/fnv"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-ticker/pkg/models"
)

// KafkaReader abstracts the input stream
type KafkaReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// NewReader builds a reader in a consumer group of its own, so every replica
// sees every partition. It starts at the newest offset.
func NewReader(brokers []string, topic, groupPrefix string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:           brokers,
		Topic:             topic,
		GroupID:           groupPrefix + "-" + uuid.NewString(),
		StartOffset:       kafka.LastOffset,
		MinBytes:          1,
		MaxBytes:          10e6,
		MaxWait:           200 * time.Millisecond,
		HeartbeatInterval: 3 * time.Second,
		SessionTimeout:    10 * time.Second,
	})
}

// Follower rebuilds the price table from the journal. Messages are sharded by
// symbol so each symbol is applied in order by a single worker.
type Follower struct {
	logger     *zap.Logger
	reader     KafkaReader
	numWorkers int

	mu     sync.RWMutex
	order  []string
	prices map[string]float64
	dirty  bool
}

func NewFollower(logger *zap.Logger, reader KafkaReader, numWorkers int, symbols []string) *Follower {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	return &Follower{
		logger:     logger,
		reader:     reader,
		numWorkers: numWorkers,
		order:      append([]string(nil), symbols...),
		prices:     make(map[string]float64, len(symbols)),
	}
}

// Snapshot returns the symbols seen so far, configured symbols first.
func (f *Follower) Snapshot(ctx context.Context) (models.Snapshot, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.snapshot(), nil
}

func (f *Follower) snapshot() models.Snapshot {
	out := make(models.Snapshot, 0, len(f.order))
	for _, sym := range f.order {
		if p, ok := f.prices[sym]; ok {
			out = append(out, models.Quote{Symbol: sym, Price: p})
		}
	}
	return out
}

// Run consumes the journal until ctx is done. Every interval, if anything
// changed, onTick receives the whole table.
func (f *Follower) Run(ctx context.Context, interval time.Duration, onTick func(ctx context.Context, snap models.Snapshot)) {
	workerChans := make([]chan []byte, f.numWorkers)
	var wg sync.WaitGroup
	for i := range workerChans {
		workerChans[i] = make(chan []byte, 100)
		wg.Add(1)
		go f.worker(i, workerChans[i], &wg)
	}

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		f.logger.Info("Journal follower started", zap.Int("workers", f.numWorkers))
		for {
			m, err := f.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, io.EOF) {
					return
				}
				f.logger.Error("Kafka Read Error", zap.Error(err))
				continue
			}

			// same symbol, same worker
			workerID := getWorkerID(m.Key, f.numWorkers)
			select {
			case workerChans[workerID] <- m.Value:
			case <-ctx.Done():
				return
			default:
				f.logger.Warn("Dropping slow packet", zap.String("key", string(m.Key)), zap.Int("worker_id", workerID))
			}
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if err := f.reader.Close(); err != nil {
				f.logger.Error("Error closing reader", zap.Error(err))
			}
			<-readDone
			for _, ch := range workerChans {
				close(ch)
			}
			wg.Wait()
			return
		case <-ticker.C:
			if snap, ok := f.flush(); ok {
				onTick(ctx, snap)
			}
		}
	}
}

// flush returns the table if it changed since the last flush.
func (f *Follower) flush() (models.Snapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.dirty {
		return nil, false
	}
	f.dirty = false
	return f.snapshot(), true
}

type position struct {
	ts  int64
	seq int64
}

func (f *Follower) worker(id int, msgs <-chan []byte, wg *sync.WaitGroup) {
	defer wg.Done()

	// Local dedup state; valid because a symbol only ever reaches one worker.
	last := make(map[string]position)

	for payload := range msgs {
		var update models.StockUpdate
		if err := json.Unmarshal(payload, &update); err != nil {
			f.logger.Error("JSON Unmarshal Error", zap.Error(err))
			continue
		}
		if update.Symbol == "" {
			continue
		}

		// A restarted leader resets SeqID but not the clock.
		prev, seen := last[update.Symbol]
		if seen && (update.Timestamp < prev.ts || (update.Timestamp == prev.ts && update.SeqID <= prev.seq)) {
			f.logger.Debug("Skipping duplicate update", zap.String("symbol", update.Symbol), zap.Int64("seq_id", update.SeqID))
			continue
		}
		last[update.Symbol] = position{ts: update.Timestamp, seq: update.SeqID}

		f.apply(update.Symbol, update.Price)
		f.logger.Debug("Applied", zap.String("symbol", update.Symbol), zap.Int("worker_id", id))
	}
}

func (f *Follower) apply(symbol string, price float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.prices[symbol]; !ok && !slices.Contains(f.order, symbol) {
		f.order = append(f.order, symbol)
	}
	f.prices[symbol] = price
	f.dirty = true
}

func getWorkerID(key []byte, numWorkers int) int {
	h := fnv.New32a()
	h.Write(key)
	return int(h.Sum32() % uint32(numWorkers))
}
