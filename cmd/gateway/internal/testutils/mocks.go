package testutils

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/shubham-shewale/stock-ticker/cmd/gateway/internal/journal"
	"github.com/shubham-shewale/stock-ticker/cmd/gateway/internal/source"
	"github.com/shubham-shewale/stock-ticker/pkg/models"
	"github.com/shubham-shewale/stock-ticker/pkg/protocol"
)

// MockClient simulates a connected websocket client
type MockClient struct {
	IDVal    string
	Events   []protocol.Event // Decoded events, from SendJSON and SendBytes
	RawBytes []string
	Closed   int
	Mu       sync.Mutex
}

func NewMockClient(id string) *MockClient {
	return &MockClient{IDVal: id}
}

func (m *MockClient) ID() string { return m.IDVal }

func (m *MockClient) Close() {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Closed++
}

func (m *MockClient) SendJSON(v interface{}) {
	m.Mu.Lock()
	defer m.Mu.Unlock()

	if ev, ok := v.(protocol.Event); ok {
		m.Events = append(m.Events, ev)
	}
}

func (m *MockClient) SendBytes(b []byte) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.RawBytes = append(m.RawBytes, string(b))

	var ev protocol.Event
	if err := json.Unmarshal(b, &ev); err == nil {
		m.Events = append(m.Events, ev)
	}
}

func (m *MockClient) Count() int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return len(m.Events)
}

func (m *MockClient) Last() protocol.Event {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if len(m.Events) == 0 {
		return protocol.Event{}
	}
	return m.Events[len(m.Events)-1]
}

// MockSnapshotSource returns a fixed table
type MockSnapshotSource struct {
	Snap   models.Snapshot
	Err    error
	OnRead func() // called on every read, before returning
}

func (m *MockSnapshotSource) Snapshot(ctx context.Context) (models.Snapshot, error) {
	if m.OnRead != nil {
		m.OnRead()
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Snap.Clone(), nil
}

type MockLimiter struct {
	Deny      bool
	Err       error
	Forgotten []string
	Mu        sync.Mutex
}

func (m *MockLimiter) Allow(key string) (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}
	return !m.Deny, nil
}

func (m *MockLimiter) Forget(key string) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Forgotten = append(m.Forgotten, key)
}

type MockClock struct {
	CurrentTime time.Time
}

func (m *MockClock) Now() time.Time        { return m.CurrentTime }
func (m *MockClock) Sleep(d time.Duration) { m.CurrentTime = m.CurrentTime.Add(d) }

type MockRand struct {
	ValFloat float64
}

func (m *MockRand) Float64() float64 { return m.ValFloat }

// MockProvider answers from Prices and fails with Errs. Symbols in neither map get source.ErrNoQuote.
type MockProvider struct {
	NameVal string
	Prices  map[string]float64
	Errs    map[string]error
	Calls   int
	Mu      sync.Mutex
}

func (m *MockProvider) Name() string {
	if m.NameVal == "" {
		return "mock"
	}
	return m.NameVal
}

func (m *MockProvider) Quote(ctx context.Context, symbol string) (source.ProviderQuote, error) {
	m.Mu.Lock()
	m.Calls++
	m.Mu.Unlock()

	if err, ok := m.Errs[symbol]; ok {
		return source.ProviderQuote{}, err
	}
	price, ok := m.Prices[symbol]
	if !ok {
		return source.ProviderQuote{}, source.ErrNoQuote
	}
	return source.ProviderQuote{
		Provider: m.Name(),
		Symbol:   symbol,
		Price:    price,
		Raw:      map[string]any{"latestPrice": price},
	}, nil
}

type MockKafkaWriter struct {
	Messages   []kafka.Message
	Mu         sync.Mutex
	ShouldFail bool
	Closed     bool
}

func (m *MockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.ShouldFail {
		return errors.New("kafka error")
	}
	m.Messages = append(m.Messages, msgs...)
	return nil
}

func (m *MockKafkaWriter) Close() error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Closed = true
	return nil
}

// MockKafkaReader replays Messages, then reports io.EOF.
type MockKafkaReader struct {
	Messages []kafka.Message
	Index    int
	Mu       sync.Mutex
	Closed   bool
}

func (m *MockKafkaReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.Closed || m.Index >= len(m.Messages) {
		return kafka.Message{}, io.EOF
	}
	msg := m.Messages[m.Index]
	m.Index++
	return msg, nil
}

func (m *MockKafkaReader) Close() error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Closed = true
	return nil
}

type MockKafkaConn struct {
	CreatedTopics []string
	NotReady      bool
}

func (m *MockKafkaConn) Controller() (kafka.Broker, error) {
	return kafka.Broker{Host: "localhost", Port: 9092}, nil
}
func (m *MockKafkaConn) Close() error { return nil }
func (m *MockKafkaConn) CreateTopics(topics ...kafka.TopicConfig) error {
	for _, t := range topics {
		m.CreatedTopics = append(m.CreatedTopics, t.Topic)
	}
	return nil
}
func (m *MockKafkaConn) ReadPartitions(topics ...string) ([]kafka.Partition, error) {
	if m.NotReady {
		return nil, nil
	}
	return []kafka.Partition{{ID: 0}}, nil
}

type MockKafkaDialer struct {
	ConnSpy *MockKafkaConn
	Fail    bool
	Dialed  []string
}

func (m *MockKafkaDialer) DialContext(ctx context.Context, network, address string) (journal.KafkaConn, error) {
	m.Dialed = append(m.Dialed, address)
	if m.Fail {
		return nil, errors.New("connection refused")
	}
	if m.ConnSpy == nil {
		m.ConnSpy = &MockKafkaConn{}
	}
	return m.ConnSpy, nil
}

// WaitFor polls cond until it holds or the deadline passes.
func WaitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out: %s", msg)
}
