package testutils

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shubham-shewale/stock-ticker/cmd/watcher/internal/reconciler"
	"github.com/shubham-shewale/stock-ticker/pkg/models"
)

// MockView records every redraw call.
type MockView struct {
	Mu          sync.Mutex
	Tables      [][]reconciler.Row
	Updates     []reconciler.Row
	Flashed     []string
	Cleared     []string
	ChartSyms   []string
	Selected    string
	ChartSymbol string
	Chart       []models.HistoryEntry
	ChartCalls  int
	Stats       reconciler.QuickStats
	Portfolio   reconciler.Valuation
	Portfolios  int
	Connected   bool
	ConnChanges []bool
}

func (m *MockView) RenderTable(rows []reconciler.Row) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Tables = append(m.Tables, rows)
}

func (m *MockView) UpdateRow(row reconciler.Row) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Updates = append(m.Updates, row)
}

func (m *MockView) Flash(symbol string) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Flashed = append(m.Flashed, symbol)
}

func (m *MockView) ClearFlash(symbol string) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Cleared = append(m.Cleared, symbol)
}

func (m *MockView) SetChartSymbols(symbols []string, selected string) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.ChartSyms = symbols
	m.Selected = selected
}

func (m *MockView) RenderChart(symbol string, points []models.HistoryEntry) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.ChartSymbol = symbol
	m.Chart = points
	m.ChartCalls++
}

func (m *MockView) RenderQuickStats(stats reconciler.QuickStats) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Stats = stats
}

func (m *MockView) RenderPortfolio(v reconciler.Valuation) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Portfolio = v
	m.Portfolios++
}

func (m *MockView) SetConnected(connected bool) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Connected = connected
	m.ConnChanges = append(m.ConnChanges, connected)
}

func (m *MockView) LastTable() []reconciler.Row {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if len(m.Tables) == 0 {
		return nil
	}
	return m.Tables[len(m.Tables)-1]
}

type Notification struct {
	Rule  models.AlertRule
	Price float64
}

type MockNotifier struct {
	Mu   sync.Mutex
	Sent []Notification
	Fail bool
}

func (m *MockNotifier) Notify(ctx context.Context, rule models.AlertRule, price float64) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.Fail {
		return errors.New("notifier down")
	}
	m.Sent = append(m.Sent, Notification{Rule: rule, Price: price})
	return nil
}

func (m *MockNotifier) Count() int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return len(m.Sent)
}

// MockClock hands out a fixed time that advances one second per call and
// queues AfterFunc callbacks until Fire is called.
type MockClock struct {
	Mu      sync.Mutex
	Current time.Time
	Pending []func()
}

func NewMockClock() *MockClock {
	return &MockClock{Current: time.Unix(1700000000, 0)}
}

func (m *MockClock) Now() time.Time {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Current = m.Current.Add(time.Second)
	return m.Current
}

func (m *MockClock) AfterFunc(d time.Duration, f func()) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Pending = append(m.Pending, f)
}

// Fire runs every queued callback in scheduling order.
func (m *MockClock) Fire() {
	m.Mu.Lock()
	pending := m.Pending
	m.Pending = nil
	m.Mu.Unlock()

	for _, f := range pending {
		f()
	}
}
