package reconciler

import (
	"context"
	"fmt"
	"time"

	"github.com/shubham-shewale/stock-ticker/pkg/models"
)

// View is the redraw surface driven by the reconciler. Calls arrive one at a
// time and must not call back into the reconciler.
type View interface {
	RenderTable(rows []Row)
	UpdateRow(row Row)
	Flash(symbol string)
	ClearFlash(symbol string)
	SetChartSymbols(symbols []string, selected string)
	RenderChart(symbol string, points []models.HistoryEntry)
	RenderQuickStats(stats QuickStats)
	RenderPortfolio(v Valuation)
	SetConnected(connected bool)
}

// Notifier delivers a fired alert to the user.
type Notifier interface {
	Notify(ctx context.Context, rule models.AlertRule, price float64) error
}

type PortfolioSource interface {
	Load(ctx context.Context) models.Portfolio
}

// AlertStore holds the alert rules. Update must apply fn atomically with
// respect to every other writer of the rules.
type AlertStore interface {
	Load(ctx context.Context) []models.AlertRule
	Update(ctx context.Context, fn func(rules []models.AlertRule) ([]models.AlertRule, error)) error
}

// Clock schedules the flash auto-clear.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func())
}

type RealClock struct{}

func (RealClock) Now() time.Time                      { return time.Now() }
func (RealClock) AfterFunc(d time.Duration, f func()) { time.AfterFunc(d, f) }

type Direction int

const (
	Neutral Direction = iota
	Up
	Down
)

// Row is one line of the live table. Changed is false until the first update after a snapshot.
type Row struct {
	Symbol  string
	Price   float64
	Diff    float64
	Pct     float64
	Changed bool
}

func (r Row) Direction() Direction {
	switch {
	case r.Diff > 0:
		return Up
	case r.Diff < 0:
		return Down
	default:
		return Neutral
	}
}

type QuickStats struct {
	Count int
	Avg   float64
}

func (q QuickStats) String() string {
	if q.Count == 0 {
		return "—"
	}
	return fmt.Sprintf("Tracked: %d • Avg price: $%.2f", q.Count, q.Avg)
}

type PositionValue struct {
	Symbol string
	Shares float64
	Price  float64 // 0 when unknown
	Value  float64
}

type Valuation struct {
	Positions []PositionValue
	Total     float64
}
