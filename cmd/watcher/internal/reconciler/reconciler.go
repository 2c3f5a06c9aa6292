// Package reconciler keeps the watcher's local mirror of prices consistent
// with the stream of snapshot and update events, and drives every view
// derived from it.
package reconciler

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-ticker/pkg/models"
)

type Options struct {
	HistoryLimit  int
	ChartPoints   int
	FlashDuration time.Duration
}

func DefaultOptions() Options {
	return Options{HistoryLimit: 200, ChartPoints: 100, FlashDuration: 350 * time.Millisecond}
}

type Reconciler struct {
	view      View
	notifier  Notifier
	portfolio PortfolioSource
	alerts    AlertStore
	clock     Clock
	logger    *zap.Logger
	opts      Options

	mu        sync.Mutex
	prices    map[string]float64
	history   map[string][]models.HistoryEntry
	rows      []string
	rowIndex  map[string]int
	selected  string
	flashGen  map[string]uint64
	connected bool
}

func New(
	view View,
	notifier Notifier,
	portfolio PortfolioSource,
	alerts AlertStore,
	clock Clock,
	logger *zap.Logger,
	opts Options,
) *Reconciler {
	def := DefaultOptions()
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = def.HistoryLimit
	}
	if opts.ChartPoints <= 0 {
		opts.ChartPoints = def.ChartPoints
	}
	if opts.FlashDuration <= 0 {
		opts.FlashDuration = def.FlashDuration
	}
	return &Reconciler{
		view:      view,
		notifier:  notifier,
		portfolio: portfolio,
		alerts:    alerts,
		clock:     clock,
		logger:    logger,
		opts:      opts,
		prices:    make(map[string]float64),
		history:   make(map[string][]models.HistoryEntry),
		rowIndex:  make(map[string]int),
		flashGen:  make(map[string]uint64),
	}
}

// OnSnapshot replaces the table with list. Symbols missing from list keep
// their price and history but lose their row.
func (r *Reconciler) OnSnapshot(ctx context.Context, list models.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	rows := make([]Row, 0, len(list))
	r.rows = r.rows[:0]
	r.rowIndex = make(map[string]int, len(list))

	for _, q := range list {
		if _, dup := r.rowIndex[q.Symbol]; dup {
			continue
		}
		r.record(q.Symbol, q.Price, now)
		r.rowIndex[q.Symbol] = len(r.rows)
		r.rows = append(r.rows, q.Symbol)
		rows = append(rows, Row{Symbol: q.Symbol, Price: q.Price})
	}
	r.view.RenderTable(rows)

	if _, ok := r.rowIndex[r.selected]; !ok {
		r.selected = ""
		if len(r.rows) > 0 {
			r.selected = r.rows[0]
		}
	}
	r.view.SetChartSymbols(append([]string(nil), r.rows...), r.selected)
	r.view.RenderQuickStats(r.quickStats())
}

// OnUpdate applies a full-state update, then refreshes the chart, quick
// stats and portfolio, and evaluates alerts.
func (r *Reconciler) OnUpdate(ctx context.Context, list models.Snapshot) {
	r.mu.Lock()

	now := r.clock.Now()
	for _, q := range list {
		old, ok := r.prices[q.Symbol]
		if !ok {
			old = q.Price
		}
		diff, pct := models.Change(old, q.Price)
		r.record(q.Symbol, q.Price, now)

		if _, hasRow := r.rowIndex[q.Symbol]; !hasRow {
			continue
		}
		r.view.UpdateRow(Row{Symbol: q.Symbol, Price: q.Price, Diff: diff, Pct: pct, Changed: true})
		r.flash(q.Symbol)
	}

	if r.selected != "" {
		r.renderChart(r.selected)
	}
	r.view.RenderQuickStats(r.quickStats())
	r.view.RenderPortfolio(r.valuation(ctx))
	fired := r.evaluateAlerts(ctx)

	r.mu.Unlock()

	for _, f := range fired {
		if err := r.notifier.Notify(ctx, f.rule, f.price); err != nil {
			r.logger.Warn("Alert notification failed", zap.String("symbol", f.rule.Symbol), zap.Error(err))
		}
	}
}

func (r *Reconciler) record(symbol string, price float64, at time.Time) {
	r.prices[symbol] = price
	h := append(r.history[symbol], models.HistoryEntry{Time: at, Price: price})
	if len(h) > r.opts.HistoryLimit {
		h = append(h[:0:0], h[len(h)-r.opts.HistoryLimit:]...)
	}
	r.history[symbol] = h
}

// flash marks the row and schedules its clear. Only the latest flash of a
// symbol is allowed to clear it.
func (r *Reconciler) flash(symbol string) {
	r.flashGen[symbol]++
	gen := r.flashGen[symbol]
	r.view.Flash(symbol)

	r.clock.AfterFunc(r.opts.FlashDuration, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.flashGen[symbol] != gen {
			return
		}
		if _, ok := r.rowIndex[symbol]; ok {
			r.view.ClearFlash(symbol)
		}
	})
}

// Select switches the chart to symbol. Unknown symbols are ignored.
func (r *Reconciler) Select(symbol string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.prices[symbol]; !ok {
		return false
	}
	r.selected = symbol
	r.view.SetChartSymbols(append([]string(nil), r.rows...), symbol)
	r.renderChart(symbol)
	return true
}

func (r *Reconciler) renderChart(symbol string) {
	r.view.RenderChart(symbol, r.chartPoints(symbol))
}

func (r *Reconciler) chartPoints(symbol string) []models.HistoryEntry {
	h := r.history[symbol]
	if len(h) > r.opts.ChartPoints {
		h = h[len(h)-r.opts.ChartPoints:]
	}
	return append([]models.HistoryEntry(nil), h...)
}

type firedAlert struct {
	rule  models.AlertRule
	price float64
}

// evaluateAlerts flips every untriggered rule whose symbol has reached its
// threshold. The rule set is written back on every pass.
func (r *Reconciler) evaluateAlerts(ctx context.Context) []firedAlert {
	var fired []firedAlert
	err := r.alerts.Update(ctx, func(rules []models.AlertRule) ([]models.AlertRule, error) {
		fired = fired[:0]
		for i := range rules {
			if rules[i].Triggered {
				continue
			}
			p, ok := r.prices[rules[i].Symbol]
			if !ok {
				continue
			}
			if p >= rules[i].Price {
				rules[i].Triggered = true
				fired = append(fired, firedAlert{rule: rules[i], price: p})
			}
		}
		return rules, nil
	})
	if err != nil {
		r.logger.Error("Failed to persist alerts", zap.Error(err))
	}
	return fired
}

func (r *Reconciler) quickStats() QuickStats {
	if len(r.prices) == 0 {
		return QuickStats{}
	}
	sum := decimal.Zero
	for _, p := range r.prices {
		sum = sum.Add(decimal.NewFromFloat(p))
	}
	n := len(r.prices)
	avg := sum.Div(decimal.NewFromInt(int64(n))).Round(2)
	return QuickStats{Count: n, Avg: avg.InexactFloat64()}
}

func (r *Reconciler) valuation(ctx context.Context) Valuation {
	return Value(r.portfolio.Load(ctx), r.prices)
}

// Value prices every position of pf, at 0 when its symbol has no price.
func Value(pf models.Portfolio, prices map[string]float64) Valuation {
	v := Valuation{Positions: make([]PositionValue, 0, len(pf))}
	total := decimal.Zero
	for _, sym := range pf.Symbols() {
		shares := pf[sym]
		price := prices[sym]
		value := decimal.NewFromFloat(shares).Mul(decimal.NewFromFloat(price)).Round(2)
		total = total.Add(value)
		v.Positions = append(v.Positions, PositionValue{
			Symbol: sym,
			Shares: shares,
			Price:  price,
			Value:  value.InexactFloat64(),
		})
	}
	v.Total = total.InexactFloat64()
	return v
}

// QuickStats recomputes the tracked count and mean price.
func (r *Reconciler) QuickStats() QuickStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.quickStats()
}

// Valuation values every stored position at its last known price.
func (r *Reconciler) Valuation(ctx context.Context) Valuation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.valuation(ctx)
}

// RenderPortfolio redraws the portfolio pane, used after user actions.
func (r *Reconciler) RenderPortfolio(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.view.RenderPortfolio(r.valuation(ctx))
}

func (r *Reconciler) SetConnected(connected bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connected = connected
	r.view.SetConnected(connected)
}

func (r *Reconciler) Connected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connected
}

// Price returns the last known price of symbol.
func (r *Reconciler) Price(symbol string) (float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.prices[symbol]
	return p, ok
}

// History returns a copy of the retained history of symbol, oldest first.
func (r *Reconciler) History(symbol string) []models.HistoryEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.HistoryEntry(nil), r.history[symbol]...)
}

// Rows returns the table symbols in snapshot order.
func (r *Reconciler) Rows() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.rows...)
}

func (r *Reconciler) Selected() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selected
}
