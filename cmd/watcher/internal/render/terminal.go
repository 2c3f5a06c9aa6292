// Package render draws the watcher dashboard as markdown in the terminal.
package render

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/Rhymond/go-money"
	"github.com/charmbracelet/glamour"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-ticker/cmd/watcher/internal/reconciler"
	"github.com/shubham-shewale/stock-ticker/pkg/models"
)

const (
	StyleDark  = "dark"
	StyleLight = "light"
	StylePlain = "notty"

	clearScreen = "\x1b[H\x1b[2J"
)

var sparkBars = []rune("▁▂▃▄▅▆▇█")

type Options struct {
	Dark     bool
	Plain    bool // no colours and no screen clearing, for pipes and logs
	Width    int
	Currency string
}

// Terminal implements reconciler.View. Every call updates one pane and marks
// the dashboard dirty; Run redraws at most once per signal.
type Terminal struct {
	out    io.Writer
	logger *zap.Logger
	opts   Options

	mu        sync.Mutex
	md        markdownRenderer
	connected bool
	rows      []reconciler.Row
	rowIndex  map[string]int
	flashing  map[string]bool
	symbols   []string
	selected  string
	chartSym  string
	chart     []models.HistoryEntry
	stats     reconciler.QuickStats
	valuation reconciler.Valuation
	watchlist []string
	alerts    []models.AlertRule
	status    string
	dirty     chan struct{}
}

type markdownRenderer interface {
	Render(in string) (string, error)
}

func NewTerminal(out io.Writer, logger *zap.Logger, opts Options) (*Terminal, error) {
	if opts.Width <= 0 {
		opts.Width = 100
	}
	if opts.Currency == "" {
		opts.Currency = money.USD
	}
	md, err := newRenderer(opts)
	if err != nil {
		return nil, err
	}
	return &Terminal{
		out:      out,
		logger:   logger,
		opts:     opts,
		md:       md,
		rowIndex: make(map[string]int),
		flashing: make(map[string]bool),
		dirty:    make(chan struct{}, 1),
	}, nil
}

func newRenderer(opts Options) (*glamour.TermRenderer, error) {
	style := StyleFor(opts.Dark, opts.Plain)
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(opts.Width),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s renderer: %w", style, err)
	}
	return r, nil
}

// SetDark switches the glamour style. Plain terminals ignore it.
func (t *Terminal) SetDark(dark bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.opts.Dark == dark {
		return nil
	}
	opts := t.opts
	opts.Dark = dark
	md, err := newRenderer(opts)
	if err != nil {
		return err
	}
	t.opts = opts
	t.md = md
	t.markDirty()
	return nil
}

func (t *Terminal) markDirty() {
	select {
	case t.dirty <- struct{}{}:
	default:
	}
}

// Dirty fires when the dashboard needs a redraw.
func (t *Terminal) Dirty() <-chan struct{} { return t.dirty }

func (t *Terminal) RenderTable(rows []reconciler.Row) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = append(t.rows[:0:0], rows...)
	t.rowIndex = make(map[string]int, len(rows))
	for i, r := range rows {
		t.rowIndex[r.Symbol] = i
	}
	t.flashing = make(map[string]bool)
	t.markDirty()
}

func (t *Terminal) UpdateRow(row reconciler.Row) {
	t.mu.Lock()
	defer t.mu.Unlock()
	i, ok := t.rowIndex[row.Symbol]
	if !ok {
		return
	}
	t.rows[i] = row
	t.markDirty()
}

func (t *Terminal) Flash(symbol string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.flashing[symbol] = true
	t.markDirty()
}

func (t *Terminal) ClearFlash(symbol string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.flashing, symbol)
	t.markDirty()
}

func (t *Terminal) SetChartSymbols(symbols []string, selected string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.symbols = append(t.symbols[:0:0], symbols...)
	t.selected = selected
	t.markDirty()
}

func (t *Terminal) RenderChart(symbol string, points []models.HistoryEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.chartSym = symbol
	t.chart = append(t.chart[:0:0], points...)
	t.selected = symbol
	t.markDirty()
}

func (t *Terminal) RenderQuickStats(stats reconciler.QuickStats) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats = stats
	t.markDirty()
}

func (t *Terminal) RenderPortfolio(v reconciler.Valuation) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.valuation = v
	t.markDirty()
}

func (t *Terminal) SetConnected(connected bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connected = connected
	t.markDirty()
}

func (t *Terminal) SetWatchlist(symbols []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.watchlist = append(t.watchlist[:0:0], symbols...)
	t.markDirty()
}

func (t *Terminal) SetAlerts(rules []models.AlertRule) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.alerts = append(t.alerts[:0:0], rules...)
	t.markDirty()
}

// SetStatus shows a one-line message under the dashboard, e.g. the result of
// the last command.
func (t *Terminal) SetStatus(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = msg
	t.markDirty()
}

// Run redraws the dashboard whenever a pane changes, until ctx is done.
func (t *Terminal) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.dirty:
			if err := t.Draw(); err != nil {
				t.logger.Warn("Redraw failed", zap.Error(err))
			}
		}
	}
}

// Draw renders the dashboard once.
func (t *Terminal) Draw() error {
	t.mu.Lock()
	doc := t.markdown()
	md := t.md
	plain := t.opts.Plain
	t.mu.Unlock()

	out, err := md.Render(doc)
	if err != nil {
		return fmt.Errorf("failed to render dashboard: %w", err)
	}
	if !plain {
		out = clearScreen + out
	}
	if _, err := io.WriteString(t.out, out); err != nil {
		return fmt.Errorf("failed to write dashboard: %w", err)
	}
	return nil
}

// Markdown returns the dashboard source without rendering it.
func (t *Terminal) Markdown() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.markdown()
}

func (t *Terminal) markdown() string {
	var b strings.Builder

	conn := "disconnected"
	if t.connected {
		conn = "connected"
	}
	fmt.Fprintf(&b, "# Live Stocks\n\nStatus: **%s**\n\n", conn)

	if len(t.rows) == 0 {
		b.WriteString("_waiting for prices_\n\n")
	} else {
		b.WriteString("| Symbol | Price | Change |\n|---|---:|---:|\n")
		for _, r := range t.rows {
			sym := r.Symbol
			if t.flashing[r.Symbol] {
				sym = "**" + sym + "**"
			}
			fmt.Fprintf(&b, "| %s | %s | %s |\n", sym, strconv.FormatFloat(r.Price, 'f', 2, 64), changeText(r))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Chart\n\n")
	if t.chartSym == "" {
		b.WriteString("_no symbol selected_\n\n")
	} else {
		fmt.Fprintf(&b, "%s - points: %d\n\n", t.chartSym, len(t.chart))
		if line := Sparkline(t.chart); line != "" {
			fmt.Fprintf(&b, "`%s`\n\n", line)
		}
	}
	if len(t.symbols) > 0 {
		names := make([]string, len(t.symbols))
		for i, s := range t.symbols {
			names[i] = s
			if s == t.selected {
				names[i] = "[" + s + "]"
			}
		}
		fmt.Fprintf(&b, "Symbols: %s\n\n", strings.Join(names, " "))
	}

	fmt.Fprintf(&b, "%s\n\n", t.stats.String())

	fmt.Fprintf(&b, "## Portfolio\n\n%s\n", PortfolioMarkdown(t.valuation, t.opts.Currency))

	if len(t.alerts) > 0 {
		fmt.Fprintf(&b, "## Alerts\n\n%s\n", AlertsMarkdown(t.alerts))
	}
	if len(t.watchlist) > 0 {
		fmt.Fprintf(&b, "## Watchlist\n\n%s\n\n", strings.Join(t.watchlist, ", "))
	}

	if t.status != "" {
		fmt.Fprintf(&b, "> %s\n", t.status)
	}
	return b.String()
}

// changeText formats a row's change as "+1.25 (0.71% )", or "-" before the
// first update.
func changeText(r reconciler.Row) string {
	if !r.Changed {
		return "-"
	}
	sign := ""
	if r.Diff >= 0 {
		sign = "+"
	}
	arrow := "•"
	switch r.Direction() {
	case reconciler.Up:
		arrow = "▲"
	case reconciler.Down:
		arrow = "▼"
	}
	return fmt.Sprintf("%s %s%s (%s%% )", arrow, sign, strconv.FormatFloat(r.Diff, 'f', 2, 64),
		strconv.FormatFloat(r.Pct, 'f', -1, 64))
}

// Sparkline maps the points onto eight bar heights between their min and max.
func Sparkline(points []models.HistoryEntry) string {
	if len(points) == 0 {
		return ""
	}
	lo, hi := points[0].Price, points[0].Price
	for _, p := range points {
		lo = min(lo, p.Price)
		hi = max(hi, p.Price)
	}
	out := make([]rune, len(points))
	for i, p := range points {
		idx := 0
		if hi > lo {
			idx = int((p.Price - lo) / (hi - lo) * float64(len(sparkBars)-1))
		}
		out[i] = sparkBars[idx]
	}
	return string(out)
}
