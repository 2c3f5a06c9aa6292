// Package actions is the thin mutation layer behind the watcher's commands.
// Invalid input is refused without touching state.
package actions

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-ticker/cmd/watcher/internal/store"
	"github.com/shubham-shewale/stock-ticker/pkg/models"
)

type Actions struct {
	portfolio *store.Portfolio
	alerts    *store.Alerts
	watchlist *store.Watchlist
	prefs     *store.Prefs
	logger    *zap.Logger
	onChange  func(ctx context.Context)
}

func New(
	portfolio *store.Portfolio,
	alerts *store.Alerts,
	watchlist *store.Watchlist,
	prefs *store.Prefs,
	logger *zap.Logger,
) *Actions {
	return &Actions{
		portfolio: portfolio,
		alerts:    alerts,
		watchlist: watchlist,
		prefs:     prefs,
		logger:    logger,
	}
}

// OnChange registers a hook run after every successful mutation.
func (a *Actions) OnChange(fn func(ctx context.Context)) {
	a.onChange = fn
}

func (a *Actions) changed(ctx context.Context) {
	if a.onChange != nil {
		a.onChange(ctx)
	}
}

func normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// parsePositive accepts a finite number greater than zero.
func parsePositive(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, false
	}
	return v, true
}

// AddPosition adds shares to symbol, creating the position if needed.
func (a *Actions) AddPosition(ctx context.Context, symbol, shares string) bool {
	sym := normalize(symbol)
	n, ok := parsePositive(shares)
	if sym == "" || !ok {
		return false
	}
	return a.addShares(ctx, sym, n)
}

// QuickAdd adds a single share.
func (a *Actions) QuickAdd(ctx context.Context, symbol string) bool {
	sym := normalize(symbol)
	if sym == "" {
		return false
	}
	return a.addShares(ctx, sym, 1)
}

func (a *Actions) addShares(ctx context.Context, sym string, n float64) bool {
	err := a.portfolio.Update(ctx, func(pf models.Portfolio) error {
		pf[sym] = decimal.NewFromFloat(pf[sym]).Add(decimal.NewFromFloat(n)).InexactFloat64()
		return nil
	})
	if err != nil {
		a.logger.Error("Failed to save portfolio", zap.Error(err))
		return false
	}
	a.changed(ctx)
	return true
}

// RemovePosition deletes the whole position. Removing an absent symbol still succeeds.
func (a *Actions) RemovePosition(ctx context.Context, symbol string) bool {
	sym := normalize(symbol)
	err := a.portfolio.Update(ctx, func(pf models.Portfolio) error {
		delete(pf, sym)
		return nil
	})
	if err != nil {
		a.logger.Error("Failed to save portfolio", zap.Error(err))
		return false
	}
	a.changed(ctx)
	return true
}

// AddAlert appends an untriggered rule. Several rules may watch the same symbol.
func (a *Actions) AddAlert(ctx context.Context, symbol, price string) bool {
	sym := normalize(symbol)
	p, ok := parsePositive(price)
	if sym == "" || !ok {
		return false
	}
	err := a.alerts.Update(ctx, func(rules []models.AlertRule) ([]models.AlertRule, error) {
		return append(rules, models.AlertRule{Symbol: sym, Price: p}), nil
	})
	if err != nil {
		a.logger.Error("Failed to save alerts", zap.Error(err))
		return false
	}
	a.changed(ctx)
	return true
}

var errNoSuchAlert = errors.New("no such alert")

// RemoveAlert deletes the rule at index, counting from 0.
func (a *Actions) RemoveAlert(ctx context.Context, index int) bool {
	err := a.alerts.Update(ctx, func(rules []models.AlertRule) ([]models.AlertRule, error) {
		if index < 0 || index >= len(rules) {
			return nil, errNoSuchAlert
		}
		return append(rules[:index], rules[index+1:]...), nil
	})
	if errors.Is(err, errNoSuchAlert) {
		return false
	}
	if err != nil {
		a.logger.Error("Failed to save alerts", zap.Error(err))
		return false
	}
	a.changed(ctx)
	return true
}

// AddWatch appends symbol to the watchlist. The error explains a refusal.
func (a *Actions) AddWatch(ctx context.Context, symbol string) (string, error) {
	sym := normalize(symbol)
	if !store.ValidSymbol(sym) {
		return "", store.ErrInvalidSymbol
	}
	list := a.watchlist.Load(ctx)
	for _, s := range list {
		if s == sym {
			return sym, store.ErrDuplicate
		}
	}
	if len(list) >= a.watchlist.Max() {
		return sym, store.ErrWatchlistFull
	}
	if err := a.watchlist.Save(ctx, append(list, sym)); err != nil {
		return sym, fmt.Errorf("save watchlist: %w", err)
	}
	a.changed(ctx)
	return sym, nil
}

func (a *Actions) RemoveWatch(ctx context.Context, symbol string) bool {
	sym := normalize(symbol)
	list := a.watchlist.Load(ctx)
	out := list[:0]
	for _, s := range list {
		if s != sym {
			out = append(out, s)
		}
	}
	if err := a.watchlist.Save(ctx, out); err != nil {
		a.logger.Error("Failed to save watchlist", zap.Error(err))
		return false
	}
	a.changed(ctx)
	return true
}

func (a *Actions) ClearWatch(ctx context.Context) error {
	if err := a.watchlist.Save(ctx, nil); err != nil {
		return fmt.Errorf("save watchlist: %w", err)
	}
	a.changed(ctx)
	return nil
}

// ToggleDark flips the display preference and returns the new value.
func (a *Actions) ToggleDark(ctx context.Context) (bool, error) {
	on := !a.prefs.Dark(ctx)
	if err := a.prefs.SetDark(ctx, on); err != nil {
		return !on, fmt.Errorf("save theme: %w", err)
	}
	a.changed(ctx)
	return on, nil
}
