package store

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"sync"

	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-ticker/pkg/models"
)

const (
	KeyPortfolio = "portfolio"
	KeyAlerts    = "alerts"
	KeyWatchlist = "watchlist"
	KeyDark      = "dark"
	KeyTheme     = "theme"
)

const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)

// loadJSON decodes key into out and reports whether a value was stored.
// An unreadable or malformed value leaves out untouched.
func loadJSON(ctx context.Context, kv KV, logger *zap.Logger, key string, out any) bool {
	raw, ok, err := kv.Get(ctx, key)
	if err != nil {
		logger.Warn("Store read failed, using empty value", zap.String("key", key), zap.Error(err))
		return true
	}
	if !ok || raw == "" {
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		logger.Warn("Malformed stored value, using empty value", zap.String("key", key), zap.Error(err))
	}
	return true
}

func saveJSON(ctx context.Context, kv KV, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return kv.Set(ctx, key, string(b))
}

// Portfolio persists symbol -> shares. Writes are serialized.
type Portfolio struct {
	kv     KV
	logger *zap.Logger
	mu     sync.Mutex
}

func NewPortfolio(kv KV, logger *zap.Logger) *Portfolio {
	return &Portfolio{kv: kv, logger: logger}
}

func (p *Portfolio) Load(ctx context.Context) models.Portfolio {
	var out models.Portfolio
	loadJSON(ctx, p.kv, p.logger, KeyPortfolio, &out)
	if out == nil {
		out = models.Portfolio{}
	}
	return out
}

func (p *Portfolio) Save(ctx context.Context, pf models.Portfolio) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return saveJSON(ctx, p.kv, KeyPortfolio, pf)
}

// Update applies fn to the stored portfolio under the write lock.
func (p *Portfolio) Update(ctx context.Context, fn func(pf models.Portfolio) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	pf := p.Load(ctx)
	if err := fn(pf); err != nil {
		return err
	}
	return saveJSON(ctx, p.kv, KeyPortfolio, pf)
}

// Alerts persists the ordered alert rule list. Writes are serialized.
type Alerts struct {
	kv     KV
	logger *zap.Logger
	mu     sync.Mutex
}

func NewAlerts(kv KV, logger *zap.Logger) *Alerts {
	return &Alerts{kv: kv, logger: logger}
}

func (a *Alerts) Load(ctx context.Context) []models.AlertRule {
	var out []models.AlertRule
	loadJSON(ctx, a.kv, a.logger, KeyAlerts, &out)
	if out == nil {
		out = []models.AlertRule{}
	}
	return out
}

func (a *Alerts) Save(ctx context.Context, rules []models.AlertRule) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.save(ctx, rules)
}

// Update loads the rules, applies fn and stores the result, all under the
// write lock. An error from fn aborts the write and is returned as is.
func (a *Alerts) Update(ctx context.Context, fn func(rules []models.AlertRule) ([]models.AlertRule, error)) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	rules, err := fn(a.Load(ctx))
	if err != nil {
		return err
	}
	return a.save(ctx, rules)
}

func (a *Alerts) save(ctx context.Context, rules []models.AlertRule) error {
	if rules == nil {
		rules = []models.AlertRule{}
	}
	return saveJSON(ctx, a.kv, KeyAlerts, rules)
}

var (
	ErrInvalidSymbol = errors.New("invalid symbol format")
	ErrDuplicate     = errors.New("symbol already in watchlist")
	ErrWatchlistFull = errors.New("watchlist is full")
)

// DefaultWatchlist is used until the user saves a list of their own.
var DefaultWatchlist = []string{"AAPL", "MSFT", "GOOGL"}

var symbolPattern = regexp.MustCompile(`^[A-Z]{1,5}$`)

// ValidSymbol reports whether s is 1 to 5 uppercase letters.
func ValidSymbol(s string) bool { return symbolPattern.MatchString(s) }

// Watchlist persists an ordered, duplicate-free list of at most max symbols.
type Watchlist struct {
	kv     KV
	logger *zap.Logger
	max    int
}

func NewWatchlist(kv KV, logger *zap.Logger, max int) *Watchlist {
	if max <= 0 {
		max = 10
	}
	return &Watchlist{kv: kv, logger: logger, max: max}
}

func (w *Watchlist) Max() int { return w.max }

// Load drops entries that are invalid or repeated and trims to the cap.
// A list that was never saved loads as DefaultWatchlist.
func (w *Watchlist) Load(ctx context.Context) []string {
	var raw []string
	if !loadJSON(ctx, w.kv, w.logger, KeyWatchlist, &raw) {
		raw = DefaultWatchlist
	}

	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if !ValidSymbol(s) || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
		if len(out) == w.max {
			break
		}
	}
	return out
}

func (w *Watchlist) Save(ctx context.Context, symbols []string) error {
	if len(symbols) > w.max {
		return ErrWatchlistFull
	}
	if symbols == nil {
		symbols = []string{}
	}
	return saveJSON(ctx, w.kv, KeyWatchlist, symbols)
}

// Prefs holds the display preferences. "dark" is "1"/"0" and "theme" is "dark"/"light";
// both are written together so either reader sees the same choice.
type Prefs struct {
	kv     KV
	logger *zap.Logger
}

func NewPrefs(kv KV, logger *zap.Logger) *Prefs {
	return &Prefs{kv: kv, logger: logger}
}

func (p *Prefs) Dark(ctx context.Context) bool {
	if v, ok := p.get(ctx, KeyDark); ok {
		return v == "1"
	}
	v, _ := p.get(ctx, KeyTheme)
	return v == ThemeDark
}

func (p *Prefs) SetDark(ctx context.Context, on bool) error {
	dark, theme := "0", ThemeLight
	if on {
		dark, theme = "1", ThemeDark
	}
	if err := p.kv.Set(ctx, KeyDark, dark); err != nil {
		return err
	}
	return p.kv.Set(ctx, KeyTheme, theme)
}

func (p *Prefs) get(ctx context.Context, key string) (string, bool) {
	v, ok, err := p.kv.Get(ctx, key)
	if err != nil {
		p.logger.Warn("Store read failed", zap.String("key", key), zap.Error(err))
		return "", false
	}
	return v, ok
}
