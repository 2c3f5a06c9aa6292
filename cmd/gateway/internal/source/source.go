package source

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-ticker/pkg/models"
)

// TickFunc receives the full price table after every tick.
type TickFunc func(ctx context.Context, snap models.Snapshot)

// PriceSource owns the canonical price of every tracked symbol. Prices only
// change through Tick; everything else reads copies.
type PriceSource struct {
	logger   *zap.Logger
	rand     Rand
	clock    Clock
	provider QuoteProvider
	timeout  time.Duration

	mu       sync.RWMutex
	quotes   models.Snapshot
	index    map[string]int
	lastTick time.Time
}

func NewPriceSource(
	logger *zap.Logger,
	symbols []string,
	seeds map[string]float64,
	rnd Rand,
	clock Clock,
) *PriceSource {
	ps := &PriceSource{
		logger: logger,
		rand:   rnd,
		clock:  clock,
		quotes: make(models.Snapshot, 0, len(symbols)),
		index:  make(map[string]int, len(symbols)),
	}
	for _, sym := range symbols {
		if _, dup := ps.index[sym]; dup {
			continue
		}
		price, ok := seeds[sym]
		if !ok || price <= 0 {
			price = models.Round2(100 + rnd.Float64()*300)
		}
		ps.index[sym] = len(ps.quotes)
		ps.quotes = append(ps.quotes, models.Quote{Symbol: sym, Price: price})
	}
	return ps
}

// WithProvider feeds real quotes into Tick. A symbol whose fetch fails keeps
// moving on the simulated walk.
func (ps *PriceSource) WithProvider(p QuoteProvider, timeout time.Duration) *PriceSource {
	ps.provider = p
	ps.timeout = timeout
	return ps
}

// Tick advances every price by an independent step in [-1%, +1%], rounded to
// cents, or replaces it with the provider quote when one is configured.
func (ps *PriceSource) Tick(ctx context.Context) {
	// Tick is the only writer, so the copy cannot go stale before the write below.
	current, _ := ps.Snapshot(ctx)

	next := make([]float64, len(current))
	for i, q := range current {
		if p, ok := ps.fetch(ctx, q.Symbol); ok {
			next[i] = p
			continue
		}
		next[i] = ps.step(q.Price)
	}

	ps.mu.Lock()
	for i := range ps.quotes {
		ps.quotes[i].Price = next[i]
	}
	ps.lastTick = ps.clock.Now()
	ps.mu.Unlock()
}

func (ps *PriceSource) step(price float64) float64 {
	delta := (ps.rand.Float64()*2 - 1) / 100
	return models.Round2(price * (1 + delta))
}

func (ps *PriceSource) fetch(ctx context.Context, symbol string) (float64, bool) {
	if ps.provider == nil {
		return 0, false
	}
	if ps.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ps.timeout)
		defer cancel()
	}
	q, err := ps.provider.Quote(ctx, symbol)
	if err != nil || q.Price <= 0 {
		ps.logger.Warn("Provider quote failed, using simulated step",
			zap.String("provider", ps.provider.Name()), zap.String("symbol", symbol), zap.Error(err))
		return 0, false
	}
	return models.Round2(q.Price), true
}

// Snapshot returns the current price table in tracking order. It never fails.
func (ps *PriceSource) Snapshot(ctx context.Context) (models.Snapshot, error) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return ps.quotes.Clone(), nil
}

// Price returns the current price of one symbol.
func (ps *PriceSource) Price(symbol string) (float64, bool) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	i, ok := ps.index[symbol]
	if !ok {
		return 0, false
	}
	return ps.quotes[i].Price, true
}

// LastTick reports when prices last moved; zero before the first tick.
func (ps *PriceSource) LastTick() time.Time {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return ps.lastTick
}

// Run ticks every interval until ctx is done. onTick runs on the same
// goroutine right after each tick, so no tick can interleave with it.
func (ps *PriceSource) Run(ctx context.Context, interval time.Duration, onTick TickFunc) {
	ps.logger.Info("Price source started", zap.Int("symbols", len(ps.index)), zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ps.Tick(ctx)
			if onTick != nil {
				snap, _ := ps.Snapshot(ctx)
				onTick(ctx, snap)
			}
		}
	}
}
