package source_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-ticker/cmd/gateway/internal/source"
	"github.com/shubham-shewale/stock-ticker/cmd/gateway/internal/testutils"
	"github.com/shubham-shewale/stock-ticker/pkg/models"
)

func newSource(rnd source.Rand, seeds map[string]float64, symbols ...string) *source.PriceSource {
	return source.NewPriceSource(zap.NewNop(), symbols, seeds, rnd, &testutils.MockClock{CurrentTime: time.Unix(0, 0)})
}

func TestPriceSource_Seeding(t *testing.T) {
	// 0.5 -> 100 + 0.5*300 = 250
	ps := newSource(&testutils.MockRand{ValFloat: 0.5}, map[string]float64{"AAPL": 175.5}, "AAPL", "NVDA", "AAPL")

	snap, err := ps.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if len(snap) != 2 {
		t.Fatalf("Expected 2 tracked symbols, got %d", len(snap))
	}
	if snap[0] != (models.Quote{Symbol: "AAPL", Price: 175.5}) {
		t.Errorf("Expected AAPL seeded at 175.5, got %+v", snap[0])
	}
	if snap[1] != (models.Quote{Symbol: "NVDA", Price: 250}) {
		t.Errorf("Expected NVDA seeded at 250, got %+v", snap[1])
	}
}

func TestPriceSource_TickDeterministic(t *testing.T) {
	cases := []struct {
		rnd  float64
		want float64
	}{
		{0.0, 99},  // -1%
		{0.5, 100}, // no move
		{1.0, 101}, // +1%
		{0.75, 100.5},
	}
	for _, tc := range cases {
		ps := newSource(&testutils.MockRand{ValFloat: tc.rnd}, map[string]float64{"AAPL": 100}, "AAPL")
		ps.Tick(context.Background())

		got, _ := ps.Price("AAPL")
		if got != tc.want {
			t.Errorf("rand %v: expected %v, got %v", tc.rnd, tc.want, got)
		}
	}
}

func TestPriceSource_TickBoundedWalk(t *testing.T) {
	ps := newSource(source.NewRealRand(), nil, "AAPL", "GOOGL", "MSFT", "AMZN", "TSLA")
	ctx := context.Background()

	for i := 0; i < 500; i++ {
		before, _ := ps.Snapshot(ctx)
		ps.Tick(ctx)
		after, _ := ps.Snapshot(ctx)

		for j := range before {
			if after[j].Symbol != before[j].Symbol {
				t.Fatalf("Tracking order changed: %v -> %v", before.Symbols(), after.Symbols())
			}
			// rounding to cents may add up to half a cent on top of the 1% bound
			limit := before[j].Price*0.01 + 0.005
			if math.Abs(after[j].Price-before[j].Price) > limit+1e-9 {
				t.Fatalf("%s moved from %v to %v, more than 1%%", before[j].Symbol, before[j].Price, after[j].Price)
			}
			if after[j].Price != models.Round2(after[j].Price) {
				t.Fatalf("%s price %v is not rounded to cents", after[j].Symbol, after[j].Price)
			}
		}
	}
}

func TestPriceSource_SnapshotIsACopy(t *testing.T) {
	ps := newSource(&testutils.MockRand{ValFloat: 0.5}, map[string]float64{"AAPL": 100}, "AAPL")

	snap, _ := ps.Snapshot(context.Background())
	snap[0].Price = 1

	if got, _ := ps.Price("AAPL"); got != 100 {
		t.Errorf("Snapshot mutation leaked into the source: %v", got)
	}
	if _, ok := ps.Price("NOPE"); ok {
		t.Error("Expected unknown symbol to be absent")
	}
}

func TestPriceSource_ProviderFallback(t *testing.T) {
	provider := &testutils.MockProvider{
		Prices: map[string]float64{"AAPL": 180.123},
		Errs:   map[string]error{"MSFT": errors.New("rate limited")},
	}
	ps := newSource(&testutils.MockRand{ValFloat: 1.0}, map[string]float64{"AAPL": 100, "MSFT": 200}, "AAPL", "MSFT").
		WithProvider(provider, time.Second)

	ps.Tick(context.Background())

	if got, _ := ps.Price("AAPL"); got != 180.12 {
		t.Errorf("Expected provider price 180.12, got %v", got)
	}
	// MSFT failed upstream and moved on the simulated walk instead
	if got, _ := ps.Price("MSFT"); got != 202 {
		t.Errorf("Expected simulated fallback 202, got %v", got)
	}
}

func TestPriceSource_Run(t *testing.T) {
	ps := newSource(&testutils.MockRand{ValFloat: 1.0}, map[string]float64{"AAPL": 100}, "AAPL")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ticks := make(chan models.Snapshot, 1)
	go ps.Run(ctx, 5*time.Millisecond, func(_ context.Context, snap models.Snapshot) {
		select {
		case ticks <- snap:
		default:
		}
	})

	select {
	case snap := <-ticks:
		if snap[0].Price <= 100 {
			t.Errorf("Expected broadcast after the price moved, got %v", snap[0].Price)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("onTick was never called")
	}
	if ps.LastTick().IsZero() {
		t.Error("Expected LastTick to be recorded")
	}
}
