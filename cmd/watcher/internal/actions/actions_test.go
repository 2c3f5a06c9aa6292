package actions_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-ticker/cmd/watcher/internal/actions"
	"github.com/shubham-shewale/stock-ticker/cmd/watcher/internal/reconciler"
	"github.com/shubham-shewale/stock-ticker/cmd/watcher/internal/store"
	"github.com/shubham-shewale/stock-ticker/cmd/watcher/internal/testutils"
	"github.com/shubham-shewale/stock-ticker/pkg/models"
)

var ctx = context.Background()

type fixture struct {
	act       *actions.Actions
	portfolio *store.Portfolio
	alerts    *store.Alerts
	watchlist *store.Watchlist
	changes   int
}

func newFixture(max int) *fixture {
	kv := store.NewMemory()
	f := &fixture{
		portfolio: store.NewPortfolio(kv, zap.NewNop()),
		alerts:    store.NewAlerts(kv, zap.NewNop()),
		watchlist: store.NewWatchlist(kv, zap.NewNop(), max),
	}
	f.act = actions.New(f.portfolio, f.alerts, f.watchlist, store.NewPrefs(kv, zap.NewNop()), zap.NewNop())
	f.act.OnChange(func(context.Context) { f.changes++ })
	return f
}

func TestAddPosition(t *testing.T) {
	f := newFixture(10)

	if !f.act.AddPosition(ctx, " aapl ", "10") {
		t.Fatal("Expected valid add to succeed")
	}
	f.act.AddPosition(ctx, "AAPL", "0.5")

	if got := f.portfolio.Load(ctx)["AAPL"]; got != 10.5 {
		t.Errorf("Expected 10.5 shares, got %v", got)
	}
	if f.changes != 2 {
		t.Errorf("Expected 2 change hooks, got %d", f.changes)
	}
}

func TestAddPosition_InvalidIsNoop(t *testing.T) {
	cases := []struct {
		name   string
		symbol string
		shares string
	}{
		{"empty symbol", "  ", "5"},
		{"zero shares", "AAPL", "0"},
		{"negative shares", "AAPL", "-3"},
		{"not a number", "AAPL", "ten"},
		{"nan", "AAPL", "NaN"},
		{"empty shares", "AAPL", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(10)
			if f.act.AddPosition(ctx, tc.symbol, tc.shares) {
				t.Error("Expected refusal")
			}
			if len(f.portfolio.Load(ctx)) != 0 || f.changes != 0 {
				t.Error("Refused action changed state")
			}
		})
	}
}

func TestQuickAddAndRemove(t *testing.T) {
	f := newFixture(10)

	f.act.QuickAdd(ctx, "MSFT")
	f.act.QuickAdd(ctx, "msft")
	if got := f.portfolio.Load(ctx)["MSFT"]; got != 2 {
		t.Errorf("Expected 2 shares, got %v", got)
	}

	f.act.RemovePosition(ctx, "MSFT")
	if _, ok := f.portfolio.Load(ctx)["MSFT"]; ok {
		t.Error("Expected position removed entirely")
	}
}

func TestAlerts_AddAndRemove(t *testing.T) {
	f := newFixture(10)

	if f.act.AddAlert(ctx, "AAPL", "abc") || f.act.AddAlert(ctx, "", "100") || f.act.AddAlert(ctx, "AAPL", "-1") {
		t.Fatal("Expected invalid alerts to be refused")
	}
	f.act.AddAlert(ctx, "aapl", "100")
	f.act.AddAlert(ctx, "AAPL", "100")
	f.act.AddAlert(ctx, "TSLA", "300.5")

	rules := f.alerts.Load(ctx)
	if len(rules) != 3 || rules[0].Symbol != "AAPL" || rules[2].Price != 300.5 || rules[0].Triggered {
		t.Fatalf("Unexpected rules %+v", rules)
	}

	if f.act.RemoveAlert(ctx, 3) || f.act.RemoveAlert(ctx, -1) {
		t.Error("Expected out of range index to be refused")
	}
	f.act.RemoveAlert(ctx, 1)
	rules = f.alerts.Load(ctx)
	if len(rules) != 2 || rules[1].Symbol != "TSLA" {
		t.Errorf("Expected middle rule removed, got %+v", rules)
	}
}

func TestWatchlist(t *testing.T) {
	f := newFixture(4)
	f.act.ClearWatch(ctx)

	if _, err := f.act.AddWatch(ctx, "toolong"); !errors.Is(err, store.ErrInvalidSymbol) {
		t.Errorf("Expected invalid symbol, got %v", err)
	}
	if _, err := f.act.AddWatch(ctx, "BRK.B"); !errors.Is(err, store.ErrInvalidSymbol) {
		t.Errorf("Expected invalid symbol, got %v", err)
	}

	for _, s := range []string{"aapl", "MSFT", "GOOG", "AMZN"} {
		if _, err := f.act.AddWatch(ctx, s); err != nil {
			t.Fatalf("AddWatch(%s): %v", s, err)
		}
	}
	if _, err := f.act.AddWatch(ctx, "AAPL"); !errors.Is(err, store.ErrDuplicate) {
		t.Errorf("Expected duplicate, got %v", err)
	}
	if _, err := f.act.AddWatch(ctx, "TSLA"); !errors.Is(err, store.ErrWatchlistFull) {
		t.Errorf("Expected full, got %v", err)
	}

	f.act.RemoveWatch(ctx, "msft")
	got := f.watchlist.Load(ctx)
	if len(got) != 3 || got[0] != "AAPL" || got[1] != "GOOG" {
		t.Errorf("Unexpected watchlist %v", got)
	}
}

func TestToggleDark(t *testing.T) {
	f := newFixture(10)

	on, err := f.act.ToggleDark(ctx)
	if err != nil || !on {
		t.Fatalf("Expected dark on, got %v %v", on, err)
	}
	on, _ = f.act.ToggleDark(ctx)
	if on {
		t.Error("Expected dark off after second toggle")
	}
}

// gatedKV holds the next write of one key until release is closed.
type gatedKV struct {
	*store.Memory

	mu      sync.Mutex
	key     string
	entered chan struct{}
	release chan struct{}
}

func (g *gatedKV) hold(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.key = key
	g.entered = make(chan struct{})
	g.release = make(chan struct{})
}

func (g *gatedKV) Set(ctx context.Context, key, value string) error {
	g.mu.Lock()
	held := key == g.key
	if held {
		g.key = ""
	}
	entered, release := g.entered, g.release
	g.mu.Unlock()

	if held {
		close(entered)
		<-release
	}
	return g.Memory.Set(ctx, key, value)
}

type live struct {
	act       *actions.Actions
	rec       *reconciler.Reconciler
	notifier  *testutils.MockNotifier
	portfolio *store.Portfolio
	alerts    *store.Alerts
}

func newLive(kv store.KV) *live {
	nop := zap.NewNop()
	l := &live{
		notifier:  &testutils.MockNotifier{},
		portfolio: store.NewPortfolio(kv, nop),
		alerts:    store.NewAlerts(kv, nop),
	}
	l.act = actions.New(l.portfolio, l.alerts, store.NewWatchlist(kv, nop, 10), store.NewPrefs(kv, nop), nop)
	l.rec = reconciler.New(&testutils.MockView{}, l.notifier, l.portfolio, l.alerts, testutils.NewMockClock(), nop, reconciler.DefaultOptions())
	return l
}

func TestAddAlert_DuringEvaluationKeepsTriggeredFlag(t *testing.T) {
	kv := &gatedKV{Memory: store.NewMemory()}
	l := newLive(kv)
	l.alerts.Save(ctx, []models.AlertRule{{Symbol: "AAPL", Price: 100}})

	kv.hold(store.KeyAlerts)
	added := make(chan bool, 1)
	go func() { added <- l.act.AddAlert(ctx, "MSFT", "500") }()
	<-kv.entered

	ticked := make(chan struct{})
	go func() {
		l.rec.OnUpdate(ctx, models.Snapshot{{Symbol: "AAPL", Price: 101}})
		close(ticked)
	}()
	// give the tick time to reach the alert store while the add is mid-write
	time.Sleep(20 * time.Millisecond)
	close(kv.release)

	if !<-added {
		t.Fatal("Expected AddAlert to succeed")
	}
	<-ticked
	l.rec.OnUpdate(ctx, models.Snapshot{{Symbol: "AAPL", Price: 105}})

	if n := l.notifier.Count(); n != 1 {
		t.Errorf("Expected the AAPL rule to fire once, fired %d times", n)
	}
	rules := l.alerts.Load(ctx)
	if len(rules) != 2 {
		t.Fatalf("Expected both rules kept, got %+v", rules)
	}
	if !rules[0].Triggered || rules[1].Symbol != "MSFT" || rules[1].Triggered {
		t.Errorf("Unexpected rules %+v", rules)
	}
}

func TestActions_ConcurrentWithUpdates(t *testing.T) {
	l := newLive(store.NewMemory())

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			l.act.AddAlert(ctx, "AAPL", strconv.Itoa(100+i))
			l.act.QuickAdd(ctx, "AAPL")
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			l.rec.OnUpdate(ctx, models.Snapshot{{Symbol: "AAPL", Price: 1000}})
		}
	}()
	wg.Wait()
	// rules added after the last tick
	l.rec.OnUpdate(ctx, models.Snapshot{{Symbol: "AAPL", Price: 1000}})

	rules := l.alerts.Load(ctx)
	if len(rules) != 50 {
		t.Fatalf("Expected 50 rules, got %d", len(rules))
	}
	for i, r := range rules {
		if !r.Triggered {
			t.Errorf("Rule %d not triggered: %+v", i, r)
		}
	}
	if n := l.notifier.Count(); n != 50 {
		t.Errorf("Expected each rule to fire exactly once, got %d notifications", n)
	}
	if got := l.portfolio.Load(ctx)["AAPL"]; got != 50 {
		t.Errorf("Expected 50 shares, got %v", got)
	}
	if v := l.rec.Valuation(ctx); v.Total != 50000 {
		t.Errorf("Expected total 50000, got %v", v.Total)
	}
}
