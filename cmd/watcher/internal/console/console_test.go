package console_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-ticker/cmd/watcher/internal/actions"
	"github.com/shubham-shewale/stock-ticker/cmd/watcher/internal/console"
	"github.com/shubham-shewale/stock-ticker/cmd/watcher/internal/store"
)

var ctx = context.Background()

type fakeSelector struct{ known map[string]bool }

func (f *fakeSelector) Select(symbol string) bool { return f.known[symbol] }

type fakeRefresher struct {
	calls int
	err   error
}

func (f *fakeRefresher) Refresh() error {
	f.calls++
	return f.err
}

type fixture struct {
	con       *console.Console
	refresher *fakeRefresher
	portfolio *store.Portfolio
	alerts    *store.Alerts
	watchlist *store.Watchlist
	prefs     *store.Prefs
}

func newFixture() *fixture {
	kv := store.NewMemory()
	f := &fixture{
		refresher: &fakeRefresher{},
		portfolio: store.NewPortfolio(kv, zap.NewNop()),
		alerts:    store.NewAlerts(kv, zap.NewNop()),
		watchlist: store.NewWatchlist(kv, zap.NewNop(), 3),
		prefs:     store.NewPrefs(kv, zap.NewNop()),
	}
	act := actions.New(f.portfolio, f.alerts, f.watchlist, f.prefs, zap.NewNop())
	f.con = console.New(act, &fakeSelector{known: map[string]bool{"AAPL": true}}, f.refresher)
	return f
}

func TestDispatch_Positions(t *testing.T) {
	f := newFixture()

	f.con.Dispatch(ctx, "add aapl 10")
	f.con.Dispatch(ctx, "buy aapl")
	f.con.Dispatch(ctx, "add MSFT 2")
	if got := f.portfolio.Load(ctx); got["AAPL"] != 11 || got["MSFT"] != 2 {
		t.Fatalf("Unexpected portfolio: %v", got)
	}

	res := f.con.Dispatch(ctx, "rm msft")
	if res.Status != "Removed MSFT" {
		t.Errorf("Unexpected status %q", res.Status)
	}
	if _, ok := f.portfolio.Load(ctx)["MSFT"]; ok {
		t.Error("Expected MSFT removed")
	}

	res = f.con.Dispatch(ctx, "add AAPL abc")
	if !strings.HasPrefix(res.Status, "Ignored") {
		t.Errorf("Expected invalid input to be ignored, got %q", res.Status)
	}
}

func TestDispatch_Alerts(t *testing.T) {
	f := newFixture()

	f.con.Dispatch(ctx, "alert AAPL 180")
	f.con.Dispatch(ctx, "alert MSFT 300")
	f.con.Dispatch(ctx, "unalert 1")

	rules := f.alerts.Load(ctx)
	if len(rules) != 1 || rules[0].Symbol != "MSFT" {
		t.Fatalf("Expected only MSFT alert, got %+v", rules)
	}
	if res := f.con.Dispatch(ctx, "unalert 5"); !strings.HasPrefix(res.Status, "Ignored") {
		t.Errorf("Expected out-of-range removal to be ignored, got %q", res.Status)
	}
}

func TestDispatch_Watchlist(t *testing.T) {
	f := newFixture()
	f.con.Dispatch(ctx, "clear")

	cases := []struct {
		line string
		want string
	}{
		{"watch nvda", "Added NVDA."},
		{"watch NVDA", "NVDA already added."},
		{"watch TOOLONG", "Invalid symbol (1-5 letters)."},
		{"watch AMD", "Added AMD."},
		{"watch IBM", "Added IBM."},
		{"watch INTC", "Watchlist is full."},
		{"unwatch amd", "Removed AMD."},
	}
	for _, tc := range cases {
		if got := f.con.Dispatch(ctx, tc.line).Status; got != tc.want {
			t.Errorf("%q: expected %q, got %q", tc.line, tc.want, got)
		}
	}
	got := f.watchlist.Load(ctx)
	if strings.Join(got, ",") != "NVDA,IBM" {
		t.Errorf("Unexpected watchlist %v", got)
	}
}

func TestDispatch_RefreshAndSelect(t *testing.T) {
	f := newFixture()

	if res := f.con.Dispatch(ctx, "r"); res.Status != "Refresh requested" {
		t.Errorf("Unexpected status %q", res.Status)
	}
	f.refresher.err = errors.New("offline")
	if res := f.con.Dispatch(ctx, "refresh"); res.Status != "Not connected" {
		t.Errorf("Unexpected status %q", res.Status)
	}
	if f.refresher.calls != 2 {
		t.Errorf("Expected 2 refresh calls, got %d", f.refresher.calls)
	}

	if res := f.con.Dispatch(ctx, "s aapl"); res.Status != "Chart: AAPL" {
		t.Errorf("Unexpected status %q", res.Status)
	}
	if res := f.con.Dispatch(ctx, "s TSLA"); res.Status != "No prices for TSLA" {
		t.Errorf("Unexpected status %q", res.Status)
	}
}

func TestDispatch_ThemeAndQuit(t *testing.T) {
	f := newFixture()

	res := f.con.Dispatch(ctx, "dark")
	if res.Dark == nil || !*res.Dark {
		t.Fatalf("Expected dark on, got %+v", res)
	}
	if !f.prefs.Dark(ctx) {
		t.Error("Expected preference persisted")
	}
	res = f.con.Dispatch(ctx, "theme")
	if res.Dark == nil || *res.Dark {
		t.Errorf("Expected dark off, got %+v", res)
	}

	if !f.con.Dispatch(ctx, "q").Quit {
		t.Error("Expected quit")
	}
	if res := f.con.Dispatch(ctx, "   "); res.Status != "" || res.Quit {
		t.Errorf("Expected blank line to do nothing, got %+v", res)
	}
	if res := f.con.Dispatch(ctx, "frobnicate"); !strings.Contains(res.Status, "Unknown command") {
		t.Errorf("Unexpected status %q", res.Status)
	}
}
