package commands_test

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/subcommands"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-ticker/cmd/watcher/internal/commands"
	"github.com/shubham-shewale/stock-ticker/cmd/watcher/internal/store"
	"github.com/shubham-shewale/stock-ticker/pkg/config"
	"github.com/shubham-shewale/stock-ticker/pkg/models"
	"github.com/shubham-shewale/stock-ticker/pkg/protocol"
)

// syncBuffer is written by the dashboard goroutine while the test reads it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type harness struct {
	kv  *store.Memory
	out *syncBuffer
	err *syncBuffer
	env *commands.Env
}

func newHarness(apiURL string) *harness {
	h := &harness{kv: store.NewMemory(), out: &syncBuffer{}, err: &syncBuffer{}}
	cfg := &config.Config{
		Watcher: config.WatcherConfig{
			APIURL:        apiURL,
			RetryDelay:    50 * time.Millisecond,
			HistoryLimit:  200,
			ChartPoints:   100,
			FlashDuration: 350 * time.Millisecond,
			WatchlistMax:  10,
		},
		Providers: config.ProvidersConfig{Timeout: 2 * time.Second},
	}
	h.env = &commands.Env{
		Config: cfg,
		Logger: zap.NewNop(),
		Out:    h.out,
		Err:    h.err,
		Open:   func() (store.KV, error) { return h.kv, nil },
	}
	return h
}

func (h *harness) run(t *testing.T, args ...string) subcommands.ExitStatus {
	t.Helper()
	fs := flag.NewFlagSet("watcher", flag.ContinueOnError)
	commander := subcommands.NewCommander(fs, "watcher")
	commander.Output = io.Discard
	commander.Error = io.Discard
	commands.Register(commander, h.env)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse %v: %v", args, err)
	}
	return commander.Execute(context.Background())
}

func TestPortfolioCmd(t *testing.T) {
	h := newHarness("http://unused")

	if st := h.run(t, "portfolio", "-plain", "add", "aapl", "10"); st != subcommands.ExitSuccess {
		t.Fatalf("Expected success, got %v: %s", st, h.err.String())
	}
	if st := h.run(t, "portfolio", "-plain", "buy", "AAPL"); st != subcommands.ExitSuccess {
		t.Fatalf("Expected success, got %v", st)
	}
	out := h.out.String()
	if !strings.Contains(out, "AAPL") || !strings.Contains(out, "11 shares") {
		t.Errorf("Expected AAPL with 11 shares, got:\n%s", out)
	}

	if st := h.run(t, "portfolio", "add", "AAPL", "-1"); st != subcommands.ExitFailure {
		t.Errorf("Expected negative shares to fail, got %v", st)
	}
	if st := h.run(t, "portfolio", "sell", "AAPL"); st != subcommands.ExitUsageError {
		t.Errorf("Expected usage error, got %v", st)
	}
}

func TestPortfolioCmd_ValueUsesGatewayQuotes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"provider":"sim","data":{"symbol":"AAPL","price":175.5}}`))
	}))
	defer srv.Close()

	h := newHarness(srv.URL)
	h.run(t, "portfolio", "-plain", "add", "AAPL", "2")
	if st := h.run(t, "portfolio", "-plain", "-value"); st != subcommands.ExitSuccess {
		t.Fatalf("Expected success, got %v", st)
	}
	if !strings.Contains(h.out.String(), "$351.00") {
		t.Errorf("Expected valued position, got:\n%s", h.out.String())
	}
}

func TestAlertsCmd(t *testing.T) {
	h := newHarness("http://unused")

	h.run(t, "alerts", "-plain", "add", "AAPL", "180")
	h.run(t, "alerts", "-plain", "add", "MSFT", "300")
	if st := h.run(t, "alerts", "-plain", "rm", "1"); st != subcommands.ExitSuccess {
		t.Fatalf("Expected success, got %v", st)
	}

	rules := store.NewAlerts(h.kv, zap.NewNop()).Load(context.Background())
	if len(rules) != 1 || rules[0].Symbol != "MSFT" {
		t.Errorf("Expected only MSFT, got %+v", rules)
	}
	if st := h.run(t, "alerts", "rm", "x"); st != subcommands.ExitFailure {
		t.Errorf("Expected failure for bad index, got %v", st)
	}
}

func TestWatchlistCmd(t *testing.T) {
	h := newHarness("http://unused")

	if st := h.run(t, "watchlist", "-plain", "add", "nvda"); st != subcommands.ExitSuccess {
		t.Fatalf("Expected success, got %v", st)
	}
	if st := h.run(t, "watchlist", "add", "NVDA"); st != subcommands.ExitFailure {
		t.Errorf("Expected duplicate to fail, got %v", st)
	}
	if !strings.Contains(h.err.String(), "NVDA already added.") {
		t.Errorf("Expected duplicate message, got %q", h.err.String())
	}
	if st := h.run(t, "watchlist", "add", "1234"); st != subcommands.ExitFailure {
		t.Errorf("Expected invalid symbol to fail, got %v", st)
	}

	got := store.NewWatchlist(h.kv, zap.NewNop(), 10).Load(context.Background())
	if strings.Join(got, ",") != "AAPL,MSFT,GOOGL,NVDA" {
		t.Errorf("Unexpected watchlist %v", got)
	}

	h.run(t, "watchlist", "-plain", "clear")
	if got := store.NewWatchlist(h.kv, zap.NewNop(), 10).Load(context.Background()); len(got) != 0 {
		t.Errorf("Expected cleared watchlist, got %v", got)
	}
}

func TestThemeCmd(t *testing.T) {
	h := newHarness("http://unused")

	h.run(t, "theme")
	h.run(t, "theme", "dark")
	h.run(t, "theme", "toggle")
	if got := h.out.String(); got != "light\ndark\nlight\n" {
		t.Errorf("Unexpected output %q", got)
	}
	if st := h.run(t, "theme", "blue"); st != subcommands.ExitUsageError {
		t.Errorf("Expected usage error, got %v", st)
	}
}

func TestQuoteCmd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("symbol") != "AAPL" {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"symbol not found"}`))
			return
		}
		w.Write([]byte(`{"provider":"sim","data":{"symbol":"AAPL","price":175.5}}`))
	}))
	defer srv.Close()

	h := newHarness(srv.URL)
	if st := h.run(t, "quote", "aapl"); st != subcommands.ExitSuccess {
		t.Fatalf("Expected success, got %v", st)
	}
	if got := h.out.String(); got != "AAPL\t175.50\tsim\n" {
		t.Errorf("Unexpected output %q", got)
	}

	if st := h.run(t, "quote", "ZZZZ"); st != subcommands.ExitFailure {
		t.Errorf("Expected failure, got %v", st)
	}
	if !strings.Contains(h.err.String(), "ZZZZ: symbol not found") {
		t.Errorf("Unexpected error output %q", h.err.String())
	}
}

func TestNewsCmd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"provider":"sim","data":[{"title":"Markets rally","source":{"name":"Simulated Feed"}}]}`))
	}))
	defer srv.Close()

	h := newHarness(srv.URL)
	if st := h.run(t, "news", "-plain"); st != subcommands.ExitSuccess {
		t.Fatalf("Expected success, got %v", st)
	}
	if !strings.Contains(h.out.String(), "Markets rally") {
		t.Errorf("Expected headline, got:\n%s", h.out.String())
	}
}

func TestNewsCmd_FailurePrintsInlineMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	h := newHarness(srv.URL)
	if st := h.run(t, "news"); st != subcommands.ExitFailure {
		t.Errorf("Expected failure, got %v", st)
	}
	if got := h.out.String(); got != "Failed to load news\n" {
		t.Errorf("Unexpected output %q", got)
	}
}

func TestWatchCmd_StreamsAndQuits(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		snap := models.Snapshot{{Symbol: "AAPL", Price: 175.5}, {Symbol: "MSFT", Price: 330.1}}
		b, _ := json.Marshal(protocol.Event{Type: protocol.EventSnapshot, Data: snap})
		conn.WriteMessage(websocket.TextMessage, b)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	h := newHarness(srv.URL)
	h.env.Config.Watcher.ServerURL = "ws" + strings.TrimPrefix(srv.URL, "http")
	inR, inW := io.Pipe()
	h.env.In = inR

	done := make(chan subcommands.ExitStatus, 1)
	go func() { done <- h.run(t, "watch", "-plain") }()

	deadline := time.Now().Add(3 * time.Second)
	for !strings.Contains(h.out.String(), "330.10") {
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for the snapshot, output:\n%s", h.out.String())
		}
		time.Sleep(10 * time.Millisecond)
	}

	inW.Write([]byte("buy MSFT\n"))
	deadline = time.Now().Add(3 * time.Second)
	for !strings.Contains(h.out.String(), "$330.10") {
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for the portfolio, output:\n%s", h.out.String())
		}
		time.Sleep(10 * time.Millisecond)
	}

	inW.Write([]byte("q\n"))
	select {
	case st := <-done:
		if st != subcommands.ExitSuccess {
			t.Errorf("Expected success, got %v", st)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("watch did not exit after q")
	}
	inW.Close()
}
