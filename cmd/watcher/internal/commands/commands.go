// Package commands holds the watcher's subcommands.
package commands

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/google/subcommands"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-ticker/cmd/watcher/internal/actions"
	"github.com/shubham-shewale/stock-ticker/cmd/watcher/internal/client"
	"github.com/shubham-shewale/stock-ticker/cmd/watcher/internal/render"
	"github.com/shubham-shewale/stock-ticker/cmd/watcher/internal/store"
	"github.com/shubham-shewale/stock-ticker/pkg/config"
)

// Env is what every command needs from main.
type Env struct {
	Config *config.Config
	Logger *zap.Logger
	In     io.Reader
	Out    io.Writer
	Err    io.Writer

	// Open overrides the configured store, for tests.
	Open func() (store.KV, error)
	// HTTP overrides the gateway client transport, for tests.
	HTTP *http.Client
}

// Register the subcommands.
func Register(c *subcommands.Commander, env *Env) {
	c.Register(c.HelpCommand(), "")
	c.Register(c.FlagsCommand(), "")
	c.Register(c.CommandsCommand(), "")

	c.Register(&watchCmd{env: env}, "live")

	c.Register(&portfolioCmd{env: env}, "local state")
	c.Register(&alertsCmd{env: env}, "local state")
	c.Register(&watchlistCmd{env: env}, "local state")
	c.Register(&themeCmd{env: env}, "local state")

	c.Register(&quoteCmd{env: env}, "gateway")
	c.Register(&newsCmd{env: env}, "gateway")
}

func (e *Env) stdin() io.Reader {
	if e.In != nil {
		return e.In
	}
	return os.Stdin
}

func (e *Env) stdout() io.Writer {
	if e.Out != nil {
		return e.Out
	}
	return os.Stdout
}

func (e *Env) stderr() io.Writer {
	if e.Err != nil {
		return e.Err
	}
	return os.Stderr
}

func (e *Env) failf(format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(e.stderr(), format+"\n", args...)
	return subcommands.ExitFailure
}

func (e *Env) gateway() *client.Client {
	httpClient := e.HTTP
	if httpClient == nil {
		httpClient = &http.Client{Timeout: e.Config.Providers.Timeout}
	}
	return client.New(e.Config.Watcher.APIURL, httpClient)
}

// state is the persisted watcher state behind one KV backend.
type state struct {
	kv        store.KV
	portfolio *store.Portfolio
	alerts    *store.Alerts
	watchlist *store.Watchlist
	prefs     *store.Prefs
	actions   *actions.Actions
}

func (e *Env) openState() (*state, error) {
	var (
		kv  store.KV
		err error
	)
	if e.Open != nil {
		kv, err = e.Open()
	} else {
		kv, err = store.Open(store.Options{
			Driver:    e.Config.Watcher.StoreDriver,
			Path:      e.Config.Watcher.StorePath,
			RedisAddr: e.Config.Redis.Addr,
			RedisPass: e.Config.Redis.Password,
			RedisDB:   e.Config.Redis.DB,
			Prefix:    e.Config.Watcher.StorePrefix,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	s := &state{
		kv:        kv,
		portfolio: store.NewPortfolio(kv, e.Logger),
		alerts:    store.NewAlerts(kv, e.Logger),
		watchlist: store.NewWatchlist(kv, e.Logger, e.Config.Watcher.WatchlistMax),
		prefs:     store.NewPrefs(kv, e.Logger),
	}
	s.actions = actions.New(s.portfolio, s.alerts, s.watchlist, s.prefs, e.Logger)
	return s, nil
}

func (s *state) Close() error { return s.kv.Close() }

// printMarkdown renders md in the user's theme.
func (e *Env) printMarkdown(ctx context.Context, s *state, plain bool, md string) subcommands.ExitStatus {
	dark := false
	if s != nil {
		dark = s.prefs.Dark(ctx)
	}
	if err := render.Print(e.stdout(), md, render.StyleFor(dark, plain)); err != nil {
		return e.failf("Error rendering output: %v", err)
	}
	return subcommands.ExitSuccess
}
