package commands

import (
	"bufio"
	"context"
	"flag"
	"time"

	"github.com/google/subcommands"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-ticker/cmd/watcher/internal/console"
	"github.com/shubham-shewale/stock-ticker/cmd/watcher/internal/notify"
	"github.com/shubham-shewale/stock-ticker/cmd/watcher/internal/reconciler"
	"github.com/shubham-shewale/stock-ticker/cmd/watcher/internal/render"
	"github.com/shubham-shewale/stock-ticker/cmd/watcher/internal/stream"
	"github.com/shubham-shewale/stock-ticker/pkg/models"
)

// watchCmd streams live prices into the dashboard and reads commands from stdin.
type watchCmd struct {
	env   *Env
	url   string
	plain bool
	width int
}

func (*watchCmd) Name() string     { return "watch" }
func (*watchCmd) Synopsis() string { return "stream live prices into the terminal dashboard" }
func (*watchCmd) Usage() string {
	return `watcher watch [-url <ws url>] [-plain] [-width <cols>]

  Connects to the gateway and redraws the dashboard on every tick.
  Type 'help' for the commands accepted on stdin, 'q' to quit.
`
}

func (c *watchCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.url, "url", "", "gateway websocket URL (default watcher.server_url)")
	f.BoolVar(&c.plain, "plain", false, "render without colours or screen clearing")
	f.IntVar(&c.width, "width", 100, "dashboard width")
}

func (c *watchCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, logger := c.env.Config, c.env.Logger

	st, err := c.env.openState()
	if err != nil {
		return c.env.failf("Error: %v", err)
	}
	defer st.Close()

	term, err := render.NewTerminal(c.env.stdout(), logger, render.Options{
		Dark:  st.prefs.Dark(ctx),
		Plain: c.plain,
		Width: c.width,
	})
	if err != nil {
		return c.env.failf("Error: %v", err)
	}

	notifiers := notify.Multi{notify.NewLog(logger), &alertPane{term: term, alerts: st.alerts}}
	var remote *notify.Queue
	if cfg.Telegram.Enabled {
		tg, err := notify.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			logger.Warn("Telegram notifier disabled", zap.Error(err))
		} else {
			// retries back off for seconds; keep them off the stream goroutine
			remote = notify.NewQueue(tg.WithRetry(3, time.Second), logger, 32)
			notifiers = append(notifiers, remote)
		}
	}

	rec := reconciler.New(term, notifiers, st.portfolio, st.alerts, reconciler.RealClock{}, logger, reconciler.Options{
		HistoryLimit:  cfg.Watcher.HistoryLimit,
		ChartPoints:   cfg.Watcher.ChartPoints,
		FlashDuration: cfg.Watcher.FlashDuration,
	})

	url := c.url
	if url == "" {
		url = cfg.Watcher.ServerURL
	}
	conn := stream.New(url, rec, logger, cfg.Watcher.RetryDelay)

	refreshPanes := func(ctx context.Context) {
		rec.RenderPortfolio(ctx)
		term.SetWatchlist(st.watchlist.Load(ctx))
		term.SetAlerts(st.alerts.Load(ctx))
	}
	st.actions.OnChange(refreshPanes)
	refreshPanes(ctx)
	term.SetStatus(console.Help)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go term.Run(ctx)
	go conn.Run(ctx)
	if remote != nil {
		go remote.Run(ctx)
	}

	in := c.env.stdin()
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	con := console.New(st.actions, rec, conn)
	for {
		select {
		case <-ctx.Done():
			// leave the final frame on screen
			if err := term.Draw(); err != nil {
				logger.Warn("Final redraw failed", zap.Error(err))
			}
			return subcommands.ExitSuccess
		case line := <-lines:
			res := con.Dispatch(ctx, line)
			if res.Quit {
				cancel()
				continue
			}
			if res.Dark != nil {
				if err := term.SetDark(*res.Dark); err != nil {
					logger.Warn("Theme switch failed", zap.Error(err))
				}
			}
			if res.Status != "" {
				term.SetStatus(res.Status)
			}
		}
	}
}

// alertPane redraws the alerts pane once a fired rule has been persisted.
type alertPane struct {
	term   *render.Terminal
	alerts reconciler.AlertStore
}

func (a *alertPane) Notify(ctx context.Context, rule models.AlertRule, price float64) error {
	a.term.SetAlerts(a.alerts.Load(ctx))
	a.term.SetStatus("Alert: " + notify.Message(rule, price))
	return nil
}
