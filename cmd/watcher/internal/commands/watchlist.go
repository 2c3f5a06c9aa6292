package commands

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/google/subcommands"

	"github.com/shubham-shewale/stock-ticker/cmd/watcher/internal/console"
	"github.com/shubham-shewale/stock-ticker/cmd/watcher/internal/render"
)

type watchlistCmd struct {
	env    *Env
	plain  bool
	quotes bool
}

func (*watchlistCmd) Name() string     { return "watchlist" }
func (*watchlistCmd) Synopsis() string { return "manage the watchlist" }
func (*watchlistCmd) Usage() string {
	return `watcher watchlist [-quotes] [-plain] [add <SYM> | rm <SYM> | clear]

  Symbols are 1 to 5 letters; the list holds at most watcher.watchlist_max entries.
`
}

func (c *watchlistCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.plain, "plain", false, "render without colours")
	f.BoolVar(&c.quotes, "quotes", false, "show a gateway quote for every symbol")
}

func (c *watchlistCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	st, err := c.env.openState()
	if err != nil {
		return c.env.failf("Error: %v", err)
	}
	defer st.Close()

	status := ""
	args := f.Args()
	if len(args) > 0 {
		switch {
		case args[0] == "add" && len(args) == 2:
			sym, err := st.actions.AddWatch(ctx, args[1])
			status = console.WatchStatus(sym, err)
			if err != nil {
				return c.env.failf("%s", status)
			}
		case args[0] == "rm" && len(args) == 2:
			sym := strings.ToUpper(args[1])
			if !st.actions.RemoveWatch(ctx, sym) {
				return c.env.failf("Could not remove %s", sym)
			}
			status = fmt.Sprintf("Removed %s.", sym)
		case args[0] == "clear" && len(args) == 1:
			if err := st.actions.ClearWatch(ctx); err != nil {
				return c.env.failf("Error: %v", err)
			}
			status = "Watchlist cleared."
		default:
			f.Usage()
			return subcommands.ExitUsageError
		}
	}

	symbols := st.watchlist.Load(ctx)
	var b strings.Builder
	b.WriteString("# Watchlist\n\n")
	b.WriteString(render.WatchlistMarkdown(symbols, st.watchlist.Max()))
	if c.quotes && len(symbols) > 0 {
		gw := c.env.gateway()
		b.WriteString("\n| Symbol | Price | Provider |\n|---|---:|---|\n")
		for _, sym := range symbols {
			q, err := gw.Quote(ctx, sym)
			if err != nil {
				fmt.Fprintf(&b, "| %s | n/a | |\n", sym)
				continue
			}
			fmt.Fprintf(&b, "| %s | %.2f | %s |\n", sym, q.Price, q.Provider)
		}
	}
	if status != "" {
		fmt.Fprintf(&b, "\n> %s\n", status)
	}
	return c.env.printMarkdown(ctx, st, c.plain, b.String())
}
