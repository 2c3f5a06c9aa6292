package commands

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/google/subcommands"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-ticker/cmd/watcher/internal/reconciler"
	"github.com/shubham-shewale/stock-ticker/cmd/watcher/internal/render"
)

// portfolioCmd lists and edits the stored positions.
type portfolioCmd struct {
	env   *Env
	value bool
	plain bool
}

func (*portfolioCmd) Name() string     { return "portfolio" }
func (*portfolioCmd) Synopsis() string { return "list, add or remove portfolio positions" }
func (*portfolioCmd) Usage() string {
	return `watcher portfolio [-value] [-plain] [add <SYM> <SHARES> | buy <SYM> | rm <SYM>]

  Without arguments, lists the positions. With -value each position is priced
  with a quote from the gateway.
`
}

func (c *portfolioCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.value, "value", false, "price positions with gateway quotes")
	f.BoolVar(&c.plain, "plain", false, "render without colours")
}

func (c *portfolioCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	st, err := c.env.openState()
	if err != nil {
		return c.env.failf("Error: %v", err)
	}
	defer st.Close()

	args := f.Args()
	if len(args) > 0 {
		var ok bool
		switch {
		case args[0] == "add" && len(args) == 3:
			ok = st.actions.AddPosition(ctx, args[1], args[2])
		case args[0] == "buy" && len(args) == 2:
			ok = st.actions.QuickAdd(ctx, args[1])
		case args[0] == "rm" && len(args) == 2:
			ok = st.actions.RemovePosition(ctx, args[1])
		default:
			f.Usage()
			return subcommands.ExitUsageError
		}
		if !ok {
			return c.env.failf("Ignored: invalid input %q", strings.Join(args, " "))
		}
	}

	pf := st.portfolio.Load(ctx)
	prices := make(map[string]float64, len(pf))
	if c.value {
		gw := c.env.gateway()
		for _, sym := range pf.Symbols() {
			q, err := gw.Quote(ctx, sym)
			if err != nil {
				c.env.Logger.Warn("Quote unavailable", zap.String("symbol", sym), zap.Error(err))
				continue
			}
			prices[sym] = q.Price
		}
	}

	md := fmt.Sprintf("# Portfolio\n\n%s", render.PortfolioMarkdown(reconciler.Value(pf, prices), ""))
	return c.env.printMarkdown(ctx, st, c.plain, md)
}
