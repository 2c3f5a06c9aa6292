package commands

import (
	"context"
	"flag"
	"strconv"
	"strings"

	"github.com/google/subcommands"

	"github.com/shubham-shewale/stock-ticker/cmd/watcher/internal/render"
)

type alertsCmd struct {
	env   *Env
	plain bool
}

func (*alertsCmd) Name() string     { return "alerts" }
func (*alertsCmd) Synopsis() string { return "list, add or remove price alerts" }
func (*alertsCmd) Usage() string {
	return `watcher alerts [-plain] [add <SYM> <PRICE> | rm <N>]

  An alert fires once, the first time the symbol's price reaches PRICE while
  'watcher watch' is running. N is the number shown in the list.
`
}

func (c *alertsCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.plain, "plain", false, "render without colours")
}

func (c *alertsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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
			ok = st.actions.AddAlert(ctx, args[1], args[2])
		case args[0] == "rm" && len(args) == 2:
			n, err := strconv.Atoi(args[1])
			ok = err == nil && st.actions.RemoveAlert(ctx, n-1)
		default:
			f.Usage()
			return subcommands.ExitUsageError
		}
		if !ok {
			return c.env.failf("Ignored: invalid input %q", strings.Join(args, " "))
		}
	}

	return c.env.printMarkdown(ctx, st, c.plain, "# Alerts\n\n"+render.AlertsMarkdown(st.alerts.Load(ctx)))
}
