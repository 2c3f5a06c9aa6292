package commands

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"github.com/shubham-shewale/stock-ticker/cmd/watcher/internal/client"
)

type quoteCmd struct {
	env *Env
}

func (*quoteCmd) Name() string     { return "quote" }
func (*quoteCmd) Synopsis() string { return "fetch one-off quotes from the gateway" }
func (*quoteCmd) Usage() string {
	return `watcher quote <SYM>...
`
}

func (*quoteCmd) SetFlags(*flag.FlagSet) {}

func (c *quoteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}

	gw := c.env.gateway()
	status := subcommands.ExitSuccess
	for _, sym := range f.Args() {
		q, err := gw.Quote(ctx, sym)
		switch {
		case client.IsNotFound(err):
			fmt.Fprintf(c.env.stderr(), "%s: symbol not found\n", sym)
			status = subcommands.ExitFailure
		case err != nil:
			fmt.Fprintf(c.env.stderr(), "Error: %v\n", err)
			status = subcommands.ExitFailure
		default:
			fmt.Fprintf(c.env.stdout(), "%s\t%.2f\t%s\n", q.Symbol, q.Price, q.Provider)
		}
	}
	return status
}
