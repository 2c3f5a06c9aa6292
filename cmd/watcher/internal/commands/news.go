package commands

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-ticker/cmd/watcher/internal/render"
)

const newsFailed = "Failed to load news"

type newsCmd struct {
	env   *Env
	plain bool
}

func (*newsCmd) Name() string     { return "news" }
func (*newsCmd) Synopsis() string { return "show market headlines" }
func (*newsCmd) Usage() string {
	return `watcher news [-plain]
`
}

func (c *newsCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.plain, "plain", false, "render without colours")
}

func (c *newsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	provider, items, err := c.env.gateway().News(ctx)
	if err != nil {
		c.env.Logger.Warn("News request failed", zap.Error(err))
		fmt.Fprintln(c.env.stdout(), newsFailed)
		return subcommands.ExitFailure
	}
	return c.env.printMarkdown(ctx, nil, c.plain, render.NewsMarkdown(provider, items))
}
