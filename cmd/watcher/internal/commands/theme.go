package commands

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"github.com/shubham-shewale/stock-ticker/cmd/watcher/internal/store"
)

type themeCmd struct {
	env *Env
}

func (*themeCmd) Name() string     { return "theme" }
func (*themeCmd) Synopsis() string { return "show or change the display theme" }
func (*themeCmd) Usage() string {
	return `watcher theme [dark | light | toggle]
`
}

func (*themeCmd) SetFlags(*flag.FlagSet) {}

func (c *themeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	st, err := c.env.openState()
	if err != nil {
		return c.env.failf("Error: %v", err)
	}
	defer st.Close()

	switch f.Arg(0) {
	case "":
	case store.ThemeDark, store.ThemeLight:
		if err := st.prefs.SetDark(ctx, f.Arg(0) == store.ThemeDark); err != nil {
			return c.env.failf("Error saving theme: %v", err)
		}
	case "toggle":
		if _, err := st.actions.ToggleDark(ctx); err != nil {
			return c.env.failf("Error: %v", err)
		}
	default:
		f.Usage()
		return subcommands.ExitUsageError
	}

	theme := store.ThemeLight
	if st.prefs.Dark(ctx) {
		theme = store.ThemeDark
	}
	fmt.Fprintln(c.env.stdout(), theme)
	return subcommands.ExitSuccess
}
