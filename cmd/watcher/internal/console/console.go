// Package console turns lines typed during `watcher watch` into actions.
package console

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shubham-shewale/stock-ticker/cmd/watcher/internal/actions"
	"github.com/shubham-shewale/stock-ticker/cmd/watcher/internal/store"
)

const Help = "commands: r | s SYM | add SYM N | buy SYM | rm SYM | alert SYM P | unalert N | watch SYM | unwatch SYM | clear | dark | q"

type Selector interface {
	Select(symbol string) bool
}

type Refresher interface {
	Refresh() error
}

// Result is what the dashboard shows after a command.
type Result struct {
	Status string
	Quit   bool
	Dark   *bool // set when the theme changed
}

type Console struct {
	actions   *actions.Actions
	selector  Selector
	refresher Refresher
}

func New(a *actions.Actions, selector Selector, refresher Refresher) *Console {
	return &Console{actions: a, selector: selector, refresher: refresher}
}

// Dispatch runs one command line.
func (c *Console) Dispatch(ctx context.Context, line string) Result {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Result{}
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "q", "quit", "exit":
		return Result{Quit: true}
	case "h", "help", "?":
		return Result{Status: Help}
	case "r", "refresh":
		if err := c.refresher.Refresh(); err != nil {
			return Result{Status: "Not connected"}
		}
		return Result{Status: "Refresh requested"}
	case "s", "select":
		if len(args) != 1 {
			return usage("s SYM")
		}
		sym := strings.ToUpper(args[0])
		if !c.selector.Select(sym) {
			return Result{Status: fmt.Sprintf("No prices for %s", sym)}
		}
		return Result{Status: "Chart: " + sym}
	case "add":
		if len(args) != 2 {
			return usage("add SYM SHARES")
		}
		return outcome(c.actions.AddPosition(ctx, args[0], args[1]), "Position updated")
	case "buy":
		if len(args) != 1 {
			return usage("buy SYM")
		}
		return outcome(c.actions.QuickAdd(ctx, args[0]), "Added 1 share of "+strings.ToUpper(args[0]))
	case "rm":
		if len(args) != 1 {
			return usage("rm SYM")
		}
		return outcome(c.actions.RemovePosition(ctx, args[0]), "Removed "+strings.ToUpper(args[0]))
	case "alert":
		if len(args) != 2 {
			return usage("alert SYM PRICE")
		}
		return outcome(c.actions.AddAlert(ctx, args[0], args[1]), "Alert added")
	case "unalert":
		if len(args) != 1 {
			return usage("unalert N")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return usage("unalert N")
		}
		// alerts are listed from 1
		return outcome(c.actions.RemoveAlert(ctx, n-1), "Alert removed")
	case "watch":
		if len(args) != 1 {
			return usage("watch SYM")
		}
		sym, err := c.actions.AddWatch(ctx, args[0])
		return Result{Status: WatchStatus(sym, err)}
	case "unwatch":
		if len(args) != 1 {
			return usage("unwatch SYM")
		}
		sym := strings.ToUpper(args[0])
		return outcome(c.actions.RemoveWatch(ctx, sym), fmt.Sprintf("Removed %s.", sym))
	case "clear":
		if err := c.actions.ClearWatch(ctx); err != nil {
			return Result{Status: err.Error()}
		}
		return Result{Status: "Watchlist cleared."}
	case "dark", "theme":
		on, err := c.actions.ToggleDark(ctx)
		if err != nil {
			return Result{Status: err.Error()}
		}
		return Result{Status: "Theme: " + themeName(on), Dark: &on}
	default:
		return Result{Status: fmt.Sprintf("Unknown command %q. %s", cmd, Help)}
	}
}

// WatchStatus is the status line for a watchlist add.
func WatchStatus(sym string, err error) string {
	switch {
	case err == nil:
		return fmt.Sprintf("Added %s.", sym)
	case errors.Is(err, store.ErrInvalidSymbol):
		return "Invalid symbol (1-5 letters)."
	case errors.Is(err, store.ErrDuplicate):
		return fmt.Sprintf("%s already added.", sym)
	case errors.Is(err, store.ErrWatchlistFull):
		return "Watchlist is full."
	default:
		return err.Error()
	}
}

func themeName(dark bool) string {
	if dark {
		return store.ThemeDark
	}
	return store.ThemeLight
}

func outcome(ok bool, msg string) Result {
	if !ok {
		return Result{Status: "Ignored: invalid input"}
	}
	return Result{Status: msg}
}

func usage(s string) Result {
	return Result{Status: "usage: " + s}
}
