package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/charmbracelet/glamour"

	"github.com/shubham-shewale/stock-ticker/cmd/watcher/internal/reconciler"
	"github.com/shubham-shewale/stock-ticker/pkg/models"
)

// Money formats v in currency, e.g. "$1,234.50".
func Money(v float64, currency string) string {
	if currency == "" {
		currency = money.USD
	}
	return money.NewFromFloat(v, currency).Display()
}

func PortfolioMarkdown(v reconciler.Valuation, currency string) string {
	var b strings.Builder
	for _, p := range v.Positions {
		fmt.Fprintf(&b, "- **%s**: %s shares @ %s = %s\n",
			p.Symbol, strconv.FormatFloat(p.Shares, 'f', -1, 64),
			strconv.FormatFloat(p.Price, 'f', 2, 64), Money(p.Value, currency))
	}
	if len(v.Positions) > 0 {
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Total value: %s\n", Money(v.Total, currency))
	return b.String()
}

// AlertsMarkdown numbers the rules from 1, the index `unalert` takes.
func AlertsMarkdown(rules []models.AlertRule) string {
	if len(rules) == 0 {
		return "_no alerts_\n"
	}
	var b strings.Builder
	for i, a := range rules {
		state := ""
		if a.Triggered {
			state = " (triggered)"
		}
		fmt.Fprintf(&b, "%d. **%s** at %s%s\n", i+1, a.Symbol, strconv.FormatFloat(a.Price, 'f', -1, 64), state)
	}
	return b.String()
}

func WatchlistMarkdown(symbols []string, max int) string {
	if len(symbols) == 0 {
		return fmt.Sprintf("_empty_ (0/%d)\n", max)
	}
	return fmt.Sprintf("%s (%d/%d)\n", strings.Join(symbols, ", "), len(symbols), max)
}

func NewsMarkdown(provider string, items []models.NewsItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# News (%s)\n\n", provider)
	for _, it := range items {
		fmt.Fprintf(&b, "- **%s**", it.Title)
		if it.Source.Name != "" {
			fmt.Fprintf(&b, " _%s_", it.Source.Name)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Print renders md with a glamour standard style and writes it to w.
func Print(w io.Writer, md, style string) error {
	out, err := glamour.Render(md, style)
	if err != nil {
		return fmt.Errorf("failed to render markdown: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}

// StyleFor picks the glamour style for the dark preference.
func StyleFor(dark, plain bool) string {
	switch {
	case plain:
		return StylePlain
	case dark:
		return StyleDark
	default:
		return StyleLight
	}
}
