package models

import "sort"

// Portfolio maps a symbol to the number of shares held. Shares may be fractional.
type Portfolio map[string]float64

// Symbols returns the held symbols sorted alphabetically.
func (p Portfolio) Symbols() []string {
	out := make([]string, 0, len(p))
	for sym := range p {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// AlertRule is a one-shot threshold watch on a symbol's price.
type AlertRule struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Triggered bool    `json:"triggered,omitempty"`
}

// NewsItem is a single headline.
type NewsItem struct {
	Title  string     `json:"title"`
	Source NewsSource `json:"source"`
}

type NewsSource struct {
	Name string `json:"name"`
}
