package models

import (
	"fmt"
	"time"
)

// Quote is the current price of one tracked symbol.
type Quote struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

// Snapshot is the full tracked set at one instant, in tracking order.
type Snapshot []Quote

// Validate reports an error if a symbol appears more than once.
func (s Snapshot) Validate() error {
	seen := make(map[string]bool, len(s))
	for _, q := range s {
		if seen[q.Symbol] {
			return fmt.Errorf("duplicate symbol %q in snapshot", q.Symbol)
		}
		seen[q.Symbol] = true
	}
	return nil
}

// Symbols returns the symbols of the snapshot in order.
func (s Snapshot) Symbols() []string {
	out := make([]string, len(s))
	for i, q := range s {
		out[i] = q.Symbol
	}
	return out
}

// Clone returns a copy that does not share the backing array.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	copy(out, s)
	return out
}

// StockUpdate represents a single market tick for a stock symbol
type StockUpdate struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Timestamp int64   `json:"timestamp"` // unix micro
	SeqID     int64   `json:"seq_id"`    // monotonic counter per symbol
}

// HistoryEntry is one observed price of a symbol.
type HistoryEntry struct {
	Time  time.Time `json:"t"`
	Price float64   `json:"price"`
}
