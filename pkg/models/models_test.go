package models_test

import (
	"testing"

	"github.com/shubham-shewale/stock-ticker/pkg/models"
)

func TestChange(t *testing.T) {
	cases := []struct {
		old, cur  float64
		diff, pct float64
	}{
		{100, 101, 1, 1},
		{0, 5, 5, 0},
		{200, 199, -1, -0.5},
		{175.5, 175.5, 0, 0},
		{3, 4, 1, 33.33},
	}
	for _, tc := range cases {
		diff, pct := models.Change(tc.old, tc.cur)
		if diff != tc.diff || pct != tc.pct {
			t.Errorf("Change(%v, %v) = (%v, %v), want (%v, %v)", tc.old, tc.cur, diff, pct, tc.diff, tc.pct)
		}
	}
}

func TestRound2(t *testing.T) {
	if got := models.Round2(177.255); got != 177.26 {
		t.Errorf("Expected 177.26, got %v", got)
	}
	if got := models.Round2(10 * 50); got != 500 {
		t.Errorf("Expected 500, got %v", got)
	}
}

func TestSnapshot_Validate(t *testing.T) {
	ok := models.Snapshot{{Symbol: "AAPL", Price: 1}, {Symbol: "MSFT", Price: 2}}
	if err := ok.Validate(); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	dup := models.Snapshot{{Symbol: "AAPL", Price: 1}, {Symbol: "AAPL", Price: 2}}
	if err := dup.Validate(); err == nil {
		t.Error("Expected duplicate symbol error")
	}
}

func TestPortfolio_SymbolsSorted(t *testing.T) {
	p := models.Portfolio{"TSLA": 1, "AAPL": 2, "MSFT": 0.5}
	got := p.Symbols()
	want := []string{"AAPL", "MSFT", "TSLA"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, got)
		}
	}
}
