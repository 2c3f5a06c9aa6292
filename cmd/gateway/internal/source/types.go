package source

import (
	"context"
	"math/rand"
	"time"
)

// for deterministic testing
type Clock interface {
	Now() time.Time
}

// for deterministic values
type Rand interface {
	Float64() float64
}

// QuoteProvider fetches a current price from an external market-data service.
type QuoteProvider interface {
	Name() string
	Quote(ctx context.Context, symbol string) (ProviderQuote, error)
}

// ProviderQuote is a provider answer. Raw keeps the provider payload for
// callers that proxy it as is.
type ProviderQuote struct {
	Provider string
	Symbol   string
	Price    float64
	Raw      any
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

type RealRand struct{ *rand.Rand }

func (r RealRand) Float64() float64 { return r.Rand.Float64() }

// NewRealRand returns a Rand seeded from the current time.
func NewRealRand() RealRand {
	return RealRand{rand.New(rand.NewSource(time.Now().UnixNano()))}
}
