package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	polygon "github.com/polygon-io/client-go/rest"
	pmodels "github.com/polygon-io/client-go/rest/models"
	"go.uber.org/zap"
)

// ErrNoQuote is returned when no provider could answer for a symbol.
var ErrNoQuote = errors.New("no provider returned a quote")

// IEXProvider reads the last price from the IEX Cloud quote endpoint.
type IEXProvider struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewIEXProvider(baseURL, token string, client *http.Client) *IEXProvider {
	return &IEXProvider{baseURL: strings.TrimRight(baseURL, "/"), token: token, client: client}
}

func (p *IEXProvider) Name() string { return "iex" }

func (p *IEXProvider) Quote(ctx context.Context, symbol string) (ProviderQuote, error) {
	addr := fmt.Sprintf("%s/stable/stock/%s/quote?token=%s", p.baseURL, url.PathEscape(symbol), url.QueryEscape(p.token))

	var payload any
	if err := getJSON(ctx, p.client, addr, &payload); err != nil {
		return ProviderQuote{}, fmt.Errorf("iex quote %s: %w", symbol, err)
	}

	jval, err := jsonpath.Get("$.latestPrice", payload)
	if err != nil {
		return ProviderQuote{}, fmt.Errorf("iex quote %s: %w", symbol, err)
	}
	price, ok := jval.(float64)
	if !ok {
		return ProviderQuote{}, fmt.Errorf("iex quote %s: latestPrice is not a number: %v", symbol, jval)
	}
	return ProviderQuote{Provider: p.Name(), Symbol: symbol, Price: price, Raw: payload}, nil
}

// PolygonProvider reads the last trade from Polygon.
type PolygonProvider struct {
	client *polygon.Client
}

func NewPolygonProvider(apiKey string, client *http.Client) *PolygonProvider {
	return &PolygonProvider{client: polygon.NewWithClient(apiKey, client)}
}

func (p *PolygonProvider) Name() string { return "polygon" }

func (p *PolygonProvider) Quote(ctx context.Context, symbol string) (ProviderQuote, error) {
	res, err := p.client.GetLastTrade(ctx, &pmodels.GetLastTradeParams{Ticker: symbol})
	if err != nil {
		return ProviderQuote{}, fmt.Errorf("polygon last trade %s: %w", symbol, err)
	}
	return ProviderQuote{Provider: p.Name(), Symbol: symbol, Price: res.Results.Price, Raw: res}, nil
}

// Chain asks each provider in order and returns the first answer.
type Chain struct {
	providers []QuoteProvider
	logger    *zap.Logger
}

func NewChain(logger *zap.Logger, providers ...QuoteProvider) *Chain {
	return &Chain{providers: providers, logger: logger}
}

func (c *Chain) Name() string { return "chain" }

// Len reports how many providers are configured.
func (c *Chain) Len() int { return len(c.providers) }

func (c *Chain) Quote(ctx context.Context, symbol string) (ProviderQuote, error) {
	var errs []error
	for _, p := range c.providers {
		q, err := p.Quote(ctx, symbol)
		if err == nil {
			return q, nil
		}
		c.logger.Warn("Provider fetch failed", zap.String("provider", p.Name()), zap.String("symbol", symbol), zap.Error(err))
		errs = append(errs, err)
	}
	return ProviderQuote{}, errors.Join(append([]error{ErrNoQuote}, errs...)...)
}

func getJSON(ctx context.Context, client *http.Client, addr string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
