// Package client talks to the gateway's HTTP API.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PaesslerAG/jsonpath"

	"github.com/shubham-shewale/stock-ticker/pkg/models"
)

// Price locations in the quote payload of each provider tier.
var pricePaths = []string{"$.price", "$.latestPrice", "$.results.p"}

// APIError is a non-200 answer from the gateway.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gateway returned %d", e.Status)
	}
	return fmt.Sprintf("gateway returned %d: %s", e.Status, e.Message)
}

// IsNotFound reports whether err is the gateway's 404 for an unknown symbol.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

type Quote struct {
	Provider string
	Symbol   string
	Price    float64
	Raw      any
}

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// Quote fetches one symbol. Price is 0 when the provider payload carries
// no recognisable price field.
func (c *Client) Quote(ctx context.Context, symbol string) (Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	var body struct {
		Provider string `json:"provider"`
		Data     any    `json:"data"`
	}
	if err := c.get(ctx, "/api/quote?symbol="+url.QueryEscape(symbol), &body); err != nil {
		return Quote{}, fmt.Errorf("quote %s: %w", symbol, err)
	}

	q := Quote{Provider: body.Provider, Symbol: symbol, Raw: body.Data}
	for _, path := range pricePaths {
		v, err := jsonpath.Get(path, body.Data)
		if err != nil {
			continue
		}
		if price, ok := v.(float64); ok {
			q.Price = price
			break
		}
	}
	return q, nil
}

// News returns the gateway's headlines and the tier that served them.
func (c *Client) News(ctx context.Context) (string, []models.NewsItem, error) {
	var body struct {
		Provider string            `json:"provider"`
		Data     []models.NewsItem `json:"data"`
	}
	if err := c.get(ctx, "/api/news", &body); err != nil {
		return "", nil, fmt.Errorf("news: %w", err)
	}
	return body.Provider, body.Data, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
