package news

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-ticker/pkg/models"
)

// Source produces a list of market headlines.
type Source interface {
	Name() string
	Headlines(ctx context.Context) ([]models.NewsItem, error)
}

// NewsAPI reads business top-headlines from newsapi.org.
type NewsAPI struct {
	baseURL string
	key     string
	client  *http.Client
}

func NewNewsAPI(baseURL, key string, client *http.Client) *NewsAPI {
	return &NewsAPI{baseURL: strings.TrimRight(baseURL, "/"), key: key, client: client}
}

func (n *NewsAPI) Name() string { return "newsapi" }

func (n *NewsAPI) Headlines(ctx context.Context) ([]models.NewsItem, error) {
	q := url.Values{}
	q.Set("category", "business")
	q.Set("language", "en")
	q.Set("pageSize", "10")
	q.Set("apiKey", n.key)
	addr := n.baseURL + "/v2/top-headlines?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("newsapi: %w", err)
	}
	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("newsapi: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("newsapi: unexpected status %s", resp.Status)
	}

	var payload any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("newsapi: decode: %w", err)
	}
	articles, err := jsonpath.Get("$.articles", payload)
	if err != nil {
		return nil, fmt.Errorf("newsapi: %w", err)
	}
	list, ok := articles.([]any)
	if !ok {
		return nil, errors.New("newsapi: articles is not a list")
	}

	items := make([]models.NewsItem, 0, len(list))
	for _, a := range list {
		title, _ := jsonpath.Get("$.title", a)
		name, _ := jsonpath.Get("$.source.name", a)
		t, _ := title.(string)
		if t == "" {
			continue
		}
		s, _ := name.(string)
		items = append(items, models.NewsItem{Title: t, Source: models.NewsSource{Name: s}})
	}
	return items, nil
}

// Simulated always answers with the same two headlines.
type Simulated struct{}

func (Simulated) Name() string { return "sim" }

func (Simulated) Headlines(ctx context.Context) ([]models.NewsItem, error) {
	feed := models.NewsSource{Name: "Simulated Feed"}
	return []models.NewsItem{
		{Title: "Markets mixed as tech stocks lead gains", Source: feed},
		{Title: "Economic data shows steady growth", Source: feed},
	}, nil
}

// Fallback tries each source in order and reports which one answered.
type Fallback struct {
	sources []Source
	logger  *zap.Logger
}

func NewFallback(logger *zap.Logger, sources ...Source) *Fallback {
	return &Fallback{sources: sources, logger: logger}
}

func (f *Fallback) Headlines(ctx context.Context) (string, []models.NewsItem, error) {
	var errs []error
	for _, s := range f.sources {
		items, err := s.Headlines(ctx)
		if err == nil {
			return s.Name(), items, nil
		}
		f.logger.Warn("News source failed", zap.String("source", s.Name()), zap.Error(err))
		errs = append(errs, err)
	}
	return "", nil, fmt.Errorf("no news source answered: %w", errors.Join(errs...))
}
