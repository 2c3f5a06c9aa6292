package news_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-ticker/cmd/gateway/internal/news"
	"github.com/shubham-shewale/stock-ticker/pkg/models"
)

type failingSource struct{}

func (failingSource) Name() string { return "broken" }
func (failingSource) Headlines(ctx context.Context) ([]models.NewsItem, error) {
	return nil, errors.New("upstream 500")
}

func TestNewsAPI_Headlines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/top-headlines" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("category") != "business" || q.Get("pageSize") != "10" || q.Get("apiKey") != "k" {
			t.Errorf("Unexpected query %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"status":"ok","articles":[
			{"title":"Stocks rally","source":{"id":null,"name":"Reuters"}},
			{"title":"","source":{"name":"Skip"}},
			{"title":"Fed holds","source":{"name":"AP"}}
		]}`))
	}))
	defer srv.Close()

	items, err := news.NewNewsAPI(srv.URL, "k", srv.Client()).Headlines(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("Expected 2 headlines, got %d", len(items))
	}
	if items[0].Title != "Stocks rally" || items[0].Source.Name != "Reuters" {
		t.Errorf("Unexpected first item %+v", items[0])
	}
}

func TestNewsAPI_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	if _, err := news.NewNewsAPI(srv.URL, "bad", srv.Client()).Headlines(context.Background()); err == nil {
		t.Error("Expected error on 401")
	}
}

func TestFallback_UsesSimulatedTier(t *testing.T) {
	f := news.NewFallback(zap.NewNop(), failingSource{}, news.Simulated{})

	provider, items, err := f.Headlines(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if provider != "sim" {
		t.Errorf("Expected sim provider, got %s", provider)
	}
	if len(items) != 2 || items[0].Title != "Markets mixed as tech stocks lead gains" || items[1].Source.Name != "Simulated Feed" {
		t.Errorf("Unexpected simulated headlines %+v", items)
	}
}

func TestFallback_AllFail(t *testing.T) {
	f := news.NewFallback(zap.NewNop(), failingSource{})

	if _, _, err := f.Headlines(context.Background()); err == nil {
		t.Error("Expected error when every source fails")
	}
}
