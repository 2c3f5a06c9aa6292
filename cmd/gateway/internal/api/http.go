package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gobwas/ws"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-ticker/cmd/gateway/internal/gateway"
	"github.com/shubham-shewale/stock-ticker/cmd/gateway/internal/hub"
	"github.com/shubham-shewale/stock-ticker/cmd/gateway/internal/source"
	"github.com/shubham-shewale/stock-ticker/pkg/models"
)

type HeadlineSource interface {
	Headlines(ctx context.Context) (string, []models.NewsItem, error)
}

type Deps struct {
	Hub       *hub.Hub
	Prices    hub.SnapshotSource
	Quotes    source.QuoteProvider // optional live tier for /api/quote
	News      HeadlineSource
	Client    gateway.Options
	Mode      string
	StaticDir string
	Logger    *zap.Logger
}

type Server struct {
	deps Deps
}

func NewRouter(deps Deps) *mux.Router {
	s := &Server{deps: deps}
	router := mux.NewRouter()

	router.HandleFunc("/api/quote", s.getQuote).Methods(http.MethodGet)
	router.HandleFunc("/api/news", s.getNews).Methods(http.MethodGet)
	router.HandleFunc("/health", s.getHealth).Methods(http.MethodGet)
	router.HandleFunc("/ws", s.serveWS)

	if deps.StaticDir != "" {
		router.PathPrefix("/").Handler(http.FileServer(http.Dir(deps.StaticDir)))
	}
	return router
}

func (s *Server) getQuote(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("symbol")))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol required")
		return
	}

	if s.deps.Quotes != nil {
		q, err := s.deps.Quotes.Quote(r.Context(), symbol)
		if err == nil {
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"provider": q.Provider,
				"data":     q.Raw,
			})
			return
		}
		s.deps.Logger.Debug("Live quote unavailable, using simulated table", zap.String("symbol", symbol), zap.Error(err))
	}

	snap, err := s.deps.Prices.Snapshot(r.Context())
	if err != nil {
		s.deps.Logger.Error("Failed to read price table", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "price table unavailable")
		return
	}
	for _, q := range snap {
		if q.Symbol == symbol {
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"provider": "sim",
				"data":     q,
			})
			return
		}
	}
	writeError(w, http.StatusNotFound, "symbol not found")
}

func (s *Server) getNews(w http.ResponseWriter, r *http.Request) {
	provider, items, err := s.deps.News.Headlines(r.Context())
	if err != nil {
		s.deps.Logger.Error("No news source answered", zap.Error(err))
		writeError(w, http.StatusBadGateway, "news unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"provider": provider,
		"data":     items,
	})
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"clients": s.deps.Hub.Count(),
		"mode":    s.deps.Mode,
	})
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		s.deps.Logger.Warn("Upgrade failed", zap.Error(err))
		return
	}
	gateway.NewClient(conn, s.deps.Hub, s.deps.Logger, s.deps.Client).Start()
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
