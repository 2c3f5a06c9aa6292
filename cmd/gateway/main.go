package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-ticker/cmd/gateway/internal/api"
	"github.com/shubham-shewale/stock-ticker/cmd/gateway/internal/gateway"
	"github.com/shubham-shewale/stock-ticker/cmd/gateway/internal/hub"
	"github.com/shubham-shewale/stock-ticker/cmd/gateway/internal/journal"
	"github.com/shubham-shewale/stock-ticker/cmd/gateway/internal/news"
	"github.com/shubham-shewale/stock-ticker/cmd/gateway/internal/repository"
	"github.com/shubham-shewale/stock-ticker/cmd/gateway/internal/source"
	"github.com/shubham-shewale/stock-ticker/pkg/config"
	"github.com/shubham-shewale/stock-ticker/pkg/models"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger, err := config.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpClient := &http.Client{Timeout: cfg.Providers.Timeout}
	quotes := buildProviders(cfg, httpClient, logger)

	var store *repository.RedisStore
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal("Redis unreachable", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		store = repository.NewRedisStore(rdb, cfg.Redis.SnapshotTTL, logger)
		defer store.Close()
	}

	var jr *journal.Journal
	if cfg.Kafka.Enabled && cfg.Ticker.Mode == config.ModeLeader {
		creator := journal.NewTopicCreator(logger, &journal.RealKafkaDialer{Dialer: kafka.DefaultDialer}, journal.RealClock{})
		if err := creator.Create(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic); err != nil {
			logger.Warn("Topic setup incomplete", zap.Error(err))
		}
		jr = journal.New(logger, journal.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic), journal.RealClock{})
	}

	// Dependency Injection: the hub only needs something that can produce a snapshot
	var table hub.SnapshotSource
	var ps *source.PriceSource
	var replica *journal.Follower
	switch cfg.Ticker.Mode {
	case config.ModeFollower:
		table = store
	case config.ModeReplica:
		reader := journal.NewReader(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupPrefix)
		replica = journal.NewFollower(logger, reader, cfg.Kafka.Workers, cfg.Ticker.Symbols)
		table = replica
	default:
		ps = source.NewPriceSource(logger, cfg.Ticker.Symbols, cfg.Ticker.Prices, source.NewRealRand(), source.RealClock{})
		if cfg.Providers.Live && quotes.Len() > 0 {
			ps.WithProvider(quotes, cfg.Providers.Timeout)
		}
		table = ps
	}

	limiter := repository.NewClientLimiter(cfg.Gateway.RefreshRate, cfg.Gateway.RefreshBurst)
	wsHub := hub.NewHub(table, limiter, logger)

	onTick := func(ctx context.Context, snap models.Snapshot) {
		wsHub.BroadcastTick(ctx, snap)
		if store != nil {
			if err := store.PublishTick(ctx, snap); err != nil {
				logger.Error("Redis publish failed", zap.Error(err))
			}
		}
		if jr != nil {
			if err := jr.Record(ctx, snap); err != nil {
				logger.Error("Journal write failed", zap.Error(err))
			}
		}
	}

	switch {
	case ps != nil:
		go ps.Run(ctx, cfg.Ticker.Interval, onTick)
	case replica != nil:
		go replica.Run(ctx, cfg.Ticker.Interval, onTick)
	default:
		go store.RunPubSub(ctx, wsHub.BroadcastTick)
	}

	newsSources := []news.Source{}
	if cfg.Providers.NewsAPIKey != "" {
		newsSources = append(newsSources, news.NewNewsAPI(cfg.Providers.NewsAPIURL, cfg.Providers.NewsAPIKey, httpClient))
	}
	newsSources = append(newsSources, news.Simulated{})

	deps := api.Deps{
		Hub:    wsHub,
		Prices: table,
		News:   news.NewFallback(logger, newsSources...),
		Client: gateway.Options{
			SendBuffer: cfg.Gateway.SendBuffer,
			WriteWait:  cfg.Gateway.WriteWait,
			PongWait:   cfg.Gateway.PongWait,
			PingPeriod: cfg.Gateway.PingPeriod,
		},
		Mode:      cfg.Ticker.Mode,
		StaticDir: cfg.App.StaticDir,
		Logger:    logger,
	}
	if quotes.Len() > 0 {
		deps.Quotes = quotes
	}

	srv := &http.Server{Addr: cfg.App.Port, Handler: api.NewRouter(deps)}

	go func() {
		logger.Info("Server Started",
			zap.String("port", cfg.App.Port),
			zap.String("mode", cfg.Ticker.Mode),
			zap.Strings("symbols", cfg.Ticker.Symbols))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP Error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", zap.Error(err))
	}

	// Flush Kafka buffer
	if jr != nil {
		if err := jr.Close(); err != nil {
			logger.Error("Error closing Kafka writer", zap.Error(err))
		}
	}
	logger.Info("Shutdown Complete")
}

// buildProviders orders the live quote tiers the way /api/quote tries them: IEX, then Polygon.
func buildProviders(cfg *config.Config, client *http.Client, logger *zap.Logger) *source.Chain {
	var providers []source.QuoteProvider
	if cfg.Providers.IEXKey != "" {
		providers = append(providers, source.NewIEXProvider(cfg.Providers.IEXURL, cfg.Providers.IEXKey, client))
	}
	if cfg.Providers.PolygonKey != "" {
		providers = append(providers, source.NewPolygonProvider(cfg.Providers.PolygonKey, client))
	}
	return source.NewChain(logger, providers...)
}
