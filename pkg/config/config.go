package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	ModeLeader   = "leader"
	ModeFollower = "follower"
	ModeReplica  = "replica"
)

// Config holds all configuration for the application
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Ticker    TickerConfig    `mapstructure:"ticker"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Watcher   WatcherConfig   `mapstructure:"watcher"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Logger    LoggerConfig    `mapstructure:"logger"`
}

type AppConfig struct {
	Port      string `mapstructure:"port"`
	Env       string `mapstructure:"env"` // e.g., "local", "prod"
	StaticDir string `mapstructure:"static_dir"`
}

type TickerConfig struct {
	Symbols  []string           `mapstructure:"symbols"`
	Prices   map[string]float64 `mapstructure:"prices"` // seed prices; symbols without one start in [100, 400)
	Interval time.Duration      `mapstructure:"interval"`
	Mode     string             `mapstructure:"mode"` // "leader" ticks locally, "follower" relays Redis, "replica" follows the Kafka journal
}

type ProvidersConfig struct {
	IEXKey     string        `mapstructure:"iex_key"`
	IEXURL     string        `mapstructure:"iex_url"`
	PolygonKey string        `mapstructure:"polygon_key"`
	NewsAPIKey string        `mapstructure:"news_api_key"`
	NewsAPIURL string        `mapstructure:"news_api_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Live       bool          `mapstructure:"live"` // feed provider quotes into the tick loop
}

type GatewayConfig struct {
	RefreshRate  float64       `mapstructure:"refresh_rate"` // refresh requests per second per client
	RefreshBurst int           `mapstructure:"refresh_burst"`
	SendBuffer   int           `mapstructure:"send_buffer"`
	WriteWait    time.Duration `mapstructure:"write_wait"`
	PongWait     time.Duration `mapstructure:"pong_wait"`
	PingPeriod   time.Duration `mapstructure:"ping_period"`
}

type RedisConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	SnapshotTTL time.Duration `mapstructure:"snapshot_ttl"`
}

type KafkaConfig struct {
	Enabled     bool     `mapstructure:"enabled"`
	Brokers     []string `mapstructure:"brokers"`
	Topic       string   `mapstructure:"topic"`
	GroupPrefix string   `mapstructure:"group_prefix"`
	Workers     int      `mapstructure:"workers"`
}

type WatcherConfig struct {
	ServerURL     string        `mapstructure:"server_url"`
	APIURL        string        `mapstructure:"api_url"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
	HistoryLimit  int           `mapstructure:"history_limit"`
	ChartPoints   int           `mapstructure:"chart_points"`
	FlashDuration time.Duration `mapstructure:"flash_duration"`
	WatchlistMax  int           `mapstructure:"watchlist_max"`
	StoreDriver   string        `mapstructure:"store_driver"` // "memory", "sqlite", "redis"
	StorePath     string        `mapstructure:"store_path"`
	StorePrefix   string        `mapstructure:"store_prefix"`
}

type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Encoding   string `mapstructure:"encoding"` // "json" or "console"
	File       string `mapstructure:"file"`     // optional rotating log file
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// DefaultSymbols is the tracked set when none is configured.
var DefaultSymbols = []string{"AAPL", "GOOGL", "MSFT", "AMZN", "TSLA"}

var defaultPrices = map[string]float64{
	"AAPL":  175.5,
	"GOOGL": 135.25,
	"MSFT":  330.1,
	"AMZN":  140.0,
	"TSLA":  265.8,
}

// LoadConfig reads configuration from .env and api.txt files, environment variables, and defaults.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// 1. Load .env and the legacy api.txt (key=value lines) into the environment.
	// Neither overrides variables that are already set.
	if err := godotenv.Load(); err != nil {
		log.Println("Note: No .env file found, relying on System Env Vars")
	}
	if _, err := os.Stat("api.txt"); err == nil {
		if err := godotenv.Load("api.txt"); err != nil {
			log.Printf("Could not parse api.txt: %v", err)
		}
	}

	// 2. Set Defaults
	setDefaults(v)

	// 3. Configure Viper to read Environment Variables
	// This maps dot-notation to underscores (e.g., "app.port" -> "APP_PORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Explicitly Bind Env Vars to Keys
	bindEnv(v, "app.env", "app.static_dir")
	bindEnv(v, "ticker.interval", "ticker.mode")
	bindEnv(v, "providers.iex_url", "providers.news_api_url", "providers.timeout", "providers.live")
	bindEnv(v, "gateway.refresh_rate", "gateway.refresh_burst", "gateway.send_buffer",
		"gateway.write_wait", "gateway.pong_wait", "gateway.ping_period")
	bindEnv(v, "redis.enabled", "redis.addr", "redis.password", "redis.db", "redis.snapshot_ttl")
	bindEnv(v, "kafka.enabled", "kafka.brokers", "kafka.topic", "kafka.group_prefix", "kafka.workers")
	bindEnv(v, "watcher.server_url", "watcher.api_url", "watcher.retry_delay", "watcher.history_limit",
		"watcher.chart_points", "watcher.flash_duration", "watcher.watchlist_max",
		"watcher.store_driver", "watcher.store_path", "watcher.store_prefix")
	bindEnv(v, "telegram.enabled", "telegram.bot_token", "telegram.chat_id")
	bindEnv(v, "logger.level", "logger.encoding", "logger.file", "logger.max_size_mb", "logger.max_backups")

	// Names used in api.txt
	bindAlias(v, "ticker.symbols", "TICKER_SYMBOLS", "SYMBOLS")
	bindAlias(v, "providers.iex_key", "PROVIDERS_IEX_KEY", "IEX_KEY")
	bindAlias(v, "providers.polygon_key", "PROVIDERS_POLYGON_KEY", "POLYGON_KEY")
	bindAlias(v, "providers.news_api_key", "PROVIDERS_NEWS_API_KEY", "NEWS_API_KEY")
	bindAlias(v, "app.port", "APP_PORT", "PORT")

	// 5. Unmarshal into Struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	cfg.Ticker.Symbols = normalizeSymbols(cfg.Ticker.Symbols)
	cfg.Ticker.Prices = seedPrices(cfg.Ticker.Symbols, cfg.Ticker.Prices)
	if !strings.Contains(cfg.App.Port, ":") {
		cfg.App.Port = ":" + cfg.App.Port
	}

	// 6. Basic Validation
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the invariants the components rely on.
func (c *Config) Validate() error {
	if len(c.Ticker.Symbols) == 0 {
		return fmt.Errorf("ticker symbols cannot be empty")
	}
	if c.Ticker.Interval <= 0 {
		return fmt.Errorf("ticker interval must be positive, got %s", c.Ticker.Interval)
	}
	switch c.Ticker.Mode {
	case ModeLeader:
	case ModeFollower:
		if !c.Redis.Enabled {
			return fmt.Errorf("follower mode requires redis")
		}
	case ModeReplica:
		if !c.Kafka.Enabled {
			return fmt.Errorf("replica mode requires kafka")
		}
	default:
		return fmt.Errorf("unknown ticker mode %q", c.Ticker.Mode)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka brokers cannot be empty")
	}
	if c.Watcher.HistoryLimit <= 0 || c.Watcher.ChartPoints <= 0 {
		return fmt.Errorf("watcher history_limit and chart_points must be positive")
	}
	if c.Watcher.WatchlistMax <= 0 {
		return fmt.Errorf("watcher watchlist_max must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.port", ":3000")
	v.SetDefault("app.env", "local")
	v.SetDefault("app.static_dir", "")

	v.SetDefault("ticker.symbols", DefaultSymbols)
	v.SetDefault("ticker.interval", "2s")
	v.SetDefault("ticker.mode", ModeLeader)

	v.SetDefault("providers.iex_key", "")
	v.SetDefault("providers.iex_url", "https://cloud.iexapis.com")
	v.SetDefault("providers.polygon_key", "")
	v.SetDefault("providers.news_api_key", "")
	v.SetDefault("providers.news_api_url", "https://newsapi.org")
	v.SetDefault("providers.timeout", "5s")
	v.SetDefault("providers.live", false)

	v.SetDefault("gateway.refresh_rate", 2.0)
	v.SetDefault("gateway.refresh_burst", 4)
	v.SetDefault("gateway.send_buffer", 256)
	v.SetDefault("gateway.write_wait", "5s")
	v.SetDefault("gateway.pong_wait", "60s")
	v.SetDefault("gateway.ping_period", "50s")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.snapshot_ttl", "1h")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "market_ticks")
	v.SetDefault("kafka.group_prefix", "ticker-gateway")
	v.SetDefault("kafka.workers", 4)

	v.SetDefault("watcher.server_url", "ws://localhost:3000/ws")
	v.SetDefault("watcher.api_url", "http://localhost:3000")
	v.SetDefault("watcher.retry_delay", "2s")
	v.SetDefault("watcher.history_limit", 200)
	v.SetDefault("watcher.chart_points", 100)
	v.SetDefault("watcher.flash_duration", "350ms")
	v.SetDefault("watcher.watchlist_max", 10)
	v.SetDefault("watcher.store_driver", "sqlite")
	v.SetDefault("watcher.store_path", "")
	v.SetDefault("watcher.store_prefix", "watcher:")

	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.encoding", "json")
	v.SetDefault("logger.file", "")
	v.SetDefault("logger.max_size_mb", 50)
	v.SetDefault("logger.max_backups", 3)
}

// bindEnv is a helper to bind multiple keys at once
func bindEnv(v *viper.Viper, keys ...string) {
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			log.Printf("Could not bind env var for key %s: %v", key, err)
		}
	}
}

// bindAlias binds a key to several env var names, the first set one wins.
func bindAlias(v *viper.Viper, key string, envs ...string) {
	args := append([]string{key}, envs...)
	if err := v.BindEnv(args...); err != nil {
		log.Printf("Could not bind env vars %v for key %s: %v", envs, key, err)
	}
}

func normalizeSymbols(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// seedPrices merges the built-in seed prices, the configured map (viper
// lowercases its keys) and PRICE_<SYMBOL> variables, in that order.
func seedPrices(symbols []string, configured map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(symbols))
	for _, sym := range symbols {
		if p, ok := defaultPrices[sym]; ok {
			out[sym] = p
		}
	}
	for k, p := range configured {
		out[strings.ToUpper(k)] = p
	}
	for _, sym := range symbols {
		raw, ok := os.LookupEnv("PRICE_" + sym)
		if !ok {
			continue
		}
		p, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil || p <= 0 {
			log.Printf("Ignoring invalid PRICE_%s=%q", sym, raw)
			continue
		}
		out[sym] = p
	}
	return out
}
