package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Ledger     LedgerConfig     `mapstructure:"ledger"`
	Store      StoreConfig      `mapstructure:"store"`
	Aggregator AggregatorConfig `mapstructure:"aggregator"`
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	Cron       CronConfig       `mapstructure:"cron"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type AuthConfig struct {
	// Secret is the shared secret checked on every mutating request.
	Secret string `mapstructure:"secret"`
}

type LedgerConfig struct {
	// InitialEquity seeds a fresh document and anchors totalProfit.
	InitialEquity float64 `mapstructure:"initial_equity"`
	// Goals is the ascending milestone ladder in account currency.
	Goals        []float64     `mapstructure:"goals"`
	SaveInterval time.Duration `mapstructure:"save_interval"`
}

type StoreConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
	DB    DBConfig    `mapstructure:"db"`
	File  FileConfig  `mapstructure:"file"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Key      string `mapstructure:"key"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type FileConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type AggregatorConfig struct {
	Debounce       time.Duration `mapstructure:"debounce"`
	FeedTTL        time.Duration `mapstructure:"feed_ttl"`
	ForwardURL     string        `mapstructure:"forward_url"`
	ForwardTimeout time.Duration `mapstructure:"forward_timeout"`
}

type TelegramConfig struct {
	BotToken   string `mapstructure:"bot_token"`
	AckEnabled bool   `mapstructure:"ack_enabled"`
}

type CronConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Flush          string `mapstructure:"flush"`
	Rollover       string `mapstructure:"rollover"`
	HistoryArchive string `mapstructure:"history_archive"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CAPITAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("auth.secret", "")
	v.SetDefault("ledger.initial_equity", 15.0)
	v.SetDefault("ledger.goals", []float64{
		20, 30, 50, 75, 100, 150, 250, 500,
		1000, 2500, 5000, 10000, 25000, 50000, 100000,
	})
	v.SetDefault("ledger.save_interval", "10s")
	v.SetDefault("store.redis.enabled", false)
	v.SetDefault("store.redis.addr", "127.0.0.1:6379")
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.redis.key", "minco:capital:ledger")
	v.SetDefault("store.db.path", "data/capital.db")
	v.SetDefault("store.file.enabled", true)
	v.SetDefault("store.file.path", "data/capital.json")
	v.SetDefault("aggregator.debounce", "2s")
	v.SetDefault("aggregator.feed_ttl", "10m")
	v.SetDefault("aggregator.forward_url", "")
	v.SetDefault("aggregator.forward_timeout", "8s")
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.ack_enabled", true)
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.flush", "@every 1m")
	v.SetDefault("cron.rollover", "@every 1m")
	v.SetDefault("cron.history_archive", "@every 10m")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
