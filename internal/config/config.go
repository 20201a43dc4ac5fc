package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	DB      DBConfig      `mapstructure:"db"`
	Cron    CronConfig    `mapstructure:"cron"`
	Shopify ShopifyConfig `mapstructure:"shopify"`
	Sync    SyncConfig    `mapstructure:"sync"`
	Webhook WebhookConfig `mapstructure:"webhook"`
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

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type CronConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Sync    string `mapstructure:"sync"`
}

type ShopifyConfig struct {
	Shop               string        `mapstructure:"shop"`
	AccessToken        string        `mapstructure:"access_token"`
	APIVersion         string        `mapstructure:"api_version"`
	Timeout            time.Duration `mapstructure:"timeout"`
	MinRequestInterval time.Duration `mapstructure:"min_request_interval"`
}

type SyncConfig struct {
	Resources      []string      `mapstructure:"resources"`
	PageLimit      int           `mapstructure:"page_limit"`
	MaxPages       int           `mapstructure:"max_pages"`
	StartDate      string        `mapstructure:"start_date"`
	CycleTimeout   time.Duration `mapstructure:"cycle_timeout"`
	LeaseTTL       time.Duration `mapstructure:"lease_ttl"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RescrubOnSync  bool          `mapstructure:"rescrub_on_sync"`
	BackfillWindow time.Duration `mapstructure:"backfill_window"`
}

type WebhookConfig struct {
	Secret  string        `mapstructure:"secret"`
	Timeout time.Duration `mapstructure:"timeout"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SS")
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
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.sync", "@every 10m")
	v.SetDefault("shopify.api_version", "2024-01")
	v.SetDefault("shopify.timeout", "15s")
	v.SetDefault("shopify.min_request_interval", "500ms")
	v.SetDefault("sync.resources", []string{"orders", "customers", "products"})
	v.SetDefault("sync.page_limit", 250)
	v.SetDefault("sync.max_pages", 20)
	v.SetDefault("sync.start_date", "2025-07-01")
	v.SetDefault("sync.cycle_timeout", "10m")
	v.SetDefault("sync.lease_ttl", "15m")
	v.SetDefault("sync.max_retries", 5)
	v.SetDefault("sync.rescrub_on_sync", true)
	v.SetDefault("sync.backfill_window", "168h")
	v.SetDefault("webhook.timeout", "4s")

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
