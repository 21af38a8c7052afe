// Package config assembles AppConfig from an optional YAML file plus
// SCREENERD_-prefixed environment overrides, following the viper wiring
// pattern of easyweb3tools-easy-paas's polymarket backend.
package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/uharev-ux/dex-dump-screener/internal/fetcher"
	"github.com/uharev-ux/dex-dump-screener/internal/store"
	"github.com/uharev-ux/dex-dump-screener/pkg/logger"
)

// AppConfig wires every component's own config struct together.
type AppConfig struct {
	Store    store.Config    `mapstructure:"store"`
	Fetcher  fetcher.Config  `mapstructure:"fetcher"`
	Log      logger.Config   `mapstructure:"log"`
	Poller   PollerConfig    `mapstructure:"poller"`
	Screener ScreenerConfig  `mapstructure:"screener"`
}

// PollerConfig covers the continuous "collect-new" loop's own knobs.
type PollerConfig struct {
	IntervalSec       float64 `mapstructure:"interval_sec"`
	LimitPerCycle     int     `mapstructure:"limit_per_cycle"`
	NoPrune           bool    `mapstructure:"no_prune"`
	PruneMaxAgeHours  float64 `mapstructure:"prune_max_age_hours"`
	DumpWatchlistTTLH float64 `mapstructure:"dump_watchlist_ttl_hours"`
}

// ScreenerConfig covers the one knob the screener exposes beyond its
// hard-coded thresholds: how often "strategy" runs when looped.
type ScreenerConfig struct {
	IntervalSec float64 `mapstructure:"interval_sec"`
}

// Load reads path (if it exists) as YAML, applies SCREENERD_-prefixed
// environment overrides, and returns a fully-defaulted AppConfig.
func Load(path string) (AppConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("SCREENERD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("store.path", "dexscreener.sqlite")
	v.SetDefault("store.debug", false)

	fc := fetcher.DefaultConfig()
	v.SetDefault("fetcher.base_url", fc.BaseURL)
	v.SetDefault("fetcher.chain", fc.Chain)
	v.SetDefault("fetcher.timeout_sec", fc.TimeoutSec)
	v.SetDefault("fetcher.max_retries", fc.MaxRetries)
	v.SetDefault("fetcher.backoff_base_sec", fc.BackoffBaseSec)
	v.SetDefault("fetcher.rate_limit_rps", fc.RateLimitRPS)

	lc := logger.DefaultConfig()
	v.SetDefault("log.output", lc.OUTPUT)
	v.SetDefault("log.dir", lc.Dir)
	v.SetDefault("log.name", lc.Name)
	v.SetDefault("log.level", lc.Level)
	v.SetDefault("log.disable_sentry", lc.DisableSentry)

	v.SetDefault("poller.interval_sec", 30.0)
	v.SetDefault("poller.limit_per_cycle", 0)
	v.SetDefault("poller.no_prune", false)
	v.SetDefault("poller.prune_max_age_hours", 24.0)
	v.SetDefault("poller.dump_watchlist_ttl_hours", 3.0)

	v.SetDefault("screener.interval_sec", 60.0)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound && !os.IsNotExist(err) {
				return AppConfig{}, err
			}
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}
