package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/sethvargo/go-envconfig"
	log "github.com/sirupsen/logrus"
)

const envPrefix = "NG_"

type (
	Config struct {
		DefaultLanguage string `env:"LANG,default=en"`
		LogLevel        int    `env:"LOG_LEVEL,default=4"`
		DotPath         string `env:"DOT_PATH,default=~/.ngmod"`
		DBFile          string `env:"DB_FILE,default=moderation.db"`
		Moderation      Moderation
		API             API
	}

	Moderation struct {
		WarnThreshold      int           `env:"WARN_THRESHOLD,default=3"`
		MuteFallback       time.Duration `env:"MUTE_FALLBACK,default=1h"`
		BanFallback        time.Duration `env:"BAN_FALLBACK,default=87600h"`
		ReportPageSize     int           `env:"REPORT_PAGE_SIZE,default=5"`
		ReasonDisplayLimit int           `env:"REASON_DISPLAY_LIMIT,default=30"`
		AdminIDs           []int64       `env:"ADMIN_IDS"`
		ChatCacheSize      int           `env:"CHAT_CACHE_SIZE,default=1024"`
	}

	API struct {
		Listen          string        `env:"API_LISTEN,default=:8080"`
		ShutdownTimeout time.Duration `env:"API_SHUTDOWN_TIMEOUT,default=10s"`
	}
)

var (
	once         sync.Once
	globalConfig = &Config{}
	globalErr    error
)

// Load reads the process environment once and caches the result.
func Load() (Config, error) {
	once.Do(func() {
		cfg, err := LoadWith(context.Background(), envconfig.OsLookuper())
		if err != nil {
			globalErr = err
			return
		}
		log.Traceln("loaded config")
		globalConfig = cfg
	})
	return *globalConfig, globalErr
}

// LoadWith builds a config from an arbitrary lookuper, prefixing every key with NG_.
func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}
	envcfg := envconfig.Config{
		Lookuper: envconfig.PrefixLookuper(envPrefix, lookuper),
		Target:   cfg,
	}
	if err := envconfig.ProcessWith(ctx, &envcfg); err != nil {
		return nil, fmt.Errorf("process env config: %w", err)
	}
	dotPath, err := homedir.Expand(cfg.DotPath)
	if err != nil {
		return nil, fmt.Errorf("expand dot path: %w", err)
	}
	cfg.DotPath = dotPath
	if err := cfg.Moderation.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (m Moderation) validate() error {
	switch {
	case m.WarnThreshold < 1:
		return fmt.Errorf("warn threshold must be positive, got %d", m.WarnThreshold)
	case m.MuteFallback < 0 || m.BanFallback < 0:
		return fmt.Errorf("fallback durations must not be negative")
	case m.ReportPageSize < 1:
		return fmt.Errorf("report page size must be positive, got %d", m.ReportPageSize)
	case m.ReasonDisplayLimit < 1:
		return fmt.Errorf("reason display limit must be positive, got %d", m.ReasonDisplayLimit)
	}
	return nil
}

func Get() Config {
	cfg, err := Load()
	if err != nil {
		log.WithField("error", err.Error()).Error("cant load config")
	}
	return cfg
}
