package moderation

import (
	"time"

	"github.com/iamwavecut/ngmod/internal/config"
	"github.com/iamwavecut/ngmod/internal/duration"
)

type Config struct {
	WarnThreshold      int
	MuteFallback       time.Duration
	BanFallback        time.Duration
	ReportPageSize     int
	ReasonDisplayLimit int
	Language           string
	AdminIDs           []int64
	ChatCacheSize      int
}

func DefaultConfig() Config {
	return Config{
		WarnThreshold:      3,
		MuteFallback:       time.Hour,
		BanFallback:        duration.Forever,
		ReportPageSize:     5,
		ReasonDisplayLimit: 30,
		Language:           "en",
		ChatCacheSize:      1024,
	}
}

// ConfigFrom maps the environment settings onto the engine.
func ConfigFrom(cfg config.Config) Config {
	return Config{
		WarnThreshold:      cfg.Moderation.WarnThreshold,
		MuteFallback:       cfg.Moderation.MuteFallback,
		BanFallback:        cfg.Moderation.BanFallback,
		ReportPageSize:     cfg.Moderation.ReportPageSize,
		ReasonDisplayLimit: cfg.Moderation.ReasonDisplayLimit,
		Language:           cfg.DefaultLanguage,
		AdminIDs:           cfg.Moderation.AdminIDs,
		ChatCacheSize:      cfg.Moderation.ChatCacheSize,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.WarnThreshold < 1 {
		c.WarnThreshold = def.WarnThreshold
	}
	if c.MuteFallback < 0 {
		c.MuteFallback = def.MuteFallback
	}
	if c.BanFallback <= 0 {
		c.BanFallback = def.BanFallback
	}
	if c.ReportPageSize < 1 {
		c.ReportPageSize = def.ReportPageSize
	}
	if c.ReasonDisplayLimit < 1 {
		c.ReasonDisplayLimit = def.ReasonDisplayLimit
	}
	if c.Language == "" {
		c.Language = def.Language
	}
	return c
}
