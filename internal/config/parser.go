package config

import (
	"encoding/json"
	"path/filepath"
)

func ParseConfig(byteConfig []byte) (*Config, error) {
	var cfg Config
	err := json.Unmarshal(byteConfig, &cfg)
	if err != nil {
		return nil, err
	}
	for _, dir := range []*string{&cfg.Chromedp.UserDataDir, &cfg.Rod.UserDataDir} {
		if *dir == "" {
			continue
		}
		absPath, err := filepath.Abs(*dir)
		if err != nil {
			return nil, err
		}
		*dir = absPath
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Logger.Level == "" {
		cfg.Logger.Level = "info"
	}
	if cfg.Browser.Driver == "" {
		cfg.Browser.Driver = "rod"
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "sqlite"
	}
	if cfg.Storage.SqlitePath == "" {
		cfg.Storage.SqlitePath = "odds.db"
	}
	if cfg.Storage.Redis.TTLHours <= 0 {
		cfg.Storage.Redis.TTLHours = 48
	}
	if cfg.Proxy.CacheTTLMinutes <= 0 {
		cfg.Proxy.CacheTTLMinutes = 30
	}
	if cfg.Proxy.TestTimeout <= 0 {
		cfg.Proxy.TestTimeout = 10
	}
	if cfg.Capture.ChanSize <= 0 {
		cfg.Capture.ChanSize = 100
	}
	if cfg.Poll.CronSpec == "" {
		cfg.Poll.CronSpec = "@every 45s"
	}
	if cfg.Poll.FieldTimeout <= 0 {
		cfg.Poll.FieldTimeout = 2000
	}
	if cfg.Poll.StepTimeout <= 0 {
		cfg.Poll.StepTimeout = 2000
	}
	if cfg.Rod.NavigateTimeout <= 0 {
		cfg.Rod.NavigateTimeout = 30
	}
}
