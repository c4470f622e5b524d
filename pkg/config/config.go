package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"skylinedb/pkg/rtree"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Index   IndexConfig   `yaml:"index"`
	Skyline SkylineConfig `yaml:"skyline"`
	Dataset DatasetConfig `yaml:"dataset"`
	Log     LogConfig     `yaml:"log"`
}

type ServerConfig struct {
	Addr    string `yaml:"addr"`     // HTTP Listen Address (e.g. :8080)
	TCPAddr string `yaml:"tcp_addr"` // TCP Listen Address (e.g. :9090)

	// RateLimit HTTP 每秒请求上限，0 表示不限流
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
}

type IndexConfig struct {
	MaxChildren int `yaml:"max_children"`
}

type SkylineConfig struct {
	// VerifyEvery 每 N 次增量维护后做一次全量重算校验，0 表示关闭
	VerifyEvery int `yaml:"verify_every"`
}

type DatasetConfig struct {
	Path string `yaml:"path"` // text or SQLite dataset loaded at startup
}

type LogConfig struct {
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:    ":8080",
			TCPAddr: ":9090",
		},
		Index: IndexConfig{
			MaxChildren: rtree.DefaultMaxChildren,
		},
		Log: LogConfig{
			Level:   "info",
			Console: true,
		},
	}
}

func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath == "" {
		for _, p := range []string{"configs/skyline.yaml", "skyline.yaml"} {
			data, err := os.ReadFile(p)
			if err == nil {
				if err := yaml.Unmarshal(data, cfg); err != nil {
					return cfg, err
				}
				applyDefaults(cfg)
				return cfg, nil
			}
		}
		applyDefaults(cfg)
		return cfg, nil // no file found: use defaults
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return cfg, err
	}

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Index.MaxChildren < rtree.MinMaxChildren {
		cfg.Index.MaxChildren = rtree.DefaultMaxChildren
	}
	if cfg.Server.RateLimit < 0 {
		cfg.Server.RateLimit = 0
	}
	if cfg.Server.RateLimit > 0 && cfg.Server.RateBurst < 1 {
		cfg.Server.RateBurst = max(1, int(cfg.Server.RateLimit))
	}
	if cfg.Skyline.VerifyEvery < 0 {
		cfg.Skyline.VerifyEvery = 0
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}
