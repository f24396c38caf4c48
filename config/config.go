package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/nikhiltv/tripforge/core/metrics"
	"github.com/nikhiltv/tripforge/core/sched"
	"github.com/nikhiltv/tripforge/infra/notify"
)

type Config struct {
	Scheduling sched.Config   `json:"scheduling"`
	Crew       CrewConfig     `json:"crew"`
	Store      StoreConfig    `json:"store"`
	Metrics    metrics.Config `json:"metrics"`
	Notify     notify.Config  `json:"notify"`
	Logging    LoggingConfig  `json:"logging"`
}

// CrewConfig holds defaults for crew-binding passes; command flags
// override them.
type CrewConfig struct {
	// Force releases current duty holders before pairing.
	Force bool `json:"force"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("TS_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "ts_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Scheduling.SetDefaults()
	cfg.Store.SetDefaults()
	cfg.Metrics.SetDefaults()
	cfg.Notify.SetDefaults()
	cfg.Logging.SetDefaults()
	if err := cfg.Scheduling.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Store.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Logging.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
