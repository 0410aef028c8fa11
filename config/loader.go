package config

import (
	"fmt"
	"runtime"

	"github.com/urfave/cli/v3"
)

// Load builds the configuration with priority: CLI flags > Config file > Defaults
func Load(cmd *cli.Command) (*Config, error) {
	// 1. Start with defaults
	cfg := DefaultConfig()

	// 2. Explicit --config, otherwise the standard locations
	configPath := cmd.String(FlagConfig)
	if configPath == "" {
		configPath = FindConfigFile()
	}

	if configPath != "" {
		fileCfg, err := LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg = fileCfg
	}

	// 3. Merge CLI flags (highest priority, overwrites everything)
	cfg.MergeFromFlags(cmd)

	// Auto-detect workers if set to 0
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
