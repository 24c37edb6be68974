package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	// DefaultFile is looked up under the repository root
	DefaultFile = ".govgate.yaml"
	EnvPrefix   = "GOVGATE_"

	maxConfigFileSize = 1024 * 1024 // 1MB
)

// Load merges defaults, the YAML file and the environment, then validates.
//
// Precedence (highest first):
//  1. GOVGATE_* environment variables
//  2. configPath, or <root>/.govgate.yaml when configPath is empty
//  3. Default()
//
// An explicit configPath must exist; the default file is optional.
// Environment keys split on the first underscore after the prefix:
//
//	GOVGATE_PATHS_SCOREBOARD -> paths.scoreboard
//	GOVGATE_GATE_ADAPTER     -> gate.adapter
//	GOVGATE_OTEL_SAMPLE_RATIO -> otel.sample_ratio
func Load(root, configPath string) (*Config, error) {
	k := koanf.New(".")

	path, required := configPath, true
	if path == "" {
		path, required = filepath.Join(root, DefaultFile), false
	}
	content, err := readConfigFile(path, required)
	if err != nil {
		return nil, err
	}
	if content != nil {
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

// readConfigFile returns nil content for an absent optional file
func readConfigFile(path string, required bool) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if !required && errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config file %s is a directory", path)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}
