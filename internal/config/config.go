// Package config loads govgate settings from defaults, an optional YAML
// file and GOVGATE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/govgate/govgate/internal/contracts"
	"github.com/govgate/govgate/internal/observability/logging"
	"github.com/govgate/govgate/internal/observability/otel"
	"github.com/govgate/govgate/internal/observability/receipt"
	"github.com/govgate/govgate/internal/scoreboard"
	"github.com/govgate/govgate/internal/tracking"
)

// Config is the merged configuration
type Config struct {
	Paths      PathsConfig      `koanf:"paths"`
	Gate       GateConfig       `koanf:"gate"`
	Scoreboard ScoreboardConfig `koanf:"scoreboard"`
	Log        LogConfig        `koanf:"log"`
	Receipt    ReceiptConfig    `koanf:"receipt"`
	Otel       OtelConfig       `koanf:"otel"`
}

// PathsConfig locations relative to the repository root
type PathsConfig struct {
	CommandPolicy    string `koanf:"command_policy"`
	AdapterContracts string `koanf:"adapter_contracts"`
	Scoreboard       string `koanf:"scoreboard"`
	SpecPrefix       string `koanf:"spec_prefix"`
}

// GateConfig supplies gate inputs when flags are omitted
type GateConfig struct {
	Adapter string `koanf:"adapter"`
	Action  string `koanf:"action"`
}

type ScoreboardConfig struct {
	ReportFormat string `koanf:"report_format"`
	BaseRef      string `koanf:"base_ref"`
}

type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
	Output string `koanf:"output"`
}

type ReceiptConfig struct {
	Path string `koanf:"path"`
	Mode string `koanf:"mode"`
}

type OtelConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Endpoint    string  `koanf:"endpoint"`
	Protocol    string  `koanf:"protocol"`
	Insecure    bool    `koanf:"insecure"`
	ServiceName string  `koanf:"service_name"`
	SampleRatio float64 `koanf:"sample_ratio"`
}

// Default mirrors the fixed repository layout
func Default() Config {
	logCfg := logging.DefaultConfig()
	otelCfg := otel.DefaultConfig()
	return Config{
		Paths: PathsConfig{
			CommandPolicy:    contracts.DefaultCommandPolicyPath,
			AdapterContracts: contracts.DefaultAdapterContractsPath,
			Scoreboard:       tracking.DefaultScoreboardPath,
			SpecPrefix:       tracking.DefaultSpecPrefix,
		},
		Scoreboard: ScoreboardConfig{ReportFormat: string(scoreboard.FormatMarkdown)},
		Log:        LogConfig{Format: logCfg.Format, Level: logCfg.Level, Output: logCfg.Output},
		Receipt:    ReceiptConfig{Mode: string(receipt.ModeOverwrite)},
		Otel: OtelConfig{
			Protocol:    otelCfg.Protocol,
			ServiceName: otelCfg.ServiceName,
			SampleRatio: otelCfg.SampleRatio,
		},
	}
}

// Validate reports every problem at once
func (c *Config) Validate() error {
	var errs []error

	for name, p := range map[string]string{
		"paths.command_policy":    c.Paths.CommandPolicy,
		"paths.adapter_contracts": c.Paths.AdapterContracts,
		"paths.scoreboard":        c.Paths.Scoreboard,
		"paths.spec_prefix":       c.Paths.SpecPrefix,
	} {
		if err := validateRelPath(name, p); err != nil {
			errs = append(errs, err)
		}
	}
	if _, err := scoreboard.ParseReportFormat(c.Scoreboard.ReportFormat); err != nil {
		errs = append(errs, fmt.Errorf("scoreboard.report_format: %w", err))
	}
	if _, err := receipt.ParseMode(c.Receipt.Mode); err != nil {
		errs = append(errs, fmt.Errorf("receipt.mode: %w", err))
	}
	if err := c.LoggingConfig().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("log: %w", err))
	}
	if err := c.TracingConfig().Validate(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		return nil
	}
	// map iteration order is random; keep messages stable
	sort.Slice(errs, func(i, j int) bool { return errs[i].Error() < errs[j].Error() })
	return errors.Join(errs...)
}

func validateRelPath(name, p string) error {
	if strings.TrimSpace(p) == "" {
		return fmt.Errorf("%s must not be empty", name)
	}
	if filepath.IsAbs(p) || strings.HasPrefix(p, "/") {
		return fmt.Errorf("%s must be relative to the repository root, got %q", name, p)
	}
	if !filepath.IsLocal(filepath.FromSlash(strings.TrimSuffix(p, "/"))) {
		return fmt.Errorf("%s must stay inside the repository, got %q", name, p)
	}
	return nil
}

// Tracker for spec pairing
func (c *Config) Tracker() tracking.Tracker {
	prefix := c.Paths.SpecPrefix
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return tracking.Tracker{SpecPrefix: prefix, ScoreboardPath: c.Paths.Scoreboard}
}

// Store for contract documents under root
func (c *Config) Store(root string) *contracts.Store {
	return &contracts.Store{
		Root:                 root,
		CommandPolicyPath:    c.Paths.CommandPolicy,
		AdapterContractsPath: c.Paths.AdapterContracts,
	}
}

func (c *Config) LoggingConfig() logging.Config {
	return logging.Config{Format: c.Log.Format, Level: c.Log.Level, Output: c.Log.Output}
}

func (c *Config) TracingConfig() otel.Config {
	return otel.Config{
		Enabled:     c.Otel.Enabled,
		Endpoint:    c.Otel.Endpoint,
		Protocol:    c.Otel.Protocol,
		Insecure:    c.Otel.Insecure,
		ServiceName: c.Otel.ServiceName,
		SampleRatio: c.Otel.SampleRatio,
	}
}
