package logging

import (
	"fmt"

	"go.uber.org/zap/zapcore"
)

type Config struct {
	Format string
	Level  string
	Output string
}

func DefaultConfig() Config {
	return Config{
		Format: FormatPretty,
		Level:  LevelInfo,
		Output: "stderr",
	}
}

// Formats. pretty leaves stderr to the human-readable command output.
const (
	FormatPretty  = "pretty"
	FormatJSONL   = "jsonl"
	FormatConsole = "console"
)

const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

func (c Config) Validate() error {
	switch c.Format {
	case "", FormatPretty, FormatJSONL, FormatConsole:
	default:
		return fmt.Errorf("invalid log format: %q (use pretty, jsonl or console)", c.Format)
	}
	switch c.Level {
	case "", LevelDebug, LevelInfo, LevelWarn, LevelError:
	default:
		return fmt.Errorf("invalid log level: %q (use debug, info, warn or error)", c.Level)
	}
	return nil
}

func zapLevel(level string) zapcore.Level {
	switch level {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
