package logging

import (
	"context"
	"errors"
	"io"
	"runtime"
	"sort"
	"syscall"

	"github.com/govgate/govgate/internal/observability"
	"github.com/govgate/govgate/internal/version"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const SchemaVersion = "1.0"

// eventPrefix namespaces events for log pipelines
const eventPrefix = "govgate."

type zapLogger struct {
	zap    *zap.Logger
	closer io.Closer
}

func newZapLogger(w io.Writer, closer io.Closer, format, level string) *zapLogger {
	core := zapcore.NewCore(newEncoder(format), zapcore.Lock(zapcore.AddSync(w)), zap.NewAtomicLevelAt(zapLevel(level)))
	z := zap.New(core).With(
		zap.String("schema_version", SchemaVersion),
		zap.String("govgate_version", version.BuildVersion()),
		zap.String("go_version", runtime.Version()),
	)
	return &zapLogger{zap: z, closer: closer}
}

func newEncoder(format string) zapcore.Encoder {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	encoderCfg.EncodeLevel = zapcore.LowercaseLevelEncoder

	if format == FormatConsole {
		return zapcore.NewConsoleEncoder(encoderCfg)
	}
	return zapcore.NewJSONEncoder(encoderCfg)
}

func (l *zapLogger) log(level zapcore.Level, component, msg string, fields ...any) {
	ce := l.zap.Check(level, msg)
	if ce == nil {
		return
	}
	zf := []zap.Field{zap.String("component", component)}
	if len(fields) > 1 {
		zf = append(zf, zap.Namespace("fields"))
		for i := 0; i+1 < len(fields); i += 2 {
			if key, ok := fields[i].(string); ok {
				zf = append(zf, zap.Any(key, fields[i+1]))
			}
		}
	}
	ce.Write(zf...)
}

// Event writes an info record named govgate.<event> tagged with the op id
func (l *zapLogger) Event(ctx context.Context, event string, fields map[string]any) {
	name := eventPrefix + event
	ce := l.zap.Check(zapcore.InfoLevel, name)
	if ce == nil {
		return
	}
	zf := []zap.Field{
		zap.String("event", name),
		zap.String("component", "cli"),
		zap.String("op_id", observability.OpID(ctx)),
	}
	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		zf = append(zf, zap.Namespace("fields"))
		for _, k := range keys {
			zf = append(zf, zap.Any(k, fields[k]))
		}
	}
	ce.Write(zf...)
}

func (l *zapLogger) Debug(component, msg string, fields ...any) {
	l.log(zapcore.DebugLevel, component, msg, fields...)
}

func (l *zapLogger) Info(component, msg string, fields ...any) {
	l.log(zapcore.InfoLevel, component, msg, fields...)
}

func (l *zapLogger) Warn(component, msg string, fields ...any) {
	l.log(zapcore.WarnLevel, component, msg, fields...)
}

func (l *zapLogger) Error(component, msg string, fields ...any) {
	l.log(zapcore.ErrorLevel, component, msg, fields...)
}

func (l *zapLogger) Close() error {
	err := l.zap.Sync()
	if err != nil && isStdSyncError(err) {
		err = nil
	}
	if l.closer != nil {
		if cerr := l.closer.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// stderr cannot be fsynced on most platforms
func isStdSyncError(err error) bool {
	return errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) || errors.Is(err, syscall.EBADF)
}
