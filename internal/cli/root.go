package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/govgate/govgate/internal/config"
	"github.com/govgate/govgate/internal/observability"
	"github.com/govgate/govgate/internal/observability/logging"
	otelobs "github.com/govgate/govgate/internal/observability/otel"
	"github.com/govgate/govgate/internal/observability/receipt"
	"github.com/govgate/govgate/internal/version"
	"github.com/spf13/cobra"
)

// app is the per-invocation state shared by every command
type app struct {
	args   []string
	stdout io.Writer
	stderr io.Writer

	root       string
	configPath string
	cfg        *config.Config
	closers    []func(context.Context) error

	// persistent flag values; only applied when the flag was set
	logFormat, logLevel, logOutput string
	receiptPath, receiptMode       string
	otelEnabled, otelInsecure      bool
	otelEndpoint, otelProtocol     string
	otelSampleRatio                float64
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "govgate",
		Short: "Policy gates and spec tracking for CI",
		Long: `govgate: fail-closed governance for automated CI actions.

Decides whether an adapter may perform an action under the repository's
command policy and adapter contracts, and keeps the implementation
scoreboard paired with newly added specification documents.`,
		Version:           version.BuildVersion(),
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.root, "root", ".", "Repository root")
	pf.StringVar(&a.configPath, "config", "", "Config file (default <root>/"+config.DefaultFile+" if present)")
	pf.StringVar(&a.logFormat, "log-format", logging.FormatPretty, "Log format: pretty, jsonl or console")
	pf.StringVar(&a.logLevel, "log-level", logging.LevelInfo, "Log level: debug, info, warn or error")
	pf.StringVar(&a.logOutput, "log-output", "stderr", "Log destination: stderr or a file path")
	pf.StringVar(&a.receiptPath, "receipt", "", "Write an audit receipt to this path")
	pf.StringVar(&a.receiptMode, "receipt-mode", string(receipt.ModeOverwrite), "Receipt mode: overwrite or append")
	pf.BoolVar(&a.otelEnabled, "otel", false, "Export OpenTelemetry traces")
	pf.StringVar(&a.otelEndpoint, "otel-endpoint", "", "OTLP endpoint (default from OTEL_EXPORTER_OTLP_ENDPOINT)")
	pf.StringVar(&a.otelProtocol, "otel-protocol", otelobs.ProtocolHTTP, "OTLP protocol: otlphttp or otlpgrpc")
	pf.BoolVar(&a.otelInsecure, "otel-insecure", false, "Disable TLS for the OTLP exporter")
	pf.Float64Var(&a.otelSampleRatio, "otel-sample-ratio", 1.0, "Trace sample ratio (0..1)")

	cmd.AddCommand(newGateCmd(a))
	cmd.AddCommand(newScoreboardCmd(a))
	cmd.AddCommand(newContractsCmd(a))
	return cmd
}

// Execute runs govgate with the process arguments and exits 1 on error
func Execute() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	a := &app{args: args, stdout: stdout, stderr: stderr}
	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	// closers also run after a failed command so receipts and logs flush
	if cerr := a.close(ctx); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// setup loads configuration and installs op id, logger, receipt writer and
// tracer in the command context
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.root, a.configPath)
	if err != nil {
		return err
	}
	a.applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	a.cfg = cfg

	ctx := observability.WithOpID(cmd.Context())

	logger, err := logging.NewLogger(cfg.LoggingConfig())
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return logger.Close() })
	ctx = logging.WithLogger(ctx, logger)

	if cfg.Receipt.Path != "" {
		mode, err := receipt.ParseMode(cfg.Receipt.Mode)
		if err != nil {
			return err
		}
		w, err := receipt.NewWriter(cfg.Receipt.Path, mode)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func(context.Context) error { return w.Close() })
		ctx = receipt.WithWriter(ctx, w)
	}

	if cfg.Otel.Enabled {
		h, err := otelobs.Init(ctx, cfg.TracingConfig())
		if err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
		a.closers = append(a.closers, h.Shutdown)
		ctx = otelobs.WithHandle(ctx, h)
	}

	logger.Debug("config", "loaded", "root", a.root, "config", a.configPath)
	cmd.SetContext(ctx)
	return nil
}

func (a *app) applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	set := func(name string, apply func()) {
		if flags.Changed(name) {
			apply()
		}
	}
	set("log-format", func() { cfg.Log.Format = a.logFormat })
	set("log-level", func() { cfg.Log.Level = a.logLevel })
	set("log-output", func() { cfg.Log.Output = a.logOutput })
	set("receipt", func() { cfg.Receipt.Path = a.receiptPath })
	set("receipt-mode", func() { cfg.Receipt.Mode = a.receiptMode })
	set("otel", func() { cfg.Otel.Enabled = a.otelEnabled })
	set("otel-endpoint", func() { cfg.Otel.Endpoint = a.otelEndpoint })
	set("otel-protocol", func() { cfg.Otel.Protocol = a.otelProtocol })
	set("otel-insecure", func() { cfg.Otel.Insecure = a.otelInsecure })
	set("otel-sample-ratio", func() { cfg.Otel.SampleRatio = a.otelSampleRatio })
}

// close runs closers in reverse order
func (a *app) close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
