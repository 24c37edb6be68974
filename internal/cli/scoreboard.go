package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/govgate/govgate/internal/gitdiff"
	"github.com/govgate/govgate/internal/models"
	"github.com/govgate/govgate/internal/observability"
	"github.com/govgate/govgate/internal/observability/logging"
	otelobs "github.com/govgate/govgate/internal/observability/otel"
	"github.com/govgate/govgate/internal/observability/receipt"
	"github.com/govgate/govgate/internal/scoreboard"
	"github.com/govgate/govgate/internal/tracking"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
)

type scoreboardOptions struct {
	summary      bool
	reportFile   string
	reportFormat string
	baseRef      string
	diffFile     string
	checkReport  bool
}

func newScoreboardCmd(a *app) *cobra.Command {
	opts := &scoreboardOptions{}
	cmd := &cobra.Command{
		Use:   "scoreboard",
		Short: "Validate the implementation scoreboard and enforce spec pairing",
		Long: `Validates the implementation scoreboard and prints its state counts.

Without --summary the change is also checked: every spec document added
under the spec prefix must come with an update to the scoreboard. The diff
is taken against --base-ref, or main, then master, then HEAD~1. A
pre-computed "status<TAB>path" listing can be given with --diff-file.

--report-file writes a parity report snapshot. With --check-report the
snapshot is compared instead of written and any drift fails the command.

Examples:
  govgate scoreboard --summary
  govgate scoreboard --base-ref origin/main
  git diff --name-status origin/main > changes.txt && govgate scoreboard --diff-file changes.txt
  govgate scoreboard --summary --report-file docs/parity.json --report-format json --check-report`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runScoreboard(cmd, *opts)
		},
	}

	cmd.Flags().BoolVar(&opts.summary, "summary", false, "Print the summary only and skip spec-pairing enforcement")
	cmd.Flags().StringVar(&opts.reportFile, "report-file", "", "Write a parity report to this path")
	cmd.Flags().StringVar(&opts.reportFormat, "report-format", "", "Report format: json or markdown (default markdown)")
	cmd.Flags().StringVar(&opts.baseRef, "base-ref", "", "Base ref for the diff (default main, master, then HEAD~1)")
	cmd.Flags().StringVar(&opts.diffFile, "diff-file", "", "Read name-status diff records from this file instead of git")
	cmd.Flags().BoolVar(&opts.checkReport, "check-report", false, "Fail if --report-file differs from a fresh report")
	return cmd
}

func (a *app) runScoreboard(cmd *cobra.Command, opts scoreboardOptions) (err error) {
	ctx := cmd.Context()
	sess := receipt.Start(ctx, "govgate scoreboard", a.args)
	summary := receipt.ScoreboardSummary{}
	recorded := false
	defer func() {
		var ro []receipt.Option
		if recorded {
			ro = append(ro, receipt.WithScoreboard(summary))
		}
		_ = sess.Finish(err, ro...)
	}()

	if opts.checkReport && opts.reportFile == "" {
		return errors.New("--check-report requires --report-file")
	}
	if opts.reportFormat == "" {
		opts.reportFormat = a.cfg.Scoreboard.ReportFormat
	}
	format, err := scoreboard.ParseReportFormat(opts.reportFormat)
	if err != nil {
		return err
	}
	if opts.baseRef == "" {
		opts.baseRef = a.cfg.Scoreboard.BaseRef
	}

	log := logging.From(ctx)
	start := time.Now()
	ctx, span := otelobs.StartSpan(ctx, "scoreboard",
		attribute.String("govgate.op_id", observability.OpID(ctx)),
		attribute.Bool("govgate.summary_only", opts.summary),
	)
	defer func() { otelobs.EndSpan(span, err) }()

	path := filepath.Join(a.root, a.cfg.Paths.Scoreboard)
	log.Event(ctx, "scoreboard.start", map[string]any{"path": a.cfg.Paths.Scoreboard, "summary_only": opts.summary})

	sb, err := scoreboard.Load(path)
	if err != nil {
		return err
	}
	if err := scoreboard.Validate(sb); err != nil {
		return err
	}
	summary.Path = path
	summary.Version = sb.Version
	summary.Counts = scoreboard.CountByState(sb)
	recorded = true
	span.SetAttributes(attribute.Int("govgate.capabilities", len(sb.Capabilities)))

	if !opts.summary {
		entries, base, err := a.diffEntries(cmd, opts)
		if err != nil {
			return err
		}
		summary.BaseRef = base
		tracker := a.cfg.Tracker()
		summary.AddedSpecArtifacts = tracker.AddedSpecArtifacts(entries)
		log.Event(ctx, "scoreboard.diff", map[string]any{
			"base_ref":             base,
			"entries":              len(entries),
			"added_spec_artifacts": len(summary.AddedSpecArtifacts),
		})
		if err := tracker.Enforce(entries); err != nil {
			var unpaired *tracking.UnpairedSpecError
			if errors.As(err, &unpaired) {
				log.Warn("scoreboard", "unpaired spec artifacts", "count", len(unpaired.Artifacts))
			}
			return err
		}
	}

	if _, err := fmt.Fprint(a.stdout, scoreboard.RenderSummaryMarkdown(sb)); err != nil {
		return err
	}

	if opts.reportFile != "" {
		summary.ReportFile = opts.reportFile
		if err := a.writeOrCheckReport(sb, opts, format, &summary); err != nil {
			return err
		}
	}

	log.Event(ctx, "scoreboard.done", map[string]any{
		"duration_ms":  time.Since(start).Milliseconds(),
		"version":      sb.Version,
		"spec_only":    summary.Counts.SpecOnly,
		"scaffold":     summary.Counts.Scaffold,
		"operational":  summary.Counts.Operational,
		"report_file":  opts.reportFile,
		"report_drift": len(summary.ReportDrift),
	})
	return nil
}

// diffEntries returns the change set and the base it was taken against
func (a *app) diffEntries(cmd *cobra.Command, opts scoreboardOptions) ([]models.DiffEntry, string, error) {
	if opts.diffFile != "" {
		data, err := os.ReadFile(opts.diffFile)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read diff file: %w", err)
		}
		return gitdiff.ParseEntries(string(data)), "", nil
	}

	repo, err := gitdiff.Open(a.root)
	if err != nil {
		return nil, "", err
	}
	text, base, err := repo.NameStatus(cmd.Context(), opts.baseRef)
	if err != nil {
		return nil, "", err
	}
	return gitdiff.ParseEntries(text), base.Ref, nil
}

func (a *app) writeOrCheckReport(sb *models.Scoreboard, opts scoreboardOptions, format scoreboard.ReportFormat, summary *receipt.ScoreboardSummary) error {
	data, err := scoreboard.EncodeReport(scoreboard.BuildParityReport(sb), format)
	if err != nil {
		return err
	}

	if !opts.checkReport {
		return writeArtifact(opts.reportFile, data)
	}

	drift, err := scoreboard.CheckReportFile(opts.reportFile, format, data)
	if err != nil {
		return err
	}
	if len(drift) == 0 {
		return nil
	}
	summary.ReportDrift = drift
	return fmt.Errorf("parity report %s is stale:\n  - %s", opts.reportFile, strings.Join(drift, "\n  - "))
}
