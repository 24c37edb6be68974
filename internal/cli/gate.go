package cli

import (
	"fmt"
	"time"

	"github.com/govgate/govgate/internal/models"
	"github.com/govgate/govgate/internal/observability"
	"github.com/govgate/govgate/internal/observability/logging"
	otelobs "github.com/govgate/govgate/internal/observability/otel"
	"github.com/govgate/govgate/internal/observability/receipt"
	"github.com/govgate/govgate/internal/policy"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
)

type gateOptions struct {
	adapter    string
	action     string
	jsonOut    string
	summaryOut string
}

func newGateCmd(a *app) *cobra.Command {
	opts := &gateOptions{}
	cmd := &cobra.Command{
		Use:   "gate [--adapter <name>] [--action <name>]",
		Short: "Decide whether an adapter may perform an action",
		Long: `Evaluates the command policy and adapter contracts for one adapter/action
pair and prints the decision record as JSON.

The decision is fail-closed: a missing or malformed document, a non-enforce
mode, an unknown adapter, an unconstrained adapter or an action outside
allowedActions all produce FAIL. The exit code is non-zero iff the result is FAIL.

Adapter and action default to GOVGATE_GATE_ADAPTER and GOVGATE_GATE_ACTION.

Examples:
  GOVGATE_GATE_ADAPTER=repo-writer GOVGATE_GATE_ACTION=comment govgate gate

  # Keep the decision and a markdown summary as CI artifacts
  govgate gate --adapter repo-writer --action open-pull-request \
    --json-out out/decision.json --summary-out out/decision.md`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runGate(cmd, *opts)
		},
	}

	cmd.Flags().StringVar(&opts.adapter, "adapter", "", "Adapter name (default $GOVGATE_GATE_ADAPTER)")
	cmd.Flags().StringVar(&opts.action, "action", "", "Action name (default $GOVGATE_GATE_ACTION)")
	cmd.Flags().StringVar(&opts.jsonOut, "json-out", "", "Write the decision record to this path")
	cmd.Flags().StringVar(&opts.summaryOut, "summary-out", "", "Write a markdown summary to this path")
	return cmd
}

func (a *app) runGate(cmd *cobra.Command, opts gateOptions) (err error) {
	ctx := cmd.Context()
	sess := receipt.Start(ctx, "govgate gate", a.args)
	var receiptOpts []receipt.Option
	defer func() {
		_ = sess.Finish(err, receiptOpts...)
	}()

	if opts.adapter == "" {
		opts.adapter = a.cfg.Gate.Adapter
	}
	if opts.action == "" {
		opts.action = a.cfg.Gate.Action
	}

	log := logging.From(ctx)
	start := time.Now()

	ctx, span := otelobs.StartSpan(ctx, "gate",
		attribute.String("govgate.op_id", observability.OpID(ctx)),
		attribute.String("govgate.adapter", opts.adapter),
		attribute.String("govgate.action", opts.action),
	)
	defer func() { otelobs.EndSpan(span, err) }()

	log.Event(ctx, "gate.start", map[string]any{"adapter": opts.adapter, "action": opts.action})

	engine, err := policy.NewEngine()
	if err != nil {
		return err
	}
	decision, decidingGate := engine.EvaluateWithGate(a.cfg.Store(a.root), opts.adapter, opts.action)
	receiptOpts = append(receiptOpts, receipt.WithDecision(decision, decidingGate))
	span.SetAttributes(
		attribute.String("govgate.result", string(decision.Result)),
		attribute.String("govgate.deciding_gate", decidingGate),
	)

	log.Event(ctx, "gate.decision", map[string]any{
		"duration_ms":      time.Since(start).Milliseconds(),
		"result":           string(decision.Result),
		"deciding_gate":    decidingGate,
		"policy_version":   decision.PolicyVersion,
		"enforcement_mode": decision.EnforcementMode,
	})

	// artifacts are written for PASS and FAIL alike
	if opts.jsonOut != "" {
		data, err := marshalIndent(decision)
		if err != nil {
			return fmt.Errorf("failed to encode decision: %w", err)
		}
		if err := writeArtifact(opts.jsonOut, data); err != nil {
			return err
		}
	}
	if opts.summaryOut != "" {
		if err := writeArtifact(opts.summaryOut, []byte(policy.RenderSummaryMarkdown(decision))); err != nil {
			return err
		}
	}

	if err := printJSON(a.stdout, decision); err != nil {
		return err
	}

	if decision.Result != models.ResultPass {
		return fmt.Errorf("policy gate %s: %s", decision.Result, decision.Reason)
	}
	return nil
}
