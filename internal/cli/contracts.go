package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/govgate/govgate/internal/contracts"
	"github.com/govgate/govgate/internal/observability"
	"github.com/govgate/govgate/internal/observability/logging"
	otelobs "github.com/govgate/govgate/internal/observability/otel"
	"github.com/govgate/govgate/internal/observability/receipt"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
)

const (
	outputText = "text"
	outputJSON = "json"
)

// LintResult is the JSON output of contracts lint
type LintResult struct {
	CommandPolicy    string              `json:"commandPolicy"`
	AdapterContracts string              `json:"adapterContracts"`
	Errors           int                 `json:"errors"`
	Warnings         int                 `json:"warnings"`
	Findings         []contracts.Finding `json:"findings"`
	Outcome          string              `json:"outcome"` // "PASS" or "FAIL"
}

func newContractsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contracts",
		Short: "Inspect the command policy and adapter contracts",
	}
	cmd.AddCommand(newContractsLintCmd(a))
	cmd.AddCommand(newContractsShowCmd(a))
	return cmd
}

func newContractsLintCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Check both governance documents against their schemas",
		Long: `Checks the command policy and adapter contracts against their JSON
schemas and versioning rules and lists every finding.

Lint is stricter than the gate. Warnings (for example a non-enforce mode)
are reported but only errors fail the command.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runContractsLint(cmd, format)
		},
	}
	cmd.Flags().StringVar(&format, "format", outputText, "Output format: text or json")
	return cmd
}

func (a *app) runContractsLint(cmd *cobra.Command, format string) (err error) {
	ctx := cmd.Context()
	sess := receipt.Start(ctx, "govgate contracts lint", a.args)
	var ro []receipt.Option
	defer func() { _ = sess.Finish(err, ro...) }()

	if format != outputText && format != outputJSON {
		return fmt.Errorf("invalid format: %q (use text or json)", format)
	}

	ctx, span := otelobs.StartSpan(ctx, "contracts.lint",
		attribute.String("govgate.op_id", observability.OpID(ctx)),
	)
	defer func() { otelobs.EndSpan(span, err) }()

	store := a.cfg.Store(a.root)
	findings, err := store.Lint()
	if err != nil {
		return err
	}

	res := LintResult{
		CommandPolicy:    store.CommandPolicyEvidence(),
		AdapterContracts: store.AdapterContractsEvidence(),
		Findings:         findings,
		Outcome:          "PASS",
	}
	if res.Findings == nil {
		res.Findings = []contracts.Finding{}
	}
	for _, f := range findings {
		if f.Severity == contracts.SeverityError {
			res.Errors++
		} else {
			res.Warnings++
		}
	}
	if contracts.HasErrors(findings) {
		res.Outcome = "FAIL"
	}
	ro = append(ro, receipt.WithLint(res.Errors, res.Warnings))
	span.SetAttributes(
		attribute.Int("govgate.lint.errors", res.Errors),
		attribute.Int("govgate.lint.warnings", res.Warnings),
	)
	logging.From(ctx).Event(ctx, "contracts.lint", map[string]any{
		"errors":   res.Errors,
		"warnings": res.Warnings,
		"outcome":  res.Outcome,
	})

	if format == outputJSON {
		err = printJSON(a.stdout, res)
	} else {
		err = printLintText(a.stdout, res)
	}
	if err != nil {
		return err
	}

	if res.Outcome == "FAIL" {
		return fmt.Errorf("contracts lint FAIL: %d error(s)", res.Errors)
	}
	return nil
}

func printLintText(w io.Writer, res LintResult) error {
	var out strings.Builder
	if len(res.Findings) == 0 {
		out.WriteString("No findings.\n")
	} else {
		tw := table.NewWriter()
		tw.SetStyle(table.StyleLight)
		tw.AppendHeader(table.Row{"Severity", "Document", "Location", "Message"})
		for _, f := range res.Findings {
			tw.AppendRow(table.Row{strings.ToUpper(string(f.Severity)), f.Document, f.Location, f.Message})
		}
		out.WriteString(tw.Render())
		out.WriteString("\n")
	}
	fmt.Fprintf(&out, "\n%s: %d error(s), %d warning(s)\n", res.Outcome, res.Errors, res.Warnings)
	_, err := io.WriteString(w, out.String())
	return err
}

func newContractsShowCmd(a *app) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:          "show",
		Short:        "Print the policy settings and registered adapters",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			inv, err := a.cfg.Store(a.root).Inventory()
			if err != nil {
				return err
			}
			if jsonOut {
				return printJSON(a.stdout, inv)
			}
			return printInventory(a.stdout, inv)
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the inventory as JSON")
	return cmd
}

func printInventory(w io.Writer, inv *contracts.Inventory) error {
	p := inv.Policy
	var out strings.Builder
	fmt.Fprintf(&out, "Policy version:   %s\n", p.PolicyVersion)
	fmt.Fprintf(&out, "Enforcement mode: %s\n", p.EnforcementMode)
	fmt.Fprintf(&out, "Allowed actions:  %s\n", strings.Join(p.AllowedActions, ", "))
	if len(p.AllowedCommands) > 0 {
		fmt.Fprintf(&out, "Allowed commands: %s\n", strings.Join(p.AllowedCommands, ", "))
	}
	fmt.Fprintf(&out, "Contracts version: %s\n\n", inv.Contracts.ContractsVersion)

	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Adapter", "Capability", "Trust levels", "Constraints"})
	for _, ad := range inv.Contracts.Adapters {
		tw.AppendRow(table.Row{ad.Name, ad.Capability, strings.Join(ad.TrustLevels, ", "), len(ad.Constraints)})
	}
	out.WriteString(tw.Render())
	out.WriteString("\n")
	_, err := io.WriteString(w, out.String())
	return err
}
