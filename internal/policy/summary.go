package policy

import (
	"fmt"
	"strings"

	"github.com/govgate/govgate/internal/models"
	"github.com/jedib0t/go-pretty/v6/table"
)

// RenderSummaryMarkdown formats a decision for a CI step summary
func RenderSummaryMarkdown(d models.PolicyDecision) string {
	var sb strings.Builder

	mark := "✅"
	if !d.Passed() {
		mark = "❌"
	}
	sb.WriteString(fmt.Sprintf("## %s Policy-gated adapter decision: %s\n\n", mark, d.Result))

	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"Field", "Value"})
	tw.AppendRows([]table.Row{
		{"Gate", d.Gate},
		{"Result", d.Result},
		{"Adapter", d.Adapter},
		{"Action", d.Action},
		{"Policy version", d.PolicyVersion},
		{"Enforcement mode", d.EnforcementMode},
		{"Evidence", d.Evidence},
		{"Timestamp", d.Timestamp},
	})
	sb.WriteString(tw.RenderMarkdown())
	sb.WriteString("\n\n")

	sb.WriteString("**Reason:** ")
	sb.WriteString(d.Reason)
	sb.WriteString("\n")
	return sb.String()
}
