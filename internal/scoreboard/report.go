package scoreboard

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/govgate/govgate/internal/models"
	"github.com/jedib0t/go-pretty/v6/table"
)

// ReportEpoch is stamped on every report so that regenerated snapshots
// only differ when the scoreboard does
const ReportEpoch = "1970-01-01T00:00:00.000Z"

// ReportFormat for written reports
type ReportFormat string

const (
	FormatJSON     ReportFormat = "json"
	FormatMarkdown ReportFormat = "markdown"
)

// ParseReportFormat accepts json or markdown only
func ParseReportFormat(s string) (ReportFormat, error) {
	switch ReportFormat(s) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatMarkdown:
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("invalid report format: %q (use json or markdown)", s)
	}
}

// CountByState always fills every state
func CountByState(sb *models.Scoreboard) models.StateCounts {
	var counts models.StateCounts
	for _, c := range sb.Capabilities {
		switch c.State {
		case models.StateSpecOnly:
			counts.SpecOnly++
		case models.StateScaffold:
			counts.Scaffold++
		case models.StateOperational:
			counts.Operational++
		}
	}
	return counts
}

// BuildParityReport snapshots the scoreboard with capabilities sorted by id.
// The input scoreboard is not modified.
func BuildParityReport(sb *models.Scoreboard) models.ParityReport {
	sorted := make([]models.Capability, len(sb.Capabilities))
	copy(sorted, sb.Capabilities)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ID < sorted[j].ID
	})

	counts := CountByState(sb)
	return models.ParityReport{
		GeneratedAt:       ReportEpoch,
		ScoreboardVersion: sb.Version,
		Summary:           RenderSummaryMarkdown(sb),
		Counts:            counts,
		TotalCapabilities: len(sb.Capabilities),
		Capabilities:      sorted,
	}
}

// RenderSummaryMarkdown state counts as a markdown table
func RenderSummaryMarkdown(sb *models.Scoreboard) string {
	counts := CountByState(sb)

	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"State", "Count"})
	for _, s := range models.CapabilityStates {
		tw.AppendRow(table.Row{string(s), counts.Get(s)})
	}
	tw.AppendRow(table.Row{"total", len(sb.Capabilities)})

	var out strings.Builder
	out.WriteString(fmt.Sprintf("## Implementation scoreboard (version %d)\n\n", sb.Version))
	out.WriteString(tw.RenderMarkdown())
	out.WriteString("\n")
	return out.String()
}

// RenderParityReportMarkdown full report as markdown
func RenderParityReportMarkdown(r models.ParityReport) string {
	var out strings.Builder
	out.WriteString("# Capability parity report\n\n")
	out.WriteString(fmt.Sprintf("- Generated: %s\n", r.GeneratedAt))
	out.WriteString(fmt.Sprintf("- Scoreboard version: %d\n", r.ScoreboardVersion))
	out.WriteString(fmt.Sprintf("- Total capabilities: %d\n\n", r.TotalCapabilities))
	out.WriteString(r.Summary)
	out.WriteString("\n## Capabilities\n\n")

	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"ID", "State", "Description", "Evidence"})
	for _, c := range r.Capabilities {
		tw.AppendRow(table.Row{c.ID, string(c.State), oneLine(c.Description), oneLine(strings.Join(c.Evidence, "; "))})
	}
	out.WriteString(tw.RenderMarkdown())
	out.WriteString("\n")
	return out.String()
}

// EncodeReport serializes a report; output is byte-stable for equal input
func EncodeReport(r models.ParityReport, format ReportFormat) ([]byte, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode report: %w", err)
		}
		return append(data, '\n'), nil
	case FormatMarkdown:
		return []byte(RenderParityReportMarkdown(r)), nil
	default:
		return nil, fmt.Errorf("invalid report format: %q (use json or markdown)", format)
	}
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
