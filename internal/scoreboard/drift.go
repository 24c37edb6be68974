package scoreboard

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/govgate/govgate/internal/models"
	"github.com/wI2L/jsondiff"
)

// DiffReports describes how a JSON report changed, one line per change
func DiffReports(oldJSON, newJSON []byte) ([]string, error) {
	patch, err := jsondiff.CompareJSON(oldJSON, newJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to compare reports: %w", err)
	}
	if len(patch) == 0 {
		return nil, nil
	}

	var oldReport, newReport models.ParityReport
	_ = json.Unmarshal(oldJSON, &oldReport)
	_ = json.Unmarshal(newJSON, &newReport)

	var lines []string
	seen := make(map[string]bool)
	for _, op := range patch {
		line := translateOperation(op, oldReport, newReport)
		if line != "" && !seen[line] {
			seen[line] = true
			lines = append(lines, line)
		}
	}
	return lines, nil
}

// CheckReportFile compares a committed report with a fresh rendering and
// returns the drift; nil means the file is current
func CheckReportFile(path string, format ReportFormat, fresh []byte) ([]string, error) {
	current, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{fmt.Sprintf("report %s does not exist", path)}, nil
		}
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	if bytes.Equal(current, fresh) {
		return nil, nil
	}
	if format == FormatJSON {
		lines, err := DiffReports(current, fresh)
		if err == nil && len(lines) > 0 {
			return lines, nil
		}
	}
	return []string{fmt.Sprintf("report %s is out of date", path)}, nil
}

func translateOperation(op jsondiff.Operation, oldReport, newReport models.ParityReport) string {
	parts := strings.Split(strings.TrimPrefix(op.Path, "/"), "/")

	switch parts[0] {
	case "capabilities":
		return translateCapability(op, parts, oldReport, newReport)
	case "counts":
		if len(parts) > 1 {
			return fmt.Sprintf("count of %s is now %v", parts[1], op.Value)
		}
	case "scoreboardVersion":
		return fmt.Sprintf("scoreboard version is now %v", op.Value)
	case "totalCapabilities":
		return fmt.Sprintf("total capabilities is now %v", op.Value)
	case "summary", "generatedAt":
		// derived from fields reported elsewhere
		return ""
	}
	return fmt.Sprintf("%s %s", op.Type, op.Path)
}

func translateCapability(op jsondiff.Operation, parts []string, oldReport, newReport models.ParityReport) string {
	if len(parts) < 2 {
		return "capability list changed"
	}
	if parts[1] == "-" && op.Type == jsondiff.OperationAdd {
		return fmt.Sprintf("capability %s added", capabilityID(newReport, len(newReport.Capabilities)-1))
	}
	idx, err := strconv.Atoi(parts[1])
	if err != nil {
		return fmt.Sprintf("%s %s", op.Type, op.Path)
	}

	switch op.Type {
	case jsondiff.OperationAdd:
		if len(parts) == 2 {
			return fmt.Sprintf("capability %s added", capabilityID(newReport, idx))
		}
	case jsondiff.OperationRemove:
		if len(parts) == 2 {
			return fmt.Sprintf("capability %s removed", capabilityID(oldReport, idx))
		}
	}

	id := capabilityID(newReport, idx)
	if len(parts) > 2 {
		switch parts[2] {
		case "state":
			return fmt.Sprintf("capability %s moved to %v", id, op.Value)
		case "description":
			return fmt.Sprintf("capability %s description updated", id)
		case "evidence":
			return fmt.Sprintf("capability %s evidence updated", id)
		case "id":
			return fmt.Sprintf("capability at position %d is now %v", idx, op.Value)
		}
	}
	return fmt.Sprintf("capability %s changed", id)
}

func capabilityID(r models.ParityReport, idx int) string {
	if idx >= 0 && idx < len(r.Capabilities) {
		return r.Capabilities[idx].ID
	}
	return "#" + strconv.Itoa(idx)
}
