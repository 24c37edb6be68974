package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/govgate/govgate/internal/models"
	"github.com/govgate/govgate/internal/observability/receipt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPolicy = `{
  "schemaVersion": "1.0",
  "policyVersion": "2.1.0",
  "enforcementMode": "enforce",
  "allowedActions": ["comment", "open-pull-request"],
  "constraints": ["no force pushes"]
}`

const testContracts = `{
  "schemaVersion": "1.0",
  "adapters": [
    {"name": "repo-writer", "capability": "writes", "trustLevels": ["maintainer"], "constraints": ["bot/ branches only"]}
  ]
}`

const testScoreboard = `{
  "version": 3,
  "capabilities": [
    {"id": "policy-gate", "description": "Fail-closed gate", "state": "operational"},
    {"id": "diff-parser", "description": "Name-status parser", "state": "scaffold"}
  ]
}`

func writeRepoFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTestRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeRepoFile(t, root, ".governance/command-policy.json", testPolicy)
	writeRepoFile(t, root, ".governance/adapter-contracts.json", testContracts)
	writeRepoFile(t, root, "docs/implementation-scoreboard.json", testScoreboard)
	return root
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestGate_Pass(t *testing.T) {
	root := newTestRepo(t)
	out := t.TempDir()
	jsonOut := filepath.Join(out, "decision.json")
	summaryOut := filepath.Join(out, "nested", "decision.md")

	stdout, _, err := execute(t, "gate", "--root", root,
		"--adapter", "repo-writer", "--action", "comment",
		"--json-out", jsonOut, "--summary-out", summaryOut)
	require.NoError(t, err)

	var printed models.PolicyDecision
	require.NoError(t, json.Unmarshal([]byte(stdout), &printed))
	assert.Equal(t, models.ResultPass, printed.Result)
	assert.Equal(t, "2.1.0", printed.PolicyVersion)

	data, err := os.ReadFile(jsonOut)
	require.NoError(t, err)
	assert.Equal(t, stdout, string(data))

	summary, err := os.ReadFile(summaryOut)
	require.NoError(t, err)
	assert.Contains(t, string(summary), "Policy-gated adapter decision: PASS")
}

func TestGate_FailWritesArtifacts(t *testing.T) {
	root := newTestRepo(t)
	jsonOut := filepath.Join(t.TempDir(), "decision.json")

	stdout, _, err := execute(t, "gate", "--root", root,
		"--adapter", "repo-writer", "--action", "delete-branch", "--json-out", jsonOut)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "policy gate FAIL")
	assert.Contains(t, err.Error(), "action 'delete-branch' not in allowedActions")

	var printed models.PolicyDecision
	require.NoError(t, json.Unmarshal([]byte(stdout), &printed))
	assert.Equal(t, models.ResultFail, printed.Result)
	assert.FileExists(t, jsonOut)
}

func TestGate_AdapterFromEnvironment(t *testing.T) {
	root := newTestRepo(t)
	t.Setenv("GOVGATE_GATE_ADAPTER", "repo-writer")
	t.Setenv("GOVGATE_GATE_ACTION", "open-pull-request")

	stdout, _, err := execute(t, "gate", "--root", root)
	require.NoError(t, err)
	assert.Contains(t, stdout, `"adapter": "repo-writer"`)
	assert.Contains(t, stdout, `"action": "open-pull-request"`)
}

func TestGate_MissingAdapterFails(t *testing.T) {
	root := newTestRepo(t)
	t.Setenv("GOVGATE_GATE_ADAPTER", "")

	_, _, err := execute(t, "gate", "--root", root, "--action", "comment")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "policy gate FAIL")
}

func TestGate_MissingPolicyFails(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, ".governance/adapter-contracts.json", testContracts)

	stdout, _, err := execute(t, "gate", "--root", root, "--adapter", "repo-writer", "--action", "comment")
	require.Error(t, err)
	assert.Contains(t, stdout, `"result": "FAIL"`)
}

func TestGate_WritesReceipt(t *testing.T) {
	root := newTestRepo(t)
	receiptPath := filepath.Join(t.TempDir(), "receipt.json")

	_, _, err := execute(t, "gate", "--root", root, "--receipt", receiptPath,
		"--adapter", "repo-writer", "--action", "comment")
	require.NoError(t, err)

	data, err := os.ReadFile(receiptPath)
	require.NoError(t, err)
	var r receipt.Receipt
	require.NoError(t, json.Unmarshal(data, &r))
	assert.Equal(t, "govgate gate", r.Command)
	assert.Equal(t, "success", r.Result.Status)
	require.NotNil(t, r.Decision)
	assert.Equal(t, "PASS", r.Decision.Result)
	assert.Len(t, r.Decision.SHA256, 64)
}

func TestScoreboard_Summary(t *testing.T) {
	root := newTestRepo(t)

	stdout, _, err := execute(t, "scoreboard", "--root", root, "--summary")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Implementation scoreboard (version 3)")
	assert.Contains(t, stdout, "operational")
	assert.Contains(t, stdout, "total")
}

func TestScoreboard_Pairing(t *testing.T) {
	tests := []struct {
		name    string
		diff    string
		wantErr string
	}{
		{"no spec changes", "M\tinternal/cli/gate.go\n", ""},
		{"paired", "A\tdocs/specs/gate.md\nM\tdocs/implementation-scoreboard.json\n", ""},
		{"unpaired", "A\tdocs/specs/gate.md\nM\tREADME.md\n", "docs/specs/gate.md"},
		{"renamed into specs", "R100\tnotes/gate.md\tdocs/specs/gate.md\n", ""},
		{"unpaired message", "A\tdocs/specs/b.md\nA\tdocs/specs/a.md\n", "new spec artifacts must be tracked"},
		{"modified spec", "M\tdocs/specs/gate.md\n", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := newTestRepo(t)
			diffFile := filepath.Join(t.TempDir(), "changes.txt")
			require.NoError(t, os.WriteFile(diffFile, []byte(tt.diff), 0o644))

			_, _, err := execute(t, "scoreboard", "--root", root, "--diff-file", diffFile)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestScoreboard_InvalidScoreboard(t *testing.T) {
	root := newTestRepo(t)
	writeRepoFile(t, root, "docs/implementation-scoreboard.json", `{"version": 1, "capabilities": [{"id": "x", "description": "d", "state": "done"}]}`)

	_, _, err := execute(t, "scoreboard", "--root", root, "--summary")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "done")
}

func TestScoreboard_Report(t *testing.T) {
	root := newTestRepo(t)
	reportFile := filepath.Join(t.TempDir(), "parity.json")

	_, _, err := execute(t, "scoreboard", "--root", root, "--summary",
		"--report-file", reportFile, "--report-format", "json")
	require.NoError(t, err)

	var report models.ParityReport
	data, err := os.ReadFile(reportFile)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &report))
	require.Len(t, report.Capabilities, 2)
	assert.Equal(t, "diff-parser", report.Capabilities[0].ID)
	assert.Equal(t, 3, report.ScoreboardVersion)

	// the freshly written report is current
	_, _, err = execute(t, "scoreboard", "--root", root, "--summary",
		"--report-file", reportFile, "--report-format", "json", "--check-report")
	require.NoError(t, err)

	writeRepoFile(t, root, "docs/implementation-scoreboard.json", `{
  "version": 3,
  "capabilities": [
    {"id": "policy-gate", "description": "Fail-closed gate", "state": "operational"},
    {"id": "diff-parser", "description": "Name-status parser", "state": "operational"}
  ]
}`)
	_, _, err = execute(t, "scoreboard", "--root", root, "--summary",
		"--report-file", reportFile, "--report-format", "json", "--check-report")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "capability diff-parser moved to operational")
}

func TestScoreboard_ReportDefaultsToMarkdown(t *testing.T) {
	root := newTestRepo(t)
	reportFile := filepath.Join(t.TempDir(), "parity.md")

	_, _, err := execute(t, "scoreboard", "--root", root, "--summary", "--report-file", reportFile)
	require.NoError(t, err)

	data, err := os.ReadFile(reportFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Capability parity report")
}

func TestScoreboard_UsageErrors(t *testing.T) {
	root := newTestRepo(t)

	_, _, err := execute(t, "scoreboard", "--root", root, "--summary", "--report-file", "x.html", "--report-format", "html")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid report format")

	_, _, err = execute(t, "scoreboard", "--root", root, "--summary", "--check-report")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--check-report requires --report-file")
}

func TestContractsLint(t *testing.T) {
	root := newTestRepo(t)

	stdout, _, err := execute(t, "contracts", "lint", "--root", root, "--format", "json")
	require.NoError(t, err)
	var res LintResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	assert.Equal(t, "PASS", res.Outcome)
	assert.Empty(t, res.Findings)

	writeRepoFile(t, root, ".governance/command-policy.json", `{"schemaVersion": "1.0", "enforcementMode": "enforce", "allowedActions": "comment", "constraints": []}`)
	stdout, _, err = execute(t, "contracts", "lint", "--root", root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contracts lint FAIL")
	assert.Contains(t, stdout, "/allowedActions")
	assert.Contains(t, stdout, "FAIL:")
}

func TestContractsShow(t *testing.T) {
	root := newTestRepo(t)

	stdout, _, err := execute(t, "contracts", "show", "--root", root)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Policy version:   2.1.0")
	assert.Contains(t, stdout, "repo-writer")
	assert.Contains(t, stdout, "comment, open-pull-request")
}

func TestConfigFileDefaults(t *testing.T) {
	root := newTestRepo(t)
	writeRepoFile(t, root, ".govgate.yaml", "gate:\n  adapter: repo-writer\n  action: comment\n")

	_, _, err := execute(t, "gate", "--root", root)
	require.NoError(t, err)

	_, _, err = execute(t, "gate", "--root", root, "--log-level", "verbose")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}
