package receipt

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/govgate/govgate/internal/models"
	"github.com/govgate/govgate/internal/observability"
	"github.com/govgate/govgate/internal/version"
	"github.com/gowebpki/jcs"
)

// MaxErrorLength caps error strings in receipts
const MaxErrorLength = 2048

// Session tracks one command execution
type Session struct {
	ctx     context.Context
	start   time.Time
	command string
	args    []string
}

func Start(ctx context.Context, cmd string, args []string) *Session {
	return &Session{
		ctx:     ctx,
		start:   time.Now(),
		command: cmd,
		args:    args,
	}
}

// Option configures a receipt
type Option func(*Receipt)

// WithDecision records a gate decision and its canonical digest
func WithDecision(d models.PolicyDecision, decidingGate string) Option {
	return func(r *Receipt) {
		summary := &DecisionSummary{
			Adapter:         d.Adapter,
			Action:          d.Action,
			Result:          string(d.Result),
			DecidingGate:    decidingGate,
			PolicyVersion:   d.PolicyVersion,
			EnforcementMode: d.EnforcementMode,
		}
		if digest, err := DecisionDigest(d); err == nil {
			summary.SHA256 = digest
		}
		r.Decision = summary
	}
}

// WithScoreboard records the scoreboard outcome; the file at s.Path is
// hashed when readable
func WithScoreboard(s ScoreboardSummary) Option {
	return func(r *Receipt) {
		if s.Path != "" && s.SHA256 == "" {
			if hash, err := computeSHA256(s.Path); err == nil {
				s.SHA256 = hash
			}
		}
		r.Scoreboard = &s
	}
}

func WithLint(errors, warnings int) Option {
	return func(r *Receipt) {
		r.Lint = &LintSummary{Errors: errors, Warnings: warnings}
	}
}

// DecisionDigest is the hex SHA-256 of the decision's canonical JSON
func DecisionDigest(d models.PolicyDecision) (string, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("failed to encode decision: %w", err)
	}
	canonical, err := jcs.Transform(data)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize decision: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// Finish writes the receipt; a no-op when receipts are disabled
func (s *Session) Finish(err error, opts ...Option) error {
	w := From(s.ctx)
	if w == nil {
		return nil
	}

	args, redacted := RedactArgs(s.args)

	r := Receipt{
		SchemaVersion: ReceiptSchemaVersion,
		OpID:          observability.OpID(s.ctx),
		TsStart:       s.start.UTC().Format(time.RFC3339Nano),
		TsEnd:         time.Now().UTC().Format(time.RFC3339Nano),
		Command:       s.command,
		Args:          args,
		ArgsRedacted:  redacted,
		Build:         &BuildRef{Version: version.BuildVersion(), Revision: version.Revision()},
		Result:        Result{Status: "success"},
	}
	if err != nil {
		r.Result = Result{Status: "fail", Error: truncateError(err.Error())}
	}

	for _, opt := range opts {
		opt(&r)
	}
	return w.Write(r)
}

func computeSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func truncateError(s string) string {
	if len(s) <= MaxErrorLength {
		return s
	}
	return s[:MaxErrorLength-3] + "..."
}
