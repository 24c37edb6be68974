// Package tracking requires that new specification documents land together
// with a scoreboard update.
package tracking

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/govgate/govgate/internal/models"
)

// Defaults, relative to the repository root
const (
	DefaultSpecPrefix     = "docs/specs/"
	DefaultScoreboardPath = "docs/implementation-scoreboard.json"
	specExtension         = ".md"
	directoryIndex        = "README.md"
)

// Tracker holds the path conventions
type Tracker struct {
	SpecPrefix     string
	ScoreboardPath string
}

// DefaultTracker uses the repository defaults
func DefaultTracker() Tracker {
	return Tracker{SpecPrefix: DefaultSpecPrefix, ScoreboardPath: DefaultScoreboardPath}
}

// UnpairedSpecError lists spec additions without a scoreboard update
type UnpairedSpecError struct {
	Artifacts      []string
	ScoreboardPath string
}

func (e *UnpairedSpecError) Error() string {
	var sb strings.Builder
	sb.WriteString("new spec artifacts must be tracked in the scoreboard in the same change:\n")
	for _, a := range e.Artifacts {
		sb.WriteString("  - ")
		sb.WriteString(a)
		sb.WriteByte('\n')
	}
	sb.WriteString(fmt.Sprintf("update %s alongside these files", e.ScoreboardPath))
	return sb.String()
}

// IsSpecArtifact: markdown under the spec prefix, excluding README.md indexes
func (t Tracker) IsSpecArtifact(p string) bool {
	if !strings.HasPrefix(p, t.SpecPrefix) || !strings.HasSuffix(p, specExtension) {
		return false
	}
	return path.Base(p) != directoryIndex
}

// AddedSpecArtifacts returns sorted, unique spec paths with status exactly A
func (t Tracker) AddedSpecArtifacts(entries []models.DiffEntry) []string {
	seen := make(map[string]bool)
	added := []string{}
	for _, e := range entries {
		if e.Status != "A" || !t.IsSpecArtifact(e.Path) || seen[e.Path] {
			continue
		}
		seen[e.Path] = true
		added = append(added, e.Path)
	}
	sort.Strings(added)
	return added
}

// HasScoreboardUpdate: the scoreboard changed and was not deleted
func (t Tracker) HasScoreboardUpdate(entries []models.DiffEntry) bool {
	for _, e := range entries {
		if e.Path == t.ScoreboardPath && e.Status != "D" {
			return true
		}
	}
	return false
}

// Enforce fails when spec artifacts were added without a scoreboard update
func (t Tracker) Enforce(entries []models.DiffEntry) error {
	added := t.AddedSpecArtifacts(entries)
	if len(added) == 0 || t.HasScoreboardUpdate(entries) {
		return nil
	}
	return &UnpairedSpecError{Artifacts: added, ScoreboardPath: t.ScoreboardPath}
}

// IsSpecArtifact with the default conventions
func IsSpecArtifact(p string) bool {
	return DefaultTracker().IsSpecArtifact(p)
}

// AddedSpecArtifacts with the default conventions
func AddedSpecArtifacts(entries []models.DiffEntry) []string {
	return DefaultTracker().AddedSpecArtifacts(entries)
}

// HasScoreboardUpdate with the default conventions
func HasScoreboardUpdate(entries []models.DiffEntry) bool {
	return DefaultTracker().HasScoreboardUpdate(entries)
}

// Enforce with the default conventions
func Enforce(entries []models.DiffEntry) error {
	return DefaultTracker().Enforce(entries)
}
