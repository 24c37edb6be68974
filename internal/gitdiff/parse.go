// Package gitdiff turns name-status change listings into diff entries and
// produces those listings from a local repository.
package gitdiff

import (
	"strings"

	"github.com/govgate/govgate/internal/models"
)

// ParseEntries reads `status<TAB>path[<TAB>path2]` lines. Lines with fewer
// than two fields are skipped. Rename and copy lines yield the source and
// destination as two entries with the same status. Order is kept and
// duplicates are not removed.
func ParseEntries(text string) []models.DiffEntry {
	entries := []models.DiffEntry{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			continue
		}

		status := strings.TrimSpace(fields[0])
		if models.IsRenameOrCopy(status) && len(fields) >= 3 {
			entries = append(entries,
				models.DiffEntry{Status: status, Path: fields[1]},
				models.DiffEntry{Status: status, Path: fields[2]},
			)
			continue
		}
		entries = append(entries, models.DiffEntry{Status: status, Path: fields[1]})
	}
	return entries
}
