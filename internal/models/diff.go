package models

import "strings"

// DiffEntry one path from a name-status listing
type DiffEntry struct {
	Status string `json:"status"`
	Path   string `json:"path"`
}

// IsRenameOrCopy reports R*/C* codes, which carry two paths
func IsRenameOrCopy(status string) bool {
	return strings.HasPrefix(status, "R") || strings.HasPrefix(status, "C")
}
