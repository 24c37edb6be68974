// Package version reports the govgate build.
package version

import (
	"runtime/debug"
)

// Version is stamped by release builds (-ldflags "-X ...version.Version=v1.2.3")
var Version = ""

var readBuildInfo = debug.ReadBuildInfo

// BuildVersion returns the stamped or module version, or "dev"
func BuildVersion() string {
	if Version != "" {
		return Version
	}
	info, ok := readBuildInfo()
	if !ok {
		return "dev"
	}
	if info.Main.Version == "" || info.Main.Version == "(devel)" {
		return "dev"
	}
	return info.Main.Version
}

// Revision is the VCS commit the binary was built from, "" when unknown.
// A "-dirty" suffix marks uncommitted changes.
func Revision() string {
	info, ok := readBuildInfo()
	if !ok {
		return ""
	}
	var rev string
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if rev != "" && dirty {
		rev += "-dirty"
	}
	return rev
}
