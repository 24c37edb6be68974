package receipt

import (
	"net/url"
	"regexp"
	"strings"
)

const redactedValue = "[REDACTED]"

// flags whose value is always a credential
var sensitiveFlags = map[string]bool{
	"token":        true,
	"password":     true,
	"secret":       true,
	"api-key":      true,
	"auth":         true,
	"credentials":  true,
	"bearer":       true,
	"access-token": true,
	"otel-headers": true,
}

// CI credential prefixes seen in workflow environments
var tokenPrefixes = []string{
	"ghp_", "gho_", "ghs_", "ghu_", "github_pat_",
	"glpat-",
	"AKIA",
	"xoxb-", "xoxp-",
}

var jwtPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}$`)

// RedactArgs replaces credential values in CLI arguments. The second result
// reports whether anything changed.
func RedactArgs(args []string) ([]string, bool) {
	if len(args) == 0 {
		return args, false
	}

	out := make([]string, len(args))
	changed := false
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if name, value, ok := splitFlag(arg); ok {
			if sensitiveFlags[name] {
				out[i] = arg[:len(arg)-len(value)] + redactedValue
				changed = true
				continue
			}
			if clean, hit := redactValue(value); hit {
				out[i] = arg[:len(arg)-len(value)] + clean
				changed = true
				continue
			}
			out[i] = arg
			continue
		}

		if strings.HasPrefix(arg, "-") && sensitiveFlags[flagName(arg)] && i+1 < len(args) {
			out[i] = arg
			i++
			out[i] = redactedValue
			changed = true
			continue
		}

		if clean, hit := redactValue(arg); hit {
			out[i] = clean
			changed = true
			continue
		}
		out[i] = arg
	}
	return out, changed
}

// splitFlag handles --name=value
func splitFlag(arg string) (name, value string, ok bool) {
	if !strings.HasPrefix(arg, "-") {
		return "", "", false
	}
	eq := strings.Index(arg, "=")
	if eq <= 0 {
		return "", "", false
	}
	return flagName(arg[:eq]), arg[eq+1:], true
}

func flagName(s string) string {
	return strings.ToLower(strings.TrimLeft(s, "-"))
}

// redactValue masks tokens outright and strips passwords from URLs
func redactValue(v string) (string, bool) {
	for _, p := range tokenPrefixes {
		if strings.HasPrefix(v, p) {
			return redactedValue, true
		}
	}
	if jwtPattern.MatchString(v) {
		return redactedValue, true
	}
	if strings.Contains(v, "://") && strings.Contains(v, "@") {
		if u, err := url.Parse(v); err == nil && u.User != nil {
			u.User = url.User("REDACTED")
			return u.String(), true
		}
	}
	return v, false
}
