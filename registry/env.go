package registry

import (
	"sort"
	"strings"
)

// Variables always forwarded from the parent environment. Anything else only
// reaches the child if the provider record asks for it, which keeps
// incidental secrets in the driver's environment from leaking into every
// spawned agent. This is best-effort hygiene, not a security boundary.
var passthrough = map[string]bool{
	"HOME":    true,
	"LANG":    true,
	"LC_ALL":  true,
	"PATH":    true,
	"SHELL":   true,
	"TERM":    true,
	"TMPDIR":  true,
	"TZ":      true,
	"USER":    true,
}

// passthroughPrefixes forwards the project's own namespace.
var passthroughPrefixes = []string{"AGENTWIRE_"}

// SanitizeEnv filters the parent environment down to the allowlisted base
// set. Entries without a '=' or with an empty name are dropped.
func SanitizeEnv(environ []string) []string {
	var out []string
	for _, kv := range environ {
		name, _, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			continue
		}
		if passthrough[name] || hasAllowedPrefix(name) {
			out = append(out, kv)
		}
	}
	sort.Strings(out)
	return out
}

// ChildEnv builds the complete child environment: the sanitized parent
// environment plus the provider's declared variables. A declared variable
// with an empty value passes the parent's value through by name.
func ChildEnv(environ []string, declared map[string]string) []string {
	parent := map[string]string{}
	for _, kv := range environ {
		if name, value, ok := strings.Cut(kv, "="); ok && name != "" {
			parent[name] = value
		}
	}

	env := SanitizeEnv(environ)
	names := make([]string, 0, len(declared))
	for name := range declared {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		value := declared[name]
		if value == "" {
			value = parent[name]
		}
		env = append(env, name+"="+value)
	}
	return env
}

func hasAllowedPrefix(name string) bool {
	for _, p := range passthroughPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}
