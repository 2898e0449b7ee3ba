// Package util holds environment helpers for wiring the HTTP layer.
package util

import (
	"os"
	"strings"
)

// Env returns a trimmed environment variable, or def when unset or
// blank.
func Env(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}

// MustEnv returns a required environment variable and panics at
// startup when it is missing. Only composition roots call this.
func MustEnv(k string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		panic("missing env: " + k)
	}
	return v
}

// EnvCSV splits a comma-separated environment variable into trimmed
// values, falling back to def when the variable is unset or yields no
// entries. Used for list-valued settings like CORS origins.
func EnvCSV(k string, def []string) []string {
	raw := strings.TrimSpace(os.Getenv(k))
	if raw == "" {
		return def
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
