// Package util provides common string helpers used across atlas.
package util

import "strings"

// TrimFence removes a ```json (or bare ```) code fence around s, as some models wrap their JSON in one.
func TrimFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// CompactStrings trims every value and drops the empty ones. Returns nil when nothing is left.
func CompactStrings(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// SafeFileName replaces characters that are unsafe in a file name with underscores.
func SafeFileName(s string) string {
	return fileNameReplacer.Replace(s)
}

var fileNameReplacer = strings.NewReplacer(
	" ", "_",
	":", "_",
	"/", "_",
	`\`, "_",
)
