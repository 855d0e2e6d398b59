package util

import (
	"strings"
)

// ParseCommaList parses a comma-separated string into a slice of trimmed,
// non-empty values
func ParseCommaList(s string) []string {
	if s == "" {
		return []string{}
	}
	if strings.Contains(s, ",") {
		parts := strings.Split(s, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				result = append(result, p)
			}
		}
		return result
	}
	return []string{s}
}
