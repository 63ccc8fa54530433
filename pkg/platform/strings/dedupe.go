// Package strings provides string list helpers for query parameters.
package strings

import (
	"strings"
)

// SplitDedupeLower splits every value on sep, trims and lowercases each part,
// and drops empty parts and repeats. Order of first appearance is kept.
//
// Example:
//
//	SplitDedupeLower([]string{" Usuario, rol", "ROL", ""}, ",")
//	// Returns: []string{"usuario", "rol"}
func SplitDedupeLower(values []string, sep string) []string {
	if len(values) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(values))
	var result []string
	for _, v := range values {
		for _, part := range strings.Split(v, sep) {
			part = strings.ToLower(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			if _, ok := seen[part]; !ok {
				seen[part] = struct{}{}
				result = append(result, part)
			}
		}
	}
	return result
}
