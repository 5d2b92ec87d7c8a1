// Package strings provides string list utilities shared by the lookup pipeline.
package strings

import (
	"strings"
)

// DedupeAndTrim removes duplicates and empty strings from a slice,
// trimming whitespace from each element. Order is preserved.
//
// Example:
//
//	DedupeAndTrim([]string{"  foo ", "bar", "foo", "", "  "})
//	// Returns: []string{"foo", "bar"}
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; !ok {
			seen[trimmed] = struct{}{}
			result = append(result, trimmed)
		}
	}

	return result
}

// DedupeFold is like DedupeAndTrim but compares case-insensitively.
// The first spelling of each value wins.
//
// Example:
//
//	DedupeFold([]string{"Jane@Example.com", "jane@example.com", "kate@example.com"})
//	// Returns: []string{"Jane@Example.com", "kate@example.com"}
func DedupeFold(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			result = append(result, trimmed)
		}
	}

	return result
}

// SplitList splits a joined list such as "a@x.com / b@y.com" and
// returns the trimmed, de-duplicated parts.
func SplitList(joined, sep string) []string {
	if strings.TrimSpace(joined) == "" {
		return nil
	}
	return DedupeAndTrim(strings.Split(joined, sep))
}
