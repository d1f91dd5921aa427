// Package utils contains general helper functions used across nbkit.
package utils

import (
	"strings"
)

const (
	// LocalConfigFileName is the configuration file looked up in the working directory.
	LocalConfigFileName = ".nbkit.yaml"
	// GlobalConfigDirectoryName is the directory below the user home holding the global configuration.
	GlobalConfigDirectoryName = ".nbkit"
	// GlobalConfigFileName is the configuration file inside GlobalConfigDirectoryName.
	GlobalConfigFileName = "config.yaml"
	// ExcludeFileName lists glob patterns excluded from collection, read from the collection root.
	ExcludeFileName = ".nbkitignore"
	// GitDirectoryName is the name of the Git repository directory.
	GitDirectoryName = ".git"
)

// DeduplicatePatterns removes duplicate patterns from a slice while preserving order.
// The first occurrence of each unique pattern is kept.
func DeduplicatePatterns(patterns []string) []string {
	encounteredPatterns := make(map[string]struct{})
	result := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		if _, exists := encounteredPatterns[pattern]; !exists {
			encounteredPatterns[pattern] = struct{}{}
			result = append(result, pattern)
		}
	}
	return result
}

// TailLines returns at most maxLines trailing lines of text, without the
// trailing newline.
func TailLines(text string, maxLines int) string {
	trimmed := strings.TrimRight(text, "\n")
	if maxLines <= 0 || trimmed == "" {
		return ""
	}
	lines := strings.Split(trimmed, "\n")
	if len(lines) <= maxLines {
		return trimmed
	}
	return strings.Join(lines[len(lines)-maxLines:], "\n")
}
