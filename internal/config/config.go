// Package config loads layered application configuration and exclude files.
package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/temirov/nbkit/internal/utils"
)

const commentPrefix = "#"

// LoadExcludeFilePatterns reads glob patterns from an exclude file, one per
// line. Blank lines and lines starting with # are ignored. A missing file
// yields no patterns.
//
// #nosec G304
func LoadExcludeFilePatterns(excludeFilePath string) ([]string, error) {
	fileHandle, openFileError := os.Open(excludeFilePath)
	if openFileError != nil {
		if os.IsNotExist(openFileError) {
			return nil, nil
		}
		return nil, openFileError
	}
	defer func() {
		closeError := fileHandle.Close()
		if closeError != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close %s: %v\n", excludeFilePath, closeError)
		}
	}()

	var patterns []string
	scanner := bufio.NewScanner(fileHandle)
	for scanner.Scan() {
		trimmedLine := strings.TrimSpace(scanner.Text())
		if trimmedLine == "" || strings.HasPrefix(trimmedLine, commentPrefix) {
			continue
		}
		patterns = append(patterns, trimmedLine)
	}
	if scanError := scanner.Err(); scanError != nil {
		return nil, scanError
	}
	return patterns, nil
}

// LoadExcludePatterns combines the patterns of the exclude file at the root of
// rootDirectoryPath with exclusionPatterns. The exclude file is read only when
// useExcludeFile is true and rootDirectoryPath is a directory. The result is
// deduplicated and keeps first occurrences in order.
func LoadExcludePatterns(rootDirectoryPath string, exclusionPatterns []string, useExcludeFile bool) ([]string, error) {
	var combinedPatterns []string

	if useExcludeFile && isDirectory(rootDirectoryPath) {
		excludeFilePath := filepath.Join(rootDirectoryPath, utils.ExcludeFileName)
		filePatterns, loadError := LoadExcludeFilePatterns(excludeFilePath)
		if loadError != nil {
			return nil, fmt.Errorf("loading %s from %s: %w", utils.ExcludeFileName, rootDirectoryPath, loadError)
		}
		combinedPatterns = append(combinedPatterns, filePatterns...)
	}

	for _, pattern := range exclusionPatterns {
		trimmedPattern := strings.TrimSpace(pattern)
		if trimmedPattern == "" {
			continue
		}
		combinedPatterns = append(combinedPatterns, trimmedPattern)
	}

	return utils.DeduplicatePatterns(combinedPatterns), nil
}

func isDirectory(directoryPath string) bool {
	info, statError := os.Stat(directoryPath)
	return statError == nil && info.IsDir()
}
