package collector

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/temirov/nbkit/internal/utils"
)

// SkipPolicy selects which entry names are excluded by prefix.
type SkipPolicy int

const (
	// SkipHidden skips names starting with ".".
	SkipHidden SkipPolicy = iota
	// SkipHiddenAndUnderscored skips names starting with "." or "_".
	SkipHiddenAndUnderscored
)

const (
	hiddenPrefix     = "."
	underscorePrefix = "_"

	skipHiddenName               = "hidden"
	skipHiddenAndUnderscoredName = "hidden-underscored"

	errorUnknownPolicyFormat   = "unknown skip policy %q"
	errorNoSuffixMessage       = "at least one target suffix is required"
	errorInvalidPatternFormat  = "invalid exclude pattern %q"
	errorInvalidOptionsWrapper = "%w: %s"
)

// ErrInvalidOptions reports a collector configuration that cannot be used.
var ErrInvalidOptions = errors.New("invalid collector options")

// String returns the configuration name of the policy.
func (policy SkipPolicy) String() string {
	switch policy {
	case SkipHiddenAndUnderscored:
		return skipHiddenAndUnderscoredName
	default:
		return skipHiddenName
	}
}

// ParseSkipPolicy converts a configuration name into a SkipPolicy.
// The empty string selects SkipHidden.
func ParseSkipPolicy(value string) (SkipPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", skipHiddenName:
		return SkipHidden, nil
	case skipHiddenAndUnderscoredName, "underscored":
		return SkipHiddenAndUnderscored, nil
	default:
		return SkipHidden, fmt.Errorf(errorUnknownPolicyFormat, value)
	}
}

// Options controls a single traversal.
type Options struct {
	// Suffixes lists the file name endings that make a file part of the worklist.
	Suffixes []string
	// Policy decides which prefixed names are skipped.
	Policy SkipPolicy
	// ExcludedNames are entry names skipped regardless of the policy.
	ExcludedNames []string
	// ExcludePatterns are doublestar globs matched against the slash separated
	// path relative to the root. Matching directories are not descended.
	ExcludePatterns []string
	// Prefix is prepended to every reported path. Top-level callers leave it empty.
	Prefix string
	// Absolute reports paths joined with the root instead of relative paths.
	Absolute bool
}

// EntryKind is the classification of a directory entry.
type EntryKind int

const (
	// EntryIgnored entries are neither reported nor descended.
	EntryIgnored EntryKind = iota
	// EntryDirectory entries are descended.
	EntryDirectory
	// EntryMatch entries are reported.
	EntryMatch
)

// Matcher applies the skip policy and matching rule of a set of Options.
type Matcher struct {
	suffixes        []string
	policy          SkipPolicy
	excludedNames   map[string]struct{}
	excludePatterns []string
}

// NewMatcher validates options and returns the matcher they describe.
func NewMatcher(options Options) (*Matcher, error) {
	suffixes := NormalizeSuffixes(options.Suffixes)
	if len(suffixes) == 0 {
		return nil, fmt.Errorf(errorInvalidOptionsWrapper, ErrInvalidOptions, errorNoSuffixMessage)
	}

	excludedNames := make(map[string]struct{}, len(options.ExcludedNames))
	for _, excludedName := range options.ExcludedNames {
		trimmedName := strings.TrimSpace(excludedName)
		if trimmedName != "" {
			excludedNames[trimmedName] = struct{}{}
		}
	}

	var excludePatterns []string
	for _, rawPattern := range utils.DeduplicatePatterns(options.ExcludePatterns) {
		pattern := strings.TrimSuffix(strings.ReplaceAll(strings.TrimSpace(rawPattern), "\\", "/"), "/")
		if pattern == "" {
			continue
		}
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf(errorInvalidOptionsWrapper, ErrInvalidOptions, fmt.Sprintf(errorInvalidPatternFormat, rawPattern))
		}
		excludePatterns = append(excludePatterns, pattern)
	}

	return &Matcher{
		suffixes:        suffixes,
		policy:          options.Policy,
		excludedNames:   excludedNames,
		excludePatterns: excludePatterns,
	}, nil
}

// Classify decides what happens to the entry at relativePath, a slash
// separated path below the traversal root.
func (matcher *Matcher) Classify(relativePath string, isDirectory bool) EntryKind {
	entryName := path.Base(relativePath)
	if matcher.skipsName(entryName) {
		return EntryIgnored
	}
	if matcher.excludedByPattern(relativePath) {
		return EntryIgnored
	}
	if isDirectory {
		return EntryDirectory
	}
	for _, suffix := range matcher.suffixes {
		if strings.HasSuffix(entryName, suffix) {
			return EntryMatch
		}
	}
	return EntryIgnored
}

func (matcher *Matcher) skipsName(entryName string) bool {
	if strings.HasPrefix(entryName, hiddenPrefix) {
		return true
	}
	if matcher.policy == SkipHiddenAndUnderscored && strings.HasPrefix(entryName, underscorePrefix) {
		return true
	}
	_, excluded := matcher.excludedNames[entryName]
	return excluded
}

func (matcher *Matcher) excludedByPattern(relativePath string) bool {
	for _, pattern := range matcher.excludePatterns {
		if doublestar.MatchUnvalidated(pattern, relativePath) {
			return true
		}
	}
	return false
}

// NormalizeSuffixes trims, dots and deduplicates suffixes. A suffix without
// any dot, such as "py", becomes ".py".
func NormalizeSuffixes(suffixes []string) []string {
	normalized := make([]string, 0, len(suffixes))
	for _, suffix := range suffixes {
		trimmedSuffix := strings.TrimSpace(suffix)
		if trimmedSuffix == "" {
			continue
		}
		if !strings.Contains(trimmedSuffix, hiddenPrefix) {
			trimmedSuffix = hiddenPrefix + trimmedSuffix
		}
		normalized = append(normalized, trimmedSuffix)
	}
	return utils.DeduplicatePatterns(normalized)
}
