package convert

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/temirov/nbkit/internal/collector"
)

const (
	errorRemoveFormat      = "remove %s: %w"
	logRemovedMessage      = "removed"
	logRemoveFailedMessage = "remove failed"
	logWouldRemoveMessage  = "would remove"
)

// CleanExcludedNames are the directory names the clean driver never enters.
var CleanExcludedNames = []string{"_test"}

// CleanerOptions configures a Cleaner.
type CleanerOptions struct {
	DryRun bool
}

// Cleaner deletes every file of a worklist.
type Cleaner struct {
	options CleanerOptions
	logger  *zap.Logger
}

// NewCleaner constructs a Cleaner.
func NewCleaner(options CleanerOptions, logger *zap.Logger) *Cleaner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cleaner{options: options, logger: logger}
}

// Clean removes the worklist files one by one. Files that cannot be removed
// are recorded as failures and do not stop the run.
func (cleaner *Cleaner) Clean(ctx context.Context, worklist collector.Worklist) (Summary, error) {
	var summary Summary
	for _, entry := range worklist.Entries() {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return summary, ctxErr
		}
		if cleaner.options.DryRun {
			cleaner.logger.Info(logWouldRemoveMessage, zap.String(logFieldPath, entry.Path))
			summary.Processed = append(summary.Processed, entry.Path)
			continue
		}
		if removeError := os.Remove(entry.Location); removeError != nil {
			summary.Failures = append(summary.Failures, Failure{Path: entry.Path, Err: fmt.Errorf(errorRemoveFormat, entry.Path, removeError)})
			cleaner.logger.Warn(logRemoveFailedMessage, zap.String(logFieldPath, entry.Path), zap.Error(removeError))
			continue
		}
		cleaner.logger.Debug(logRemovedMessage, zap.String(logFieldPath, entry.Path))
		summary.Processed = append(summary.Processed, entry.Path)
	}
	return summary, summary.Err()
}
