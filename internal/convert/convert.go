// Package convert applies per-file actions to a worklist: converting tutorial
// scripts to notebooks through an external converter, and deleting generated
// scripts.
package convert

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/nbkit/internal/collector"
	"github.com/temirov/nbkit/internal/utils"
)

const (
	// DefaultConverterCommand is the executable used to convert scripts.
	DefaultConverterCommand = "jupytext"

	converterOutputTailLines = 20

	errorConverterMissingMessage = "converter command is not configured"
	errorConversionFormat        = "convert %s: %w"
	errorConversionOutputFormat  = "%w\n%s"
	errorCommandFormat           = "%s %s: %w"
	logConvertingMessage         = "converting"
	logConvertedMessage          = "converted"
	logConversionFailedMessage   = "conversion failed"
	logDryRunMessage             = "dry run"
	logFieldPath                 = "path"
	logFieldCommand              = "command"
)

// ErrConversionFailed marks a summary in which at least one file failed.
var ErrConversionFailed = errors.New("one or more files failed")

// DefaultConverterArguments are passed before the file path.
var DefaultConverterArguments = []string{"--to", "ipynb"}

// Failure records a file whose action did not succeed.
type Failure struct {
	Path string
	Err  error
}

// Summary collects the outcome of applying an action to a worklist.
type Summary struct {
	Processed []string
	Failures  []Failure
}

// Err returns nil when every file succeeded, otherwise ErrConversionFailed
// joined with every individual failure.
func (summary Summary) Err() error {
	if len(summary.Failures) == 0 {
		return nil
	}
	failureErrors := []error{ErrConversionFailed}
	for _, failure := range summary.Failures {
		failureErrors = append(failureErrors, failure.Err)
	}
	return errors.Join(failureErrors...)
}

// ConverterOptions configures a Converter.
type ConverterOptions struct {
	Command   string
	Arguments []string
	DryRun    bool
}

// Converter runs an external conversion command once per worklist file.
type Converter struct {
	options ConverterOptions
	logger  *zap.Logger
}

// NewConverter constructs a Converter. Empty options select jupytext with
// DefaultConverterArguments.
func NewConverter(options ConverterOptions, logger *zap.Logger) *Converter {
	if strings.TrimSpace(options.Command) == "" {
		options.Command = DefaultConverterCommand
	}
	if options.Command == DefaultConverterCommand && options.Arguments == nil {
		options.Arguments = DefaultConverterArguments
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Converter{options: options, logger: logger}
}

// Convert processes the worklist sequentially. A failing file is recorded and
// the remaining files are still processed. The returned error is the summary
// error, or the context error when the run was interrupted.
func (converter *Converter) Convert(ctx context.Context, worklist collector.Worklist) (Summary, error) {
	if strings.TrimSpace(converter.options.Command) == "" {
		return Summary{}, errors.New(errorConverterMissingMessage)
	}
	var summary Summary
	for _, entry := range worklist.Entries() {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return summary, ctxErr
		}
		arguments := append(append([]string{}, converter.options.Arguments...), entry.Location)
		commandLine := converter.options.Command + " " + strings.Join(arguments, " ")
		if converter.options.DryRun {
			converter.logger.Info(logDryRunMessage, zap.String(logFieldCommand, commandLine))
			summary.Processed = append(summary.Processed, entry.Path)
			continue
		}
		converter.logger.Debug(logConvertingMessage, zap.String(logFieldPath, entry.Path), zap.String(logFieldCommand, commandLine))
		if runError := runCommand(ctx, converter.options.Command, arguments); runError != nil {
			failure := Failure{Path: entry.Path, Err: fmt.Errorf(errorConversionFormat, entry.Path, runError)}
			summary.Failures = append(summary.Failures, failure)
			converter.logger.Warn(logConversionFailedMessage, zap.String(logFieldPath, entry.Path), zap.Error(runError))
			continue
		}
		converter.logger.Info(logConvertedMessage, zap.String(logFieldPath, entry.Path))
		summary.Processed = append(summary.Processed, entry.Path)
	}
	return summary, summary.Err()
}

func runCommand(ctx context.Context, executable string, arguments []string) error {
	// #nosec G204
	command := exec.CommandContext(ctx, executable, arguments...)
	outputBytes, runError := command.CombinedOutput()
	if runError == nil {
		return nil
	}
	wrapped := fmt.Errorf(errorCommandFormat, executable, strings.Join(arguments, " "), runError)
	outputTail := utils.TailLines(string(outputBytes), converterOutputTailLines)
	if outputTail == "" {
		return wrapped
	}
	return fmt.Errorf(errorConversionOutputFormat, wrapped, outputTail)
}
