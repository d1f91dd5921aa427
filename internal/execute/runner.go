// Package execute runs discovered tutorials end-to-end and reports one test
// case per file.
package execute

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/nbkit/internal/collector"
	"github.com/temirov/nbkit/internal/utils"
)

const (
	// DefaultInterpreter runs script tutorials.
	DefaultInterpreter = "python3"
	// DefaultNotebookCommand runs notebook tutorials.
	DefaultNotebookCommand = "jupyter"
	// DefaultNotebookTimeout is the execution budget of a single notebook.
	DefaultNotebookTimeout = 600 * time.Second
	// DefaultOutputTailLines bounds the output kept for a failed case.
	DefaultOutputTailLines = 40

	notebookSuffix         = ".ipynb"
	processWaitDelay       = 5 * time.Second
	notebookTimeoutFlagFmt = "--ExecutePreprocessor.timeout=%d"

	logRunningMessage  = "running"
	logPassedMessage   = "passed"
	logFailedMessage   = "failed"
	logSkippedMessage  = "skipped"
	logFieldPath       = "path"
	logFieldKind       = "kind"
	logFieldStatus     = "status"
	logFieldExitCode   = "exit_code"
	logFieldDuration   = "duration"
	logFieldOutputTail = "output"

	errorResolveLocationFormat = "resolve %s: %w"
)

// notebookArguments precede the timeout flag and the notebook path.
var notebookArguments = []string{"nbconvert", "--to", "notebook", "--execute", "--stdout"}

// Options configures a Runner.
type Options struct {
	// Interpreter executes script tutorials; InterpreterArguments precede the file.
	Interpreter          string
	InterpreterArguments []string
	// NotebookCommand executes notebook tutorials through nbconvert.
	NotebookCommand string
	// NotebookTimeout bounds a single notebook run. Zero selects DefaultNotebookTimeout.
	NotebookTimeout time.Duration
	// ScriptTimeout bounds a single script run. Zero means no limit.
	ScriptTimeout time.Duration
	// Jobs is the number of cases run at the same time. Values below one mean one.
	Jobs int
	// FailFast stops scheduling cases after the first one that does not pass.
	FailFast bool
	// RunInFileDirectory starts every case in the directory of its file.
	RunInFileDirectory bool
	// OutputTailLines bounds the output kept for failed cases.
	OutputTailLines int
}

// Runner executes worklists.
type Runner struct {
	options  Options
	logger   *zap.Logger
	progress Progress
}

// NewRunner constructs a Runner and fills in defaults.
func NewRunner(options Options, logger *zap.Logger) *Runner {
	if strings.TrimSpace(options.Interpreter) == "" {
		options.Interpreter = DefaultInterpreter
	}
	if strings.TrimSpace(options.NotebookCommand) == "" {
		options.NotebookCommand = DefaultNotebookCommand
	}
	if options.NotebookTimeout <= 0 {
		options.NotebookTimeout = DefaultNotebookTimeout
	}
	if options.Jobs < 1 {
		options.Jobs = 1
	}
	if options.OutputTailLines <= 0 {
		options.OutputTailLines = DefaultOutputTailLines
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{options: options, logger: logger, progress: noopProgress{}}
}

// WithProgress attaches a progress observer.
func (runner *Runner) WithProgress(progress Progress) *Runner {
	if progress == nil {
		progress = noopProgress{}
	}
	runner.progress = progress
	return runner
}

// KindOf classifies a file by its name.
func KindOf(filePath string) Kind {
	if strings.HasSuffix(filePath, notebookSuffix) {
		return KindNotebook
	}
	return KindScript
}

// Run executes every worklist file and returns the report in worklist order.
// Individual failures are part of the report; the returned error is only set
// when ctx ends before the run completes.
func (runner *Runner) Run(ctx context.Context, worklist collector.Worklist) (Report, error) {
	entries := worklist.Entries()
	results := make([]Result, len(entries))
	for entryIndex, entry := range entries {
		results[entryIndex] = skippedResult(entry.Path, context.Canceled)
	}

	runContext, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	group := new(errgroup.Group)
	group.SetLimit(runner.options.Jobs)
	for entryIndex, entry := range entries {
		if runContext.Err() != nil {
			break
		}
		group.Go(func() error {
			if runContext.Err() != nil {
				return nil
			}
			result := runner.runCase(runContext, entry)
			results[entryIndex] = result
			if runner.options.FailFast && result.Status != StatusPass && result.Status != StatusSkipped {
				cancelRun()
			}
			return nil
		})
	}
	_ = group.Wait()

	return Report{Results: results}, ctx.Err()
}

func (runner *Runner) runCase(ctx context.Context, entry collector.Entry) Result {
	kind := KindOf(entry.Path)
	runner.progress.Started(entry.Path)
	runner.logger.Debug(logRunningMessage, zap.String(logFieldPath, entry.Path), zap.String(logFieldKind, string(kind)))

	result := runner.execute(ctx, entry, kind)

	switch result.Status {
	case StatusPass:
		runner.logger.Debug(logPassedMessage, zap.String(logFieldPath, entry.Path), zap.Duration(logFieldDuration, result.Duration))
	case StatusSkipped:
		runner.logger.Debug(logSkippedMessage, zap.String(logFieldPath, entry.Path))
	default:
		runner.logger.Warn(
			logFailedMessage,
			zap.String(logFieldPath, entry.Path),
			zap.String(logFieldStatus, string(result.Status)),
			zap.Int(logFieldExitCode, result.ExitCode),
			zap.String(logFieldOutputTail, result.Failure.Output),
		)
	}
	runner.progress.Finished(result)
	return result
}

func (runner *Runner) execute(ctx context.Context, entry collector.Entry, kind Kind) Result {
	result := Result{Path: entry.Path, Kind: kind}

	location := entry.Location
	workingDirectory := ""
	if runner.options.RunInFileDirectory {
		absoluteLocation, absoluteError := filepath.Abs(location)
		if absoluteError != nil {
			result.Status = StatusFail
			result.ExitCode = -1
			result.Failure = &ExecutionFailure{Path: entry.Path, ExitCode: -1, Err: fmt.Errorf(errorResolveLocationFormat, location, absoluteError)}
			return result
		}
		location = absoluteLocation
		workingDirectory = filepath.Dir(absoluteLocation)
	}

	executable, arguments, timeout := runner.commandFor(kind, location)
	caseContext := ctx
	if timeout > 0 {
		var cancelCase context.CancelFunc
		caseContext, cancelCase = context.WithTimeout(ctx, timeout)
		defer cancelCase()
	}

	var output bytes.Buffer
	// #nosec G204
	command := exec.CommandContext(caseContext, executable, arguments...)
	command.Dir = workingDirectory
	command.WaitDelay = processWaitDelay
	command.Stderr = &output
	if kind == KindNotebook {
		command.Stdout = io.Discard
	} else {
		command.Stdout = &output
	}

	startedAt := time.Now()
	runError := command.Run()
	result.Duration = time.Since(startedAt)

	if runError == nil {
		result.Status = StatusPass
		return result
	}

	outputTail := utils.TailLines(output.String(), runner.options.OutputTailLines)
	result.ExitCode = -1
	var exitError *exec.ExitError
	if errors.As(runError, &exitError) {
		result.ExitCode = exitError.ExitCode()
	}

	switch {
	case ctx.Err() != nil:
		return skippedResult(entry.Path, ctx.Err())
	case errors.Is(caseContext.Err(), context.DeadlineExceeded):
		result.Status = StatusTimeout
		runError = caseContext.Err()
	default:
		result.Status = StatusFail
	}
	result.Failure = &ExecutionFailure{Path: entry.Path, ExitCode: result.ExitCode, Output: outputTail, Err: runError}
	return result
}

func (runner *Runner) commandFor(kind Kind, location string) (string, []string, time.Duration) {
	if kind == KindNotebook {
		arguments := append([]string{}, notebookArguments...)
		arguments = append(arguments, fmt.Sprintf(notebookTimeoutFlagFmt, timeoutSeconds(runner.options.NotebookTimeout)), location)
		return runner.options.NotebookCommand, arguments, runner.options.NotebookTimeout
	}
	arguments := append([]string{}, runner.options.InterpreterArguments...)
	arguments = append(arguments, location)
	return runner.options.Interpreter, arguments, runner.options.ScriptTimeout
}

// timeoutSeconds rounds timeout up to whole seconds, never below one.
func timeoutSeconds(timeout time.Duration) int {
	seconds := int((timeout + time.Second - 1) / time.Second)
	if seconds < 1 {
		return 1
	}
	return seconds
}

func skippedResult(path string, cause error) Result {
	return Result{
		Path:    path,
		Kind:    KindOf(path),
		Status:  StatusSkipped,
		Failure: &ExecutionFailure{Path: path, Err: cause},
	}
}
