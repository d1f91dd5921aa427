package execute

import (
	"errors"
	"fmt"
	"time"
)

// Kind tells how a worklist file is executed.
type Kind string

const (
	// KindScript files run as an interpreter subprocess.
	KindScript Kind = "script"
	// KindNotebook files run every cell through the notebook execution engine.
	KindNotebook Kind = "notebook"
)

// Status is the outcome of one test case.
type Status string

const (
	StatusPass    Status = "pass"
	StatusFail    Status = "fail"
	StatusTimeout Status = "timeout"
	StatusSkipped Status = "skipped"
)

const (
	errorExecutionFailureFormat = "%s exited with code %d"
	errorExecutionCauseFormat   = "%s: %v"
	errorTestsFailedFormat      = "%w: %d of %d"
)

// ErrTestsFailed is returned by Report.Err when any case did not pass.
var ErrTestsFailed = errors.New("tutorials failed")

// ExecutionFailure describes why a single discovered file failed. It never
// aborts the remaining cases.
type ExecutionFailure struct {
	Path     string
	ExitCode int
	Output   string
	Err      error
}

func (failure *ExecutionFailure) Error() string {
	if failure.ExitCode > 0 || failure.Err == nil {
		return fmt.Sprintf(errorExecutionFailureFormat, failure.Path, failure.ExitCode)
	}
	return fmt.Sprintf(errorExecutionCauseFormat, failure.Path, failure.Err)
}

func (failure *ExecutionFailure) Unwrap() error {
	return failure.Err
}

// Result is the outcome of executing one worklist file.
type Result struct {
	Path     string
	Kind     Kind
	Status   Status
	ExitCode int
	Duration time.Duration
	// Failure is set for every status other than StatusPass.
	Failure *ExecutionFailure
}

// Report holds one result per worklist file, in worklist order.
type Report struct {
	Results []Result
}

// Count returns how many results have the given status.
func (report Report) Count(status Status) int {
	total := 0
	for _, result := range report.Results {
		if result.Status == status {
			total++
		}
	}
	return total
}

// Duration sums the durations of every case.
func (report Report) Duration() time.Duration {
	var total time.Duration
	for _, result := range report.Results {
		total += result.Duration
	}
	return total
}

// Err returns ErrTestsFailed when any case did not pass.
func (report Report) Err() error {
	notPassed := len(report.Results) - report.Count(StatusPass)
	if notPassed == 0 {
		return nil
	}
	return fmt.Errorf(errorTestsFailedFormat, ErrTestsFailed, notPassed, len(report.Results))
}

// Progress observes test cases as they run. Implementations are called from
// worker goroutines when more than one job is configured.
type Progress interface {
	Started(path string)
	Finished(result Result)
}

type noopProgress struct{}

func (noopProgress) Started(string)  {}
func (noopProgress) Finished(Result) {}
