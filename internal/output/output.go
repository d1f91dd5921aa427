// Package output renders worklists and driver results as raw text, JSON or XML.
package output

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/temirov/nbkit/internal/collector"
	"github.com/temirov/nbkit/internal/convert"
	"github.com/temirov/nbkit/internal/execute"
	"github.com/temirov/nbkit/internal/types"
	"github.com/temirov/nbkit/internal/utils"
)

const (
	indentPrefix = ""
	indentSpacer = "  "

	xmlHeader = xml.Header

	outputIndent        = "    "
	processedLineFormat = "[ok] %s\n"
	failedLineFormat    = "[failed] %s: %s\n"
	actionSummaryFormat = "%s: %d processed, %d failed\n"
	dryRunMarker        = " (dry run)"
	caseLineFormat      = "%-7s %s (%s)\n"
	caseExitFormat      = "%-7s %s (exit %d, %s)\n"
	testSummaryFormat   = "%d cases: %d passed, %d failed, %d timed out, %d skipped in %s\n"

	errorUnsupportedFormat = "unsupported format %q"
	errorEncodeFormat      = "encode %s output: %w"
)

var statusLabels = map[execute.Status]string{
	execute.StatusPass:    "PASS",
	execute.StatusFail:    "FAIL",
	execute.StatusTimeout: "TIMEOUT",
	execute.StatusSkipped: "SKIP",
}

// IsSupportedFormat reports whether the provided format is recognized.
func IsSupportedFormat(format string) bool {
	switch format {
	case types.FormatRaw, types.FormatJSON, types.FormatXML:
		return true
	default:
		return false
	}
}

// RenderWorklist writes the worklist. Raw output is one path per line.
func RenderWorklist(writer io.Writer, format string, worklist collector.Worklist) error {
	document := types.WorklistOutput{
		Root:  worklist.Root(),
		Count: worklist.Len(),
		Paths: worklist.Paths(),
	}
	if document.Paths == nil {
		document.Paths = []string{}
	}
	if format == types.FormatRaw {
		for _, worklistPath := range document.Paths {
			if _, writeError := fmt.Fprintln(writer, worklistPath); writeError != nil {
				return writeError
			}
		}
		return nil
	}
	return encodeStructured(writer, format, document)
}

// FormatWorklistText returns the raw rendering of a worklist.
func FormatWorklistText(worklist collector.Worklist) string {
	var builder strings.Builder
	_ = RenderWorklist(&builder, types.FormatRaw, worklist)
	return builder.String()
}

// BuildActionOutput converts a convert or clean summary into its document form.
func BuildActionOutput(command string, root string, dryRun bool, summary convert.Summary) types.ActionOutput {
	document := types.ActionOutput{
		Command:   command,
		Root:      root,
		DryRun:    dryRun,
		Processed: append([]string{}, summary.Processed...),
	}
	for _, failure := range summary.Failures {
		document.Failures = append(document.Failures, types.FailureOutput{Path: failure.Path, Message: failure.Err.Error()})
	}
	return document
}

// RenderAction writes the outcome of a convert or clean run.
func RenderAction(writer io.Writer, format string, document types.ActionOutput) error {
	if format != types.FormatRaw {
		return encodeStructured(writer, format, document)
	}
	var builder strings.Builder
	for _, processedPath := range document.Processed {
		fmt.Fprintf(&builder, processedLineFormat, processedPath)
	}
	for _, failure := range document.Failures {
		fmt.Fprintf(&builder, failedLineFormat, failure.Path, failure.Message)
	}
	label := document.Command
	if document.DryRun {
		label += dryRunMarker
	}
	fmt.Fprintf(&builder, actionSummaryFormat, label, len(document.Processed), len(document.Failures))
	_, writeError := io.WriteString(writer, builder.String())
	return writeError
}

// BuildTestReportOutput converts a test report into its document form.
func BuildTestReportOutput(root string, report execute.Report) types.TestReportOutput {
	document := types.TestReportOutput{
		Root:  root,
		Cases: make([]types.TestCaseOutput, 0, len(report.Results)),
		Summary: types.TestSummaryOutput{
			Total:      len(report.Results),
			Passed:     report.Count(execute.StatusPass),
			Failed:     report.Count(execute.StatusFail),
			TimedOut:   report.Count(execute.StatusTimeout),
			Skipped:    report.Count(execute.StatusSkipped),
			DurationMs: report.Duration().Milliseconds(),
		},
	}
	for _, result := range report.Results {
		caseOutput := types.TestCaseOutput{
			Path:       result.Path,
			Kind:       string(result.Kind),
			Status:     string(result.Status),
			ExitCode:   result.ExitCode,
			DurationMs: result.Duration.Milliseconds(),
		}
		if result.Failure != nil && result.Status != execute.StatusPass {
			caseOutput.Message = result.Failure.Error()
			caseOutput.Output = result.Failure.Output
		}
		document.Cases = append(document.Cases, caseOutput)
	}
	return document
}

// RenderTestReport writes a test report: one line per case, the output tail
// of every failed case, and a summary line.
func RenderTestReport(writer io.Writer, format string, root string, report execute.Report) error {
	if format != types.FormatRaw {
		return encodeStructured(writer, format, BuildTestReportOutput(root, report))
	}
	var builder strings.Builder
	for _, result := range report.Results {
		label := statusLabels[result.Status]
		duration := utils.FormatDuration(result.Duration)
		if result.Status == execute.StatusFail && result.ExitCode > 0 {
			fmt.Fprintf(&builder, caseExitFormat, label, result.Path, result.ExitCode, duration)
		} else {
			fmt.Fprintf(&builder, caseLineFormat, label, result.Path, duration)
		}
		if result.Status == execute.StatusPass || result.Status == execute.StatusSkipped || result.Failure == nil {
			continue
		}
		if result.Failure.Output != "" {
			for _, outputLine := range strings.Split(result.Failure.Output, "\n") {
				builder.WriteString(outputIndent + outputLine + "\n")
			}
		}
	}
	fmt.Fprintf(
		&builder,
		testSummaryFormat,
		len(report.Results),
		report.Count(execute.StatusPass),
		report.Count(execute.StatusFail),
		report.Count(execute.StatusTimeout),
		report.Count(execute.StatusSkipped),
		utils.FormatDuration(report.Duration()),
	)
	_, writeError := io.WriteString(writer, builder.String())
	return writeError
}

func encodeStructured(writer io.Writer, format string, document any) error {
	switch format {
	case types.FormatJSON:
		encoded, encodeError := json.MarshalIndent(document, indentPrefix, indentSpacer)
		if encodeError != nil {
			return fmt.Errorf(errorEncodeFormat, format, encodeError)
		}
		_, writeError := fmt.Fprintln(writer, string(encoded))
		return writeError
	case types.FormatXML:
		encoded, encodeError := xml.MarshalIndent(document, indentPrefix, indentSpacer)
		if encodeError != nil {
			return fmt.Errorf(errorEncodeFormat, format, encodeError)
		}
		_, writeError := fmt.Fprintln(writer, xmlHeader+string(encoded))
		return writeError
	default:
		return fmt.Errorf(errorUnsupportedFormat, format)
	}
}
