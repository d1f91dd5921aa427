// Package types defines every cross‑package data structure used by the nbkit CLI.
package types

import "encoding/xml"

const (
	CommandList    = "list"
	CommandConvert = "convert"
	CommandClean   = "clean"
	CommandTest    = "test"

	FormatRaw  = "raw"
	FormatJSON = "json"
	FormatXML  = "xml"
)

// WorklistOutput is the rendered form of a collected worklist.
type WorklistOutput struct {
	XMLName xml.Name `json:"-" xml:"worklist"`
	Root    string   `json:"root" xml:"root,attr"`
	Count   int      `json:"count" xml:"count,attr"`
	Paths   []string `json:"paths" xml:"path"`
}

// ActionOutput is the rendered outcome of a convert or clean run.
type ActionOutput struct {
	XMLName   xml.Name        `json:"-" xml:"action"`
	Command   string          `json:"command" xml:"command,attr"`
	Root      string          `json:"root" xml:"root,attr"`
	DryRun    bool            `json:"dryRun,omitempty" xml:"dryRun,attr,omitempty"`
	Processed []string        `json:"processed" xml:"processed>path"`
	Failures  []FailureOutput `json:"failures,omitempty" xml:"failures>failure,omitempty"`
}

// FailureOutput is a file whose action failed.
type FailureOutput struct {
	Path    string `json:"path" xml:"path,attr"`
	Message string `json:"message" xml:",chardata"`
}

// TestCaseOutput is the rendered outcome of one executed tutorial.
type TestCaseOutput struct {
	Path       string `json:"path" xml:"path,attr"`
	Kind       string `json:"kind" xml:"kind,attr"`
	Status     string `json:"status" xml:"status,attr"`
	ExitCode   int    `json:"exitCode,omitempty" xml:"exitCode,attr,omitempty"`
	DurationMs int64  `json:"durationMs" xml:"durationMs,attr"`
	Message    string `json:"message,omitempty" xml:"message,omitempty"`
	Output     string `json:"output,omitempty" xml:"output,omitempty"`
}

// TestSummaryOutput aggregates the statuses of a test run.
type TestSummaryOutput struct {
	Total      int   `json:"total" xml:"total,attr"`
	Passed     int   `json:"passed" xml:"passed,attr"`
	Failed     int   `json:"failed" xml:"failed,attr"`
	TimedOut   int   `json:"timedOut" xml:"timedOut,attr"`
	Skipped    int   `json:"skipped" xml:"skipped,attr"`
	DurationMs int64 `json:"durationMs" xml:"durationMs,attr"`
}

// TestReportOutput is the rendered form of a test run.
type TestReportOutput struct {
	XMLName xml.Name          `json:"-" xml:"report"`
	Root    string            `json:"root" xml:"root,attr"`
	Cases   []TestCaseOutput  `json:"cases" xml:"case"`
	Summary TestSummaryOutput `json:"summary" xml:"summary"`
}
