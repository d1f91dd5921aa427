package cli

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/temirov/nbkit/internal/execute"
)

const progressDescriptionFormat = "[cyan][%d/%d][reset] %s"

// progressReporter drives a terminal progress bar from test driver events.
type progressReporter struct {
	mutex    sync.Mutex
	bar      *progressbar.ProgressBar
	total    int
	finished int
}

// isTerminalWriter reports whether writer is a terminal file descriptor.
func isTerminalWriter(writer io.Writer) bool {
	file, isFile := writer.(*os.File)
	if !isFile {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

func newProgressReporter(writer io.Writer, total int) *progressReporter {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(writer),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionFullWidth(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetDescription(fmt.Sprintf(progressDescriptionFormat, 0, total, "")),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	return &progressReporter{bar: bar, total: total}
}

func (reporter *progressReporter) Started(path string) {
	reporter.mutex.Lock()
	defer reporter.mutex.Unlock()
	reporter.bar.Describe(fmt.Sprintf(progressDescriptionFormat, reporter.finished, reporter.total, path))
}

func (reporter *progressReporter) Finished(result execute.Result) {
	reporter.mutex.Lock()
	defer reporter.mutex.Unlock()
	reporter.finished++
	_ = reporter.bar.Add(1)
}

func (reporter *progressReporter) Finish() {
	reporter.mutex.Lock()
	defer reporter.mutex.Unlock()
	_ = reporter.bar.Finish()
}

var _ execute.Progress = (*progressReporter)(nil)
