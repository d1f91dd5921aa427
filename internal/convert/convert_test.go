package convert_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/nbkit/internal/collector"
	"github.com/temirov/nbkit/internal/convert"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for relativePath, content := range files {
		fullPath := filepath.Join(root, filepath.FromSlash(relativePath))
		if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(fullPath, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", relativePath, err)
		}
	}
}

func collectScripts(t *testing.T, root string, excludedNames []string) collector.Worklist {
	t.Helper()
	worklist, err := collector.Collect(root, collector.Options{Suffixes: []string{".py"}, ExcludedNames: excludedNames})
	if err != nil {
		t.Fatalf("Collect error: %v", err)
	}
	return worklist
}

// TestConverterRunsCommandPerFile converts with a shell command that writes a
// sibling notebook and fails for one file.
func TestConverterRunsCommandPerFile(t *testing.T) {
	requireShell(t)
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"fem/helmholtz.py": "x",
		"bem/broken.py":    "x",
		".git/hook.py":     "x",
	})
	script := `case "$1" in *broken*) echo "cannot parse $1" >&2; exit 3;; esac; touch "${1%.py}.ipynb"`

	core, logs := observer.New(zapcore.DebugLevel)
	converter := convert.NewConverter(convert.ConverterOptions{
		Command:   "sh",
		Arguments: []string{"-c", script, "convert"},
	}, zap.New(core))

	summary, err := converter.Convert(context.Background(), collectScripts(t, root, nil))
	if !errors.Is(err, convert.ErrConversionFailed) {
		t.Fatalf("expected ErrConversionFailed, got %v", err)
	}
	if len(summary.Processed) != 1 || summary.Processed[0] != filepath.Join("fem", "helmholtz.py") {
		t.Fatalf("unexpected processed list: %v", summary.Processed)
	}
	if len(summary.Failures) != 1 || summary.Failures[0].Path != filepath.Join("bem", "broken.py") {
		t.Fatalf("unexpected failures: %+v", summary.Failures)
	}
	if !strings.Contains(summary.Failures[0].Err.Error(), "cannot parse") {
		t.Fatalf("expected converter output in failure, got %v", summary.Failures[0].Err)
	}
	if _, statErr := os.Stat(filepath.Join(root, "fem", "helmholtz.ipynb")); statErr != nil {
		t.Fatalf("expected converted notebook: %v", statErr)
	}
	if logs.FilterMessage("conversion failed").Len() != 1 {
		t.Fatalf("expected one failure log entry, got %d", logs.FilterMessage("conversion failed").Len())
	}
}

func TestConverterDryRunDoesNotExecute(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a.py": "x"})
	converter := convert.NewConverter(convert.ConverterOptions{
		Command: "definitely-not-an-installed-converter",
		DryRun:  true,
	}, nil)
	summary, err := converter.Convert(context.Background(), collectScripts(t, root, nil))
	if err != nil {
		t.Fatalf("Convert error: %v", err)
	}
	if len(summary.Processed) != 1 {
		t.Fatalf("expected one processed file, got %v", summary.Processed)
	}
}

func TestConverterStopsOnCanceledContext(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a.py": "x", "b.py": "x"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	converter := convert.NewConverter(convert.ConverterOptions{}, nil)
	summary, err := converter.Convert(ctx, collectScripts(t, root, nil))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(summary.Processed)+len(summary.Failures) != 0 {
		t.Fatalf("expected nothing processed, got %+v", summary)
	}
}

func TestCleanerRemovesScriptsOutsideTestDirectory(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"tutorials/fem/helmholtz.py":    "x",
		"tutorials/fem/helmholtz.ipynb": "{}",
		"about/code-template.py":        "x",
		"_test/test_tutorials.py":       "x",
		".github/scripts/generate.py":   "x",
	})

	cleaner := convert.NewCleaner(convert.CleanerOptions{}, zap.NewNop())
	summary, err := cleaner.Clean(context.Background(), collectScripts(t, root, convert.CleanExcludedNames))
	if err != nil {
		t.Fatalf("Clean error: %v", err)
	}
	if len(summary.Processed) != 2 {
		t.Fatalf("expected two removed files, got %v", summary.Processed)
	}

	testCases := []struct {
		relativePath string
		shouldExist  bool
	}{
		{relativePath: "tutorials/fem/helmholtz.py", shouldExist: false},
		{relativePath: "about/code-template.py", shouldExist: false},
		{relativePath: "tutorials/fem/helmholtz.ipynb", shouldExist: true},
		{relativePath: "_test/test_tutorials.py", shouldExist: true},
		{relativePath: ".github/scripts/generate.py", shouldExist: true},
	}
	for _, testCase := range testCases {
		_, statErr := os.Stat(filepath.Join(root, filepath.FromSlash(testCase.relativePath)))
		exists := statErr == nil
		if exists != testCase.shouldExist {
			t.Errorf("%s: expected exists=%t, got %t", testCase.relativePath, testCase.shouldExist, exists)
		}
	}
}

func TestCleanerRecordsMissingFiles(t *testing.T) {
	root := t.TempDir()
	worklist := collector.NewWorklist(root, []collector.Entry{
		{Path: "gone.py", Location: filepath.Join(root, "gone.py")},
	})
	summary, err := convert.NewCleaner(convert.CleanerOptions{}, nil).Clean(context.Background(), worklist)
	if !errors.Is(err, convert.ErrConversionFailed) {
		t.Fatalf("expected ErrConversionFailed, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected ErrNotExist in the joined error, got %v", err)
	}
	if len(summary.Failures) != 1 {
		t.Fatalf("expected one failure, got %+v", summary.Failures)
	}
}

func TestCleanerDryRunKeepsFiles(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a.py": "x"})
	summary, err := convert.NewCleaner(convert.CleanerOptions{DryRun: true}, nil).Clean(context.Background(), collectScripts(t, root, nil))
	if err != nil {
		t.Fatalf("Clean error: %v", err)
	}
	if len(summary.Processed) != 1 {
		t.Fatalf("expected one reported file, got %v", summary.Processed)
	}
	if _, statErr := os.Stat(filepath.Join(root, "a.py")); statErr != nil {
		t.Fatalf("dry run removed the file: %v", statErr)
	}
}
