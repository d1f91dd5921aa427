package collector_test

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"
	"testing/fstest"

	"github.com/temirov/nbkit/internal/collector"
)

const (
	pythonSuffix   = ".py"
	notebookSuffix = ".ipynb"
)

func sortedPaths(worklist collector.Worklist) []string {
	paths := worklist.Paths()
	sort.Strings(paths)
	return paths
}

func expectPaths(t *testing.T, worklist collector.Worklist, expected ...string) {
	t.Helper()
	actual := sortedPaths(worklist)
	sortedExpected := append([]string(nil), expected...)
	sort.Strings(sortedExpected)
	if len(actual) != len(sortedExpected) {
		t.Fatalf("expected %v, got %v", sortedExpected, actual)
	}
	for index := range actual {
		if actual[index] != sortedExpected[index] {
			t.Fatalf("expected %v, got %v", sortedExpected, actual)
		}
	}
}

func writeTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, relativePath := range files {
		fullPath := filepath.Join(root, filepath.FromSlash(relativePath))
		if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", relativePath, err)
		}
		if err := os.WriteFile(fullPath, []byte("print('ok')\n"), 0o644); err != nil {
			t.Fatalf("write %s: %v", relativePath, err)
		}
	}
}

func TestCollectHiddenOnlyScenario(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "a.py", ".hidden/b.py", "sub/c.py", "sub/d.txt")

	worklist, err := collector.Collect(root, collector.Options{Suffixes: []string{pythonSuffix}, Policy: collector.SkipHidden})
	if err != nil {
		t.Fatalf("Collect error: %v", err)
	}
	expectPaths(t, worklist, "a.py", filepath.Join("sub", "c.py"))
	if worklist.Root() != root {
		t.Fatalf("expected root %s, got %s", root, worklist.Root())
	}
	for _, entry := range worklist.Entries() {
		if _, statErr := os.Stat(entry.Location); statErr != nil {
			t.Fatalf("location %s does not exist: %v", entry.Location, statErr)
		}
	}
}

func TestCollectUnderscoredScenario(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "_build/e.py", "keep/f.py")

	worklist, err := collector.Collect(root, collector.Options{Suffixes: []string{pythonSuffix}, Policy: collector.SkipHiddenAndUnderscored})
	if err != nil {
		t.Fatalf("Collect error: %v", err)
	}
	expectPaths(t, worklist, filepath.Join("keep", "f.py"))
}

func TestCollectEmptyRoot(t *testing.T) {
	worklist, err := collector.Collect(t.TempDir(), collector.Options{Suffixes: []string{pythonSuffix}})
	if err != nil {
		t.Fatalf("Collect error: %v", err)
	}
	if worklist.Len() != 0 {
		t.Fatalf("expected empty worklist, got %v", worklist.Paths())
	}
}

func TestCollectMissingRoot(t *testing.T) {
	missingRoot := filepath.Join(t.TempDir(), "missing")
	worklist, err := collector.Collect(missingRoot, collector.Options{Suffixes: []string{pythonSuffix}})
	if err == nil {
		t.Fatalf("expected error for missing root")
	}
	var fileSystemError *collector.FileSystemError
	if !errors.As(err, &fileSystemError) {
		t.Fatalf("expected FileSystemError, got %T: %v", err, err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected ErrNotExist in chain, got %v", err)
	}
	if worklist.Len() != 0 {
		t.Fatalf("expected no partial result, got %v", worklist.Paths())
	}
}

func TestCollectRootIsFile(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "a.py")
	_, err := collector.Collect(filepath.Join(root, "a.py"), collector.Options{Suffixes: []string{pythonSuffix}})
	var fileSystemError *collector.FileSystemError
	if !errors.As(err, &fileSystemError) {
		t.Fatalf("expected FileSystemError, got %v", err)
	}
}

func TestCollectUnreadableSubdirectoryAbortsTraversal(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}
	root := t.TempDir()
	writeTree(t, root, "a.py", "locked/b.py")
	lockedDirectory := filepath.Join(root, "locked")
	if err := os.Chmod(lockedDirectory, 0o000); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	t.Cleanup(func() { _ = os.Chmod(lockedDirectory, 0o755) })

	worklist, err := collector.Collect(root, collector.Options{Suffixes: []string{pythonSuffix}})
	var fileSystemError *collector.FileSystemError
	if !errors.As(err, &fileSystemError) {
		t.Fatalf("expected FileSystemError, got %v", err)
	}
	if fileSystemError.Path != lockedDirectory {
		t.Fatalf("expected error path %s, got %s", lockedDirectory, fileSystemError.Path)
	}
	if worklist.Len() != 0 {
		t.Fatalf("expected no partial result, got %v", worklist.Paths())
	}
}

func TestCollectFSProperties(t *testing.T) {
	fileSystem := fstest.MapFS{
		"intro.py":                          {Data: []byte("x")},
		"fem/helmholtz.py":                  {Data: []byte("x")},
		"fem/helmholtz.ipynb":               {Data: []byte("{}")},
		"fem/deep/er/still/nested.py":       {Data: []byte("x")},
		"bem/bem-tutorial-1.py":             {Data: []byte("x")},
		"bem/notes.md":                      {Data: []byte("x")},
		".git/hooks/pre-commit.py":          {Data: []byte("x")},
		".ipynb_checkpoints/intro.py":       {Data: []byte("x")},
		"fem/.cache/helmholtz.py":           {Data: []byte("x")},
		"_build/jupyter_execute/intro.py":   {Data: []byte("x")},
		"_test/test_tutorials.py":           {Data: []byte("x")},
		"fem/_private/deeply/nested/run.py": {Data: []byte("x")},
		"bem/.secret.py":                    {Data: []byte("x")},
	}

	testCases := []struct {
		name     string
		options  collector.Options
		expected []string
	}{
		{
			name:    "hidden only",
			options: collector.Options{Suffixes: []string{pythonSuffix}},
			expected: []string{
				"intro.py",
				filepath.Join("fem", "helmholtz.py"),
				filepath.Join("fem", "deep", "er", "still", "nested.py"),
				filepath.Join("bem", "bem-tutorial-1.py"),
				filepath.Join("_build", "jupyter_execute", "intro.py"),
				filepath.Join("_test", "test_tutorials.py"),
				filepath.Join("fem", "_private", "deeply", "nested", "run.py"),
			},
		},
		{
			name:    "hidden and underscored",
			options: collector.Options{Suffixes: []string{pythonSuffix}, Policy: collector.SkipHiddenAndUnderscored},
			expected: []string{
				"intro.py",
				filepath.Join("fem", "helmholtz.py"),
				filepath.Join("fem", "deep", "er", "still", "nested.py"),
				filepath.Join("bem", "bem-tutorial-1.py"),
			},
		},
		{
			name:    "excluded name",
			options: collector.Options{Suffixes: []string{pythonSuffix}, ExcludedNames: []string{"_test", "_build"}},
			expected: []string{
				"intro.py",
				filepath.Join("fem", "helmholtz.py"),
				filepath.Join("fem", "deep", "er", "still", "nested.py"),
				filepath.Join("bem", "bem-tutorial-1.py"),
				filepath.Join("fem", "_private", "deeply", "nested", "run.py"),
			},
		},
		{
			name:    "notebooks",
			options: collector.Options{Suffixes: []string{"ipynb"}, Policy: collector.SkipHiddenAndUnderscored},
			expected: []string{
				filepath.Join("fem", "helmholtz.ipynb"),
			},
		},
		{
			name:    "both suffixes in one pass",
			options: collector.Options{Suffixes: []string{pythonSuffix, notebookSuffix}, Policy: collector.SkipHiddenAndUnderscored, ExcludePatterns: []string{"fem/deep/**"}},
			expected: []string{
				"intro.py",
				filepath.Join("fem", "helmholtz.py"),
				filepath.Join("fem", "helmholtz.ipynb"),
				filepath.Join("bem", "bem-tutorial-1.py"),
			},
		},
		{
			name:    "prefix accumulator",
			options: collector.Options{Suffixes: []string{pythonSuffix}, Policy: collector.SkipHiddenAndUnderscored, Prefix: "tutorials", ExcludePatterns: []string{"**/deep"}},
			expected: []string{
				filepath.Join("tutorials", "intro.py"),
				filepath.Join("tutorials", "fem", "helmholtz.py"),
				filepath.Join("tutorials", "bem", "bem-tutorial-1.py"),
			},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			worklist, err := collector.CollectFS(fileSystem, testCase.options)
			if err != nil {
				t.Fatalf("CollectFS error: %v", err)
			}
			expectPaths(t, worklist, testCase.expected...)

			repeated, repeatErr := collector.CollectFS(fileSystem, testCase.options)
			if repeatErr != nil {
				t.Fatalf("second CollectFS error: %v", repeatErr)
			}
			expectPaths(t, repeated, testCase.expected...)
		})
	}
}

func TestCollectFSDepthFirstOrder(t *testing.T) {
	fileSystem := fstest.MapFS{
		"a.py":       {Data: []byte("x")},
		"b/c.py":     {Data: []byte("x")},
		"b/d/e.py":   {Data: []byte("x")},
		"b/f.py":     {Data: []byte("x")},
		"g.py":       {Data: []byte("x")},
		"h/i/j/k.py": {Data: []byte("x")},
	}
	worklist, err := collector.CollectFS(fileSystem, collector.Options{Suffixes: []string{pythonSuffix}})
	if err != nil {
		t.Fatalf("CollectFS error: %v", err)
	}
	expected := []string{
		"a.py",
		filepath.Join("b", "c.py"),
		filepath.Join("b", "d", "e.py"),
		filepath.Join("b", "f.py"),
		"g.py",
		filepath.Join("h", "i", "j", "k.py"),
	}
	actual := worklist.Paths()
	if len(actual) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, actual)
	}
	for index := range expected {
		if actual[index] != expected[index] {
			t.Fatalf("expected %v, got %v", expected, actual)
		}
	}
}

func TestWorklistIsImmutable(t *testing.T) {
	worklist := collector.NewWorklist("root", []collector.Entry{{Path: "a.py", Location: "root/a.py"}})
	paths := worklist.Paths()
	paths[0] = "mutated.py"
	entries := worklist.Entries()
	entries[0].Path = "mutated.py"
	if worklist.Paths()[0] != "a.py" {
		t.Fatalf("worklist changed through a returned slice")
	}
}

func TestCollectAbsolutePaths(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "sub/c.py")
	worklist, err := collector.Collect(root, collector.Options{Suffixes: []string{pythonSuffix}, Absolute: true})
	if err != nil {
		t.Fatalf("Collect error: %v", err)
	}
	expectPaths(t, worklist, filepath.Join(root, "sub", "c.py"))
}

func TestCollectFollowsDirectorySymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require privileges")
	}
	root := t.TempDir()
	outside := t.TempDir()
	writeTree(t, outside, "linked.py")
	if err := os.Symlink(outside, filepath.Join(root, "shared")); err != nil {
		t.Fatalf("symlink: %v", err)
	}
	if err := os.Symlink(filepath.Join(root, "nowhere.py"), filepath.Join(root, "dangling.py")); err != nil {
		t.Fatalf("symlink: %v", err)
	}
	worklist, err := collector.Collect(root, collector.Options{Suffixes: []string{pythonSuffix}})
	if err != nil {
		t.Fatalf("Collect error: %v", err)
	}
	expectPaths(t, worklist, filepath.Join("shared", "linked.py"))
}

func TestCollectSymlinkCycle(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require privileges")
	}
	root := t.TempDir()
	writeTree(t, root, "a.py", "sub/b.py")
	if err := os.Symlink(root, filepath.Join(root, "loop")); err != nil {
		t.Fatalf("symlink: %v", err)
	}
	if err := os.Symlink("..", filepath.Join(root, "sub", "up")); err != nil {
		t.Fatalf("symlink: %v", err)
	}
	worklist, err := collector.Collect(root, collector.Options{Suffixes: []string{pythonSuffix}})
	if err != nil {
		t.Fatalf("Collect error: %v", err)
	}
	expectPaths(t, worklist, "a.py", filepath.Join("sub", "b.py"))
}

func TestCollectListsLinkedDirectoryOnce(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require privileges")
	}
	root := t.TempDir()
	writeTree(t, root, "real/x.py")
	if err := os.Symlink(filepath.Join(root, "real"), filepath.Join(root, "shared")); err != nil {
		t.Fatalf("symlink: %v", err)
	}
	worklist, err := collector.Collect(root, collector.Options{Suffixes: []string{pythonSuffix}})
	if err != nil {
		t.Fatalf("Collect error: %v", err)
	}
	expectPaths(t, worklist, filepath.Join("real", "x.py"))
}

func TestCollectUnresolvableSymlinkFails(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require privileges")
	}
	root := t.TempDir()
	writeTree(t, root, "a.py")
	selfLink := filepath.Join(root, "self")
	if err := os.Symlink(selfLink, selfLink); err != nil {
		t.Fatalf("symlink: %v", err)
	}
	worklist, err := collector.Collect(root, collector.Options{Suffixes: []string{pythonSuffix}})
	var fileSystemError *collector.FileSystemError
	if !errors.As(err, &fileSystemError) {
		t.Fatalf("expected FileSystemError, got %v", err)
	}
	if fileSystemError.Path != selfLink {
		t.Fatalf("expected error path %s, got %s", selfLink, fileSystemError.Path)
	}
	if worklist.Len() != 0 {
		t.Fatalf("expected no partial result, got %v", worklist.Paths())
	}
}

func TestCollectInvalidOptions(t *testing.T) {
	testCases := []struct {
		name    string
		options collector.Options
	}{
		{name: "no suffix", options: collector.Options{}},
		{name: "blank suffix", options: collector.Options{Suffixes: []string{"  "}}},
		{name: "bad pattern", options: collector.Options{Suffixes: []string{pythonSuffix}, ExcludePatterns: []string{"[unterminated"}}},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			_, err := collector.CollectFS(fstest.MapFS{}, testCase.options)
			if !errors.Is(err, collector.ErrInvalidOptions) {
				t.Fatalf("expected ErrInvalidOptions, got %v", err)
			}
		})
	}
}
