// Package collector builds worklists of tutorial files by walking a directory
// tree under a configurable skip policy.
package collector

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

const (
	currentDirectory = "."

	operationList    = "list directory"
	operationResolve = "resolve link"

	errorFileSystemFormat = "%s %s: %v"
)

// FileSystemError reports a directory that could not be listed or an entry
// that could not be resolved. The whole traversal is abandoned when it occurs.
type FileSystemError struct {
	Op   string
	Path string
	Err  error
}

func (fileSystemError *FileSystemError) Error() string {
	return fmt.Sprintf(errorFileSystemFormat, fileSystemError.Op, fileSystemError.Path, fileSystemError.Err)
}

func (fileSystemError *FileSystemError) Unwrap() error {
	return fileSystemError.Err
}

// Entry is one matched file.
type Entry struct {
	// Path is the reported path: relative to the root (with the configured
	// prefix) or absolute when requested.
	Path string
	// Location is the path to open the file from the current process.
	Location string
}

// Worklist is the immutable result of one traversal.
type Worklist struct {
	root    string
	entries []Entry
}

// NewWorklist builds a worklist from already resolved entries.
func NewWorklist(root string, entries []Entry) Worklist {
	return Worklist{root: root, entries: append([]Entry(nil), entries...)}
}

// Root returns the directory the worklist was collected from.
func (worklist Worklist) Root() string {
	return worklist.root
}

// Len returns the number of matched files.
func (worklist Worklist) Len() int {
	return len(worklist.entries)
}

// Entries returns a copy of the matched entries in traversal order.
func (worklist Worklist) Entries() []Entry {
	return append([]Entry(nil), worklist.entries...)
}

// Paths returns a copy of the reported paths in traversal order.
func (worklist Worklist) Paths() []string {
	paths := make([]string, len(worklist.entries))
	for entryIndex, entry := range worklist.entries {
		paths[entryIndex] = entry.Path
	}
	return paths
}

// Collect walks root on the operating system file system.
func Collect(root string, options Options) (Worklist, error) {
	if root == "" {
		root = currentDirectory
	}
	return collect(os.DirFS(root), root, options)
}

// CollectFS walks the root of fileSystem. Locations of the returned entries are
// slash separated paths inside fileSystem.
func CollectFS(fileSystem fs.FS, options Options) (Worklist, error) {
	return collect(fileSystem, "", options)
}

// visitedDirectories remembers the directories already descended so a
// symbolic link back into the tree is listed once.
type visitedDirectories struct {
	all    []fs.FileInfo
	linked []fs.FileInfo
}

// visit records info and reports whether the directory was not seen before.
// Plain directories can only repeat a linked one; linked directories are
// checked against everything.
func (visited *visitedDirectories) visit(info fs.FileInfo, linked bool) bool {
	candidates := visited.linked
	if linked {
		candidates = visited.all
	}
	for _, seen := range candidates {
		if os.SameFile(seen, info) {
			return false
		}
	}
	visited.all = append(visited.all, info)
	if linked {
		visited.linked = append(visited.linked, info)
	}
	return true
}

// directoryFrame is one level of the explicit traversal stack.
type directoryFrame struct {
	relativePath string
	entries      []fs.DirEntry
	nextIndex    int
}

func collect(fileSystem fs.FS, rootPath string, options Options) (Worklist, error) {
	matcher, matcherError := NewMatcher(options)
	if matcherError != nil {
		return Worklist{}, matcherError
	}

	rootEntries, readRootError := fs.ReadDir(fileSystem, currentDirectory)
	if readRootError != nil {
		return Worklist{}, newListError(rootPath, currentDirectory, readRootError)
	}

	var visited visitedDirectories
	if rootInfo, rootStatError := fs.Stat(fileSystem, currentDirectory); rootStatError == nil {
		visited.visit(rootInfo, false)
	}

	var matched []Entry
	stack := []*directoryFrame{{relativePath: currentDirectory, entries: rootEntries}}
	for len(stack) > 0 {
		frame := stack[len(stack)-1]
		if frame.nextIndex >= len(frame.entries) {
			stack = stack[:len(stack)-1]
			continue
		}
		directoryEntry := frame.entries[frame.nextIndex]
		frame.nextIndex++

		relativePath := path.Join(frame.relativePath, directoryEntry.Name())
		linked := directoryEntry.Type()&fs.ModeSymlink != 0
		isDirectory := directoryEntry.IsDir()
		var directoryInfo fs.FileInfo
		if linked {
			targetInfo, statError := fs.Stat(fileSystem, relativePath)
			if errors.Is(statError, fs.ErrNotExist) {
				continue
			}
			if statError != nil {
				return Worklist{}, newFileSystemError(operationResolve, rootPath, relativePath, statError)
			}
			isDirectory = targetInfo.IsDir()
			directoryInfo = targetInfo
		}

		switch matcher.Classify(relativePath, isDirectory) {
		case EntryDirectory:
			if directoryInfo == nil {
				entryInfo, infoError := directoryEntry.Info()
				if infoError != nil {
					return Worklist{}, newListError(rootPath, relativePath, infoError)
				}
				directoryInfo = entryInfo
			}
			if !visited.visit(directoryInfo, linked) {
				continue
			}
			childEntries, readChildError := fs.ReadDir(fileSystem, relativePath)
			if readChildError != nil {
				return Worklist{}, newListError(rootPath, relativePath, readChildError)
			}
			stack = append(stack, &directoryFrame{relativePath: relativePath, entries: childEntries})
		case EntryMatch:
			matched = append(matched, newEntry(rootPath, relativePath, options))
		}
	}

	return Worklist{root: rootPath, entries: matched}, nil
}

func newEntry(rootPath string, relativePath string, options Options) Entry {
	nativeRelative := filepath.FromSlash(relativePath)
	location := filepath.Join(rootPath, nativeRelative)
	if rootPath == "" {
		location = relativePath
	}

	reported := nativeRelative
	if options.Prefix != "" {
		reported = filepath.Join(options.Prefix, nativeRelative)
	}
	if options.Absolute {
		if absoluteLocation, absoluteError := filepath.Abs(location); absoluteError == nil {
			reported = absoluteLocation
		} else {
			reported = location
		}
	}
	return Entry{Path: reported, Location: location}
}

func newListError(rootPath string, relativePath string, cause error) error {
	return newFileSystemError(operationList, rootPath, relativePath, cause)
}

func newFileSystemError(operation string, rootPath string, relativePath string, cause error) error {
	displayPath := filepath.Join(rootPath, filepath.FromSlash(relativePath))
	if rootPath == "" {
		displayPath = relativePath
	}
	var pathError *fs.PathError
	if errors.As(cause, &pathError) {
		cause = pathError.Err
	}
	return &FileSystemError{Op: operation, Path: displayPath, Err: cause}
}
