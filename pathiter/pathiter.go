// Package pathiter lazily expands a list of command-line path arguments
// into a stream of matching file paths, optionally recursing into
// directories and filtering by include/exclude wildcard patterns. It is
// the Go realization of the original's com_arg_add/com_arg_next/
// file_matches/dir_scan machinery (core/com-arg.h).
package pathiter

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Options configures how arguments are expanded.
type Options struct {
	// Recurse descends into subdirectories found while expanding a
	// directory argument (or one found beneath it). It does not gate the
	// implicit "." root substituted when no arguments are supplied —
	// that root's immediate contents are always listed.
	Recurse bool

	// IncludeFiles, if non-empty, restricts file results (not directory
	// names) to those matching at least one wildcard pattern. Directories
	// are always eligible to be descended into regardless of this list.
	IncludeFiles []string

	// ExcludeFiles filters both files and directories: a name or full
	// path matching any pattern here is skipped entirely, including not
	// being recursed into.
	ExcludeFiles []string
}

// NextFlags controls one call to Iterator.Next.
type NextFlags struct {
	// FilesOnly skips yielding directory entries (but still recurses
	// into them when Options.Recurse is set), matching spec's "only
	// regular files are returned" next() flag.
	FilesOnly bool
	// Peek returns the next entry without advancing the iterator; the
	// following call (with any flags) observes the same entry again.
	Peek bool
}

// Entry is one path produced by the iterator.
type Entry struct {
	Path  string
	Info  os.FileInfo
	IsDir bool
}

// Iterator produces a lazy, depth-first stream of paths derived from a
// set of root arguments. Not restartable.
type Iterator struct {
	opts Options

	// pending holds root arguments not yet visited, in argument order.
	pending []string

	// dirStack holds directory entries discovered during recursion,
	// processed depth-first: the most recently pushed directory's
	// children are exhausted before returning to siblings.
	dirStack [][]string

	hasPeek bool
	peekVal Entry

	// Warnings accumulates non-fatal directory-open failures (spec
	// §4.1 rule 4: "reported as a warning, skipped, iteration continues").
	Warnings []string
}

// New creates an Iterator with the given options. Push roots with Push
// before calling Next.
func New(opts Options) *Iterator {
	return &Iterator{opts: opts}
}

// Push adds a root argument to be expanded. A bare "." is accepted and
// expands the current directory's immediate contents without yielding
// "." itself, matching the original's default when invoked with no path
// arguments.
func (it *Iterator) Push(path string) {
	it.pending = append(it.pending, path)
}

// Next returns the next matching entry, or ok=false once every root and
// its recursive expansion has been exhausted.
func (it *Iterator) Next(flags NextFlags) (Entry, bool, error) {
	if it.hasPeek {
		e := it.peekVal
		if !flags.Peek {
			it.hasPeek = false
		}
		return e, true, nil
	}

	for {
		e, ok, err := it.advance()
		if err != nil {
			return Entry{}, false, err
		}
		if !ok {
			return Entry{}, false, nil
		}
		if flags.FilesOnly && e.IsDir {
			continue
		}
		if flags.Peek {
			it.hasPeek = true
			it.peekVal = e
		}
		return e, true, nil
	}
}

// advance produces the next raw entry (files and directories alike),
// applying the include/exclude/recursion rules but not the caller's
// FilesOnly/Peek preferences.
func (it *Iterator) advance() (Entry, bool, error) {
	for {
		name, fromRoot, ok := it.nextCandidate()
		if !ok {
			return Entry{}, false, nil
		}

		info, err := os.Lstat(name)
		if err != nil {
			return Entry{}, false, fmt.Errorf("pathiter: stat %s: %w", name, err)
		}
		isDir := info.IsDir()

		if !it.matches(name, isDir) {
			continue
		}

		if isDir {
			implicitDot := fromRoot && name == "."
			if implicitDot {
				// The synthetic "." root is never yielded itself; its
				// contents are always listed regardless of Recurse.
				if err := it.scanDir(name); err != nil {
					it.Warnings = append(it.Warnings, err.Error())
				}
				continue
			}

			// Rule 3: the directory entry itself is yielded first, then
			// its contents depth-first — but only once Recurse opens it.
			if it.opts.Recurse {
				if err := it.scanDir(name); err != nil {
					it.Warnings = append(it.Warnings, err.Error())
				}
			}
			return Entry{Path: name, Info: info, IsDir: true}, true, nil
		}

		return Entry{Path: name, Info: info, IsDir: false}, true, nil
	}
}

// nextCandidate pops the next path to consider, from the innermost open
// directory first (depth-first), falling back to the root argument list.
// fromRoot reports whether name came directly from a pushed root
// argument rather than a discovered child.
func (it *Iterator) nextCandidate() (name string, fromRoot bool, ok bool) {
	for len(it.dirStack) > 0 {
		top := len(it.dirStack) - 1
		frame := it.dirStack[top]
		if len(frame) == 0 {
			it.dirStack = it.dirStack[:top]
			continue
		}
		name = frame[0]
		it.dirStack[top] = frame[1:]
		return name, false, true
	}
	if len(it.pending) == 0 {
		return "", false, false
	}
	name = it.pending[0]
	it.pending = it.pending[1:]
	return name, true, true
}

// scanDir lists dir's immediate children and pushes a new recursion
// frame, reusing the open directory handle the way the original reuses
// one fd per ffdirscan_open/close pair rather than re-stat'ing.
func (it *Iterator) scanDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("pathiter: open %s: %w", dir, err)
	}
	defer f.Close()

	names, err := f.Readdirnames(-1)
	if err != nil {
		return fmt.Errorf("pathiter: readdir %s: %w", dir, err)
	}

	children := make([]string, 0, len(names))
	for _, name := range names {
		if dir == "." {
			children = append(children, name)
		} else {
			children = append(children, filepath.Join(dir, name))
		}
	}
	it.dirStack = append(it.dirStack, children)
	return nil
}

// matches applies the include/exclude wildcard rules: include applies
// only to files, exclude applies to files and directories alike.
func (it *Iterator) matches(name string, isDir bool) bool {
	base := filepath.Base(name)

	for _, pat := range it.opts.ExcludeFiles {
		if wildcardMatch(pat, name) || wildcardMatch(pat, base) {
			return false
		}
	}

	if isDir {
		return true
	}

	if len(it.opts.IncludeFiles) == 0 {
		return true
	}
	for _, pat := range it.opts.IncludeFiles {
		if wildcardMatch(pat, name) || wildcardMatch(pat, base) {
			return true
		}
	}
	return false
}

// wildcardMatch is a case-insensitive doublestar match: both operands are
// lowercased since doublestar has no built-in case-fold option, matching
// the original's FFS_WC_ICASE/FFPATH_CASE_ISENS behavior.
func wildcardMatch(pattern, name string) bool {
	ok, err := doublestar.Match(strings.ToLower(pattern), strings.ToLower(name))
	return err == nil && ok
}
