// Package discover finds Move source files under a project root.
package discover

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	ignore "github.com/sabhiram/go-gitignore"
)

// Ext is the extension of Move source files.
const Ext = ".move"

// DefaultSkipDirs are never descended into. Hidden directories are skipped
// as well.
var DefaultSkipDirs = []string{"build", "node_modules"}

type Options struct {
	// SkipDirs replaces DefaultSkipDirs when non-nil.
	SkipDirs []string
	// Exclude holds glob patterns matched against slash-separated paths
	// relative to the root, e.g. "tests/**" or "**/*_tests.move".
	Exclude []string
	// RespectGitignore skips files matched by the root .gitignore.
	RespectGitignore bool
}

// Matcher decides which paths are skipped. It is built once per scan and
// can be reused for file-change filtering.
type Matcher struct {
	skipDirs map[string]bool
	exclude  []glob.Glob
	gi       *ignore.GitIgnore
}

// NewMatcher compiles opts for root.
func NewMatcher(root string, opts Options) (*Matcher, error) {
	dirs := opts.SkipDirs
	if dirs == nil {
		dirs = DefaultSkipDirs
	}
	m := &Matcher{skipDirs: make(map[string]bool, len(dirs))}
	for _, d := range dirs {
		m.skipDirs[d] = true
	}
	for _, pattern := range opts.Exclude {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("discover: exclude pattern %q: %w", pattern, err)
		}
		m.exclude = append(m.exclude, g)
	}
	if opts.RespectGitignore {
		m.gi = loadGitignore(root)
	}
	return m, nil
}

func loadGitignore(root string) *ignore.GitIgnore {
	path := filepath.Join(root, ".gitignore")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	return gi
}

// SkipDir reports whether a directory with the given base name is pruned.
func (m *Matcher) SkipDir(name string) bool {
	return strings.HasPrefix(name, ".") || m.skipDirs[name]
}

// SkipFile reports whether the file at rel (relative to the root) is
// excluded. It does not check the extension.
func (m *Matcher) SkipFile(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, part := range strings.Split(rel, "/")[:strings.Count(rel, "/")] {
		if m.SkipDir(part) {
			return true
		}
	}
	for _, g := range m.exclude {
		if g.Match(rel) {
			return true
		}
	}
	return m.gi != nil && m.gi.MatchesPath(rel)
}

// IsSource reports whether path names a Move source file.
func IsSource(path string) bool {
	return strings.HasSuffix(path, Ext)
}

// Files returns the Move files under root as slash-separated paths relative
// to root, sorted. This order is the scan order of an index build.
func Files(root string, opts Options) ([]string, error) {
	m, err := NewMatcher(root, opts)
	if err != nil {
		return nil, err
	}
	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil // unreadable entries are skipped
		}
		if d.IsDir() {
			if path != root && m.SkipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !IsSource(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if m.SkipFile(rel) {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover: walk %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}
