package fs

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// defaultIgnorePatterns are applied in every font directory.
var defaultIgnorePatterns = []string{IgnoreFileName}

type patternKind int

const (
	matchBase   patternKind = iota // "*.bak": the file name anywhere in the tree
	matchRel                       // "old/*.ttf": the path relative to the font directory
	matchSubdir                    // "old/": everything below a directory
)

type ignorePattern struct {
	glob string
	kind patternKind
}

// IgnoreMatcher decides which font files a scan leaves out.
//
// A pattern without '/' matches a file's base name. A pattern containing '/'
// matches the path relative to the font directory. A pattern ending in '/'
// matches every file below that directory. Globs use filepath.Match syntax.
type IgnoreMatcher struct {
	patterns []ignorePattern
}

// NewIgnoreMatcher parses raw pattern lines. Blank lines and comments ('#')
// are dropped. A malformed glob never matches.
func NewIgnoreMatcher(lines []string) *IgnoreMatcher {
	m := &IgnoreMatcher{}
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		p := ignorePattern{glob: line, kind: matchBase}
		switch {
		case strings.HasSuffix(line, "/"):
			p = ignorePattern{glob: strings.TrimSuffix(line, "/"), kind: matchSubdir}
		case strings.Contains(line, "/"):
			p.kind = matchRel
		}
		if _, err := filepath.Match(p.glob, ""); err != nil {
			continue
		}
		m.patterns = append(m.patterns, p)
	}
	return m
}

// Len returns the number of usable patterns.
func (m *IgnoreMatcher) Len() int { return len(m.patterns) }

// Match reports whether the file at rel, relative to its font directory,
// is ignored.
func (m *IgnoreMatcher) Match(rel string) bool {
	if rel == "" {
		return false
	}
	slashed := filepath.ToSlash(rel)
	base := filepath.Base(rel)

	for _, p := range m.patterns {
		switch p.kind {
		case matchBase:
			if ok, _ := filepath.Match(p.glob, base); ok {
				return true
			}
		case matchRel:
			if ok, _ := filepath.Match(p.glob, slashed); ok {
				return true
			}
		case matchSubdir:
			if dirMatches(p.glob, slashed) {
				return true
			}
		}
	}
	return false
}

// dirMatches reports whether any leading directory of slashed matches glob.
func dirMatches(glob, slashed string) bool {
	parts := strings.Split(slashed, "/")
	for i := 1; i < len(parts); i++ {
		if ok, _ := filepath.Match(glob, strings.Join(parts[:i], "/")); ok {
			return true
		}
	}
	return false
}

// ParseIgnoreFile reads an ignore file and returns its lines unfiltered.
// A missing file yields nil and no error.
func ParseIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file %s: %w", path, err)
	}
	return lines, nil
}
