package fs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"fonttrack/internal/config"
	"fonttrack/internal/ft"
)

// IgnoreFileName is the per-directory ignore file read from each font
// directory root.
const IgnoreFileName = ".fontignore"

// OSFontScanner finds font files on the real filesystem.
type OSFontScanner struct {
	dirs       []string
	extensions map[string]bool
	ignore     []string
	logger     ft.Logger
}

// NewOSFontScanner creates a scanner for the directories, extensions and
// ignore patterns in cfg. Extensions match case-insensitively.
func NewOSFontScanner(cfg config.FontsConfig, logger ft.Logger) *OSFontScanner {
	if logger == nil {
		logger = ft.NewNopLogger()
	}
	exts := make(map[string]bool, len(cfg.Extensions))
	for _, ext := range cfg.Extensions {
		exts[strings.ToLower(ext)] = true
	}
	return &OSFontScanner{
		dirs:       append([]string(nil), cfg.Dirs...),
		extensions: exts,
		ignore:     append([]string(nil), cfg.Ignore...),
		logger:     logger,
	}
}

// Dirs returns the configured font directories with "~" expanded.
func (s *OSFontScanner) Dirs() ([]string, error) {
	out := make([]string, 0, len(s.dirs))
	for _, dir := range s.dirs {
		expanded, err := config.ExpandHome(dir)
		if err != nil {
			return nil, err
		}
		out = append(out, filepath.Clean(expanded))
	}
	return out, nil
}

// IsFont reports whether path has one of the configured extensions.
func (s *OSFontScanner) IsFont(path string) bool {
	return s.extensions[strings.ToLower(filepath.Ext(path))]
}

// Scan returns the sorted, de-duplicated font paths under every configured
// directory. Directories that do not exist are skipped. Subdirectories that
// cannot be read are logged and skipped; a root that exists but cannot be
// read fails the scan.
func (s *OSFontScanner) Scan() ([]ft.FontPath, error) {
	dirs, err := s.Dirs()
	if err != nil {
		return nil, fmt.Errorf("resolving font directories: %w", err)
	}

	seen := make(map[ft.FontPath]bool)
	var paths []ft.FontPath
	for _, dir := range dirs {
		info, err := os.Stat(dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				s.logger.Debug("font directory does not exist", "dir", dir)
				continue
			}
			return nil, fmt.Errorf("stat font directory %s: %w", dir, err)
		}
		if !info.IsDir() {
			s.logger.Debug("font directory is not a directory", "dir", dir)
			continue
		}

		found, err := s.scanDir(dir)
		if err != nil {
			return nil, err
		}
		for _, p := range found {
			if !seen[p] {
				seen[p] = true
				paths = append(paths, p)
			}
		}
	}

	slices.Sort(paths)
	return paths, nil
}

func (s *OSFontScanner) scanDir(root string) ([]ft.FontPath, error) {
	filePatterns, err := ParseIgnoreFile(filepath.Join(root, IgnoreFileName))
	if err != nil {
		return nil, err
	}
	patterns := append(append(append([]string(nil), defaultIgnorePatterns...), s.ignore...), filePatterns...)
	matcher := NewIgnoreMatcher(patterns)

	var paths []ft.FontPath
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			s.logger.Warn("skipping unreadable path", "path", p, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !s.IsFont(p) || !s.isRegularFile(p, d) {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return fmt.Errorf("relative path of %s: %w", p, err)
		}
		if matcher.Match(rel) {
			return nil
		}
		paths = append(paths, ft.FontPath(p))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking font directory %s: %w", root, err)
	}
	return paths, nil
}

// isRegularFile reports whether the entry is a regular file. Symlinks are
// followed; a dangling link or one to a directory is skipped.
func (s *OSFontScanner) isRegularFile(p string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(p)
	if err != nil {
		s.logger.Debug("skipping broken font symlink", "path", p, "error", err)
		return false
	}
	return info.Mode().IsRegular()
}

var _ ft.Scanner = (*OSFontScanner)(nil)
