package testutil

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"fonttrack/internal/ft"
)

// StubFonts stands in for the disk: it is both the Scanner and the Extractor.
// Fonts added with Fail are found by Scan but cannot be extracted.
type StubFonts struct {
	mu      sync.Mutex
	fonts   map[ft.FontPath]ft.Attributes
	failing map[ft.FontPath]bool
	ScanErr error
}

// NewStubFonts creates an empty StubFonts.
func NewStubFonts() *StubFonts {
	return &StubFonts{
		fonts:   map[ft.FontPath]ft.Attributes{},
		failing: map[ft.FontPath]bool{},
	}
}

// Set installs or replaces a font.
func (s *StubFonts) Set(path string, attrs ft.Attributes) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fonts[ft.FontPath(path)] = attrs.Clone()
	delete(s.failing, ft.FontPath(path))
}

// Fail installs a font whose extraction always fails.
func (s *StubFonts) Fail(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing[ft.FontPath(path)] = true
}

// Remove uninstalls a font.
func (s *StubFonts) Remove(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.fonts, ft.FontPath(path))
	delete(s.failing, ft.FontPath(path))
}

func (s *StubFonts) Scan() ([]ft.FontPath, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ScanErr != nil {
		return nil, s.ScanErr
	}
	paths := slices.Collect(maps.Keys(s.fonts))
	for path := range s.failing {
		paths = append(paths, path)
	}
	slices.Sort(paths)
	return paths, nil
}

func (s *StubFonts) Extract(path ft.FontPath) (ft.Attributes, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing[path] {
		return nil, fmt.Errorf("unreadable font %s", path)
	}
	attrs, ok := s.fonts[path]
	if !ok {
		return nil, fmt.Errorf("no such font %s", path)
	}
	return attrs.Clone(), nil
}
