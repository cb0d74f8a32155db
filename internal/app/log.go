package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// LogFileName is the file under the configured log directory that receives
// every log line.
const LogFileName = "fonttrack.log"

// ftHandler is a custom slog.Handler that formats log records as:
//
//	<timestamp>\t<level>\t<runID>\t<message>\t<key=value ...>
//
// Handlers derived with withRunID or WithAttrs share the writer and its lock,
// so lines from concurrent runs never interleave.
type ftHandler struct {
	mu    *sync.Mutex
	w     io.Writer
	level slog.Leveler
	runID string
	attrs []slog.Attr
}

func newFTHandler(w io.Writer, level slog.Leveler) *ftHandler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &ftHandler{mu: &sync.Mutex{}, w: w, level: level, runID: "-"}
}

func (h *ftHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *ftHandler) Handle(_ context.Context, r slog.Record) error {
	ts := r.Time.UTC().Format("2006-01-02T15:04:05Z")

	buf := fmt.Appendf(nil, "%s\t%s\t%s\t%s", ts, r.Level.String(), h.runID, r.Message)
	for _, a := range h.attrs {
		buf = fmt.Appendf(buf, "\t%s=%v", a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		buf = fmt.Appendf(buf, "\t%s=%v", a.Key, a.Value)
		return true
	})
	buf = append(buf, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf)
	return err
}

func (h *ftHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &c
}

func (h *ftHandler) WithGroup(string) slog.Handler { return h }

// withRunID returns a handler that stamps every line with runID.
func (h *ftHandler) withRunID(runID string) *ftHandler {
	c := *h
	c.runID = runID
	return &c
}

// newLogHandler creates a handler that writes to both logDir/fonttrack.log and
// stderr. It returns the handler and the open log file (for cleanup).
func newLogHandler(logDir string, stderr io.Writer, level slog.Leveler) (*ftHandler, *os.File, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}

	logPath := filepath.Join(logDir, LogFileName)
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	return newFTHandler(io.MultiWriter(f, stderr), level), f, nil
}

// slogAdapter wraps *slog.Logger to satisfy the ft.Logger interface.
type slogAdapter struct {
	l *slog.Logger
}

func (a *slogAdapter) Debug(msg string, args ...any) { a.l.Debug(msg, args...) }
func (a *slogAdapter) Info(msg string, args ...any)  { a.l.Info(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.l.Warn(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.l.Error(msg, args...) }
