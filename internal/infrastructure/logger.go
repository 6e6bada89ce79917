package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/yavuzmtr/edefter-otomasyon-sub001/internal/config"
)

var (
	loggerMu  sync.Mutex
	logger    *slog.Logger
	logCloser io.Closer
)

// InitializeLogger builds the process logger from cfg and installs it as the
// slog default. Only the first call configures anything; later calls return
// the same logger. Records are always JSON.
func InitializeLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	if logger != nil {
		return logger, nil
	}

	out, closer, err := logOutput(cfg)
	if err != nil {
		return nil, err
	}

	logger = NewLogger(out, ParseLogLevel(cfg.Level), true)
	logCloser = closer
	slog.SetDefault(logger)
	return logger, nil
}

// GetLogger returns the process logger, or slog.Default before
// InitializeLogger has run.
func GetLogger() *slog.Logger {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	if logger == nil {
		return slog.Default()
	}
	return logger
}

// CloseLogFile closes the log file opened for "file" or "both" output.
func CloseLogFile() error {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	if logCloser == nil {
		return nil
	}
	err := logCloser.Close()
	logCloser = nil
	return err
}

// ResetLoggerForTesting forgets the process logger so the next
// InitializeLogger starts over.
func ResetLoggerForTesting() {
	_ = CloseLogFile()

	loggerMu.Lock()
	logger = nil
	loggerMu.Unlock()
}

// logOutput resolves cfg.Output: console (stdout), stderr, file or both.
func logOutput(cfg config.LoggingConfig) (io.Writer, io.Closer, error) {
	switch strings.ToLower(cfg.Output) {
	case "stderr":
		return os.Stderr, nil, nil
	case "file", "both":
		f, err := openLogFile(cfg.FilePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		if strings.EqualFold(cfg.Output, "both") {
			return io.MultiWriter(os.Stdout, f), f, nil
		}
		return f, f, nil
	default:
		return os.Stdout, nil, nil
	}
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}

// NewLogger builds a JSON logger on w that stamps trace_id from the record's
// context. The global logger is left untouched.
func NewLogger(w io.Writer, level slog.Level, addSource bool) *slog.Logger {
	return slog.New(traceHandler{slog.NewJSONHandler(w, &slog.HandlerOptions{
		AddSource: addSource,
		Level:     level,
	})})
}

type traceHandler struct {
	slog.Handler
}

func (h traceHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := GetTraceID(ctx); id != "" {
		r.AddAttrs(slog.String("trace_id", id))
	}
	return h.Handler.Handle(ctx, r)
}

func (h traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return traceHandler{h.Handler.WithAttrs(attrs)}
}

func (h traceHandler) WithGroup(name string) slog.Handler {
	return traceHandler{h.Handler.WithGroup(name)}
}

// ParseLogLevel accepts slog level names in any case, plus "warning".
// Anything unrecognized is info.
func ParseLogLevel(s string) slog.Level {
	if strings.EqualFold(s, "warning") {
		return slog.LevelWarn
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
