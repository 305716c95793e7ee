package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Configure installs a process-wide slog default logger writing to stderr.
// When logPath is non-empty the same records are appended to that file, which
// serves as the durable run log; the returned closer releases it. The file is
// write-only from this process's perspective and never parsed back.
//
// Supported levels: debug, info, warn, error.
func Configure(level, logPath string) (io.Closer, error) {
	parsed, err := parseLevel(level)
	if err != nil {
		return nil, err
	}

	var out io.Writer = os.Stderr
	var closer io.Closer

	if logPath != "" {
		if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
			return nil, fmt.Errorf("creating log directory: %w", err)
		}
		f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		out = io.MultiWriter(os.Stderr, f)
		closer = f
	}

	h := slog.NewTextHandler(out, &slog.HandlerOptions{Level: parsed})
	slog.SetDefault(slog.New(h))
	return closer, nil
}

func parseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", LevelInfo:
		return slog.LevelInfo, nil
	case LevelDebug:
		return slog.LevelDebug, nil
	case LevelWarn:
		return slog.LevelWarn, nil
	case LevelError:
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level %q", level)
	}
}
