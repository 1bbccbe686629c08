package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"quicdemo/internal/config"
)

// Runtime owns the process logger and, when logging to a file, its handle.
type Runtime struct {
	logger   *slog.Logger
	levelVar slog.LevelVar
	closer   io.Closer
}

func NewRuntime(cfg config.LoggingConfig) (*Runtime, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	r := &Runtime{}
	r.levelVar.Set(level)

	out, closer, err := openOutput(cfg.Output)
	if err != nil {
		return nil, err
	}
	r.closer = closer

	hopts := &slog.HandlerOptions{Level: &r.levelVar, AddSource: cfg.AddSource}
	var h slog.Handler
	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "text":
		h = slog.NewTextHandler(out, hopts)
	case "json", "":
		h = slog.NewJSONHandler(out, hopts)
	default:
		_ = r.Close()
		return nil, fmt.Errorf("logging: unknown format %q", cfg.Format)
	}

	r.logger = slog.New(h).With(slog.String("app", "quicdemo"))
	return r, nil
}

func (r *Runtime) Logger() *slog.Logger {
	if r == nil || r.logger == nil {
		return slog.Default()
	}
	return r.logger
}

// SetLevel changes the minimum level of the runtime's logger.
func (r *Runtime) SetLevel(level string) error {
	lvl, err := parseLevel(level)
	if err != nil {
		return err
	}
	r.levelVar.Set(lvl)
	return nil
}

func (r *Runtime) Close() error {
	if r == nil || r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("logging: unknown level %q", s)
	}
}

func openOutput(output string) (io.Writer, io.Closer, error) {
	o := strings.TrimSpace(output)
	switch strings.ToLower(o) {
	case "stderr", "":
		return os.Stderr, nil, nil
	case "stdout":
		return os.Stdout, nil, nil
	case "discard", "none", "null":
		return io.Discard, nil, nil
	}
	path := filepath.Clean(o)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("logging: open %s: %w", path, err)
	}
	return f, f, nil
}
