package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"programfinder/internal/config"
	"programfinder/internal/logsink"
)

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q: %w", s, err)
	}
	return level, nil
}

func newHandler(format string, w io.Writer, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "text") {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

// setupLogging installs the default logger: stdout plus, when configured, the append blob sink
// and the OTLP bridge. The returned func flushes the sink.
func setupLogging(ctx context.Context, cfg *config.Config, otlp slog.Handler) (func(), error) {
	level, err := parseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}

	handlers := logsink.Fanout{newHandler(cfg.Logging.Format, os.Stdout, level)}
	if otlp != nil {
		handlers = append(handlers, otlp)
	}

	closeFn := func() {}
	if cfg.LogSink.Enabled() {
		sink, err := logsink.New(ctx, cfg.LogSink, level)
		if err != nil {
			return nil, fmt.Errorf("failed to create log sink: %w", err)
		}
		handlers = append(handlers, sink)
		closeFn = func() {
			if err := sink.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "failed to flush log sink: %v\n", err)
			}
		}
	}

	if len(handlers) == 1 {
		slog.SetDefault(slog.New(handlers[0]))
	} else {
		slog.SetDefault(slog.New(handlers))
	}
	return closeFn, nil
}
