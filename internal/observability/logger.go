package observability

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/couchcryptid/geomag-sv-etl/internal/config"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger builds the service logger from LOG_LEVEL, LOG_FORMAT and LOG_FILE
// and installs it as the slog default. With LOG_FILE set, records go to
// stdout and to a size-rotated file.
func NewLogger(cfg *config.Config) *slog.Logger {
	if cfg.LogFile == "" {
		return sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	out := io.MultiWriter(os.Stdout, &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    100, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	})
	logger := slog.New(newHandler(out, cfg.LogLevel, cfg.LogFormat))
	slog.SetDefault(logger)
	return logger
}

func newHandler(w io.Writer, level, format string) slog.Handler {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "text") {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}
