package logging

import (
	"log/slog"
	"os"
	"strings"
)

// NewJSONLogger builds the process-wide logger: one JSON object per line
// on stdout, tagged with the emitting service so both binaries feed the
// same log pipeline.
func NewJSONLogger(service, level string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: levelFromString(level),
	})
	return slog.New(handler).With(slog.String("service", service))
}

// levelFromString maps a config value onto a slog level. Unknown values
// fall back to info rather than failing startup.
func levelFromString(raw string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(raw))); err != nil {
		return slog.LevelInfo
	}
	return level
}
