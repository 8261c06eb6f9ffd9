package notify

import (
	"context"
	"log/slog"
)

// LogSink is a Haptic and Audio implementation that logs instead of
// buzzing. The CLI uses it so demo runs show what a device would do.
type LogSink struct {
	logger *slog.Logger
}

// Compile-time interface checks.
var (
	_ Haptic = (*LogSink)(nil)
	_ Audio  = (*LogSink)(nil)
)

// NewLogSink creates a sink logging at Info level.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Pulse(_ context.Context, pattern Pattern) error {
	s.logger.Info("haptic pulse", slog.String("pattern", string(pattern)))
	return nil
}

func (s *LogSink) Play(_ context.Context, cue Cue) error {
	s.logger.Info("audio cue", slog.String("cue", string(cue)))
	return nil
}
