// Package bridgelog centralizes zerolog construction and adapts it to the
// small Logger interfaces used by background components (heartbeat, cron).
package bridgelog

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds the process-wide logger. All output goes to stderr so stdout
// stays a pure JSON-RPC stream for the assistant transport.
func New(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	var w io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// Leveled is the small structured-logging seam shared by background loops
// (the heartbeat supervisor) that don't want a hard
// dependency on zerolog's fluent API.
type Leveled interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)
}

// Adapter bridges a zerolog.Logger onto Leveled, following the shape of the
// teacher's cron-logger adapter: a single map argument becomes structured
// fields, anything else is ignored.
type Adapter struct {
	Log zerolog.Logger
}

var _ Leveled = Adapter{}

func (a Adapter) Debug(msg string, fields ...any) { a.emit("debug", msg, fields...) }
func (a Adapter) Info(msg string, fields ...any)  { a.emit("info", msg, fields...) }
func (a Adapter) Warn(msg string, fields ...any)  { a.emit("warn", msg, fields...) }
func (a Adapter) Error(msg string, fields ...any) { a.emit("error", msg, fields...) }

func (a Adapter) emit(level, msg string, fields ...any) {
	logger := a.Log
	if len(fields) == 1 {
		if m, ok := fields[0].(map[string]any); ok {
			logger = logger.With().Fields(m).Logger()
		}
	}
	switch level {
	case "debug":
		logger.Debug().Msg(msg)
	case "info":
		logger.Info().Msg(msg)
	case "warn":
		logger.Warn().Msg(msg)
	case "error":
		logger.Error().Msg(msg)
	}
}
