package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the global logger. It discards everything until Init is called,
// so library use stays silent.
var Logger = zerolog.Nop()

// Level represents log level
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

var levels = map[Level]zerolog.Level{
	DebugLevel: zerolog.DebugLevel,
	InfoLevel:  zerolog.InfoLevel,
	WarnLevel:  zerolog.WarnLevel,
	ErrorLevel: zerolog.ErrorLevel,
}

// Config holds logging configuration
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer // defaults to stderr; stdout carries command output
}

// Init initializes the global logger
func Init(cfg Config) {
	level, ok := levels[cfg.Level]
	if !ok {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	if cfg.JSONOutput {
		Logger = zerolog.New(output).With().Timestamp().Str("app", "timeclock").Logger()
		return
	}
	Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        output,
		TimeFormat: time.Kitchen,
	}).With().Timestamp().Logger()
}

// ParseLevel maps a config string onto a Level, defaulting to info
func ParseLevel(s string) Level {
	if _, ok := levels[Level(s)]; ok {
		return Level(s)
	}
	return InfoLevel
}

// WithComponent creates a child logger with component field
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithUserID creates a child logger with user_id field
func WithUserID(userID string) zerolog.Logger {
	return Logger.With().Str("user_id", userID).Logger()
}

// WithSessionID creates a child logger with session_id field
func WithSessionID(sessionID string) zerolog.Logger {
	return Logger.With().Str("session_id", sessionID).Logger()
}

// WithAttemptID creates a child logger with attempt_id field
func WithAttemptID(attemptID string) zerolog.Logger {
	return Logger.With().Str("attempt_id", attemptID).Logger()
}

// WithRequestID creates a child logger for one API call, tagged with the
// X-Request-ID sent to the service
func WithRequestID(requestID string) zerolog.Logger {
	return Logger.With().Str("component", "client").Str("request_id", requestID).Logger()
}
