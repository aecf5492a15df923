package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New returns the process logger tagged with component ("api",
// "orchestrator", "userplan"). ENV=development switches to console output at
// debug level; LOG_LEVEL overrides the level in any environment.
func New(component string) zerolog.Logger {
	return build(os.Stderr, component, os.Getenv("ENV"), os.Getenv("LOG_LEVEL"))
}

func build(out io.Writer, component, env, level string) zerolog.Logger {
	// For Google Cloud Logging, the level field name should be "severity".
	zerolog.LevelFieldName = "severity"
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	lvl := zerolog.InfoLevel
	if env == "development" {
		out = zerolog.ConsoleWriter{Out: out}
		lvl = zerolog.DebugLevel
	}
	if parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level))); err == nil && level != "" {
		lvl = parsed
	}

	return zerolog.New(out).Level(lvl).With().
		Timestamp().
		Str("component", component).
		Logger()
}
