// Package logging builds the zerolog logger shared by the jobcarbon commands.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// EnvLevel overrides the default level when no level flag is given.
const EnvLevel = "JOBCARBON_LOG_LEVEL"

// DefaultLevel is used when neither the flag nor EnvLevel is set.
const DefaultLevel = "warn"

// New returns a logger writing human-readable lines to w. Every entry
// carries the component name and a run_id unique to this process. Colour
// is used only when w is a terminal.
func New(component, level string, w io.Writer) (zerolog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), err
	}

	cw := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.TimeOnly,
		NoColor:    !isTerminal(w),
	}
	return zerolog.New(cw).
		Level(lvl).
		With().
		Timestamp().
		Str("component", component).
		Str("run_id", uuid.NewString()).
		Logger(), nil
}

// ParseLevel resolves a level name. An empty name falls back to EnvLevel
// and then DefaultLevel.
func ParseLevel(level string) (zerolog.Level, error) {
	if level == "" {
		level = os.Getenv(EnvLevel)
	}
	if level == "" {
		level = DefaultLevel
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return lvl, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd())
}
