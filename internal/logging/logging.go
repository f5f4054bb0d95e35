// Package logging builds the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"llmapi/internal/config"
)

// New returns a logger writing to w at the given level. The detailed format
// is a human-readable console writer; json emits one object per line.
func New(level, format string, w io.Writer) (zerolog.Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	norm, err := config.NormalizeLogLevel(level)
	if err != nil {
		return zerolog.Nop(), err
	}
	lvl, _ := zerolog.ParseLevel(norm)
	if format != config.LogFormatJSON {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

// FromSettings builds the logger described by s. Debug mode lowers the level
// to debug unless a more verbose level was configured.
func FromSettings(s config.Settings, w io.Writer) (zerolog.Logger, error) {
	level := s.LogLevel
	if s.APIDebug {
		if lvl, err := zerolog.ParseLevel(level); err == nil && lvl > zerolog.DebugLevel {
			level = zerolog.DebugLevel.String()
		}
	}
	l, err := New(level, s.LogFormat, w)
	if err != nil {
		return l, err
	}
	return l.With().Str("env", s.Environment).Logger(), nil
}
