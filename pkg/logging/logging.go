// Package logging builds the process logger. Constructed once in main and
// injected; no package keeps an ambient logger.
package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

func New(level string, pretty bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	w := zerolog.New(os.Stdout)
	if pretty {
		w = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	return w.Level(lvl).With().Timestamp().Str("service", "chefscan-billing").Logger()
}
