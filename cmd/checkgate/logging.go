package main

import (
	"fmt"
	"io"
	"time"

	"github.com/jwalton/go-supportscolor"
	"github.com/rs/zerolog"
)

// newLogger builds the logger from --log-level and --log-format.
func newLogger(w io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid --log-level: %w", err)
	}

	var out io.Writer
	switch logFormat {
	case "json":
		out = w
	case "console", "":
		out = zerolog.ConsoleWriter{
			Out:        w,
			NoColor:    !supportscolor.Stderr().SupportsColor,
			TimeFormat: time.TimeOnly,
		}
	default:
		return zerolog.Nop(), fmt.Errorf("invalid --log-format %q, expected console or json", logFormat)
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger(), nil
}
