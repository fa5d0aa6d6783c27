package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Setup builds the process-wide zerolog logger.
//   - level: trace, debug, info, warn, error, fatal or panic; anything
//     unparseable falls back to info
//   - format: "pretty" for human-readable dev output, anything else emits
//     JSON lines
//
// Every entry carries a service field so the proctoring backend stays
// identifiable once its logs are shipped alongside other services'.
func Setup(level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	var writer io.Writer = os.Stdout
	if format == "pretty" {
		writer = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	}

	return zerolog.New(writer).
		With().
		Timestamp().
		Caller().
		Str("service", "invigil").
		Logger()
}
