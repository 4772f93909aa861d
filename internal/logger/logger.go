package logger

import (
	"io"
	"log/slog"
	"os"
)

var ProgramLevel = new(slog.LevelVar)

// Kategorier som skiller gjenopprettbare hendelser fra hverandre i loggen.
const (
	CategoryProgress  = "progress"
	CategoryRateLimit = "rate_limit"
	CategoryNetwork   = "network"
	CategoryAPI       = "api"
)

// SetupLogger initialiserer loggeren med JSON-format og standard nivå.
func SetupLogger() {
	SetupLoggerWithWriter(os.Stdout)
}

func SetupLoggerWithWriter(w io.Writer) {
	ProgramLevel.Set(slog.LevelInfo)

	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     ProgramLevel,
		AddSource: false,
	}))
	slog.SetDefault(logger)
}

// SetDebug setter loggnivået til Debug hvis debug er true.
func SetDebug(debug bool) {
	if debug {
		ProgramLevel.Set(slog.LevelDebug)
	}
}

// Category er markøren som legges på hver gjenopprettbar hendelse.
func Category(name string) slog.Attr {
	return slog.String("category", name)
}
