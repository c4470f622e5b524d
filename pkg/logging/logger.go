package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"skylinedb/pkg/config"
)

// CLILogger writes human readable lines to stdout.
func CLILogger() zerolog.Logger {
	return consoleLogger(os.Stdout)
}

// DaemonLogger writes JSON lines unless dev is set.
func DaemonLogger(dev bool) zerolog.Logger {
	return daemonLogger(os.Stdout, dev)
}

func daemonLogger(out io.Writer, dev bool) zerolog.Logger {
	if dev {
		return consoleLogger(out)
	}
	return zerolog.New(out).With().Timestamp().Logger()
}

// New builds the serve-path logger described by cfg.
func New(cfg config.LogConfig) zerolog.Logger {
	l := DaemonLogger(cfg.Console)
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return l.Level(level)
}

// Component tags l with the emitting component.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}

func consoleLogger(out io.Writer) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{
		Out:     out,
		NoColor: false,
	}).With().Timestamp().Logger()
}
