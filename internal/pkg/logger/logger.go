package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ServiceName tags every entry written by the application logger
const ServiceName = "communitylink"

// base backs the package level helpers used before and outside dependency wiring
var base zerolog.Logger

type LogLevel string

const (
	DebugLevel LogLevel = "debug"
	InfoLevel  LogLevel = "info"
	WarnLevel  LogLevel = "warn"
	ErrorLevel LogLevel = "error"
)

// Config selects level, encoding and destination of the logger
type Config struct {
	Level LogLevel
	// Pretty switches from JSON lines to the console writer
	Pretty  bool
	Output  io.Writer
	Service string
}

// FromSettings maps the logging section of the config file: format "text"
// selects the console writer, anything else JSON.
func FromSettings(level, format string) Config {
	return Config{
		Level:   LogLevel(strings.ToLower(strings.TrimSpace(level))),
		Pretty:  strings.EqualFold(strings.TrimSpace(format), "text"),
		Service: ServiceName,
	}
}

// level parses the name; unknown or empty names mean info
func (l LogLevel) level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(string(l))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// Configure installs the process logger, also as zerolog's global log.Logger, and returns it
func Configure(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(cfg.Level.level())

	lc := zerolog.New(out).With().Timestamp()
	if cfg.Service != "" {
		lc = lc.Str("service", cfg.Service)
	}
	base = lc.Logger()
	log.Logger = base
	return base
}

func Debug() *zerolog.Event { return base.Debug() }
func Info() *zerolog.Event  { return base.Info() }
func Warn() *zerolog.Event  { return base.Warn() }
func Error() *zerolog.Event { return base.Error() }

func init() {
	Configure(Config{Level: InfoLevel, Pretty: true})
}
