package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var (
	// Logger is the global logger instance. It discards everything until Init is called.
	Logger = zerolog.Nop()
)

// Level represents log level
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// ParseLevel validates a configured level name
func ParseLevel(s string) (Level, error) {
	switch Level(strings.ToLower(s)) {
	case "":
		return InfoLevel, nil
	case DebugLevel, InfoLevel, WarnLevel, ErrorLevel:
		return Level(strings.ToLower(s)), nil
	default:
		return "", fmt.Errorf("unknown log level %q", s)
	}
}

// Config holds logging configuration
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// Init initializes the global logger
func Init(cfg Config) {
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case InfoLevel:
		level = zerolog.InfoLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	if cfg.JSONOutput {
		Logger = zerolog.New(output).With().Timestamp().Logger()
	} else {
		Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	}
}

// WithComponent creates a child logger with component field
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithPassID creates a child logger with pass_id field
func WithPassID(logger zerolog.Logger, passID string) zerolog.Logger {
	return logger.With().Str("pass_id", passID).Logger()
}

// WithRecord creates a child logger describing a DNS record
func WithRecord(logger zerolog.Logger, recordID, fqdn string) zerolog.Logger {
	return logger.With().Str("record_id", recordID).Str("record", fqdn).Logger()
}

// WithNode creates a child logger with the probed node address
func WithNode(logger zerolog.Logger, address string, port int) zerolog.Logger {
	return logger.With().Str("node", fmt.Sprintf("%s:%d", address, port)).Logger()
}

// Helper functions for common logging patterns
func Info(msg string) {
	Logger.Info().Msg(msg)
}

func Debug(msg string) {
	Logger.Debug().Msg(msg)
}

func Warn(msg string) {
	Logger.Warn().Msg(msg)
}

func Error(msg string) {
	Logger.Error().Msg(msg)
}

func Errorf(format string, err error) {
	Logger.Error().Err(err).Msg(format)
}

func Fatal(msg string) {
	Logger.Fatal().Msg(msg)
}
