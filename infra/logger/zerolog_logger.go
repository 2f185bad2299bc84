package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ZerologLogger implements Logger using rs/zerolog.
type ZerologLogger struct {
	log zerolog.Logger
}

var (
	mu           sync.RWMutex
	defaultLevel = "info"
	forceConsole bool
)

// Configure sets the level and format used by loggers created afterwards.
// LOG_LEVEL and APP_ENV still take precedence when set.
func Configure(level string, console bool) {
	mu.Lock()
	defer mu.Unlock()
	if level != "" {
		defaultLevel = level
	}
	forceConsole = console
}

// NewZerologLogger creates a ZerologLogger writing to stdout. APP_ENV=dev
// selects the console format and LOG_LEVEL sets the minimum level. All logs
// include the provided component field.
func NewZerologLogger(component string) Logger {
	mu.RLock()
	level, console := defaultLevel, forceConsole
	mu.RUnlock()
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		level = env
	}
	var w io.Writer = os.Stdout
	if console || strings.ToLower(os.Getenv("APP_ENV")) == "dev" {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	return NewZerologLoggerWithWriter(component, w, level)
}

// NewZerologLoggerWithWriter builds a logger on w at the given level name.
// Unknown level names fall back to info.
func NewZerologLoggerWithWriter(component string, w io.Writer, level string) *ZerologLogger {
	z := zerolog.New(w).With().Timestamp().Str("component", component).Logger().Level(parseLevel(level))
	return &ZerologLogger{log: z}
}

func parseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func (l *ZerologLogger) Debugf(format string, args ...any) {
	l.log.Debug().Msgf(format, args...)
}

func (l *ZerologLogger) Debugw(msg string, fields map[string]any) {
	ev := l.log.Debug()
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}

func (l *ZerologLogger) Infof(format string, args ...any) {
	l.log.Info().Msgf(format, args...)
}

func (l *ZerologLogger) Warnf(format string, args ...any) {
	l.log.Warn().Msgf(format, args...)
}

func (l *ZerologLogger) Errorf(format string, args ...any) {
	l.log.Error().Msgf(format, args...)
}
