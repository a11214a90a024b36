package logger

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Logger is a small slog wrapper that carries the package, file and function
// a message came from. Values are cheap to copy; every With-style method
// returns a new Logger.
type Logger struct {
	name     string
	file     string
	function string
}

var level = new(slog.LevelVar)

func init() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// Init installs the process-wide handler. Text output in development, JSON
// everywhere else.
func Init(environment, logLevel string) {
	level.Set(ParseLevel(logLevel))

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if environment == "development" || environment == "test" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func New(name string) Logger {
	return Logger{name: name}
}

func (l Logger) File(file string) Logger {
	l.file = file
	return l
}

func (l Logger) Function(function string) Logger {
	l.function = function
	return l
}

func (l Logger) attrs(args []any) []any {
	base := make([]any, 0, len(args)+6)
	base = append(base, "package", l.name)
	if l.file != "" {
		base = append(base, "file", l.file)
	}
	if l.function != "" {
		base = append(base, "function", l.function)
	}
	return append(base, args...)
}

func (l Logger) Debug(msg string, args ...any) {
	slog.Debug(msg, l.attrs(args)...)
}

func (l Logger) Info(msg string, args ...any) {
	slog.Info(msg, l.attrs(args)...)
}

func (l Logger) Warn(msg string, args ...any) {
	slog.Warn(msg, l.attrs(args)...)
}

// Er logs err without returning it.
func (l Logger) Er(msg string, err error, args ...any) {
	slog.Error(msg, l.attrs(append(args, "error", err))...)
}

// ErMsg logs msg at error level without returning anything.
func (l Logger) ErMsg(msg string, args ...any) {
	slog.Error(msg, l.attrs(args)...)
}

// Err logs err and returns it wrapped with msg, so errors.Is still matches
// the cause.
func (l Logger) Err(msg string, err error, args ...any) error {
	l.Er(msg, err, args...)
	if err == nil {
		return errors.New(msg)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Error logs msg with the given attributes and returns it as an error.
func (l Logger) Error(msg string, args ...any) error {
	l.ErMsg(msg, args...)
	return errors.New(msg)
}

func (l Logger) ErrMsg(msg string) error {
	l.ErMsg(msg)
	return errors.New(msg)
}
