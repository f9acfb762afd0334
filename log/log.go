// Package log is a thin leveled logging layer over zerolog, keeping
// the call sites free of a concrete logging dependency.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

var logger zerolog.Logger

// Log level names accepted by Init.
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

var currentLevel string

// panicOnInvalidChars makes every log call scan its message for
// invalid UTF-8, to catch raw bytes being logged without an encoding.
// It is expensive, so it is only honored when the LOG_PANIC_ON_INVALIDCHARS
// environment variable is "true".
var panicOnInvalidChars = os.Getenv("LOG_PANIC_ON_INVALIDCHARS") == "true"

// logTestWriterName, when passed to Init as the output, selects
// logTestWriter. Only meant for test and benchmark use.
const logTestWriterName = "_testWriter"

var logTestWriter io.Writer = io.Discard

func init() {
	Init("info", "stderr", nil)
}

// Init initializes the global logger at the given level, writing to
// the named output: "stdout", "stderr", or a file path. If errorOutput
// is not nil, a duplicate stream of the error-and-above entries is
// written to it as well.
func Init(level, output string, errorOutput io.Writer) {
	var out io.Writer
	switch output {
	case "stdout":
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339Nano}
	case "stderr":
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339Nano}
	case logTestWriterName:
		out = zerolog.ConsoleWriter{Out: logTestWriter, TimeFormat: time.RFC3339Nano}
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			panic(fmt.Sprintf("cannot create log output %q: %v", output, err))
		}
		out = f
	}
	if errorOutput != nil {
		out = zerolog.MultiLevelWriter(out, errorWriter{errorOutput})
	}
	currentLevel = level
	logger = zerolog.New(out).With().Timestamp().Caller().Logger().Level(parseLevel(level))
}

// Level returns the level name the logger was initialized with.
func Level() string { return currentLevel }

// Logger returns the underlying zerolog logger, for the rare caller
// that needs structured context beyond the package-level helpers.
func Logger() *zerolog.Logger { return &logger }

// errorWriter forwards only error-and-above entries.
type errorWriter struct {
	w io.Writer
}

func (e errorWriter) Write(p []byte) (int, error) { return len(p), nil }

func (e errorWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < zerolog.ErrorLevel {
		return len(p), nil
	}
	return e.w.Write(p)
}

func parseLevel(s string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil {
		panic(fmt.Sprintf("invalid log level %q: %v", s, err))
	}
	return level
}

func checkInvalidChars(msg string) {
	if panicOnInvalidChars && strings.ContainsRune(msg, utf8.RuneError) {
		panic(fmt.Sprintf("log message contains invalid UTF-8: %q", msg))
	}
}

func send(ev *zerolog.Event, args ...any) {
	msg := fmt.Sprint(args...)
	checkInvalidChars(msg)
	ev.CallerSkipFrame(2).Msg(msg)
}

func sendf(ev *zerolog.Event, template string, args ...any) {
	msg := fmt.Sprintf(template, args...)
	checkInvalidChars(msg)
	ev.CallerSkipFrame(2).Msg(msg)
}

func sendw(ev *zerolog.Event, msg string, keysAndValues []any) {
	checkInvalidChars(msg)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}
		ev = ev.Interface(key, keysAndValues[i+1])
	}
	ev.CallerSkipFrame(2).Msg(msg)
}

func Debug(args ...any) { send(logger.Debug(), args...) }
func Info(args ...any)  { send(logger.Info(), args...) }
func Warn(args ...any)  { send(logger.Warn(), args...) }
func Error(args ...any) { send(logger.Error(), args...) }
func Fatal(args ...any) { send(logger.Fatal(), args...) }

func Debugf(template string, args ...any) { sendf(logger.Debug(), template, args...) }
func Infof(template string, args ...any)  { sendf(logger.Info(), template, args...) }
func Warnf(template string, args ...any)  { sendf(logger.Warn(), template, args...) }
func Errorf(template string, args ...any) { sendf(logger.Error(), template, args...) }
func Fatalf(template string, args ...any) { sendf(logger.Fatal(), template, args...) }

func Debugw(msg string, keysAndValues ...any) { sendw(logger.Debug(), msg, keysAndValues) }
func Infow(msg string, keysAndValues ...any)  { sendw(logger.Info(), msg, keysAndValues) }
func Warnw(msg string, keysAndValues ...any)  { sendw(logger.Warn(), msg, keysAndValues) }

// Errorw logs an error with a human message, keeping the error as a
// structured field.
func Errorw(err error, msg string) {
	ev := logger.Error().Err(err)
	checkInvalidChars(msg)
	ev.CallerSkipFrame(1).Msg(msg)
}
