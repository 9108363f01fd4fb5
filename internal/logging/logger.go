package logging

import (
	"fmt"
	"io"
	"log"
	"sort"
	"strings"
)

// Fields is attached to a log line as key=value pairs (and as Rollbar custom data).
type Fields map[string]interface{}

// Logger is the logging surface used across the server.
// expected args: error, Fields, or any printable value.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// StdLogger writes through the standard log package.
type StdLogger struct {
	std   *log.Logger
	debug bool
}

var _ Logger = (*StdLogger)(nil)

func NewStdLogger(std *log.Logger, debug bool) *StdLogger {
	if std == nil {
		std = log.Default()
	}
	return &StdLogger{std: std, debug: debug}
}

// Discard drops everything; handy in tests.
func Discard() *StdLogger {
	return NewStdLogger(log.New(io.Discard, "", 0), false)
}

func (l *StdLogger) print(level, msg string, args []interface{}) {
	l.std.Printf("%s %s%s", level, msg, formatArgs(args))
}

func (l *StdLogger) Debug(msg string, args ...interface{}) {
	if l.debug {
		l.print("DEBUG", msg, args)
	}
}

func (l *StdLogger) Info(msg string, args ...interface{})  { l.print("INFO", msg, args) }
func (l *StdLogger) Warn(msg string, args ...interface{})  { l.print("WARN", msg, args) }
func (l *StdLogger) Error(msg string, args ...interface{}) { l.print("ERROR", msg, args) }

func formatArgs(args []interface{}) string {
	var b strings.Builder
	for _, arg := range args {
		switch v := arg.(type) {
		case Fields:
			keys := make([]string, 0, len(v))
			for k := range v {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(&b, " %s=%v", k, v[k])
			}
		case error:
			fmt.Fprintf(&b, " err=%q", v.Error())
		default:
			fmt.Fprintf(&b, " %+v", v)
		}
	}
	return b.String()
}
