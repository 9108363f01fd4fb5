package logging

import (
	"github.com/rollbar/rollbar-go"
)

// RollbarOptions configures the Rollbar notifier.
type RollbarOptions struct {
	Token   string
	Env     string
	Host    string
	Version string
}

// RollbarLogger reports warnings and errors to Rollbar and keeps printing
// every line locally.
type RollbarLogger struct {
	local Logger
}

var _ Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(local Logger, opts RollbarOptions) *RollbarLogger {
	rollbar.SetToken(opts.Token)
	rollbar.SetEnvironment(opts.Env)
	rollbar.SetServerHost(opts.Host)
	rollbar.SetCodeVersion(opts.Version)
	return &RollbarLogger{local: local}
}

// rollbar accepts a message, an error and a map of custom data.
func prepare(msg string, args []interface{}) []interface{} {
	out := make([]interface{}, 0, len(args)+1)
	out = append(out, msg)
	for _, arg := range args {
		switch v := arg.(type) {
		case Fields:
			out = append(out, map[string]interface{}(v))
		case error:
			out = append(out, v)
		}
	}
	return out
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) { l.local.Debug(msg, args...) }
func (l *RollbarLogger) Info(msg string, args ...interface{})  { l.local.Info(msg, args...) }

func (l *RollbarLogger) Warn(msg string, args ...interface{}) {
	rollbar.Warning(prepare(msg, args)...)
	l.local.Warn(msg, args...)
}

func (l *RollbarLogger) Error(msg string, args ...interface{}) {
	rollbar.Error(prepare(msg, args)...)
	l.local.Error(msg, args...)
}

// Close flushes queued items.
func (l *RollbarLogger) Close() {
	rollbar.Close()
}
