package logger

import (
	"io"

	"go.uber.org/zap/zapcore"
)

type options struct {
	level   zapcore.Level
	format  string
	caller  bool
	writers []io.Writer
}

// Option configures a Logger created with New.
type Option func(*options)

// WithDebug lowers the level to debug.
func WithDebug(debug bool) Option {
	return func(o *options) {
		if debug {
			o.level = zapcore.DebugLevel
			return
		}
		o.level = zapcore.InfoLevel
	}
}

// WithFormat selects FormatConsole or FormatJSON. Unknown formats fall back
// to the console encoder.
func WithFormat(format string) Option {
	return func(o *options) {
		o.format = format
	}
}

// WithWriters replaces stdout with writers. Entries are written to each.
func WithWriters(writers ...io.Writer) Option {
	return func(o *options) {
		o.writers = writers
	}
}

// WithCaller toggles the file:line annotation.
func WithCaller(caller bool) Option {
	return func(o *options) {
		o.caller = caller
	}
}
