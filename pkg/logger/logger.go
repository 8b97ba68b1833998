// Package logger provides opinionated logging capabilities for the nook system
package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log encoders accepted by WithFormat and the log.format config key.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// NewLoggerWithFormat returns a stdout logger using the named encoder.
func NewLoggerWithFormat(debug bool, format string) *zap.Logger {
	return New(WithDebug(debug), WithFormat(format))
}

// New builds a logger from opts. Without options it logs info and above to
// stdout through a colored console encoder with caller information.
func New(opts ...Option) *zap.Logger {
	o := &options{
		level:  zapcore.InfoLevel,
		format: FormatConsole,
		caller: true,
	}
	for _, opt := range opts {
		opt(o)
	}

	writers := o.writers
	if len(writers) == 0 {
		writers = []io.Writer{os.Stdout}
	}
	syncers := make([]zapcore.WriteSyncer, len(writers))
	for i, w := range writers {
		syncers[i] = zapcore.AddSync(w)
	}

	core := zapcore.NewCore(newEncoder(o.format), zapcore.NewMultiWriteSyncer(syncers...), o.level)

	if o.caller {
		return zap.New(core, zap.AddCaller())
	}
	return zap.New(core)
}

func newEncoder(format string) zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "time"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder

	if format == FormatJSON {
		ec.EncodeLevel = zapcore.LowercaseLevelEncoder
		return zapcore.NewJSONEncoder(ec)
	}

	ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return zapcore.NewConsoleEncoder(ec)
}
