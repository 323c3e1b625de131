// Package log wires Go's log/slog into the conformal pipeline: JSON output
// on stderr (stdout is reserved for result tables), stacktrace extraction
// for cockroachdb/errors values, and standard attribute keys for the
// pipeline stages.
package log

import (
	"log/slog"
	"os"

	"github.com/YuminosukeSato/conformal/pkg/errors"
)

// SetupLogger installs the default slog logger for the pipeline. Logs are
// emitted as JSON on stderr so that result tables can go to stdout.
// It also routes library warnings (pkg/errors.Warn) through slog.
func SetupLogger(loglevel string) {
	ops := slog.HandlerOptions{
		AddSource: true,
		Level:     ToLogLevel(loglevel),
	}
	handler := slog.NewJSONHandler(os.Stderr, &ops)
	slog.SetDefault(slog.New(WrapByErrFmtHandler(handler)))

	errors.SetWarningHandler(func(w error) {
		slog.Warn(w.Error(), slog.String("warning", "true"))
	})
}

// ToLogLevel maps a level name to a slog.Level. Unknown names fall back to
// info rather than failing startup.
func ToLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

const (
	ErrAttrKey        = "error"
	StacktraceAttrKey = "stacktrace"
)

// ErrAttr is a wrapper to pass err to slog.
func ErrAttr(err error) slog.Attr {
	return slog.Any(ErrAttrKey, err)
}
