package log

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/YuminosukeSato/linreg/pkg/errors"
)

// Output formats accepted by SetupLogger. FormatCloud emits JSON lines in
// the Cloud Logging layout through log/slog.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
	FormatCloud   = "cloud"
)

// SetupLogger installs the process-wide default logger writing to stderr.
// Library warnings raised via errors.Warn are routed to the same logger.
func SetupLogger(loglevel, format string) error {
	return SetupLoggerTo(os.Stderr, loglevel, format)
}

// SetupLoggerTo is SetupLogger with an explicit destination.
func SetupLoggerTo(w io.Writer, loglevel, format string) error {
	level, err := ParseLevel(loglevel)
	if err != nil {
		return err
	}

	switch strings.ToLower(format) {
	case FormatJSON, "":
		setupZerolog(w, level, false)
	case FormatConsole:
		setupZerolog(w, level, true)
	case FormatCloud:
		setupSlog(w, level)
	default:
		return errors.NewInvalidConfigError("log_format", "must be json, console or cloud", format)
	}
	return nil
}

func setupZerolog(w io.Writer, level Level, console bool) {
	logger := NewZerologLogger(w, level, console)
	SetLogger(logger)
	errors.SetZerologWarnFunc(logger.warnFunc())
}

// SetupSlog configures the standard library slog default for Cloud Logging
// on stdout. Errors logged through it carry their cockroachdb stack trace as
// a separate attribute.
func SetupSlog(loglevel string) error {
	level, err := ParseLevel(loglevel)
	if err != nil {
		return err
	}
	setupSlog(os.Stdout, level)
	return nil
}

func setupSlog(w io.Writer, level Level) {
	ops := slog.HandlerOptions{
		AddSource: true,
		Level:     slog.Level(level),
		// Replace attributes to convert to CloudLogging format.
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.LevelKey:
				attr.Key = "severity"
			case slog.MessageKey:
				attr.Key = "message"
			case slog.SourceKey:
				attr.Key = "logging.googleapis.com/sourceLocation"
			}
			return attr
		},
	}
	sl := slog.New(WrapByErrFmtHandler(slog.NewJSONHandler(w, &ops)))
	slog.SetDefault(sl)
	SetLogger(NewSlogLogger(sl))
	errors.SetZerologWarnFunc(nil)
	errors.SetWarningHandler(func(warning error) {
		sl.Warn(warning.Error(), ErrAttr(warning))
	})
}

const (
	ErrAttrKey        = "error"
	StacktraceAttrKey = "stacktrace"
)

// ErrAttr is a wrapper to pass err to slog.
func ErrAttr(err error) slog.Attr {
	return slog.Any(ErrAttrKey, err)
}
