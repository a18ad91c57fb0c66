// Package logger provides the structured logging surface used throughout
// this adapter: five severities (TRACE, DEBUG, INFO, WARNING, ERROR), text
// or JSON output, and optional on-disk rotation. It wraps log/slog with a
// custom handler rather than using slog's built-in levels directly, because
// TRACE sits below slog.LevelDebug and has no standard-library equivalent.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Severity levels, ordered finest to coarsest. These map onto slog.Level
// values spaced the same way slog's own Debug/Info/Warn/Error are, with
// Trace inserted one step below Debug.
const (
	LevelTrace   = slog.Level(-8)
	LevelDebug   = slog.LevelDebug
	LevelInfo    = slog.LevelInfo
	LevelWarning = slog.LevelWarn
	LevelError   = slog.LevelError
	// LevelOff sits above LevelError so that every severity is filtered out;
	// there is no standard-library equivalent to "do not log" either.
	LevelOff = slog.Level(16)
)

func severityName(l slog.Level) string {
	switch {
	case l < LevelDebug:
		return "TRACE"
	case l < LevelInfo:
		return "DEBUG"
	case l < LevelWarning:
		return "INFO"
	case l < LevelError:
		return "WARNING"
	case l < LevelOff:
		return "ERROR"
	default:
		return "OFF"
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return LevelTrace
	case "DEBUG":
		return LevelDebug
	case "WARNING", "WARN":
		return LevelWarning
	case "ERROR":
		return LevelError
	case "OFF":
		return LevelOff
	default:
		return LevelInfo
	}
}

// loggerFactory builds the slog.Handler used by the package-level logger,
// rebuilt whenever the format or output destination changes.
type loggerFactory struct {
	format string // "text" or "json"
	level  *slog.LevelVar
}

func (f *loggerFactory) createJsonOrTextHandler(w io.Writer, prefix string) slog.Handler {
	replace := func(groups []string, a slog.Attr) slog.Attr {
		switch a.Key {
		case slog.LevelKey:
			lvl := a.Value.Any().(slog.Level)
			a.Key = "severity"
			a.Value = slog.StringValue(severityName(lvl))
		case slog.MessageKey:
			a.Value = slog.StringValue(prefix + a.Value.String())
		case slog.TimeKey:
			if f.format == "text" {
				a.Value = slog.StringValue(a.Value.Time().Format("2006/01/02 15:04:05.000000"))
			}
		}
		return a
	}

	opts := &slog.HandlerOptions{Level: f.level, ReplaceAttr: replace}
	if f.format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

var (
	defaultLoggerFactory = &loggerFactory{format: "text", level: &slog.LevelVar{}}
	defaultLogger        = slog.New(defaultLoggerFactory.createJsonOrTextHandler(os.Stderr, ""))
)

func init() {
	if env := os.Getenv("JOPLINFS_LOG"); env != "" {
		defaultLoggerFactory.level.Set(parseLevel(env))
	}
}

// Options configures the package-level logger; call Init once at startup
// after flags have been parsed.
type Options struct {
	Level  string // "", TRACE, DEBUG, INFO, WARNING, ERROR
	Format string // "text" or "json"; defaults to "text"
	File   string // path to log to, with rotation; empty means stderr
}

// Init rebuilds the package-level logger per opts. Flag-supplied values
// override JOPLINFS_LOG when both are given.
func Init(opts Options) {
	if opts.Format != "" {
		defaultLoggerFactory.format = opts.Format
	}
	if opts.Level != "" {
		defaultLoggerFactory.level.Set(parseLevel(opts.Level))
	}

	var w io.Writer = os.Stderr
	if opts.File != "" {
		w = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    100, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}
	}

	defaultLogger = slog.New(defaultLoggerFactory.createJsonOrTextHandler(w, ""))
}

func log(level slog.Level, format string, v ...any) {
	if !defaultLogger.Enabled(context.Background(), level) {
		return
	}
	defaultLogger.Log(context.Background(), level, fmt.Sprintf(format, v...))
}

func Tracef(format string, v ...any) { log(LevelTrace, format, v...) }
func Debugf(format string, v ...any) { log(LevelDebug, format, v...) }
func Infof(format string, v ...any)  { log(LevelInfo, format, v...) }
func Warnf(format string, v ...any)  { log(LevelWarning, format, v...) }
func Errorf(format string, v ...any) { log(LevelError, format, v...) }

// Fatal logs at ERROR severity and exits the process with status 1. It is
// reserved for startup failures before the mount loop begins; once mounted,
// callbacks return errors rather than terminating the process.
func Fatal(format string, v ...any) {
	log(LevelError, format, v...)
	os.Exit(1)
}
