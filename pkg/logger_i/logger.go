package logger_i

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/akolanti/DocAssist/internal/config"
)

// Logger carries its attributes and resolves the process handler on every
// call, so loggers built before Init still follow the configured level.
type Logger struct {
	attrs []any
}

// Init installs the process-wide handler. level is one of debug, info, warn, error.
func Init(level string, asJSON bool) {
	initWith(os.Stdout, level, asJSON)
}

func initWith(w io.Writer, level string, asJSON bool) {
	options := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	var handler slog.Handler
	if asJSON {
		handler = slog.NewJSONHandler(w, options)
	} else {
		handler = slog.NewTextHandler(w, options)
	}
	slog.SetDefault(slog.New(handler))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "info":
		return slog.LevelInfo
	default:
		return config.LOG_LEVEL_PROD
	}
}

func NewLogger(section string) *Logger {
	return &Logger{attrs: []any{"component", section}}
}

func (l *Logger) current() *slog.Logger {
	return slog.Default().With(l.attrs...)
}

func (l *Logger) Info(msg string, args ...any) {
	l.current().Info(msg, args...)
}

func (l *Logger) Error(msg string, args ...any) {
	l.current().Error(msg, args...)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.current().Warn(msg, args...)
}

func (l *Logger) Debug(msg string, args ...any) {
	l.current().Debug(msg, args...)
}

func (l *Logger) With(args ...any) *Logger {
	attrs := make([]any, 0, len(l.attrs)+len(args))
	attrs = append(attrs, l.attrs...)
	return &Logger{attrs: append(attrs, args...)}
}

// WithTrace attaches the trace id carried by ctx, if any.
func (l *Logger) WithTrace(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}
	if trace, ok := ctx.Value(config.TRACE_ID_KEY).(string); ok && trace != "" {
		return l.With("traceId", trace)
	}
	return l
}
