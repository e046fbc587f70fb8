package logger_i

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/akolanti/MedIngest/internal/config"
)

// Logger resolves slog.Default on every call, so package-level loggers
// created before Init still pick up the configured handler.
type Logger struct {
	section string
	args    []any
}

// Init installs the process-wide handler. JSON output is used in production.
func Init(level slog.Level, jsonOutput bool) {
	InitWithWriter(os.Stdout, level, jsonOutput)
}

func InitWithWriter(w io.Writer, level slog.Level, jsonOutput bool) {
	options := &slog.HandlerOptions{
		Level:     level,
		AddSource: jsonOutput,
	}

	var handler slog.Handler
	if jsonOutput {
		handler = slog.NewJSONHandler(w, options)
	} else {
		handler = slog.NewTextHandler(w, options)
	}
	slog.SetDefault(slog.New(handler))
}

func NewLogger(section string) *Logger {
	return &Logger{section: section}
}

func (l *Logger) inner() *slog.Logger {
	return slog.Default().With("component", l.section).With(l.args...)
}

// TraceID returns the request trace id carried on ctx, or "" when absent.
func TraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(config.TRACE_ID_KEY).(string)
	return id
}

// WithTrace tags the logger with the trace id from ctx when there is one.
func (l *Logger) WithTrace(ctx context.Context) *Logger {
	id := TraceID(ctx)
	if id == "" {
		return l
	}
	return l.With(config.TRACE_ID_KEY, id)
}

func (l *Logger) Info(msg string, args ...any) {
	l.logWithSource(slog.LevelInfo, msg, args...)
}

func (l *Logger) Error(msg string, args ...any) {
	l.logWithSource(slog.LevelError, msg, args...)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.logWithSource(slog.LevelWarn, msg, args...)
}

func (l *Logger) Debug(msg string, args ...any) {
	l.logWithSource(slog.LevelDebug, msg, args...)
}

func (l *Logger) logWithSource(level slog.Level, msg string, args ...any) {
	ctx := context.Background()
	inner := l.inner()
	if !inner.Enabled(ctx, level) {
		return
	}
	var pcs [1]uintptr
	// skip runtime.Callers, logWithSource and the level wrapper so source points at the caller
	runtime.Callers(3, pcs[:])
	r := slog.NewRecord(time.Now(), level, msg, pcs[0])
	r.Add(args...)
	_ = inner.Handler().Handle(ctx, r)
}

func (l *Logger) With(args ...any) *Logger {
	combined := make([]any, 0, len(l.args)+len(args))
	combined = append(combined, l.args...)
	combined = append(combined, args...)
	return &Logger{section: l.section, args: combined}
}
