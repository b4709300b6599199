// Package logger wraps zerolog with request scoped fields carried in the
// context. Every entry names the service; entries logged under an active
// OpenTelemetry span also carry trace_id and span_id.
package logger

import (
	"context"
	"io"
	"os"
	"runtime/debug"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

type Options struct {
	ServiceName string
	Level       zerolog.Level
	// WarnStack attaches a stack trace to Warn entries as well as Error ones.
	WarnStack bool
	// Format is json or console. Empty falls back to LOG_FORMAT, then json.
	Format string
	Output io.Writer
}

type Logger struct {
	base      zerolog.Logger
	warnStack bool
}

type ctxKey struct{}

func New(opts Options) *Logger {
	if opts.Level == zerolog.NoLevel {
		opts.Level = zerolog.InfoLevel
	}
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if resolveFormat(opts.Format) == FormatConsole {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	base := zerolog.New(out).
		Level(opts.Level).
		With().
		Timestamp().
		Str("service", opts.ServiceName).
		Logger()
	return &Logger{base: base, warnStack: opts.WarnStack}
}

func resolveFormat(format string) string {
	format = strings.TrimSpace(format)
	if format == "" {
		format = strings.TrimSpace(os.Getenv("LOG_FORMAT"))
	}
	if strings.EqualFold(format, FormatConsole) {
		return FormatConsole
	}
	return FormatJSON
}

// ParseLevel maps a textual level onto zerolog, defaulting to info.
func ParseLevel(value string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(value)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// from returns the context scoped logger, or the base one. zerolog's level
// methods need a pointer, so the value is copied into a local first.
func (l *Logger) from(ctx context.Context) *zerolog.Logger {
	scoped := l.base
	if ctx != nil {
		if v, ok := ctx.Value(ctxKey{}).(zerolog.Logger); ok {
			scoped = v
		}
	}
	return &scoped
}

func (l *Logger) with(ctx context.Context, build func(zerolog.Context) zerolog.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey{}, build(l.from(ctx).With()).Logger())
}

func (l *Logger) WithField(ctx context.Context, key string, value any) context.Context {
	return l.with(ctx, func(c zerolog.Context) zerolog.Context {
		return c.Interface(key, value)
	})
}

// WithFields adds fields in key order so entries render deterministically.
func (l *Logger) WithFields(ctx context.Context, fields map[string]any) context.Context {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return l.with(ctx, func(c zerolog.Context) zerolog.Context {
		for _, k := range keys {
			c = c.Interface(k, fields[k])
		}
		return c
	})
}

func (l *Logger) WithRequestID(ctx context.Context, requestID string) context.Context {
	return l.WithField(ctx, "request_id", requestID)
}

func (l *Logger) WithUserID(ctx context.Context, userID string) context.Context {
	return l.WithField(ctx, "user_id", userID)
}

func (l *Logger) WithOrganizationID(ctx context.Context, orgID string) context.Context {
	return l.WithField(ctx, "organization_id", orgID)
}

func (l *Logger) WithActorRole(ctx context.Context, role string) context.Context {
	return l.WithField(ctx, "actor_role", role)
}

func (l *Logger) Debug(ctx context.Context, msg string) {
	l.emit(ctx, l.from(ctx).Debug(), false).Msg(msg)
}

func (l *Logger) Info(ctx context.Context, msg string) {
	l.emit(ctx, l.from(ctx).Info(), false).Msg(msg)
}

func (l *Logger) Warn(ctx context.Context, msg string) {
	l.emit(ctx, l.from(ctx).Warn(), l.warnStack).Msg(msg)
}

func (l *Logger) Error(ctx context.Context, msg string, err error) {
	event := l.emit(ctx, l.from(ctx).Error(), true)
	if err != nil {
		event = event.Err(err)
	}
	event.Msg(msg)
}

// emit decorates event with trace correlation and, optionally, a stack.
// Disabled levels return a nil event and skip the work.
func (l *Logger) emit(ctx context.Context, event *zerolog.Event, stack bool) *zerolog.Event {
	if event == nil {
		return nil
	}
	if ctx != nil {
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			event = event.Str("trace_id", sc.TraceID().String()).Str("span_id", sc.SpanID().String())
		}
	}
	if stack {
		event = event.Str("stack", strings.TrimSpace(string(debug.Stack())))
	}
	return event
}
