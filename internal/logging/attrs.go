package logging

import (
	"context"
	"log/slog"
)

// Attr re-exports slog.Attr so callers can build structured fields without
// importing log/slog directly.
type Attr = slog.Attr

func String(key, value string) Attr      { return slog.String(key, value) }
func Int(key string, value int) Attr     { return slog.Int(key, value) }
func Int64(key string, v int64) Attr     { return slog.Int64(key, v) }
func Float64(key string, v float64) Attr { return slog.Float64(key, v) }
func Bool(key string, v bool) Attr       { return slog.Bool(key, v) }

// Error wraps an error as a structured attribute under the "error" key.
func Error(err error) Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Args converts a list of attributes to the variadic any form slog methods take.
func Args(attrs ...Attr) []any {
	out := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		if attr.Equal(slog.Attr{}) {
			continue
		}
		out = append(out, attr)
	}
	return out
}

// NewComponentLogger returns a child logger tagged with the component field and
// enriched with any identifiers carried by ctx.
func NewComponentLogger(ctx context.Context, base *slog.Logger, component string) *slog.Logger {
	return WithContext(ctx, base).With(slog.String(FieldComponent, component))
}

// NewNop returns a logger that discards everything.
func NewNop() *slog.Logger {
	return slog.New(NoopHandler{})
}

// NoopHandler drops all records.
type NoopHandler struct{}

func (NoopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (NoopHandler) Handle(context.Context, slog.Record) error { return nil }
func (NoopHandler) WithAttrs([]slog.Attr) slog.Handler        { return NoopHandler{} }
func (NoopHandler) WithGroup(string) slog.Handler             { return NoopHandler{} }
