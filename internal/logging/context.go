package logging

import (
	"context"
	"log/slog"

	"scriptflow/internal/services"
)

// Canonical field names shared across every component.
const (
	FieldComponent     = "component"
	FieldSessionID     = "session_id"
	FieldJob           = "job"
	FieldCorrelationID = "correlation_id"
)

// ContextFields extracts the identifiers stored on ctx as log attributes.
func ContextFields(ctx context.Context) []Attr {
	if ctx == nil {
		return nil
	}
	var attrs []Attr
	if id, ok := services.SessionIDFrom(ctx); ok {
		attrs = append(attrs, slog.Int64(FieldSessionID, id))
	}
	if job, ok := services.JobFrom(ctx); ok {
		attrs = append(attrs, slog.String(FieldJob, job))
	}
	if cid, ok := services.CorrelationIDFrom(ctx); ok {
		attrs = append(attrs, slog.String(FieldCorrelationID, cid))
	}
	return attrs
}

// WithContext returns logger enriched with the context's identifiers.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
