package services

import "context"

type contextKey int

const (
	sessionIDKey contextKey = iota
	jobKey
	correlationIDKey
)

// WithSessionID attaches the session being processed to ctx.
func WithSessionID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

// SessionIDFrom returns the session id stored on ctx, if any.
func SessionIDFrom(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(sessionIDKey).(int64)
	return id, ok
}

// WithJob attaches the running job name ("encoding", "script") to ctx.
func WithJob(ctx context.Context, job string) context.Context {
	return context.WithValue(ctx, jobKey, job)
}

// JobFrom returns the job name stored on ctx, if any.
func JobFrom(ctx context.Context) (string, bool) {
	job, ok := ctx.Value(jobKey).(string)
	return job, ok
}

// WithCorrelationID attaches a correlation id that follows one scheduler tick
// through every capability call it makes.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationIDFrom returns the correlation id stored on ctx, if any.
func CorrelationIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(correlationIDKey).(string)
	return id, ok
}
