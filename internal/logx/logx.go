package logx

import (
	"context"

	"pkt.systems/pslog"
	"pkt.systems/termmux/schema"
)

type contextKey int

const sessionKey contextKey = iota

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	return pslog.Ctx(ctx)
}

// WithSession annotates the logger with a session id when available.
func WithSession(log pslog.Logger, id schema.SessionID) pslog.Logger {
	if id != "" {
		log = log.With("session", id)
	}
	return log
}

// WithBackend annotates the logger with the backend flavor.
func WithBackend(log pslog.Logger, bt schema.BackendType) pslog.Logger {
	if bt != "" {
		log = log.With("backend", bt)
	}
	return log
}

// CtxSession returns the context logger annotated with the session id,
// skipping the annotation when the context already carries the same marker.
func CtxSession(ctx context.Context, id schema.SessionID) pslog.Logger {
	log := pslog.Ctx(ctx)
	if id != "" {
		if current, ok := ctx.Value(sessionKey).(schema.SessionID); ok && current == id {
			return log
		}
		log = log.With("session", id)
	}
	return log
}

// ContextWithSession stores the session marker on the context for log
// de-duplication.
func ContextWithSession(ctx context.Context, id schema.SessionID) context.Context {
	if ctx == nil || id == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionKey, id)
}

// ContextWithSessionLogger attaches the logger and session marker to the
// context.
func ContextWithSessionLogger(ctx context.Context, log pslog.Logger, id schema.SessionID) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithSession(ctx, id)
}
