package auth

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventLoginSuccess              ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure              ActivityEventType = "auth.login.failure"
	ActivityEventImpersonationStart        ActivityEventType = "auth.impersonation.start"
	ActivityEventImpersonationStartFailure ActivityEventType = "auth.impersonation.start.failure"
	ActivityEventImpersonationStop         ActivityEventType = "auth.impersonation.stop"
	ActivityEventImpersonationStopFailure  ActivityEventType = "auth.impersonation.stop.failure"
	ActivityEventSecretRotation            ActivityEventType = "auth.secret.rotation"
)

// ActorRef identifies who/what triggered an event.
type ActorRef struct {
	ID   string
	Type string
}

// ActivityEvent captures audit-friendly information about an action. It is
// transport-agnostic telemetry; the durable impersonation trail lives in
// the Impersonations store.
type ActivityEvent struct {
	EventType  ActivityEventType
	Actor      ActorRef
	UserID     string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}
