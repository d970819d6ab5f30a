package social

import (
	"context"
	"time"

	"github.com/goliatone/go-print"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventSessionResolved  ActivityEventType = "session.resolved"
	ActivityEventSessionRevoked   ActivityEventType = "session.revoked"
	ActivityEventProfileCreated   ActivityEventType = "profile.created"
	ActivityEventProfileUpdated   ActivityEventType = "profile.updated"
	ActivityEventProfileDeleted   ActivityEventType = "profile.deleted"
	ActivityEventFollowToggled    ActivityEventType = "follow.toggled"
	ActivityEventWarningIssued    ActivityEventType = "moderation.warning"
	ActivityEventAccountBanned    ActivityEventType = "moderation.account.banned"
	ActivityEventAccountUnbanned  ActivityEventType = "moderation.account.unbanned"
	ActivityEventContentBanned    ActivityEventType = "moderation.content.banned"
	ActivityEventContentUnbanned  ActivityEventType = "moderation.content.unbanned"
	ActivityEventContentDeleted   ActivityEventType = "moderation.content.deleted"
)

// ActorRef identifies who/what triggered an action.
type ActorRef struct {
	ID   string
	Type string
}

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	Actor      ActorRef
	ProfileID  string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
// Sinks run best-effort: errors are logged, never propagated.
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

func recordActivity(ctx context.Context, sink ActivitySink, logger Logger, event ActivityEvent) {
	if event.Actor == (ActorRef{}) {
		event.Actor = ActorRef{Type: "system"}
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	if err := normalizeActivitySink(sink).Record(ctx, event); err != nil {
		normalizeLogger(logger).Warn("activity sink record error: %v %s",
			err,
			print.MaybePrettyJSON(event.Metadata),
		)
	}
}
