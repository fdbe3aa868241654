package domain

import (
	"context"
	"time"
)

type EventName string

const (
	EventCommentCreated EventName = "comment:created"
	EventCommentDeleted EventName = "comment:deleted"
)

// CommentEvent is a real-time notification about a comment mutation.
// Comment is set for created events; deleted events only carry ids.
type CommentEvent struct {
	Name       EventName
	CommentID  string
	PostID     string
	Comment    *Comment
	OccurredAt time.Time
}

// EventNotifier receives comment events. Notify must not block and never
// reports failure to the caller.
type EventNotifier interface {
	Notify(ev CommentEvent)
}

// EventSink delivers events to the push transport
type EventSink interface {
	Publish(ctx context.Context, ev CommentEvent) error
}

type EventDispatchWorker interface {
	EventNotifier
	Start(ctx context.Context)
}
