package redis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Guyuepp/go-comment-service/domain"
)

func TestEventPublisher_Publish(t *testing.T) {
	db, mock := redismock.NewClientMock()
	p := NewEventPublisher(db, "")

	ev := domain.CommentEvent{
		Name:       domain.EventCommentDeleted,
		CommentID:  "7",
		PostID:     "p1",
		OccurredAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	payload, err := json.Marshal(NewEventMessage(ev))
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"comment:deleted","postId":"p1","id":"7","occurredAt":"2024-01-01T00:00:00Z"}`, string(payload))

	mock.ExpectPublish(DefaultEventChannel, payload).SetVal(2)
	require.NoError(t, p.Publish(context.Background(), ev))

	mock.ExpectPublish(DefaultEventChannel, payload).SetErr(errors.New("READONLY"))
	assert.Error(t, p.Publish(context.Background(), ev))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewEventMessage_CarriesCreatedComment(t *testing.T) {
	c := &domain.Comment{ID: "9", PostID: "p1", Content: "hi"}
	em := NewEventMessage(domain.CommentEvent{
		Name:      domain.EventCommentCreated,
		CommentID: c.ID,
		PostID:    c.PostID,
		Comment:   c,
	})

	assert.Equal(t, domain.EventCommentCreated, em.Event)
	assert.Equal(t, "9", em.CommentID)
	require.NotNil(t, em.Comment)
	assert.Equal(t, "hi", em.Comment.Content)
}
