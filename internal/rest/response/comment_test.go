package response

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Guyuepp/go-comment-service/domain"
)

func TestNewCommentFromDomain(t *testing.T) {
	parent := "1"
	at := time.Date(2024, 5, 1, 8, 30, 0, 123456789, time.FixedZone("CST", 8*3600))
	c := &domain.Comment{
		ID:           "2",
		PostID:       "p1",
		OwnerAddress: "0xabc",
		DisplayName:  "alice",
		Content:      "hello",
		ParentID:     &parent,
		CreatedAt:    at,
		UpdatedAt:    at,
	}

	data, err := json.Marshal(NewCommentFromDomain(c))
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"id": "2",
		"postId": "p1",
		"ownerAddress": "0xabc",
		"displayName": "alice",
		"content": "hello",
		"text": "hello",
		"parentId": "1",
		"likeCount": 0,
		"createdAt": "2024-05-01T00:30:00.123Z",
		"updatedAt": "2024-05-01T00:30:00.123Z"
	}`, string(data))
	assert.Nil(t, NewCommentFromDomain(nil))
}

func TestNewCommentTreeFromDomain_LeavesHaveEmptyReplies(t *testing.T) {
	tree := domain.CommentTree{
		Comments: []*domain.CommentNode{{
			Comment: domain.Comment{ID: "1", PostID: "p1"},
			Replies: []*domain.CommentNode{{Comment: domain.Comment{ID: "2", PostID: "p1"}}},
		}},
		TotalComments: 2,
	}

	data, err := json.Marshal(NewCommentTreeFromDomain(tree))
	require.NoError(t, err)

	var got struct {
		Comments []struct {
			ID      string `json:"id"`
			Replies []struct {
				ID      string            `json:"id"`
				Replies []json.RawMessage `json:"replies"`
			} `json:"replies"`
		} `json:"comments"`
		TotalComments int `json:"totalComments"`
	}
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got.Comments, 1)
	require.Len(t, got.Comments[0].Replies, 1)
	assert.Equal(t, "2", got.Comments[0].Replies[0].ID)
	assert.NotNil(t, got.Comments[0].Replies[0].Replies)
	assert.Equal(t, 2, got.TotalComments)
}

func TestNewEventFrame(t *testing.T) {
	c := &domain.Comment{ID: "7", PostID: "p1", Content: "hi"}

	created := NewEventFrame(domain.EventCommentCreated, c.ID, c.PostID, c)
	assert.Equal(t, "comment:created", created.Event)
	assert.IsType(t, &Comment{}, created.Data)

	deleted := NewEventFrame(domain.EventCommentDeleted, "7", "p1", nil)
	data, err := json.Marshal(deleted)
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"comment:deleted","data":{"id":"7","postId":"p1"}}`, string(data))
}
