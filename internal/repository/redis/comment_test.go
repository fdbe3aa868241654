package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Guyuepp/go-comment-service/domain"
	"github.com/Guyuepp/go-comment-service/internal/repository/cache"
)

func sampleTree() []*domain.CommentNode {
	parent := "1"
	return []*domain.CommentNode{
		{
			Comment: domain.Comment{ID: "1", PostID: "p1", OwnerAddress: "0xabc", Content: "root"},
			Replies: []*domain.CommentNode{
				{Comment: domain.Comment{ID: "2", PostID: "p1", OwnerAddress: "0xdef", Content: "reply", ParentID: &parent}},
			},
		},
	}
}

func TestCommentCache_GetTreeMiss(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewCommentCache(db)

	mock.ExpectGet(fmt.Sprintf(KeyCommentTree, "p1")).RedisNil()

	_, _, err := c.GetTree(context.Background(), "p1")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommentCache_GetTreeHit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewCommentCache(db)

	fresh, _, err := cache.Encode(sampleTree(), time.Minute)
	require.NoError(t, err)
	stale, _, err := cache.Encode(sampleTree(), -time.Minute)
	require.NoError(t, err)

	key := fmt.Sprintf(KeyCommentTree, "p1")
	mock.ExpectGet(key).SetVal(string(fresh))
	mock.ExpectGet(key).SetVal(string(stale))

	tree, expired, err := c.GetTree(context.Background(), "p1")
	require.NoError(t, err)
	assert.False(t, expired)
	require.Len(t, tree, 1)
	require.Len(t, tree[0].Replies, 1)
	assert.Equal(t, "2", tree[0].Replies[0].ID)
	require.NotNil(t, tree[0].Replies[0].ParentID)
	assert.Equal(t, "1", *tree[0].Replies[0].ParentID)

	_, expired, err = c.GetTree(context.Background(), "p1")
	require.NoError(t, err)
	assert.True(t, expired)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommentCache_GetTreeCorrupted(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewCommentCache(db)

	mock.ExpectGet(fmt.Sprintf(KeyCommentTree, "p1")).SetVal("{not json")

	_, _, err := c.GetTree(context.Background(), "p1")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrCacheMiss)
}

func TestCommentCache_SetAndDeleteTree(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewCommentCache(db)
	key := fmt.Sprintf(KeyCommentTree, "p1")

	mock.Regexp().ExpectSet(key, `^\{"value":\[.*\]`, 30*time.Second).SetVal("OK")
	mock.ExpectDel(key).SetVal(1)

	require.NoError(t, c.SetTree(context.Background(), "p1", sampleTree(), 10*time.Second))
	require.NoError(t, c.DeleteTree(context.Background(), "p1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
