package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Guyuepp/go-comment-service/domain"
	"github.com/Guyuepp/go-comment-service/internal/repository/cache"
)

const KeyCommentTree = "comment:tree:%s"

type commentCache struct {
	client redis.Cmdable
}

var _ domain.CommentCache = (*commentCache)(nil)

func NewCommentCache(client redis.Cmdable) *commentCache {
	return &commentCache{
		client: client,
	}
}

func (c *commentCache) GetTree(ctx context.Context, postID string) ([]*domain.CommentNode, bool, error) {
	data, err := c.client.Get(ctx, fmt.Sprintf(KeyCommentTree, postID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, domain.ErrCacheMiss
	} else if err != nil {
		return nil, false, err
	}

	// 过期数据仍然返回，由调用方异步重建
	return cache.Decode[[]*domain.CommentNode](data)
}

func (c *commentCache) SetTree(ctx context.Context, postID string, tree []*domain.CommentNode, ttl time.Duration) error {
	data, expiration, err := cache.Encode(tree, ttl)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, fmt.Sprintf(KeyCommentTree, postID), data, expiration).Err()
}

func (c *commentCache) DeleteTree(ctx context.Context, postID string) error {
	return c.client.Del(ctx, fmt.Sprintf(KeyCommentTree, postID)).Err()
}
