package repository_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Guyuepp/go-comment-service/domain"
)

// memStore is an in-memory domain.CommentStore
type memStore struct {
	mu      sync.Mutex
	seq     int
	now     time.Time
	records map[string]domain.Comment
	err     error
}

func newMemStore() *memStore {
	return &memStore{
		now:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		records: make(map[string]domain.Comment),
	}
}

func (s *memStore) Insert(_ context.Context, c *domain.Comment) (domain.Revision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return domain.Revision{}, s.err
	}
	s.seq++
	s.now = s.now.Add(time.Second)
	c.ID = fmt.Sprintf("%06d", s.seq)
	c.CreatedAt = s.now
	c.UpdatedAt = s.now
	s.records[c.ID] = *c
	return domain.Revision{ID: c.ID, Rev: "1"}, nil
}

func (s *memStore) put(c domain.Comment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[c.ID] = c
}

func (s *memStore) QueryByField(_ context.Context, q domain.CommentQuery) ([]domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	res := make([]domain.Comment, 0)
	for _, c := range s.records {
		if fieldValue(c, q.Field) == q.Value {
			res = append(res, c)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		a, b := res[i], res[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt) == q.Desc
		}
		return (a.ID > b.ID) == q.Desc
	})
	if q.Skip > 0 {
		if q.Skip >= len(res) {
			return []domain.Comment{}, nil
		}
		res = res[q.Skip:]
	}
	if q.Limit > 0 && q.Limit < len(res) {
		res = res[:q.Limit]
	}
	return res, nil
}

func (s *memStore) CountByField(_ context.Context, field domain.CommentField, value string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	var n int64
	for _, c := range s.records {
		if fieldValue(c, field) == value {
			n++
		}
	}
	return n, nil
}

func (s *memStore) GetByID(_ context.Context, id string) (domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return domain.Comment{}, s.err
	}
	c, ok := s.records[id]
	if !ok {
		return domain.Comment{}, domain.ErrNotFound
	}
	return c, nil
}

func (s *memStore) RemoveByID(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if _, ok := s.records[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.records, id)
	return nil
}

func (s *memStore) FetchIDs(_ context.Context, cursor string, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0)
	for id := range s.records {
		if id > cursor {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (s *memStore) EnsureSchema(context.Context) error { return nil }

func (s *memStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func fieldValue(c domain.Comment, f domain.CommentField) string {
	switch f {
	case domain.FieldPostID:
		return c.PostID
	case domain.FieldOwnerAddress:
		return c.OwnerAddress
	case domain.FieldParentID:
		if c.ParentID == nil {
			return ""
		}
		return *c.ParentID
	}
	return ""
}

// memBloom is an exact set standing in for the bloom filter
type memBloom struct {
	mu  sync.Mutex
	ids map[string]bool
}

func newMemBloom() *memBloom {
	return &memBloom{ids: make(map[string]bool)}
}

func (b *memBloom) Add(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ids[id] = true
	return nil
}

func (b *memBloom) Exists(_ context.Context, id string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ids[id], nil
}

func (b *memBloom) BulkAdd(_ context.Context, ids []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, id := range ids {
		b.ids[id] = true
	}
	return nil
}

// memCache records tree cache calls
type memCache struct {
	mu      sync.Mutex
	trees   map[string][]*domain.CommentNode
	expired bool
	deleted []string
}

func newMemCache() *memCache {
	return &memCache{trees: make(map[string][]*domain.CommentNode)}
}

func (c *memCache) GetTree(_ context.Context, postID string) ([]*domain.CommentNode, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tree, ok := c.trees[postID]
	if !ok {
		return nil, false, domain.ErrCacheMiss
	}
	return tree, c.expired, nil
}

func (c *memCache) SetTree(_ context.Context, postID string, tree []*domain.CommentNode, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trees[postID] = tree
	return nil
}

func (c *memCache) DeleteTree(_ context.Context, postID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.trees, postID)
	c.deleted = append(c.deleted, postID)
	return nil
}

func (c *memCache) has(postID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.trees[postID]
	return ok
}

// flakyBloom fails every Add while down is set
type flakyBloom struct {
	*memBloom
	down atomic.Bool
}

func (b *flakyBloom) Add(ctx context.Context, id string) error {
	if b.down.Load() {
		return errors.New("redis down")
	}
	return b.memBloom.Add(ctx, id)
}

// gatedCache blocks SetTree until release is closed
type gatedCache struct {
	*memCache
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedCache() *gatedCache {
	return &gatedCache{
		memCache: newMemCache(),
		entered:  make(chan struct{}),
		release:  make(chan struct{}),
	}
}

func (c *gatedCache) SetTree(ctx context.Context, postID string, tree []*domain.CommentNode, ttl time.Duration) error {
	c.once.Do(func() {
		close(c.entered)
		<-c.release
	})
	return c.memCache.SetTree(ctx, postID, tree, ttl)
}
