package domain

import (
	"context"
	"encoding/json"
	"time"
)

const (
	// MaxCommentLength 评论内容的最大长度（按 Unicode 字符计）
	MaxCommentLength = 200
	// DefaultDisplayName is used when the identity carries no display name
	DefaultDisplayName = "Anonymous"
)

// Comment is the persisted comment record.
// Content is the canonical body; the storage model and the response DTO
// duplicate it under "text" as well.
type Comment struct {
	ID           string          `json:"id"`
	PostID       string          `json:"postId"`
	OwnerAddress string          `json:"ownerAddress"`
	DisplayName  string          `json:"displayName"`
	UserID       string          `json:"userId,omitempty"`
	Content      string          `json:"content"`
	ParentID     *string         `json:"parentId"`
	LikeCount    int64           `json:"likeCount"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// IsRoot reports whether c is a top-level comment
func (c *Comment) IsRoot() bool {
	return c.ParentID == nil
}

// CommentNode is a comment with its direct replies, recursively expanded.
// Built on demand, never persisted.
type CommentNode struct {
	Comment
	// Replies 直接回复，按 createdAt 倒序
	Replies []*CommentNode `json:"replies,omitempty"`
}

// NewComment carries the input of a create operation
type NewComment struct {
	PostID       string `validate:"required"`
	OwnerAddress string `validate:"required"`
	DisplayName  string
	UserID       string
	Content      string `validate:"required,max=200"`
	ParentID     *string
	LikeCount    *int64
	Metadata     json.RawMessage
}

// CommentPage 平铺模式的分页结果
type CommentPage struct {
	Comments      []Comment
	TotalComments int64
	TotalPages    int
	CurrentPage   int
	Limit         int
}

// CommentTree 树模式的结果
type CommentTree struct {
	Comments      []*CommentNode
	TotalComments int64
}

// CommentField names a queryable field of the stored record
type CommentField string

const (
	FieldPostID       CommentField = "post_id"
	FieldParentID     CommentField = "parent_id"
	FieldOwnerAddress CommentField = "owner_address"
)

// CommentQuery describes a single-field query against the store.
// Limit <= 0 means unbounded.
type CommentQuery struct {
	Field CommentField
	Value string
	Desc  bool
	Skip  int
	Limit int
}

// Revision is the store's view of a freshly inserted record
type Revision struct {
	ID  string
	Rev string
}

// CommentStore is the storage gateway. It executes raw operations against
// the backing store and translates the store's own not-found signal into
// ErrNotFound.
type CommentStore interface {
	// Insert persists c, assigning c.ID, c.CreatedAt and c.UpdatedAt.
	Insert(ctx context.Context, c *Comment) (Revision, error)

	// QueryByField returns records whose field equals the given value,
	// ordered by created_at (then id) in the requested direction.
	QueryByField(ctx context.Context, q CommentQuery) ([]Comment, error)

	CountByField(ctx context.Context, field CommentField, value string) (int64, error)

	// GetByID returns ErrNotFound if no record exists.
	GetByID(ctx context.Context, id string) (Comment, error)

	// RemoveByID returns ErrNotFound if no record exists.
	RemoveByID(ctx context.Context, id string) error

	// FetchIDs pages through all ids greater than cursor, ascending.
	FetchIDs(ctx context.Context, cursor string, limit int) ([]string, error)

	// EnsureSchema creates the table and its indexes when missing.
	EnsureSchema(ctx context.Context) error
}

// CommentCache caches assembled reply trees
type CommentCache interface {
	// GetTree returns ErrCacheMiss when nothing is cached. expired reports
	// whether the cached value passed its logical expiry.
	GetTree(ctx context.Context, postID string) (tree []*CommentNode, expired bool, err error)
	SetTree(ctx context.Context, postID string, tree []*CommentNode, ttl time.Duration) error
	DeleteTree(ctx context.Context, postID string) error
}

// CommentRepository is the domain-level comment API
type CommentRepository interface {
	// CreateComment validates and normalizes in, then persists it.
	// Returns a *ValidationError for malformed input.
	CreateComment(ctx context.Context, in NewComment) (Comment, error)

	// FindCommentsByPost returns comments of a post newest first, replies included.
	FindCommentsByPost(ctx context.Context, postID string, skip, limit int) ([]Comment, error)

	CountCommentsByPost(ctx context.Context, postID string) (int64, error)

	// FindCommentsTreeByPost returns every comment of a post as a forest of reply trees.
	FindCommentsTreeByPost(ctx context.Context, postID string) ([]*CommentNode, error)

	// FindCommentByID returns nil, nil when the comment does not exist.
	FindCommentByID(ctx context.Context, id string) (*Comment, error)

	// DeleteCommentByID reports whether a record was removed.
	DeleteCommentByID(ctx context.Context, id string) (bool, error)
}

// CommentUsecase 业务逻辑接口
type CommentUsecase interface {
	Create(ctx context.Context, caller Identity, in NewComment) (Comment, error)
	Delete(ctx context.Context, caller Identity, id string) (Comment, error)
	GetByID(ctx context.Context, id string) (Comment, error)
	FetchByPost(ctx context.Context, postID string, page, limit int) (CommentPage, error)
	FetchTreeByPost(ctx context.Context, postID string) (CommentTree, error)
}
