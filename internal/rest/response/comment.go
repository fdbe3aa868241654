package response

import (
	"encoding/json"

	"github.com/Guyuepp/go-comment-service/domain"
)

// DateTimeFormat 与 JS Date#toJSON 一致的毫秒级 UTC 时间
const DateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Comment carries the body under both content and text
type Comment struct {
	ID           string          `json:"id"`
	PostID       string          `json:"postId"`
	OwnerAddress string          `json:"ownerAddress"`
	DisplayName  string          `json:"displayName"`
	UserID       string          `json:"userId,omitempty"`
	Content      string          `json:"content"`
	Text         string          `json:"text"`
	ParentID     *string         `json:"parentId"`
	LikeCount    int64           `json:"likeCount"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	CreatedAt    string          `json:"createdAt"`
	UpdatedAt    string          `json:"updatedAt"`
}

// NewCommentFromDomain: Domain -> Response
func NewCommentFromDomain(c *domain.Comment) *Comment {
	if c == nil {
		return nil
	}
	res := &Comment{
		ID:           c.ID,
		PostID:       c.PostID,
		OwnerAddress: c.OwnerAddress,
		DisplayName:  c.DisplayName,
		UserID:       c.UserID,
		Content:      c.Content,
		Text:         c.Content,
		ParentID:     c.ParentID,
		LikeCount:    c.LikeCount,
		CreatedAt:    c.CreatedAt.UTC().Format(DateTimeFormat),
		UpdatedAt:    c.UpdatedAt.UTC().Format(DateTimeFormat),
	}
	if len(c.Metadata) > 0 {
		res.Metadata = c.Metadata
	}
	return res
}

// TreeComment 树模式下的节点，replies 总是输出（叶子为 []）
type TreeComment struct {
	*Comment
	Replies []*TreeComment `json:"replies"`
}

func NewTreeCommentFromDomain(n *domain.CommentNode) *TreeComment {
	if n == nil {
		return nil
	}
	res := &TreeComment{
		Comment: NewCommentFromDomain(&n.Comment),
		Replies: make([]*TreeComment, 0, len(n.Replies)),
	}
	for _, r := range n.Replies {
		res.Replies = append(res.Replies, NewTreeCommentFromDomain(r))
	}
	return res
}

type CommentPage struct {
	Comments      []*Comment `json:"comments"`
	TotalPages    int        `json:"totalPages"`
	CurrentPage   int        `json:"currentPage"`
	TotalComments int64      `json:"totalComments"`
	Limit         int        `json:"limit"`
}

func NewCommentPageFromDomain(p domain.CommentPage) CommentPage {
	res := CommentPage{
		Comments:      make([]*Comment, 0, len(p.Comments)),
		TotalPages:    p.TotalPages,
		CurrentPage:   p.CurrentPage,
		TotalComments: p.TotalComments,
		Limit:         p.Limit,
	}
	for i := range p.Comments {
		res.Comments = append(res.Comments, NewCommentFromDomain(&p.Comments[i]))
	}
	return res
}

type CommentTree struct {
	Comments      []*TreeComment `json:"comments"`
	TotalComments int64          `json:"totalComments"`
}

func NewCommentTreeFromDomain(t domain.CommentTree) CommentTree {
	res := CommentTree{
		Comments:      make([]*TreeComment, 0, len(t.Comments)),
		TotalComments: t.TotalComments,
	}
	for _, n := range t.Comments {
		res.Comments = append(res.Comments, NewTreeCommentFromDomain(n))
	}
	return res
}

type DeletedComment struct {
	Message string `json:"message"`
	ID      string `json:"id"`
	PostID  string `json:"postId"`
}

func NewDeletedComment(c *domain.Comment) DeletedComment {
	return DeletedComment{
		Message: "Comment deleted",
		ID:      c.ID,
		PostID:  c.PostID,
	}
}
