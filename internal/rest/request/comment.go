package request

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"

	"github.com/Guyuepp/go-comment-service/domain"
)

// Comment is the body of POST /api/comments. The author comes from the
// bearer token, never from the body.
type Comment struct {
	PostID    string          `json:"postId"`
	Content   string          `json:"content"`
	Text      string          `json:"text"` // 旧客户端只传 text
	ParentID  *string         `json:"parentId"`
	LikeCount json.RawMessage `json:"likeCount"` // 非整数或负数按 0 处理
	Metadata  json.RawMessage `json:"metadata"`
}

// ToDomain: Request -> Domain
func (r *Comment) ToDomain() domain.NewComment {
	content := r.Content
	if content == "" {
		content = r.Text
	}
	metadata := r.Metadata
	if bytes.Equal(bytes.TrimSpace(metadata), []byte("null")) {
		metadata = nil
	}
	return domain.NewComment{
		PostID:    r.PostID,
		Content:   content,
		ParentID:  r.ParentID,
		LikeCount: parseLikeCount(r.LikeCount),
		Metadata:  metadata,
	}
}

// parseLikeCount keeps integral non-negative JSON numbers, anything else is nil
func parseLikeCount(raw json.RawMessage) *int64 {
	v := string(bytes.TrimSpace(raw))
	if v == "" {
		return nil
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		if n < 0 {
			return nil
		}
		return &n
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 || f != math.Trunc(f) || f >= math.MaxInt64 {
		return nil
	}
	n := int64(f)
	return &n
}
