package response

import "github.com/Guyuepp/go-comment-service/domain"

// EventFrame is what websocket clients receive
type EventFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type CommentRef struct {
	ID     string `json:"id"`
	PostID string `json:"postId"`
}

// NewEventFrame: created 事件带完整评论，deleted 事件只带 id 和 postId
func NewEventFrame(name domain.EventName, commentID, postID string, c *domain.Comment) EventFrame {
	if name == domain.EventCommentCreated && c != nil {
		return EventFrame{Event: string(name), Data: NewCommentFromDomain(c)}
	}
	return EventFrame{Event: string(name), Data: CommentRef{ID: commentID, PostID: postID}}
}
