package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/Guyuepp/go-comment-service/domain"
)

// Comment 评论存储模型
// 正文同时写入 content 与 text 两列，兼容旧版 schema；读取时以任一列为准并回填另一列
type Comment struct {
	ID           string         `gorm:"primaryKey;type:varchar(32)"`
	Rev          string         `gorm:"column:rev;type:varchar(36);not null"`
	PostID       string         `gorm:"column:post_id;type:varchar(191);not null;index:idx_comment_post_created,priority:1"`
	OwnerAddress string         `gorm:"column:owner_address;type:varchar(191);not null;index:idx_comment_owner"`
	DisplayName  string         `gorm:"column:display_name;type:varchar(191)"`
	UserID       string         `gorm:"column:user_id;type:varchar(191)"`
	Content      *string        `gorm:"column:content;type:text"`
	Text         *string        `gorm:"column:text;type:text"`
	ParentID     *string        `gorm:"column:parent_id;type:varchar(32);index:idx_comment_parent"`
	LikeCount    int64          `gorm:"column:like_count;not null;default:0"`
	Metadata     datatypes.JSON `gorm:"column:metadata"`
	CreatedAt    time.Time      `gorm:"column:created_at;precision:3;index:idx_comment_post_created,priority:2"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;precision:3"`
}

func (Comment) TableName() string {
	return "comment"
}

func NewCommentFromDomain(c *domain.Comment) *Comment {
	content := c.Content
	text := c.Content
	var meta datatypes.JSON
	if len(c.Metadata) > 0 {
		meta = datatypes.JSON(c.Metadata)
	}
	return &Comment{
		ID:           c.ID,
		PostID:       c.PostID,
		OwnerAddress: c.OwnerAddress,
		DisplayName:  c.DisplayName,
		UserID:       c.UserID,
		Content:      &content,
		Text:         &text,
		ParentID:     c.ParentID,
		LikeCount:    c.LikeCount,
		Metadata:     meta,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

// Body returns the comment text from whichever column is populated
func (m *Comment) Body() string {
	if m.Content != nil && *m.Content != "" {
		return *m.Content
	}
	if m.Text != nil {
		return *m.Text
	}
	return ""
}

func (m *Comment) ToDomain() domain.Comment {
	var meta json.RawMessage
	if len(m.Metadata) > 0 && string(m.Metadata) != "null" {
		meta = json.RawMessage(m.Metadata)
	}
	return domain.Comment{
		ID:           m.ID,
		PostID:       m.PostID,
		OwnerAddress: m.OwnerAddress,
		DisplayName:  m.DisplayName,
		UserID:       m.UserID,
		Content:      m.Body(),
		ParentID:     m.ParentID,
		LikeCount:    m.LikeCount,
		Metadata:     meta,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}
