package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Guyuepp/go-comment-service/domain"
	"github.com/Guyuepp/go-comment-service/internal/repository/mysql/model"
)

const defaultStorageTimeout = 5 * time.Second

var queryableFields = map[domain.CommentField]struct{}{
	domain.FieldPostID:       {},
	domain.FieldParentID:     {},
	domain.FieldOwnerAddress: {},
}

// commentStore 存储网关，只负责数据库操作
type commentStore struct {
	DB      *gorm.DB
	node    *snowflake.Node
	timeout time.Duration
}

var _ domain.CommentStore = (*commentStore)(nil)

// NewCommentStore 创建评论存储网关
// 每次数据库调用都会附加 timeout，<= 0 时使用默认值
func NewCommentStore(db *gorm.DB, node *snowflake.Node, timeout time.Duration) *commentStore {
	if timeout <= 0 {
		timeout = defaultStorageTimeout
	}
	return &commentStore{
		DB:      db,
		node:    node,
		timeout: timeout,
	}
}

func (s *commentStore) Insert(ctx context.Context, c *domain.Comment) (domain.Revision, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	commentModel := model.NewCommentFromDomain(c)
	commentModel.ID = s.node.Generate().String()
	commentModel.Rev = uuid.NewString()
	commentModel.CreatedAt = now
	commentModel.UpdatedAt = now

	if err := s.DB.WithContext(ctx).Create(commentModel).Error; err != nil {
		return domain.Revision{}, fmt.Errorf("insert comment: %w", err)
	}

	c.ID = commentModel.ID
	c.CreatedAt = commentModel.CreatedAt
	c.UpdatedAt = commentModel.UpdatedAt
	return domain.Revision{ID: commentModel.ID, Rev: commentModel.Rev}, nil
}

func (s *commentStore) QueryByField(ctx context.Context, q domain.CommentQuery) ([]domain.Comment, error) {
	if _, ok := queryableFields[q.Field]; !ok {
		return nil, domain.ErrBadParamInput
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	order := "created_at, id"
	if q.Desc {
		order = "created_at DESC, id DESC"
	}
	tx := s.DB.WithContext(ctx).
		Where(fmt.Sprintf("%s = ?", q.Field), q.Value).
		Order(order)
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	if q.Skip > 0 {
		tx = tx.Offset(q.Skip)
	}

	var comments []model.Comment
	if err := tx.Find(&comments).Error; err != nil {
		return nil, fmt.Errorf("query comments by %s: %w", q.Field, err)
	}

	res := make([]domain.Comment, len(comments))
	for i := range comments {
		res[i] = comments[i].ToDomain()
	}
	return res, nil
}

func (s *commentStore) CountByField(ctx context.Context, field domain.CommentField, value string) (int64, error) {
	if _, ok := queryableFields[field]; !ok {
		return 0, domain.ErrBadParamInput
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var total int64
	err := s.DB.WithContext(ctx).
		Model(&model.Comment{}).
		Where(fmt.Sprintf("%s = ?", field), value).
		Count(&total).Error
	if err != nil {
		return 0, fmt.Errorf("count comments by %s: %w", field, err)
	}
	return total, nil
}

func (s *commentStore) GetByID(ctx context.Context, id string) (domain.Comment, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var comment model.Comment
	err := s.DB.WithContext(ctx).First(&comment, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Comment{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Comment{}, fmt.Errorf("get comment %s: %w", id, err)
	}
	return comment.ToDomain(), nil
}

func (s *commentStore) RemoveByID(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result := s.DB.WithContext(ctx).Where("id = ?", id).Delete(&model.Comment{})
	if result.Error != nil {
		return fmt.Errorf("remove comment %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *commentStore) FetchIDs(ctx context.Context, cursor string, limit int) (ids []string, err error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err = s.DB.WithContext(ctx).
		Model(&model.Comment{}).
		Where("id > ?", cursor).
		Order("id").
		Limit(limit).
		Pluck("id", &ids).Error
	return
}

func (s *commentStore) EnsureSchema(ctx context.Context) error {
	return s.DB.WithContext(ctx).AutoMigrate(&model.Comment{})
}
