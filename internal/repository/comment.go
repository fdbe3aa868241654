package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/Guyuepp/go-comment-service/domain"
)

const defaultTreeTTL = 30 * time.Second

// commentRepository 协调存储网关、树缓存与布隆过滤器
type commentRepository struct {
	store     domain.CommentStore
	cache     domain.CommentCache
	bloom     domain.BloomRepository
	validate  *validator.Validate
	treeGroup singleflight.Group
	treeTTL   time.Duration

	// treeGen 每个帖子的树版本号，失效时递增
	treeGen sync.Map
	// bloomDirty 未写入布隆过滤器的 id 数，非 0 时不信任“不存在”的判断
	bloomDirty atomic.Int64
}

var _ domain.CommentRepository = (*commentRepository)(nil)

// NewCommentRepository 创建评论仓储；cache 与 bloom 可以为 nil
func NewCommentRepository(store domain.CommentStore, cache domain.CommentCache, bloom domain.BloomRepository) *commentRepository {
	return &commentRepository{
		store:    store,
		cache:    cache,
		bloom:    bloom,
		validate: validator.New(),
		treeTTL:  defaultTreeTTL,
	}
}

// CreateComment 校验、规范化后写入
func (r *commentRepository) CreateComment(ctx context.Context, in domain.NewComment) (domain.Comment, error) {
	in = normalizeNewComment(in)
	if err := r.validateNewComment(in); err != nil {
		return domain.Comment{}, err
	}

	if in.ParentID != nil {
		parent, err := r.FindCommentByID(ctx, *in.ParentID)
		if err != nil {
			return domain.Comment{}, err
		}
		if parent == nil || parent.PostID != in.PostID {
			return domain.Comment{}, domain.NewValidationError("parentId", "must reference an existing comment on the same post")
		}
	}

	var likes int64
	if in.LikeCount != nil && *in.LikeCount > 0 {
		likes = *in.LikeCount
	}
	c := domain.Comment{
		PostID:       in.PostID,
		OwnerAddress: in.OwnerAddress,
		DisplayName:  in.DisplayName,
		UserID:       in.UserID,
		Content:      in.Content,
		ParentID:     in.ParentID,
		LikeCount:    likes,
		Metadata:     in.Metadata,
	}
	if _, err := r.store.Insert(ctx, &c); err != nil {
		return domain.Comment{}, err
	}

	if r.bloom != nil {
		if err := r.bloom.Add(ctx, c.ID); err != nil {
			r.bloomDirty.Add(1)
			logrus.Warnf("failed to add comment %s to bloom filter, negative lookups disabled until reseed: %v", c.ID, err)
		}
	}
	r.invalidateTree(ctx, c.PostID)

	return c, nil
}

// FindCommentsByPost 平铺模式，按 createdAt 倒序，包含回复
func (r *commentRepository) FindCommentsByPost(ctx context.Context, postID string, skip, limit int) ([]domain.Comment, error) {
	postID = strings.TrimSpace(postID)
	if postID == "" {
		return []domain.Comment{}, nil
	}
	return r.store.QueryByField(ctx, domain.CommentQuery{
		Field: domain.FieldPostID,
		Value: postID,
		Desc:  true,
		Skip:  skip,
		Limit: limit,
	})
}

func (r *commentRepository) CountCommentsByPost(ctx context.Context, postID string) (int64, error) {
	postID = strings.TrimSpace(postID)
	if postID == "" {
		return 0, nil
	}
	return r.store.CountByField(ctx, domain.FieldPostID, postID)
}

// FindCommentsTreeByPost 树模式，先查缓存（逻辑过期），未命中时用 singleflight 合并重建
func (r *commentRepository) FindCommentsTreeByPost(ctx context.Context, postID string) ([]*domain.CommentNode, error) {
	postID = strings.TrimSpace(postID)
	if postID == "" {
		return []*domain.CommentNode{}, nil
	}

	if r.cache != nil {
		tree, expired, err := r.cache.GetTree(ctx, postID)
		if err == nil {
			if expired {
				go r.rebuildTree(context.Background(), postID)
			}
			return tree, nil
		}
		if !errors.Is(err, domain.ErrCacheMiss) {
			logrus.Warnf("failed to get comment tree of post %s from cache: %v", postID, err)
		}
	}

	return r.loadTreeOnce(ctx, postID)
}

// FindCommentByID 不存在时返回 nil, nil
func (r *commentRepository) FindCommentByID(ctx context.Context, id string) (*domain.Comment, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}

	if r.bloom != nil && r.bloomDirty.Load() == 0 {
		exists, err := r.bloom.Exists(ctx, id)
		if err == nil && !exists {
			logrus.Debugf("bloom filter says comment %s does not exist", id)
			return nil, nil
		}
	}

	c, err := r.store.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// DeleteCommentByID 幂等：记录不存在时返回 false
func (r *commentRepository) DeleteCommentByID(ctx context.Context, id string) (bool, error) {
	c, err := r.FindCommentByID(ctx, id)
	if err != nil || c == nil {
		return false, err
	}

	err = r.store.RemoveByID(ctx, c.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	r.invalidateTree(ctx, c.PostID)
	return true, nil
}

// loadTreeOnce 合并同一版本的并发加载；失效后的请求使用新的 key，不会拿到旧结果
func (r *commentRepository) loadTreeOnce(ctx context.Context, postID string) ([]*domain.CommentNode, error) {
	gen := r.treeVersion(postID)
	result, err, _ := r.treeGroup.Do(fmt.Sprintf("%s#%d", postID, gen), func() (any, error) {
		return r.loadTree(ctx, postID, gen)
	})
	if err != nil {
		return nil, err
	}
	return result.([]*domain.CommentNode), nil
}

func (r *commentRepository) loadTree(ctx context.Context, postID string, gen uint64) ([]*domain.CommentNode, error) {
	all, err := r.store.QueryByField(ctx, domain.CommentQuery{
		Field: domain.FieldPostID,
		Value: postID,
		Desc:  true,
	})
	if err != nil {
		return nil, err
	}
	tree := BuildCommentTree(all)

	if r.cache != nil && r.treeVersion(postID) == gen {
		if err := r.cache.SetTree(ctx, postID, tree, r.treeTTL); err != nil {
			logrus.Warnf("failed to set comment tree cache of post %s: %v", postID, err)
		} else if r.treeVersion(postID) != gen {
			// 写入期间发生了失效，删掉刚写入的旧树
			r.deleteTree(ctx, postID)
		}
	}
	return tree, nil
}

// rebuildTree 异步重建树缓存
func (r *commentRepository) rebuildTree(ctx context.Context, postID string) {
	if _, err := r.loadTreeOnce(ctx, postID); err != nil {
		logrus.Errorf("rebuild comment tree of post %s failed: %v", postID, err)
	}
}

func (r *commentRepository) treeVersion(postID string) uint64 {
	v, ok := r.treeGen.Load(postID)
	if !ok {
		return 0
	}
	return v.(*atomic.Uint64).Load()
}

func (r *commentRepository) invalidateTree(ctx context.Context, postID string) {
	v, _ := r.treeGen.LoadOrStore(postID, new(atomic.Uint64))
	v.(*atomic.Uint64).Add(1)
	if r.cache == nil {
		return
	}
	r.deleteTree(ctx, postID)
}

func (r *commentRepository) deleteTree(ctx context.Context, postID string) {
	if err := r.cache.DeleteTree(ctx, postID); err != nil {
		logrus.Warnf("failed to invalidate comment tree cache of post %s: %v", postID, err)
	}
}

func normalizeNewComment(in domain.NewComment) domain.NewComment {
	in.PostID = strings.TrimSpace(in.PostID)
	in.OwnerAddress = domain.NormalizeAddress(in.OwnerAddress)
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	if in.DisplayName == "" {
		in.DisplayName = domain.DefaultDisplayName
	}
	in.UserID = strings.TrimSpace(in.UserID)
	if in.ParentID != nil {
		parentID := strings.TrimSpace(*in.ParentID)
		if parentID == "" {
			in.ParentID = nil
		} else {
			in.ParentID = &parentID
		}
	}
	return in
}

var validationFieldNames = map[string]string{
	"PostID":       "postId",
	"OwnerAddress": "ownerAddress",
	"Content":      "content",
}

func (r *commentRepository) validateNewComment(in domain.NewComment) error {
	err := r.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}

	fe := verrs[0]
	field, ok := validationFieldNames[fe.StructField()]
	if !ok {
		field = fe.Field()
	}
	switch fe.Tag() {
	case "required":
		return domain.NewValidationError(field, "is required")
	case "max":
		return domain.NewValidationError(field, fmt.Sprintf("exceeds the %d character limit", domain.MaxCommentLength))
	default:
		return domain.NewValidationError(field, fe.Error())
	}
}

const bloomSeedBatch = 1000

// InitBloomFilter 把已有评论 id 全部写入布隆过滤器。
// 成功后重新信任过滤器，除非期间又有写入失败
func (r *commentRepository) InitBloomFilter(ctx context.Context) error {
	if r.bloom == nil {
		return nil
	}
	dirty := r.bloomDirty.Load()
	cursor := ""
	total := 0
	for {
		ids, err := r.store.FetchIDs(ctx, cursor, bloomSeedBatch)
		if err != nil {
			return fmt.Errorf("fetch comment ids after %q: %w", cursor, err)
		}
		if len(ids) == 0 {
			break
		}
		if err := r.bloom.BulkAdd(ctx, ids); err != nil {
			return fmt.Errorf("seed bloom filter: %w", err)
		}
		total += len(ids)
		cursor = ids[len(ids)-1]
		if len(ids) < bloomSeedBatch {
			break
		}
	}
	if dirty > 0 && r.bloomDirty.CompareAndSwap(dirty, 0) {
		logrus.Infof("bloom filter recovered after %d failed writes", dirty)
	}
	logrus.Infof("bloom filter seeded with %d comment ids", total)
	return nil
}
