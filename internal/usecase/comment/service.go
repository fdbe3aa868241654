package comment

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Guyuepp/go-comment-service/domain"
	"github.com/Guyuepp/go-comment-service/internal/metrics"
	"github.com/Guyuepp/go-comment-service/internal/repository"
)

type Service struct {
	commentRepo domain.CommentRepository
	notifier    domain.EventNotifier
	metrics     *metrics.Metrics
}

var _ domain.CommentUsecase = (*Service)(nil)

// NewService will create a new comment service object.
// notifier and m may be nil.
func NewService(c domain.CommentRepository, notifier domain.EventNotifier, m *metrics.Metrics) *Service {
	return &Service{
		commentRepo: c,
		notifier:    notifier,
		metrics:     m,
	}
}

// Create 创建评论，作者信息只取自 caller
func (s *Service) Create(ctx context.Context, caller domain.Identity, in domain.NewComment) (domain.Comment, error) {
	in.OwnerAddress = caller.OwnerAddress
	in.DisplayName = caller.DisplayName
	in.UserID = caller.SubjectID
	if in.UserID == "" {
		in.UserID = domain.NormalizeAddress(caller.OwnerAddress)
	}

	res, err := s.commentRepo.CreateComment(ctx, in)
	if err != nil {
		return domain.Comment{}, err
	}
	s.metrics.IncCommentCreated()

	created := res
	s.notify(domain.CommentEvent{
		Name:       domain.EventCommentCreated,
		CommentID:  res.ID,
		PostID:     res.PostID,
		Comment:    &created,
		OccurredAt: time.Now(),
	})
	return res, nil
}

// Delete 只有作者本人可以删除
func (s *Service) Delete(ctx context.Context, caller domain.Identity, id string) (domain.Comment, error) {
	existed, err := s.commentRepo.FindCommentByID(ctx, id)
	if err != nil {
		return domain.Comment{}, err
	}
	if err := AuthorizeDelete(caller, existed); err != nil {
		if existed != nil {
			logrus.Warnf("caller %q is not allowed to delete comment %s", caller.OwnerAddress, existed.ID)
		}
		return domain.Comment{}, err
	}

	removed, err := s.commentRepo.DeleteCommentByID(ctx, existed.ID)
	if err != nil {
		return domain.Comment{}, err
	}
	if !removed {
		// 查到之后被并发删除
		return domain.Comment{}, domain.ErrNotFound
	}
	s.metrics.IncCommentDeleted()

	s.notify(domain.CommentEvent{
		Name:       domain.EventCommentDeleted,
		CommentID:  existed.ID,
		PostID:     existed.PostID,
		OccurredAt: time.Now(),
	})
	return *existed, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Comment, error) {
	res, err := s.commentRepo.FindCommentByID(ctx, id)
	if err != nil {
		return domain.Comment{}, err
	}
	if res == nil {
		return domain.Comment{}, domain.ErrNotFound
	}
	return *res, nil
}

// FetchByPost 平铺分页，列表与总数并发查询
func (s *Service) FetchByPost(ctx context.Context, postID string, page, limit int) (domain.CommentPage, error) {
	p := repository.NewPagination(page, limit)

	var (
		comments []domain.Comment
		total    int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		comments, err = s.commentRepo.FindCommentsByPost(gctx, postID, p.Skip(), p.Limit)
		return
	})
	g.Go(func() (err error) {
		total, err = s.commentRepo.CountCommentsByPost(gctx, postID)
		return
	})
	if err := g.Wait(); err != nil {
		return domain.CommentPage{}, fmt.Errorf("fetch comments of post %q: %w", postID, err)
	}

	if comments == nil {
		comments = []domain.Comment{}
	}
	return domain.CommentPage{
		Comments:      comments,
		TotalComments: total,
		TotalPages:    repository.TotalPages(total, p.Limit),
		CurrentPage:   p.Page,
		Limit:         p.Limit,
	}, nil
}

// FetchTreeByPost 返回整棵回复树，totalComments 统计所有层级
func (s *Service) FetchTreeByPost(ctx context.Context, postID string) (domain.CommentTree, error) {
	roots, err := s.commentRepo.FindCommentsTreeByPost(ctx, postID)
	if err != nil {
		return domain.CommentTree{}, err
	}
	if roots == nil {
		roots = []*domain.CommentNode{}
	}
	return domain.CommentTree{
		Comments:      roots,
		TotalComments: int64(len(repository.FlattenCommentTree(roots))),
	}, nil
}

// notify 尽力而为，不影响主流程
func (s *Service) notify(ev domain.CommentEvent) {
	if s.notifier == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("notify %s for comment %s panicked: %v", ev.Name, ev.CommentID, r)
		}
	}()
	s.notifier.Notify(ev)
}
