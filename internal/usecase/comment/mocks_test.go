package comment_test

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/Guyuepp/go-comment-service/domain"
)

type mockCommentRepository struct {
	mock.Mock
}

func (m *mockCommentRepository) CreateComment(ctx context.Context, in domain.NewComment) (domain.Comment, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(domain.Comment), args.Error(1)
}

func (m *mockCommentRepository) FindCommentsByPost(ctx context.Context, postID string, skip, limit int) ([]domain.Comment, error) {
	args := m.Called(ctx, postID, skip, limit)
	res, _ := args.Get(0).([]domain.Comment)
	return res, args.Error(1)
}

func (m *mockCommentRepository) CountCommentsByPost(ctx context.Context, postID string) (int64, error) {
	args := m.Called(ctx, postID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockCommentRepository) FindCommentsTreeByPost(ctx context.Context, postID string) ([]*domain.CommentNode, error) {
	args := m.Called(ctx, postID)
	res, _ := args.Get(0).([]*domain.CommentNode)
	return res, args.Error(1)
}

func (m *mockCommentRepository) FindCommentByID(ctx context.Context, id string) (*domain.Comment, error) {
	args := m.Called(ctx, id)
	res, _ := args.Get(0).(*domain.Comment)
	return res, args.Error(1)
}

func (m *mockCommentRepository) DeleteCommentByID(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// recordingNotifier keeps every event it receives
type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.CommentEvent
}

func (n *recordingNotifier) Notify(ev domain.CommentEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) all() []domain.CommentEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.CommentEvent(nil), n.events...)
}

type panickingNotifier struct{}

func (panickingNotifier) Notify(domain.CommentEvent) { panic("transport down") }
