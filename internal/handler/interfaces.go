package handler

import (
	"context"

	"github.com/iliyamo/blog-comment-service/internal/model"
	"github.com/iliyamo/blog-comment-service/internal/queue"
)

// CommentStore is the persistence contract the handlers depend on.
// *repository.CommentRepo satisfies it; tests substitute a mock.
type CommentStore interface {
	// Create inserts the comment, populating ID and CreatedAt.  When
	// enforcePending is true the one-outstanding-pending rule is
	// re-checked atomically and repository.ErrPendingExists is
	// returned on conflict.
	Create(ctx context.Context, c *model.Comment, enforcePending bool) error
	GetByID(ctx context.Context, id uint64) (*model.Comment, error)
	Update(ctx context.Context, c *model.Comment) error
	UpdateStatus(ctx context.Context, id uint64, status model.Status) error
	Delete(ctx context.Context, id uint64) (int64, error)
	ListByPost(ctx context.Context, post string, statuses []model.Status) ([]model.Comment, error)
}

// EventPublisher pushes domain events to the broker.  Failures are
// logged by the implementation and ignored by callers.
type EventPublisher interface {
	PublishCommentCreated(ctx context.Context, ev queue.CommentCreatedEvent) error
}

// PublisherFunc adapts a plain publish function to EventPublisher.
type PublisherFunc func(ctx context.Context, ev queue.CommentCreatedEvent) error

func (f PublisherFunc) PublishCommentCreated(ctx context.Context, ev queue.CommentCreatedEvent) error {
	return f(ctx, ev)
}
