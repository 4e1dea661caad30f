package posts

import (
	"context"

	"github.com/dkravets/kitafeed/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, post *models.Post) (*models.Post, error)
	// GetFeed returns the feed newest-first, with like/comment counts and the
	// viewer's like flag resolved.
	GetFeed(ctx context.Context, viewerID string) ([]models.Post, error)
	GetByID(ctx context.Context, id string) (*models.Post, error)
	UpdateText(ctx context.Context, id, text string) error
	Delete(ctx context.Context, id string) error

	// ToggleLike flips the viewer's like on a post and reports the new state.
	ToggleLike(ctx context.Context, postID, userID string) (bool, error)
	Likers(ctx context.Context, postID string) ([]models.User, error)
}
