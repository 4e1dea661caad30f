package comments

import (
	"context"

	"github.com/dkravets/kitafeed/internal/server/models"
)

type Repository interface {
	ListByPost(ctx context.Context, postID string) ([]models.Comment, error)
	Create(ctx context.Context, comment *models.Comment) (*models.Comment, error)
	GetByID(ctx context.Context, id string) (*models.Comment, error)
	UpdateText(ctx context.Context, id, text string) error
	Delete(ctx context.Context, id string) error
}
