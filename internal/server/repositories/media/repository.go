package media

import (
	"context"

	"github.com/dkravets/kitafeed/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, m *models.Media) (*models.Media, error)
	ListByPost(ctx context.Context, postID string) ([]models.Media, error)
	GetByID(ctx context.Context, id string) (*models.Media, error)
	Delete(ctx context.Context, postID, mediaID string) error
}
