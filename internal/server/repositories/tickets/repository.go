package tickets

import (
	"context"

	"github.com/dkravets/kitafeed/internal/server/models"
)

type Repository interface {
	GetAll(ctx context.Context) ([]models.Ticket, error)
	Close(ctx context.Context, id string) error
}
