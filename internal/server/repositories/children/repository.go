package children

import (
	"context"

	"github.com/dkravets/kitafeed/internal/server/models"
)

type Repository interface {
	GetAll(ctx context.Context) ([]models.Child, error)
	// ConsentFor returns the photo-consent decision for each requested id.
	// Ids missing from the roster are absent from the result.
	ConsentFor(ctx context.Context, ids []string) (map[string]bool, error)
}
