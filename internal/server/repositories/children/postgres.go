// Package children provides the PostgreSQL-backed roster repository,
// including the recorded photo-consent decisions.
package children

import (
	"context"
	"fmt"

	"github.com/dkravets/kitafeed/internal/dbx"
	"github.com/dkravets/kitafeed/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetAll(ctx context.Context) ([]models.Child, error) {
	query := `SELECT id, name, photo_consent FROM children ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Child
	for rows.Next() {
		var c models.Child
		if err := rows.Scan(&c.ID, &c.Name, &c.PhotoConsent); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) ConsentFor(ctx context.Context, ids []string) (map[string]bool, error) {
	query := `SELECT id, photo_consent FROM children WHERE id = ANY($1)`
	rows, err := r.db.QueryContext(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make(map[string]bool, len(ids))
	for rows.Next() {
		var id string
		var allowed bool
		if err := rows.Scan(&id, &allowed); err != nil {
			return nil, err
		}
		result[id] = allowed
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
