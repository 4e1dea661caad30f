// Package media provides the PostgreSQL-backed attachment repository. A row
// exists only after the object transfer was acknowledged (finalize).
package media

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dkravets/kitafeed/internal/common"
	"github.com/dkravets/kitafeed/internal/dbx"
	"github.com/dkravets/kitafeed/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, m *models.Media) (*models.Media, error) {
	query :=
		`INSERT INTO media (post_id, storage_path, url, kind, original_name, size)
         VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query,
		m.PostID, m.StoragePath, m.URL, m.Kind, m.OriginalName, m.Size).Scan(&m.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return m, nil
}

func (r *PostgresRepository) ListByPost(ctx context.Context, postID string) ([]models.Media, error) {
	query := `SELECT id, post_id, storage_path, url, kind, original_name, size FROM media WHERE post_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Media
	for rows.Next() {
		var m models.Media
		if err := rows.Scan(&m.ID, &m.PostID, &m.StoragePath, &m.URL, &m.Kind, &m.OriginalName, &m.Size); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Media, error) {
	query := `SELECT id, post_id, storage_path, url, kind, original_name, size FROM media WHERE id = $1`

	m := &models.Media{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&m.ID, &m.PostID, &m.StoragePath, &m.URL, &m.Kind, &m.OriginalName, &m.Size)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return m, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, postID, mediaID string) error {
	query := `DELETE FROM media WHERE id = $1 AND post_id = $2`

	res, err := r.db.ExecContext(ctx, query, mediaID, postID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return common.ErrNotFound
	}
	return nil
}
