// Package comments provides the PostgreSQL-backed comment repository.
package comments

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

func (r *PostgresRepository) ListByPost(ctx context.Context, postID string) ([]models.Comment, error) {
	query := `
		SELECT c.id, c.post_id, c.author_id, u.name, c.body, c.created_at
		FROM comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.post_id = $1
		ORDER BY c.created_at
	`
	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Comment
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.AuthorName, &c.Text, &c.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) Create(ctx context.Context, comment *models.Comment) (*models.Comment, error) {
	query :=
		`INSERT INTO comments (post_id, author_id, body)
         VALUES ($1, $2, $3)
		 RETURNING id, created_at, (SELECT name FROM users WHERE id = $2)
		 `

	err := r.db.QueryRowContext(ctx, query,
		comment.PostID, comment.AuthorID, comment.Text).Scan(&comment.ID, &comment.CreatedAt, &comment.AuthorName)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return comment, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	query := `SELECT id, post_id, author_id, body, created_at FROM comments WHERE id = $1`

	c := &models.Comment{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Text, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) UpdateText(ctx context.Context, id, text string) error {
	query := `UPDATE comments SET body = $2 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, text)
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

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM comments WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
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
