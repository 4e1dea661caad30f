// Package posts provides the PostgreSQL-backed post repository, including
// the per-viewer like state.
package posts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dkravets/kitafeed/internal/common"
	"github.com/dkravets/kitafeed/internal/dbx"
	"github.com/dkravets/kitafeed/internal/server/models"
)

// PostgresRepository needs the full *sql.DB rather than dbx.DBTX because
// ToggleLike runs inside its own transaction.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, post *models.Post) (*models.Post, error) {
	query :=
		`INSERT INTO posts (author_id, body)
         VALUES ($1, $2)
		 RETURNING id, created_at, (SELECT name FROM users WHERE id = $1)
		 `

	err := r.db.QueryRowContext(ctx, query, post.AuthorID, post.Text).Scan(&post.ID, &post.CreatedAt, &post.AuthorName)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return post, nil
}

func (r *PostgresRepository) GetFeed(ctx context.Context, viewerID string) ([]models.Post, error) {
	query := `
		SELECT p.id, p.author_id, u.name, p.body, p.created_at,
			(SELECT count(*) FROM likes l WHERE l.post_id = p.id) AS like_count,
			EXISTS (SELECT 1 FROM likes l WHERE l.post_id = p.id AND l.user_id = $1) AS liked,
			(SELECT count(*) FROM comments c WHERE c.post_id = p.id) AS comment_count
		FROM posts p
		JOIN users u ON u.id = p.author_id
		ORDER BY p.created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, viewerID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Post
	for rows.Next() {
		var p models.Post
		if err := rows.Scan(&p.ID, &p.AuthorID, &p.AuthorName, &p.Text, &p.CreatedAt,
			&p.LikeCount, &p.Liked, &p.CommentCount); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	query := `SELECT id, author_id, body, created_at FROM posts WHERE id = $1`

	p := &models.Post{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.AuthorID, &p.Text, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) UpdateText(ctx context.Context, id, text string) error {
	query := `UPDATE posts SET body = $2 WHERE id = $1`

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
	query := `DELETE FROM posts WHERE id = $1`

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

// ToggleLike deletes the viewer's like if present, otherwise inserts it.
// Delete and insert run in one transaction so two concurrent flips cannot
// leave a duplicate like behind.
func (r *PostgresRepository) ToggleLike(ctx context.Context, postID, userID string) (bool, error) {
	var liked bool

	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM likes WHERE post_id = $1 AND user_id = $2`, postID, userID)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		ra, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if ra > 0 {
			return nil
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO likes (post_id, user_id) VALUES ($1, $2)`, postID, userID); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		liked = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return liked, nil
}

func (r *PostgresRepository) Likers(ctx context.Context, postID string) ([]models.User, error) {
	query := `
		SELECT u.id, u.name
		FROM likes l
		JOIN users u ON u.id = l.user_id
		WHERE l.post_id = $1
		ORDER BY u.name
	`
	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name); err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
