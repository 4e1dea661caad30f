// Package tickets provides the PostgreSQL-backed support ticket repository.
package tickets

import (
	"context"
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

func (r *PostgresRepository) GetAll(ctx context.Context) ([]models.Ticket, error) {
	query := `SELECT id, subject, status FROM tickets ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Ticket
	for rows.Next() {
		var t models.Ticket
		if err := rows.Scan(&t.ID, &t.Subject, &t.Status); err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Close transitions an open ticket to closed. Closing an already closed
// ticket reports common.ErrNotFound.
func (r *PostgresRepository) Close(ctx context.Context, id string) error {
	query := `UPDATE tickets SET status = $2 WHERE id = $1 AND status = $3`

	res, err := r.db.ExecContext(ctx, query, id, models.TicketStatusClosed, models.TicketStatusOpen)
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
