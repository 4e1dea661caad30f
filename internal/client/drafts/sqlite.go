package drafts

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dkravets/kitafeed/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Save upserts a draft by id and stamps it with the current time.
func (r *SQLiteRepository) Save(ctx context.Context, d *Draft) error {
	children, err := json.Marshal(d.TaggedChildIDs)
	if err != nil {
		return fmt.Errorf("failed to encode tagged children: %w", err)
	}
	attachments, err := json.Marshal(d.Attachments)
	if err != nil {
		return fmt.Errorf("failed to encode attachments: %w", err)
	}

	d.UpdatedAt = time.Now().UTC().Truncate(time.Second)

	query := ` INSERT INTO drafts (id, body, tagged_child_ids, no_child, attachments, updated_at)
			values (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET body = excluded.body,
				tagged_child_ids = excluded.tagged_child_ids,
				no_child = excluded.no_child,
				attachments = excluded.attachments,
				updated_at = excluded.updated_at
	`
	_, err = r.db.ExecContext(ctx, query,
		d.ID, d.Body, string(children), d.NoChildSelected, string(attachments), d.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert draft: %w", err)
	}
	return nil
}

// GetAll lists all drafts, newest first.
func (r *SQLiteRepository) GetAll(ctx context.Context) ([]Draft, error) {
	query := `select id, body, tagged_child_ids, no_child, attachments, updated_at from drafts order by updated_at desc`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select drafts: %w", err)
	}
	defer rows.Close()

	var result []Draft
	for rows.Next() {
		item, err := scanDraft(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// GetByID returns a single draft.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Draft, error) {
	query := `select id, body, tagged_child_ids, no_child, attachments, updated_at from drafts where id=?`
	row := r.db.QueryRowContext(ctx, query, id)

	d, err := scanDraft(row)
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return d, nil
}

// DeleteByID removes a draft. It expects exactly one row to be affected.
func (r *SQLiteRepository) DeleteByID(ctx context.Context, id string) error {
	query := `delete from drafts where id=?`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return fmt.Errorf("wrong rows affected count: %d", ra)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDraft(row scanner) (*Draft, error) {
	d := &Draft{}
	var children, attachments string
	var updated int64
	if err := row.Scan(&d.ID, &d.Body, &children, &d.NoChildSelected, &attachments, &updated); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(children), &d.TaggedChildIDs); err != nil {
		return nil, fmt.Errorf("failed to decode tagged children: %w", err)
	}
	if err := json.Unmarshal([]byte(attachments), &d.Attachments); err != nil {
		return nil, fmt.Errorf("failed to decode attachments: %w", err)
	}
	d.UpdatedAt = time.Unix(updated, 0).UTC()
	return d, nil
}
