// Package drafts persists unpublished posts locally, so a composed post
// survives a crash or an offline session until it is published or discarded.
package drafts

import (
	"context"
	"time"
)

// Draft is a locally stored, not-yet-published post. Attachments hold local
// file paths; the bytes are read again at publish time.
type Draft struct {
	ID              string
	Body            string
	TaggedChildIDs  []string
	NoChildSelected bool
	Attachments     []string
	UpdatedAt       time.Time
}

// Repository stores drafts.
type Repository interface {
	Save(ctx context.Context, d *Draft) error
	GetAll(ctx context.Context) ([]Draft, error)
	GetByID(ctx context.Context, id string) (*Draft, error)
	DeleteByID(ctx context.Context, id string) error
}
