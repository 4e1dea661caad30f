// Package repomanager wires the PostgreSQL repositories to one database
// handle and applies the embedded migrations.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/dkravets/kitafeed/internal/server/migrations"
	"github.com/dkravets/kitafeed/internal/server/repositories/children"
	"github.com/dkravets/kitafeed/internal/server/repositories/comments"
	"github.com/dkravets/kitafeed/internal/server/repositories/media"
	"github.com/dkravets/kitafeed/internal/server/repositories/posts"
	"github.com/dkravets/kitafeed/internal/server/repositories/refreshtokens"
	"github.com/dkravets/kitafeed/internal/server/repositories/tickets"
	"github.com/dkravets/kitafeed/internal/server/repositories/users"
)

type PostgresRepositoryManager struct {
	db            *sql.DB
	users         users.Repository
	refreshTokens refreshtokens.Repository
	children      children.Repository
	posts         posts.Repository
	comments      comments.Repository
	media         media.Repository
	tickets       tickets.Repository
}

func (m *PostgresRepositoryManager) Conn() *sql.DB { return m.db }

func (m *PostgresRepositoryManager) Users() users.Repository                 { return m.users }
func (m *PostgresRepositoryManager) RefreshTokens() refreshtokens.Repository { return m.refreshTokens }
func (m *PostgresRepositoryManager) Children() children.Repository           { return m.children }
func (m *PostgresRepositoryManager) Posts() posts.Repository                 { return m.posts }
func (m *PostgresRepositoryManager) Comments() comments.Repository           { return m.comments }
func (m *PostgresRepositoryManager) Media() media.Repository                 { return m.media }
func (m *PostgresRepositoryManager) Tickets() tickets.Repository             { return m.tickets }

func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.UpContext(ctx, m.db, "."); err != nil {
		return err
	}

	return nil
}

func NewPostgresRepositoryManager(dsn string) (*PostgresRepositoryManager, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	m := &PostgresRepositoryManager{
		db:            db,
		users:         users.NewPostgresRepository(db),
		refreshTokens: refreshtokens.NewPostgresRepository(db),
		children:      children.NewPostgresRepository(db),
		posts:         posts.NewPostgresRepository(db),
		comments:      comments.NewPostgresRepository(db),
		media:         media.NewPostgresRepository(db),
		tickets:       tickets.NewPostgresRepository(db),
	}

	if err := m.RunMigrations(context.Background()); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return m, nil
}
