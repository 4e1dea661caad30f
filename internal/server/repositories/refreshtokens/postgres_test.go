package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/dkravets/kitafeed/internal/common"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestCreate_InsertsExpiry(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^\s*INSERT\s+INTO\s+refresh_tokens\s*\(user_id,\s*token,\s*expires_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3\)\s*$`

	mock.ExpectExec(q).
		WithArgs("u-1", "tok", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Create(context.Background(), "u-1", "tok", time.Hour); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFind_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	expires := time.Now().Add(time.Hour).Truncate(time.Second)
	rows := sqlmock.NewRows([]string{"user_id", "expires_at"}).AddRow("u-1", expires)
	mock.ExpectQuery(`(?s)^\s*SELECT\s+user_id,\s*expires_at\s+FROM\s+refresh_tokens`).
		WithArgs("tok").
		WillReturnRows(rows)

	got, err := repo.Find(context.Background(), "tok")
	if err != nil {
		t.Fatalf("Find error: %v", err)
	}
	if got.UserID != "u-1" || !got.Expires.Equal(expires) {
		t.Fatalf("unexpected token: %+v", got)
	}
}

func TestFind_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^\s*SELECT\s+user_id,\s*expires_at\s+FROM\s+refresh_tokens`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Find(context.Background(), "ghost")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^\s*DELETE\s+FROM\s+refresh_tokens\s+WHERE\s+token\s*=\s*\$1\s*$`).
		WithArgs("tok").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Delete(context.Background(), "tok"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
}
