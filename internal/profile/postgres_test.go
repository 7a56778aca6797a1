package profile

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pressly/goose/v3"
)

func newStoreWithMock(t *testing.T) (*PostgresStore, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	store := NewPostgresStore(db)
	store.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return store, mock, db
}

const (
	insertQuery = `(?s)^INSERT\s+INTO\s+user_profiles\s*\(id,\s*email,\s*hashed_password,\s*created_at,\s*updated_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5\)$`
	selectEmail = `(?s)^SELECT\s+id,\s*email,\s*hashed_password,\s*created_at,\s*updated_at\s+FROM\s+user_profiles\s+WHERE\s+email\s*=\s*\$1$`
	selectID    = `(?s)^SELECT\s+id,\s*email,\s*hashed_password,\s*created_at,\s*updated_at\s+FROM\s+user_profiles\s+WHERE\s+id\s*=\s*\$1$`
	deleteQuery = `^DELETE\s+FROM\s+user_profiles\s+WHERE\s+id\s*=\s*\$1$`
)

func TestPostgresCreate_Success(t *testing.T) {
	store, mock, db := newStoreWithMock(t)
	defer db.Close()

	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectExec(insertQuery).
		WithArgs(sqlmock.AnyArg(), "alice@example.com", "digest", created, created).
		WillReturnResult(sqlmock.NewResult(0, 1))

	p := &Profile{Email: "alice@example.com", HashedPassword: "digest"}
	if err := store.Create(context.Background(), p); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if p.ID == "" {
		t.Fatal("expected ID to be assigned")
	}
	if !p.CreatedAt.Equal(created) || !p.UpdatedAt.Equal(created) {
		t.Fatalf("unexpected timestamps: %+v", p)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresCreate_UniqueViolation(t *testing.T) {
	store, mock, db := newStoreWithMock(t)
	defer db.Close()

	mock.ExpectExec(insertQuery).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "user_profiles_email_key"})

	err := store.Create(context.Background(), &Profile{Email: "alice@example.com", HashedPassword: "digest"})
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestPostgresCreate_PrimaryKeyViolation(t *testing.T) {
	store, mock, db := newStoreWithMock(t)
	defer db.Close()

	mock.ExpectExec(insertQuery).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "user_profiles_pkey"})

	err := store.Create(context.Background(), &Profile{ID: "u-1", Email: "bob@example.com", HashedPassword: "digest"})
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
}

func TestPostgresCreate_DBError(t *testing.T) {
	store, mock, db := newStoreWithMock(t)
	defer db.Close()

	mock.ExpectExec(insertQuery).WillReturnError(errors.New("db down"))

	err := store.Create(context.Background(), &Profile{Email: "alice@example.com", HashedPassword: "digest"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
	if errors.Is(err, ErrDuplicateEmail) {
		t.Fatal("generic db error must not be reported as duplicate")
	}
}

func TestPostgresFindByEmail(t *testing.T) {
	store, mock, db := newStoreWithMock(t)
	defer db.Close()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "email", "hashed_password", "created_at", "updated_at"}).
		AddRow("u-1", "alice@example.com", "digest", now, now)
	mock.ExpectQuery(selectEmail).WithArgs("alice@example.com").WillReturnRows(rows)

	p, err := store.FindByEmail(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("FindByEmail error: %v", err)
	}
	if p == nil || p.ID != "u-1" || p.HashedPassword != "digest" {
		t.Fatalf("unexpected profile: %+v", p)
	}
}

func TestPostgresFindByEmail_NotFound(t *testing.T) {
	store, mock, db := newStoreWithMock(t)
	defer db.Close()

	mock.ExpectQuery(selectEmail).WithArgs("ghost@example.com").WillReturnError(sql.ErrNoRows)

	p, err := store.FindByEmail(context.Background(), "ghost@example.com")
	if err != nil || p != nil {
		t.Fatalf("expected nil, nil; got %+v, %v", p, err)
	}
}

func TestPostgresFindByID_DBError(t *testing.T) {
	store, mock, db := newStoreWithMock(t)
	defer db.Close()

	mock.ExpectQuery(selectID).WithArgs("u-1").WillReturnError(errors.New("timeout"))

	if _, err := store.FindByID(context.Background(), "u-1"); err == nil {
		t.Fatal("expected error")
	}
}

func TestPostgresDeleteByID(t *testing.T) {
	store, mock, db := newStoreWithMock(t)
	defer db.Close()

	mock.ExpectExec(deleteQuery).WithArgs("u-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(deleteQuery).WithArgs("u-2").WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.DeleteByID(context.Background(), "u-1"); err != nil {
		t.Fatalf("DeleteByID error: %v", err)
	}
	if err := store.DeleteByID(context.Background(), "u-2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMigrateUsesEmbeddedMigrations(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	defer db.Close()

	orig := gooseUpContext
	defer func() { gooseUpContext = orig }()

	var gotDir string
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		gotDir = dir
		return nil
	}

	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("Migrate error: %v", err)
	}
	if gotDir != "migrations" {
		t.Fatalf("unexpected migrations dir: %q", gotDir)
	}

	entries, err := migrations.ReadDir("migrations")
	if err != nil || len(entries) == 0 {
		t.Fatalf("expected embedded migrations, got %v (err=%v)", entries, err)
	}
}

func TestMigratePropagatesError(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	defer db.Close()

	orig := gooseUpContext
	defer func() { gooseUpContext = orig }()
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	}

	if err := Migrate(context.Background(), db); err == nil {
		t.Fatal("expected error")
	}
}
