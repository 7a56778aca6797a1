package profile

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// uniqueViolation は PostgreSQL の SQLSTATE unique_violation です。
const uniqueViolation = "23505"

// primaryKeyConstraint は user_profiles の主キー制約名です。
const primaryKeyConstraint = "user_profiles_pkey"

//go:embed migrations/*.sql
var migrations embed.FS

// Open は PostgreSQL へ接続します。呼び出し側で Close してください。
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// gooseUpContext はテストで差し替えるための継ぎ目です。
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Migrate は埋め込みのマイグレーションを適用します。
func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// PostgresStore は PostgreSQL をバックエンドとするプロフィールストアです。
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewPostgresStore は PostgresStore を作成します。
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

// Create はプロフィールを保存します。ID が空の場合は採番します。
// メールアドレスの一意制約違反は ErrDuplicateEmail、主キー違反は ErrDuplicateID を返します。
func (s *PostgresStore) Create(ctx context.Context, p *Profile) error {
	if p == nil {
		return fmt.Errorf("profile is nil")
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := s.now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	query := `INSERT INTO user_profiles (id, email, hashed_password, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`

	if _, err := s.db.ExecContext(ctx, query, p.ID, p.Email, p.HashedPassword, p.CreatedAt, p.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			if pgErr.ConstraintName == primaryKeyConstraint {
				return ErrDuplicateID
			}
			return ErrDuplicateEmail
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// FindByEmail はメールアドレスでプロフィールを取得します。
func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*Profile, error) {
	query := `SELECT id, email, hashed_password, created_at, updated_at FROM user_profiles
		WHERE email = $1`
	return s.findOne(ctx, query, email)
}

// FindByID は ID でプロフィールを取得します。
func (s *PostgresStore) FindByID(ctx context.Context, id string) (*Profile, error) {
	query := `SELECT id, email, hashed_password, created_at, updated_at FROM user_profiles
		WHERE id = $1`
	return s.findOne(ctx, query, id)
}

// DeleteByID はプロフィールを削除します。
func (s *PostgresStore) DeleteByID(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM user_profiles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) findOne(ctx context.Context, query string, arg string) (*Profile, error) {
	var p Profile
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&p.ID, &p.Email, &p.HashedPassword, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &p, nil
}
