package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/sousadfs/supermercado-happe/internal/models"
	"github.com/sousadfs/supermercado-happe/internal/storage"
	"github.com/sousadfs/supermercado-happe/internal/storage/postgres/migrations"
)

// Ensure Store satisfies the storage.UserStore interface at compile time.
var _ storage.UserStore = (*Store)(nil)

const uniqueViolation = "23505"

const userColumns = `id, email, password_hash, name, gender, location, website,
	facebook_id, facebook_token, password_reset_token, password_reset_expires, created_at`

// Store provides Postgres-backed persistence for users.
type Store struct {
	pool *pgxpool.Pool
}

// NewUserStore connects to the database, applies pending migrations, and
// returns a ready store.
func NewUserStore(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := migrate(ctx, databaseURL); err != nil {
		pool.Close()
		return nil, err
	}

	return &Store{pool: pool}, nil
}

// Close releases database resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func migrate(ctx context.Context, databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// CreateUser inserts a new user row. A conflict on the email unique index
// surfaces as storage.ErrDuplicateEmail.
func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	const query = `
	INSERT INTO users (email, password_hash, name, gender, location, website, facebook_id, facebook_token)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING ` + userColumns

	row := s.pool.QueryRow(ctx, query,
		user.Email, user.PasswordHash, user.Name, user.Gender,
		user.Location, user.Website, user.FacebookID, user.FacebookToken)

	created, err := scanUser(row)
	if err != nil {
		return models.User{}, mapUniqueViolation(err)
	}
	return created, nil
}

// FindByID fetches a user by primary key.
func (s *Store) FindByID(ctx context.Context, id int64) (models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(s.pool.QueryRow(ctx, query, id))
}

// FindByEmail fetches a user by email address.
func (s *Store) FindByEmail(ctx context.Context, email string) (models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(s.pool.QueryRow(ctx, query, email))
}

// FindByFacebookID fetches the user linked to the Facebook identity.
func (s *Store) FindByFacebookID(ctx context.Context, facebookID string) (models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE facebook_id = $1 AND facebook_id <> ''`
	return scanUser(s.pool.QueryRow(ctx, query, facebookID))
}

// UpdateProfile overwrites every profile field with the provided values.
func (s *Store) UpdateProfile(ctx context.Context, id int64, update storage.ProfileUpdate) error {
	const query = `
	UPDATE users
	SET email = $2, name = $3, gender = $4, location = $5, website = $6
	WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query,
		id, update.Email, update.Name, update.Gender, update.Location, update.Website)
	if err != nil {
		return mapUniqueViolation(err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// UpdatePassword replaces the stored password hash.
func (s *Store) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET password_hash = $2 WHERE id = $1`, id, passwordHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// SetResetToken stores a reset token and expiry on the user with the email.
func (s *Store) SetResetToken(ctx context.Context, email, token string, expires time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET password_reset_token = $2, password_reset_expires = $3 WHERE email = $1`,
		email, token, expires)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// FindByResetToken fetches the user holding an unexpired reset token.
func (s *Store) FindByResetToken(ctx context.Context, token string) (models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users
	WHERE password_reset_token = $1 AND password_reset_expires > NOW()`
	return scanUser(s.pool.QueryRow(ctx, query, token))
}

// ResetPassword consumes the token and replaces the password hash in a
// single statement, so there is no window where the token is still valid
// with the password already changed.
func (s *Store) ResetPassword(ctx context.Context, token, passwordHash string) (models.User, error) {
	const query = `
	UPDATE users
	SET password_hash = $2, password_reset_token = NULL, password_reset_expires = NULL
	WHERE password_reset_token = $1 AND password_reset_expires > NOW()
	RETURNING ` + userColumns

	return scanUser(s.pool.QueryRow(ctx, query, token, passwordHash))
}

// LinkFacebook records the Facebook identity on the user.
func (s *Store) LinkFacebook(ctx context.Context, id int64, facebookID, accessToken string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET facebook_id = $2, facebook_token = $3 WHERE id = $1`,
		id, facebookID, accessToken)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// UnlinkProvider clears the linkage for the provider kind. Other linkages
// and the password credential are untouched.
func (s *Store) UnlinkProvider(ctx context.Context, id int64, kind string) error {
	switch kind {
	case models.ProviderFacebook:
		_, err := s.pool.Exec(ctx,
			`UPDATE users SET facebook_id = '', facebook_token = '' WHERE id = $1`, id)
		return err
	default:
		return nil
	}
}

// DeleteUser removes the account row.
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	return err
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.Name, &user.Gender,
		&user.Location, &user.Website, &user.FacebookID, &user.FacebookToken,
		&user.PasswordResetToken, &user.PasswordResetExpires, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return storage.ErrDuplicateEmail
	}
	return err
}
