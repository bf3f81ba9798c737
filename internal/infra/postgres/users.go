package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mzeman/cloudspend/internal/spend"
)

// UserRepository provides account lookup for authentication and account
// creation for admin seeding. It implements spend.UserRepository.
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a repository on the shared handle.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetUserByUsername fetches one user, or spend.ErrNotFound.
func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (*spend.User, error) {
	query := `
		SELECT id, username, password_hash, role, created_at
		FROM users
		WHERE username = $1`

	var user spend.User
	err := r.db.withRetry(ctx, "GetUserByUsername", func() error {
		err := r.db.sql.QueryRowContext(ctx, query, username).Scan(
			&user.ID,
			&user.Username,
			&user.PasswordHash,
			&user.Role,
			&user.CreatedAt,
		)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("GetUserByUsername: user %q: %w", username, spend.ErrNotFound)
		}
		return classify("GetUserByUsername: fetching user", err)
	})
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// InsertUser stores a new user. A duplicate username surfaces as a
// constraint-kind error.
func (r *UserRepository) InsertUser(ctx context.Context, user *spend.User) error {
	query := `
		INSERT INTO users (id, username, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	return r.db.withRetry(ctx, "InsertUser", func() error {
		_, err := r.db.sql.ExecContext(ctx, query,
			user.ID,
			user.Username,
			user.PasswordHash,
			string(user.Role),
			user.CreatedAt,
		)
		return classify("InsertUser: inserting user", err)
	})
}
