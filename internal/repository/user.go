package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"bookstore-service/internal/entity"
)

const userColumns = `id, username, email, password_hash, role, created_at`

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db}
}

func (r *UserRepository) CreateUser(ctx context.Context, user *entity.User) (int64, error) {
	query := `INSERT INTO users (username, email, password_hash, role) VALUES (?, ?, ?, ?)`
	id, err := insert(ctx, r.db, query, user.Username, user.Email, user.PasswordHash, user.Role)
	if err != nil {
		return 0, errors.Wrap(err, "create user")
	}
	return id, nil
}

func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = ?`
	user, err := fetchOne[entity.User](ctx, r.db, query, username)
	return user, errors.Wrap(err, "get user by username")
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER(?)`
	user, err := fetchOne[entity.User](ctx, r.db, query, email)
	return user, errors.Wrap(err, "get user by email")
}

func (r *UserRepository) GetUserByID(ctx context.Context, id int64) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	user, err := fetchOne[entity.User](ctx, r.db, query, id)
	return user, errors.Wrap(err, "get user by id")
}

// UpdateRole is not reachable from the HTTP API; the CLI uses it to promote managers.
func (r *UserRepository) UpdateRole(ctx context.Context, username string, role entity.Role) (int64, error) {
	query := `UPDATE users SET role = ? WHERE username = ?`
	n, err := update(ctx, r.db, query, role, username)
	return n, errors.Wrap(err, "update user role")
}
