package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/gradebook-backend/internal/model"
)

// UserRepository handles account data access.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `id, username, email, password_hash, roles, created_at, updated_at`

func (r *UserRepository) getOne(ctx context.Context, where string, arg any) (*model.User, error) {
	u := &model.User{}
	var roles []string
	err := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &roles, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	u.Roles = model.NewRoleSet(roles...)
	return u, nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id int) (*model.User, error) {
	return r.getOne(ctx, `id = $1`, id)
}

// GetByLogin retrieves a user whose username or email (case-insensitive) equals login.
func (r *UserRepository) GetByLogin(ctx context.Context, login string) (*model.User, error) {
	return r.getOne(ctx, `username = $1 OR lower(email) = lower($1)`, login)
}

// Create inserts a new user. A taken username or email yields ErrDuplicate.
func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	return mapErr(r.pool.QueryRow(ctx,
		`INSERT INTO users (username, email, password_hash, roles)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		u.Username, u.Email, u.PasswordHash, u.Roles.Strings(),
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt))
}

// Update overwrites email, password hash and roles.
func (r *UserRepository) Update(ctx context.Context, u *model.User) error {
	return mapErr(r.pool.QueryRow(ctx,
		`UPDATE users SET email = $2, password_hash = $3, roles = $4, updated_at = now()
		 WHERE id = $1
		 RETURNING updated_at`,
		u.ID, u.Email, u.PasswordHash, u.Roles.Strings(),
	).Scan(&u.UpdatedAt))
}
