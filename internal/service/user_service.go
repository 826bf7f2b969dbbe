package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/stemsi/gradebook-backend/internal/model"
	"github.com/stemsi/gradebook-backend/internal/repository"
)

// UserService manages account profiles and roles.
type UserService struct {
	users UserStore
	auth  *AuthService
	log   zerolog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(users UserStore, auth *AuthService, log zerolog.Logger) *UserService {
	return &UserService{
		users: users,
		auth:  auth,
		log:   log.With().Str("component", "user_service").Logger(),
	}
}

// Get returns one user or ErrNotFound.
func (s *UserService) Get(ctx context.Context, id int) (*model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, storageErr("get user", err)
	}
	return u, nil
}

// UpdateProfile changes the caller's own email and/or password.
func (s *UserService) UpdateProfile(ctx context.Context, id int, req model.UpdateProfileRequest) (*model.User, error) {
	return s.update(ctx, id, req.Email, req.Password, nil)
}

// AdminUpdate changes any account, including its roles.
func (s *UserService) AdminUpdate(ctx context.Context, id int, req model.AdminUpdateUserRequest) (*model.User, error) {
	var roles model.RoleSet
	if req.Roles != nil {
		roles = model.NewRoleSet(req.Roles...)
		if len(roles) == 0 {
			return nil, &ValidationError{Kind: EmptyField, Field: "roles", Message: "roles must name at least one known role"}
		}
	}
	u, err := s.update(ctx, id, req.Email, req.Password, roles)
	if err == nil && roles != nil {
		s.log.Info().Int("user_id", id).Strs("roles", roles.Strings()).Msg("User roles changed")
	}
	return u, err
}

// CreateUser registers an account with explicit roles. Used by operator tooling.
func (s *UserService) CreateUser(ctx context.Context, username, email, password string, roles model.RoleSet) (*model.User, error) {
	hash, err := s.auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &model.User{Username: username, Email: strings.ToLower(email), PasswordHash: hash, Roles: roles}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("username or email already registered: %w", ErrConflict)
		}
		return nil, storageErr("create user", err)
	}
	return u, nil
}

func (s *UserService) update(ctx context.Context, id int, email, password *string, roles model.RoleSet) (*model.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if email != nil {
		u.Email = strings.ToLower(*email)
	}
	if password != nil {
		hash, err := s.auth.HashPassword(*password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		u.PasswordHash = hash
	}
	if roles != nil {
		u.Roles = roles
	}
	if err := s.users.Update(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("email already registered: %w", ErrConflict)
		}
		return nil, storageErr("update user", err)
	}
	return u, nil
}
