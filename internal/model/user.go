package model

import "time"

// User is an account that can authenticate against the API.
type User struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Roles        RoleSet   `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SignupRequest is the payload for self-registration.
type SignupRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50,username"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=8,max=128,password"`
}

// LoginRequest authenticates with either username or email.
type LoginRequest struct {
	Login    string `json:"login" binding:"required,max=255"`
	Password string `json:"password" binding:"required,max=128"`
}

// LoginResponse is returned after a successful login.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        User      `json:"user"`
}

// UpdateProfileRequest changes the caller's own email or password.
type UpdateProfileRequest struct {
	Email    *string `json:"email" binding:"omitempty,email,max=255"`
	Password *string `json:"password" binding:"omitempty,min=8,max=128,password"`
}

// AdminUpdateUserRequest lets an administrator change any account, including roles.
type AdminUpdateUserRequest struct {
	Email    *string  `json:"email" binding:"omitempty,email,max=255"`
	Password *string  `json:"password" binding:"omitempty,min=8,max=128,password"`
	Roles    []string `json:"roles" binding:"omitempty,min=1,dive,oneof=admin teacher student"`
}
