package dto

import (
	"time"

	"github.com/finopsd/recon_backend/internal/core/domain"
)

// CreateUserRequest provisions a new user. Admin only.
type CreateUserRequest struct {
	Name     string          `json:"name" binding:"required"`
	Email    string          `json:"email" binding:"required,email"`
	Password string          `json:"password" binding:"required,min=8"`
	Role     domain.UserRole `json:"role" binding:"required,oneof=ANALYST AUDITOR MANAGER ADMIN"`
}

// UpdateUserRequest updates user details. Nil fields are left unchanged.
type UpdateUserRequest struct {
	Name *string          `json:"name,omitempty"`
	Role *domain.UserRole `json:"role,omitempty" binding:"omitempty,oneof=ANALYST AUDITOR MANAGER ADMIN"`
}

// LoginRequest authenticates a user with email and password.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UserResponse is the serializable representation of a user. The password hash
// never leaves the service layer.
type UserResponse struct {
	UserID    string    `json:"userID"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// ToUserResponse converts a domain user to its response DTO.
func ToUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		UserID:    u.UserID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
	}
}

// ListUsersResponse is a page of users.
type ListUsersResponse struct {
	Users []UserResponse `json:"users"`
}

// LoginResponse carries the issued access token.
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      UserResponse `json:"user"`
}
