package user

import (
	"errors"
	"strings"
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Public is the only user shape that leaves the process.
type Public struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

var (
	ErrNotFound     = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already in use")
	ErrInvalidRole  = errors.New("invalid role")
	ErrSelfDeletion = errors.New("cannot delete own account")
)

func Sanitize(u User) Public {
	return Public{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

func SanitizeAll(users []User) []Public {
	out := make([]Public, 0, len(users))
	for _, u := range users {
		out = append(out, Sanitize(u))
	}
	return out
}

// NormalizeEmail gives the single stored form of an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,max=120"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type CreateRequest struct {
	Name     string `json:"name" binding:"required,max=120"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"omitempty,oneof=user admin"`
}

// UpdateRequest is a partial update; nil fields keep the stored value.
type UpdateRequest struct {
	Name     *string `json:"name" binding:"omitempty,max=120"`
	Email    *string `json:"email" binding:"omitempty,email"`
	Password *string `json:"password" binding:"omitempty,min=6"`
	Role     *string `json:"role" binding:"omitempty,oneof=user admin"`
}

type RoleRequest struct {
	Role string `json:"role" binding:"required,oneof=user admin"`
}

// Changes is what a repo applies on update, after hashing.
type Changes struct {
	Name         *string
	Email        *string
	PasswordHash *string
	Role         *string
}
