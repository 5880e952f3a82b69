package auth

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrAdminNotFound is returned by stores when no admin matches.
	ErrAdminNotFound = errors.New("auth: admin not found")
	// ErrEmailTaken is returned by stores when the email is already registered.
	ErrEmailTaken = errors.New("auth: email already registered")
)

// Admin is a dashboard operator. PasswordHash never leaves the process.
type Admin struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Store persists admins. Emails are stored lowercased.
type Store interface {
	FindByEmail(ctx context.Context, email string) (Admin, error)
	FindByID(ctx context.Context, id string) (Admin, error)
	Create(ctx context.Context, admin Admin) (Admin, error)
}
