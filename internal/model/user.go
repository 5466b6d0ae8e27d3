package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserStore defines persistence operations for users.
type UserStore interface {
	// FindByUsernameOrEmail returns the first user whose username or email matches.
	FindByUsernameOrEmail(ctx context.Context, username, email string) (User, error)
	// GetByEmailWithSession returns the user with the given email and its session, if any.
	GetByEmailWithSession(ctx context.Context, email string) (User, *Session, error)
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	// Create inserts the user in a read committed transaction.
	Create(ctx context.Context, user User) (User, error)
}

// User represents a registered account.
type User struct {
	ID           uuid.UUID
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
