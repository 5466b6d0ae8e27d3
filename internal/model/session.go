package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SessionDuration is the lifetime of a refresh-token session and its cookie.
const SessionDuration = 7 * 24 * time.Hour

// SessionStore persists refresh-token sessions. A user owns at most one session.
type SessionStore interface {
	// Replace deletes any session of session.UserID and inserts session in one transaction.
	Replace(ctx context.Context, session Session) error
	// GetValid returns the session with the given id whose expiry is after now.
	GetValid(ctx context.Context, id string, now time.Time) (Session, error)
	// DeleteByID removes the session; deleting a missing id is not an error.
	DeleteByID(ctx context.Context, id string) error
	DeleteByUserID(ctx context.Context, userID uuid.UUID) error
	// DeleteExpired removes the session with the given id if it expired at or before now.
	DeleteExpired(ctx context.Context, id string, now time.Time) error
}

// Session binds a user to a live refresh token. ID is the refresh token value.
type Session struct {
	ID          string
	AccessToken string
	UserID      uuid.UUID
	ExpiresAt   time.Time
	CreatedAt   time.Time
}
