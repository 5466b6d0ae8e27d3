package model

import (
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrSigningKey is returned when the access token signing key is not configured.
	ErrSigningKey = errors.New("signing key is unavailable")
	// ErrMissingToken is returned when no access token was supplied.
	ErrMissingToken = errors.New("access token is missing")
	// ErrInvalidToken is returned on a bad signature, malformed token or expiry.
	ErrInvalidToken = errors.New("access token is invalid")
)

// TokenIssuer creates and verifies access tokens and mints opaque refresh tokens.
type TokenIssuer interface {
	Issue(userID uuid.UUID) (TokenPair, error)
	IssueAccessToken(userID uuid.UUID) (string, error)
	Verify(accessToken string) (uuid.UUID, error)
}

// TokenPair is the result of a successful login.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// PasswordHasher hashes and verifies passwords with a memory-hard function.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(encodedHash, password string) (bool, error)
}
