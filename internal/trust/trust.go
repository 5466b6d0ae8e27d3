// Package trust carries the gateway's identity assertion to downstream services.
//
// The gateway always writes HeaderUserID, empty for anonymous callers. When a shared
// secret is configured it also writes HeaderSignature, a short-lived HS256 token whose
// subject is the user id, so a downstream service can tell a relayed identity from a
// forged header.
package trust

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	HeaderUserID    = "x-user-id"
	HeaderSignature = "x-user-signature"

	audience = "mesh-internal"
)

var (
	// ErrMissingSignature is returned when signing is enabled and the assertion is absent.
	ErrMissingSignature = errors.New("identity assertion is missing")
	// ErrBadSignature is returned when the assertion does not vouch for the relayed user id.
	ErrBadSignature = errors.New("identity assertion is invalid")
)

// Signer produces and checks identity assertions. A Signer with an empty secret is disabled.
type Signer struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

// NewSigner creates a Signer whose assertions are valid for maxAge.
func NewSigner(secret string, maxAge time.Duration) *Signer {
	return &Signer{secret: []byte(secret), maxAge: maxAge, now: time.Now}
}

// Enabled reports whether a secret is configured.
func (s *Signer) Enabled() bool {
	return s != nil && len(s.secret) > 0
}

// Sign returns an assertion for userID.
func (s *Signer) Sign(userID string) (string, error) {
	now := s.now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		Audience:  jwt.ClaimStrings{audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.maxAge)),
	})

	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign identity assertion: %w", err)
	}
	return signed, nil
}

// Verify checks that assertion is fresh and names userID.
func (s *Signer) Verify(userID, assertion string) error {
	if assertion == "" {
		return ErrMissingSignature
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(assertion, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBadSignature, err)
	}
	if claims.Subject != userID {
		return fmt.Errorf("%w: subject does not match relayed user", ErrBadSignature)
	}
	return nil
}
