package token

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dtroode/socialmesh/internal/model"
)

// DefaultAccessTTL is the lifetime of an access token.
const DefaultAccessTTL = time.Hour

const refreshTokenBytes = 40

// Claims represents access token claims.
type Claims struct {
	jwt.RegisteredClaims
	UserID uuid.UUID `json:"userId"`
}

// JWT implements model.TokenIssuer with HS256 access tokens and opaque refresh tokens.
type JWT struct {
	secretKey []byte
	accessTTL time.Duration
	now       func() time.Time
}

var _ model.TokenIssuer = (*JWT)(nil)

// Option configures JWT.
type Option func(*JWT)

// WithAccessTTL overrides the access token lifetime.
func WithAccessTTL(ttl time.Duration) Option {
	return func(j *JWT) {
		if ttl > 0 {
			j.accessTTL = ttl
		}
	}
}

// WithClock replaces the time source used for issuing and verifying.
func WithClock(now func() time.Time) Option {
	return func(j *JWT) {
		j.now = now
	}
}

// NewJWT creates a new token issuer with the provided secret key.
func NewJWT(secretKey string, opts ...Option) *JWT {
	j := &JWT{
		secretKey: []byte(secretKey),
		accessTTL: DefaultAccessTTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Issue creates an access token for userID and a fresh refresh token.
func (j *JWT) Issue(userID uuid.UUID) (model.TokenPair, error) {
	access, err := j.IssueAccessToken(userID)
	if err != nil {
		return model.TokenPair{}, err
	}

	refresh, err := newRefreshToken()
	if err != nil {
		return model.TokenPair{}, err
	}

	return model.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// IssueAccessToken creates a signed access token that expires after the configured TTL.
func (j *JWT) IssueAccessToken(userID uuid.UUID) (string, error) {
	if len(j.secretKey) == 0 {
		return "", model.ErrSigningKey
	}

	now := j.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.accessTTL)),
		},
		UserID: userID,
	})

	tokenString, err := token.SignedString(j.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", errors.Join(model.ErrSigningKey, err))
	}

	return tokenString, nil
}

// Verify validates signature and expiry and returns the embedded user id.
func (j *JWT) Verify(tokenString string) (uuid.UUID, error) {
	if strings.TrimSpace(tokenString) == "" {
		return uuid.Nil, model.ErrMissingToken
	}
	if len(j.secretKey) == 0 {
		return uuid.Nil, model.ErrSigningKey
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return j.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %w", model.ErrInvalidToken, err)
	}
	if claims.UserID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: user id claim is empty", model.ErrInvalidToken)
	}

	return claims.UserID, nil
}

func newRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
