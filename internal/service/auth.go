package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/socialmesh/internal/apperror"
	"github.com/dtroode/socialmesh/internal/logger"
	"github.com/dtroode/socialmesh/internal/metrics"
	"github.com/dtroode/socialmesh/internal/model"
)

// Auth is the session lifecycle manager: it registers users, opens sessions on
// login, mints access tokens from live sessions and closes sessions on logout.
type Auth struct {
	userStore    model.UserStore
	sessionStore model.SessionStore
	tokens       model.TokenIssuer
	hasher       model.PasswordHasher
	metrics      *metrics.Metrics
	logger       *logger.Logger
	now          func() time.Time
}

// Option configures Auth.
type Option func(*Auth)

// WithMetrics records operation outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Auth) {
		a.metrics = m
	}
}

// WithClock replaces the time source used for session expiry.
func WithClock(now func() time.Time) Option {
	return func(a *Auth) {
		a.now = now
	}
}

func NewAuth(
	userStore model.UserStore,
	sessionStore model.SessionStore,
	tokens model.TokenIssuer,
	hasher model.PasswordHasher,
	logger *logger.Logger,
	opts ...Option,
) *Auth {
	a := &Auth{
		userStore:    userStore,
		sessionStore: sessionStore,
		tokens:       tokens,
		hasher:       hasher,
		logger:       logger,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Register creates a user. No session is opened.
func (a *Auth) Register(ctx context.Context, input model.RegisterInput) (user model.User, err error) {
	defer func() { a.metrics.ObserveAuth("register", err) }()

	input, err = input.Validate()
	if err != nil {
		return model.User{}, err
	}

	a.logger.Debug("Auth service: starting user registration",
		"username", input.Username,
		"email", input.Email)

	existing, err := a.userStore.FindByUsernameOrEmail(ctx, input.Username, input.Email)
	switch {
	case err == nil:
		a.logger.Info("Auth service: user already exists",
			"email", input.Email,
			"user_id", existing.ID)
		return model.User{}, apperror.NewConflict("user is already existing")
	case !errors.Is(err, model.ErrNotFound):
		a.logger.Error("Auth service: failed to look up user",
			"email", input.Email,
			"error", err.Error())
		return model.User{}, apperror.NewInternal("failed to look up user", err)
	}

	hash, err := a.hasher.Hash(input.Password)
	if err != nil {
		a.logger.Error("Auth service: failed to hash password",
			"error", err.Error())
		return model.User{}, apperror.NewInternal("failed to hash password", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return model.User{}, apperror.NewInternal("failed to generate user id", err)
	}

	now := a.now()
	user, err = a.userStore.Create(ctx, model.User{
		ID:           id,
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, model.ErrAlreadyExists) {
			a.logger.Info("Auth service: user created concurrently",
				"email", input.Email)
			return model.User{}, apperror.NewConflict("user is already existing")
		}
		a.logger.Error("Auth service: failed to create user",
			"email", input.Email,
			"error", err.Error())
		return model.User{}, apperror.NewInternal("something went wrong", err)
	}

	a.logger.Info("Auth service: user registered",
		"user_id", user.ID)

	return user, nil
}

// Login opens a new session for the user with the given email. presentedRefreshToken is
// the refresh token from the caller's signed cookie, or "" when the caller has none.
func (a *Auth) Login(ctx context.Context, input model.LoginInput, presentedRefreshToken string) (pair model.TokenPair, err error) {
	defer func() { a.metrics.ObserveAuth("login", err) }()

	input, err = input.Validate()
	if err != nil {
		return model.TokenPair{}, err
	}

	if presentedRefreshToken != "" {
		return model.TokenPair{}, apperror.NewConflict("refresh token is still available")
	}

	user, session, err := a.userStore.GetByEmailWithSession(ctx, input.Email)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.TokenPair{}, apperror.NewNotFound(fmt.Sprintf("could not find user by email '%s'", input.Email))
		}
		a.logger.Error("Auth service: failed to get user by email",
			"email", input.Email,
			"error", err.Error())
		return model.TokenPair{}, apperror.NewInternal("failed to get user", err)
	}

	if session != nil {
		if err := a.sessionStore.DeleteByUserID(ctx, user.ID); err != nil {
			a.logger.Error("Auth service: failed to invalidate previous session",
				"user_id", user.ID,
				"error", err.Error())
			return model.TokenPair{}, apperror.NewInternal("failed to invalidate previous session", err)
		}
		a.logger.Debug("Auth service: previous session invalidated",
			"user_id", user.ID)
	}

	ok, err := a.hasher.Verify(user.PasswordHash, input.Password)
	if err != nil {
		a.logger.Error("Auth service: failed to verify password",
			"user_id", user.ID,
			"error", err.Error())
		return model.TokenPair{}, apperror.NewInternal("failed to verify password", err)
	}
	if !ok {
		a.logger.Info("Auth service: password mismatch",
			"user_id", user.ID)
		return model.TokenPair{}, apperror.NewForbidden("password does not match")
	}

	pair, err = a.tokens.Issue(user.ID)
	if err != nil {
		a.logger.Error("Auth service: failed to issue tokens",
			"user_id", user.ID,
			"error", err.Error())
		return model.TokenPair{}, apperror.NewInternal("failed to issue tokens", err)
	}

	now := a.now()
	err = a.sessionStore.Replace(ctx, model.Session{
		ID:          pair.RefreshToken,
		AccessToken: pair.AccessToken,
		UserID:      user.ID,
		ExpiresAt:   now.Add(model.SessionDuration),
		CreatedAt:   now,
	})
	if err != nil {
		if errors.Is(err, model.ErrAlreadyExists) {
			a.logger.Info("Auth service: concurrent login lost the race",
				"user_id", user.ID)
			return model.TokenPair{}, apperror.NewConflict("another login for this user is in progress")
		}
		a.logger.Error("Auth service: failed to persist session",
			"user_id", user.ID,
			"error", err.Error())
		return model.TokenPair{}, apperror.NewInternal("failed to persist session", err)
	}

	a.logger.Info("Auth service: user logged in",
		"user_id", user.ID)

	return pair, nil
}

// Me returns the user the gateway vouched for.
func (a *Auth) Me(ctx context.Context, userID uuid.UUID) (model.User, error) {
	user, err := a.userStore.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.User{}, apperror.NewNotFound("could not find user")
		}
		return model.User{}, apperror.NewInternal("failed to get user", err)
	}
	return user, nil
}
