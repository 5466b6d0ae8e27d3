package service

import (
	"context"
	"errors"

	"github.com/dtroode/socialmesh/internal/apperror"
	"github.com/dtroode/socialmesh/internal/model"
)

// Refresh mints a new access token for the owner of a live session. The refresh
// token itself is not rotated.
func (a *Auth) Refresh(ctx context.Context, refreshToken string) (accessToken string, err error) {
	defer func() { a.metrics.ObserveAuth("refresh", err) }()

	if refreshToken == "" {
		return "", apperror.NewNotFound("could not find refresh token")
	}

	now := a.now()
	session, err := a.sessionStore.GetValid(ctx, refreshToken, now)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			a.logger.Error("Auth service: failed to get session",
				"error", err.Error())
			return "", apperror.NewInternal("failed to get session", err)
		}

		// the record may still exist past its expiry
		if err := a.sessionStore.DeleteExpired(ctx, refreshToken, now); err != nil {
			a.logger.Warn("Auth service: failed to purge expired session",
				"error", err.Error())
		}
		return "", apperror.NewForbidden("invalid refresh token")
	}

	accessToken, err = a.tokens.IssueAccessToken(session.UserID)
	if err != nil {
		a.logger.Error("Auth service: failed to issue access token",
			"user_id", session.UserID,
			"error", err.Error())
		return "", apperror.NewInternal("failed to issue access token", err)
	}

	a.logger.Info("Auth service: access token refreshed",
		"user_id", session.UserID)

	return accessToken, nil
}

// Logout deletes the session identified by refreshToken. A session that no longer
// exists is not an error.
func (a *Auth) Logout(ctx context.Context, refreshToken string) (err error) {
	defer func() { a.metrics.ObserveAuth("logout", err) }()

	if refreshToken == "" {
		return apperror.NewNotFound("could not find refresh token")
	}

	if err := a.sessionStore.DeleteByID(ctx, refreshToken); err != nil {
		a.logger.Error("Auth service: failed to delete session",
			"error", err.Error())
		return apperror.NewInternal("failed to delete session", err)
	}

	a.logger.Info("Auth service: session closed")
	return nil
}
