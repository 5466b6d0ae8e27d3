package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/socialmesh/internal/model"
)

var _ model.SessionStore = (*SessionRepository)(nil)

type SessionRepository struct {
	db *Connection
}

func NewSessionRepository(db *Connection) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Replace(ctx context.Context, session model.Session) error {
	const (
		deleteQuery = `DELETE FROM refresh_tokens WHERE user_id = $1`
		insertQuery = `INSERT INTO refresh_tokens (id, access_token, user_id, expires_in, created_at)
			  VALUES ($1, $2, $3, $4, $5)`
	)

	return r.db.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, deleteQuery, session.UserID); err != nil {
			return fmt.Errorf("failed to delete previous session: %w", err)
		}

		res, err := tx.ExecContext(ctx, insertQuery,
			session.ID, session.AccessToken, session.UserID, session.ExpiresAt, session.CreatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return model.ErrAlreadyExists
			}
			return fmt.Errorf("failed to create session: %w", err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}
		if n != 1 {
			return model.ErrNoRowsAffected
		}
		return nil
	})
}

func (r *SessionRepository) GetValid(ctx context.Context, id string, now time.Time) (model.Session, error) {
	const query = `SELECT id, access_token, user_id, expires_in, created_at
			  FROM refresh_tokens WHERE id = $1 AND expires_in > $2`

	var s model.Session
	err := r.db.QueryRowContext(ctx, query, id, now).Scan(
		&s.ID, &s.AccessToken, &s.UserID, &s.ExpiresAt, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Session{}, model.ErrNotFound
		}
		return model.Session{}, fmt.Errorf("failed to get session: %w", err)
	}
	return s, nil
}

func (r *SessionRepository) DeleteByID(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (r *SessionRepository) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete user session: %w", err)
	}
	return nil
}

func (r *SessionRepository) DeleteExpired(ctx context.Context, id string, now time.Time) error {
	const query = `DELETE FROM refresh_tokens WHERE id = $1 AND expires_in <= $2`
	if _, err := r.db.ExecContext(ctx, query, id, now); err != nil {
		return fmt.Errorf("failed to delete expired session: %w", err)
	}
	return nil
}
