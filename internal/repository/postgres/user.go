package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dtroode/socialmesh/internal/model"
)

var _ model.UserStore = (*UserRepository)(nil)

type UserRepository struct {
	db *Connection
}

func NewUserRepository(db *Connection) *UserRepository {
	return &UserRepository{
		db: db,
	}
}

func (r *UserRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) (model.User, error) {
	const query = `SELECT id, username, email, password, created_at, updated_at
			  FROM users WHERE username = $1 OR email = lower($2) LIMIT 1`

	var user model.User
	err := r.db.QueryRowContext(ctx, query, username, email).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to find user by username or email: %w", err)
	}

	return user, nil
}

func (r *UserRepository) GetByEmailWithSession(ctx context.Context, email string) (model.User, *model.Session, error) {
	const query = `SELECT u.id, u.username, u.email, u.password, u.created_at, u.updated_at,
			  rt.id, rt.access_token, rt.expires_in, rt.created_at
			  FROM users u
			  LEFT JOIN refresh_tokens rt ON rt.user_id = u.id
			  WHERE u.email = lower($1) LIMIT 1`

	var (
		user             model.User
		sessionID        sql.NullString
		sessionAccess    sql.NullString
		sessionExpiresAt sql.NullTime
		sessionCreatedAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt,
		&sessionID, &sessionAccess, &sessionExpiresAt, &sessionCreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, nil, model.ErrNotFound
		}
		return model.User{}, nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	if !sessionID.Valid {
		return user, nil, nil
	}

	return user, &model.Session{
		ID:          sessionID.String,
		AccessToken: sessionAccess.String,
		UserID:      user.ID,
		ExpiresAt:   sessionExpiresAt.Time,
		CreatedAt:   sessionCreatedAt.Time,
	}, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	const query = `SELECT id, username, email, password, created_at, updated_at
			  FROM users WHERE id = $1`

	var user model.User
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to get user by id: %w", err)
	}

	return user, nil
}

func (r *UserRepository) Create(ctx context.Context, user model.User) (model.User, error) {
	const query = `INSERT INTO users (id, username, email, password, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING id, username, email, password, created_at, updated_at`

	var saved model.User
	err := r.db.inTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, query,
			user.ID, user.Username, user.Email, user.PasswordHash, user.CreatedAt, user.UpdatedAt,
		).Scan(
			&saved.ID, &saved.Username, &saved.Email, &saved.PasswordHash, &saved.CreatedAt, &saved.UpdatedAt,
		)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return model.ErrNoRowsAffected
		case isUniqueViolation(err):
			return model.ErrAlreadyExists
		case err != nil:
			return fmt.Errorf("failed to create user: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.User{}, err
	}

	return saved, nil
}
