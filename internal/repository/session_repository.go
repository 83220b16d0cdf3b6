package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/prperemyshlev/school-auth-service/internal/domain"
	"github.com/prperemyshlev/school-auth-service/pkg/database"
)

// sessionRepository implements SessionRepository interface
type sessionRepository struct {
	db *database.Postgres
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *database.Postgres) SessionRepository {
	return &sessionRepository{db: db}
}

// Create creates a new session in the database
func (r *sessionRepository) Create(ctx context.Context, session *domain.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, access_token, status, login_at, expire_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if session.ID == "" {
		session.ID = uuid.New().String()
	}

	_, err := r.db.DB.ExecContext(ctx, query,
		session.ID,
		session.UserID,
		session.AccessToken,
		session.Status,
		session.LoginAt,
		session.ExpireAt,
	)

	if err != nil {
		if _, ok := uniqueConstraint(err); ok {
			return fmt.Errorf("session with this access token already exists: %w", ErrDuplicateToken)
		}
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// GetByAccessToken retrieves the session recorded for an access token
func (r *sessionRepository) GetByAccessToken(ctx context.Context, accessToken string) (*domain.Session, error) {
	query := `
		SELECT id, user_id, access_token, status, login_at, expire_at
		FROM sessions
		WHERE access_token = $1
	`

	session := &domain.Session{}
	err := r.db.DB.QueryRowContext(ctx, query, accessToken).Scan(
		&session.ID,
		&session.UserID,
		&session.AccessToken,
		&session.Status,
		&session.LoginAt,
		&session.ExpireAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get session by access token: %w", err)
	}

	return session, nil
}

// GetByUserID retrieves all sessions of a user, newest first
func (r *sessionRepository) GetByUserID(ctx context.Context, userID string) ([]*domain.Session, error) {
	query := `
		SELECT id, user_id, access_token, status, login_at, expire_at
		FROM sessions
		WHERE user_id = $1
		ORDER BY login_at DESC
	`

	rows, err := r.db.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get sessions by user id: %w", err)
	}
	defer rows.Close()

	var sessions []*domain.Session
	for rows.Next() {
		session := &domain.Session{}
		err := rows.Scan(
			&session.ID,
			&session.UserID,
			&session.AccessToken,
			&session.Status,
			&session.LoginAt,
			&session.ExpireAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}

		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}

	return sessions, nil
}

// UpdateStatus sets the recorded status of a session
func (r *sessionRepository) UpdateStatus(ctx context.Context, id string, status domain.SessionStatus) error {
	query := `UPDATE sessions SET status = $2 WHERE id = $1`

	result, err := r.db.DB.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update session status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("session with id %s not found: %w", id, ErrNotFound)
	}

	return nil
}
