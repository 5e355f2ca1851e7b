package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cinematch/cinematch/internal/models"
	"github.com/cinematch/cinematch/internal/server/storage"
)

// CreateSession inserts a new session with valid=true and no refresh hash
func (q *queries) CreateSession(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, user_agent, ip_address, refresh_token_hash, valid, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := q.db.ExecContext(ctx, query,
		session.ID,
		session.UserID,
		session.UserAgent,
		session.IPAddress,
		session.RefreshTokenHash,
		session.Valid,
		session.CreatedAt,
		session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	return nil
}

// SetRefreshHash atomically replaces the stored refresh token hash.
// Обновляется только действующая сессия: у отозванной сессии хеш
// менять нельзя, valid=false — терминальное состояние.
func (q *queries) SetRefreshHash(ctx context.Context, sessionID, hash string) error {
	query := `
		UPDATE sessions
		SET refresh_token_hash = ?, updated_at = ?
		WHERE id = ? AND valid = 1
	`

	result, err := q.db.ExecContext(ctx, query, hash, time.Now().UTC(), sessionID)
	if err != nil {
		return fmt.Errorf("failed to set refresh hash: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return storage.ErrSessionNotFound
	}

	return nil
}

// GetValidSession retrieves session by ID, filtered to valid=true
func (q *queries) GetValidSession(ctx context.Context, sessionID string) (*models.Session, error) {
	query := `
		SELECT id, user_id, user_agent, ip_address, refresh_token_hash, valid, created_at, updated_at
		FROM sessions
		WHERE id = ? AND valid = 1
	`

	return q.scanSession(q.db.QueryRowContext(ctx, query, sessionID))
}

// GetValidUserSession retrieves session by ID scoped to a user, valid=true only
func (q *queries) GetValidUserSession(ctx context.Context, sessionID, userID string) (*models.Session, error) {
	query := `
		SELECT id, user_id, user_agent, ip_address, refresh_token_hash, valid, created_at, updated_at
		FROM sessions
		WHERE id = ? AND user_id = ? AND valid = 1
	`

	return q.scanSession(q.db.QueryRowContext(ctx, query, sessionID, userID))
}

// InvalidateSession sets valid=false. Повторная инвалидация или
// отсутствующая сессия не считаются ошибкой.
func (q *queries) InvalidateSession(ctx context.Context, sessionID string) error {
	query := `
		UPDATE sessions
		SET valid = 0, updated_at = ?
		WHERE id = ?
	`

	if _, err := q.db.ExecContext(ctx, query, time.Now().UTC(), sessionID); err != nil {
		return fmt.Errorf("failed to invalidate session: %w", err)
	}

	return nil
}

// scanSession читает одну строку sessions
func (q *queries) scanSession(row *sql.Row) (*models.Session, error) {
	session := &models.Session{}
	var userAgent, ipAddress, refreshHash sql.NullString

	err := row.Scan(
		&session.ID,
		&session.UserID,
		&userAgent,
		&ipAddress,
		&refreshHash,
		&session.Valid,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if userAgent.Valid {
		session.UserAgent = &userAgent.String
	}
	if ipAddress.Valid {
		session.IPAddress = &ipAddress.String
	}
	if refreshHash.Valid {
		session.RefreshTokenHash = &refreshHash.String
	}

	return session, nil
}
