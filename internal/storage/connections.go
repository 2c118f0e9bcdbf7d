package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/crosscasthq/crosscast-be/internal/domain"
)

// GetConnection retrieves an OAuth connection by its ID.
func (s *Storage) GetConnection(ctx context.Context, connectionID string) (*domain.Connection, error) {
	query := `
		SELECT connection_id, user_id, platform, access_token, refresh_token,
		       expires_at, platform_user_id, platform_username, status,
		       created_at, updated_at
		FROM connections
		WHERE connection_id = $1
	`

	var conn domain.Connection
	if err := s.db.GetContext(ctx, &conn, query, connectionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrConnectionNotFound
		}
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}

	return &conn, nil
}

// UpdateTokens persists a refreshed token set. The refresh token is only
// replaced when the platform rotated it; an empty RefreshToken keeps the
// stored one.
func (s *Storage) UpdateTokens(ctx context.Context, connectionID string, tokens *domain.TokenSet) error {
	query := `
		UPDATE connections
		SET access_token = $1,
		    refresh_token = CASE WHEN $2 = '' THEN refresh_token ELSE $2 END,
		    expires_at = $3,
		    status = $4,
		    updated_at = NOW()
		WHERE connection_id = $5
	`

	result, err := s.db.ExecContext(ctx, query,
		tokens.AccessToken,
		tokens.RefreshToken,
		tokens.ExpiresAt,
		domain.ConnectionStatusActive,
		connectionID,
	)
	if err != nil {
		return fmt.Errorf("failed to update tokens: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrConnectionNotFound
	}

	s.logger.Info("Connection tokens updated",
		slog.String("connection_id", connectionID),
	)

	return nil
}

// MarkConnectionBroken flags a connection whose refresh token was rejected so
// the connection-management UI can prompt a reconnect. Stored tokens are left
// untouched.
func (s *Storage) MarkConnectionBroken(ctx context.Context, connectionID string) error {
	query := `
		UPDATE connections
		SET status = $1,
		    updated_at = NOW()
		WHERE connection_id = $2
	`

	if _, err := s.db.ExecContext(ctx, query, domain.ConnectionStatusBroken, connectionID); err != nil {
		return fmt.Errorf("failed to mark connection broken: %w", err)
	}

	s.logger.Warn("Connection marked broken",
		slog.String("connection_id", connectionID),
	)

	return nil
}
