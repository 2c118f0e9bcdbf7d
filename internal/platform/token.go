package platform

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/crosscasthq/crosscast-be/internal/domain"
)

// ConnectionStore is the collaborator contract the token lifecycle depends
// on. Implemented by internal/storage.
type ConnectionStore interface {
	GetConnection(ctx context.Context, connectionID string) (*domain.Connection, error)
	UpdateTokens(ctx context.Context, connectionID string, tokens *domain.TokenSet) error
	MarkConnectionBroken(ctx context.Context, connectionID string) error
}

// TokenManager applies the single token lifecycle policy to every adapter
// call: refresh when expired before calling, and refresh-then-retry exactly
// once when the platform rejects the token mid-call. A rejected refresh token
// is terminal; the connection is marked broken and nothing is retried.
type TokenManager struct {
	store  ConnectionStore
	logger *slog.Logger
	now    func() time.Time
}

// NewTokenManager creates a TokenManager backed by the given store.
func NewTokenManager(store ConnectionStore, logger *slog.Logger) *TokenManager {
	return &TokenManager{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// WithAuthRetry runs call with a valid token on conn, refreshing up front if
// the token is expired and retrying the call exactly once after a refresh if
// the platform rejects the token anyway.
func (m *TokenManager) WithAuthRetry(ctx context.Context, adapter Adapter, conn *domain.Connection, call func() error) error {
	if err := m.EnsureFresh(ctx, adapter, conn); err != nil {
		return err
	}

	err := call()
	if !errors.Is(err, domain.ErrAuthExpired) {
		return err
	}

	m.logger.Info("Access token rejected mid-call, refreshing once",
		slog.String("connection_id", conn.ID),
		slog.String("platform", conn.Platform),
	)

	if refreshErr := m.refresh(ctx, adapter, conn); refreshErr != nil {
		return refreshErr
	}

	return call()
}

// EnsureFresh refreshes the connection's tokens when the access token has
// expired. The store is updated before the caller proceeds, so a crash after
// refresh never loses the rotated refresh token.
func (m *TokenManager) EnsureFresh(ctx context.Context, adapter Adapter, conn *domain.Connection) error {
	if m.now().Before(conn.ExpiresAt) {
		return nil
	}

	if conn.RefreshToken == "" {
		return domain.ErrRefreshFailed
	}

	m.logger.Info("Access token expired, refreshing",
		slog.String("connection_id", conn.ID),
		slog.String("platform", conn.Platform),
	)

	return m.refresh(ctx, adapter, conn)
}

func (m *TokenManager) refresh(ctx context.Context, adapter Adapter, conn *domain.Connection) error {
	tokens, err := adapter.RefreshToken(ctx, conn)
	if err != nil {
		if errors.Is(err, domain.ErrRefreshFailed) {
			if markErr := m.store.MarkConnectionBroken(ctx, conn.ID); markErr != nil {
				m.logger.Error("Failed to mark connection broken",
					slog.String("connection_id", conn.ID),
					slog.String("error", markErr.Error()),
				)
			}
		}
		return err
	}

	if err := m.store.UpdateTokens(ctx, conn.ID, tokens); err != nil {
		return err
	}

	conn.AccessToken = tokens.AccessToken
	if tokens.RefreshToken != "" {
		conn.RefreshToken = tokens.RefreshToken
	}
	conn.ExpiresAt = tokens.ExpiresAt

	return nil
}
