package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/crosscasthq/crosscast-be/internal/domain"
)

const queueItemColumns = `
	item_id, workflow_id, source_platform, platform_item_id, title,
	description, thumbnail, duration_seconds, status, target_platform_id,
	error_message, claimed_by, created_at, updated_at`

// AddMarker appends a processed marker. Returns false when the marker already
// exists, which signals the scanner to skip enqueueing the item.
func (s *Storage) AddMarker(ctx context.Context, marker *domain.ProcessedMarker) (bool, error) {
	query := `
		INSERT INTO processed_markers (workflow_id, source_platform, platform_item_id, processed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (workflow_id, source_platform, platform_item_id) DO NOTHING
	`

	result, err := s.db.ExecContext(ctx, query,
		marker.WorkflowID,
		marker.SourcePlatform,
		marker.PlatformItemID,
		marker.ProcessedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to add processed marker: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// EnqueueItem inserts a new queue item in PENDING status.
func (s *Storage) EnqueueItem(ctx context.Context, item *domain.QueueItem) error {
	query := `
		INSERT INTO queue_items (
			item_id, workflow_id, source_platform, platform_item_id, title,
			description, thumbnail, duration_seconds, status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10, $11
		)
	`

	_, err := s.db.ExecContext(ctx, query,
		item.ID,
		item.WorkflowID,
		item.SourcePlatform,
		item.PlatformItemID,
		item.Title,
		item.Description,
		item.Thumbnail,
		item.DurationSeconds,
		item.Status,
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue item: %w", err)
	}

	return nil
}

// GetItem retrieves a queue item by its ID.
func (s *Storage) GetItem(ctx context.Context, itemID string) (*domain.QueueItem, error) {
	query := `SELECT ` + queueItemColumns + ` FROM queue_items WHERE item_id = $1`

	var item domain.QueueItem
	if err := s.db.GetContext(ctx, &item, query, itemID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to get queue item: %w", err)
	}

	return &item, nil
}

// ListPending returns up to limit pending items, oldest first.
func (s *Storage) ListPending(ctx context.Context, limit int) ([]domain.QueueItem, error) {
	query := `
		SELECT ` + queueItemColumns + `
		FROM queue_items
		WHERE status = $1
		ORDER BY created_at ASC, item_id ASC
		LIMIT $2
	`

	var items []domain.QueueItem
	if err := s.db.SelectContext(ctx, &items, query, domain.ItemStatusPending, limit); err != nil {
		return nil, fmt.Errorf("failed to list pending items: %w", err)
	}

	return items, nil
}

// ClaimItem attempts to move a queue item from PENDING to PROCESSING. The
// conditional update guarantees at most one winner when concurrent drains
// race on the same item.
func (s *Storage) ClaimItem(ctx context.Context, itemID, claimedBy string) (*domain.QueueItem, error) {
	query := `
		UPDATE queue_items
		SET status = $1,
		    claimed_by = $2,
		    updated_at = NOW()
		WHERE item_id = $3
		  AND status = $4
		RETURNING ` + queueItemColumns

	var item domain.QueueItem
	err := s.db.GetContext(ctx, &item, query, domain.ItemStatusProcessing, claimedBy, itemID, domain.ItemStatusPending)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			var exists bool
			checkQuery := `SELECT EXISTS (SELECT 1 FROM queue_items WHERE item_id = $1)`
			if checkErr := s.db.GetContext(ctx, &exists, checkQuery, itemID); checkErr != nil {
				return nil, fmt.Errorf("failed to check queue item: %w", checkErr)
			}
			if !exists {
				return nil, domain.ErrItemNotFound
			}
			return nil, domain.ErrItemAlreadyClaimed
		}
		return nil, fmt.Errorf("failed to claim queue item: %w", err)
	}

	s.logger.Info("Queue item claimed",
		slog.String("item_id", itemID),
		slog.String("claimed_by", claimedBy),
	)

	return &item, nil
}

// CompleteItem marks an item COMPLETED and appends its republished record in
// one transaction, so a completed item always has exactly one audit entry.
// The update is conditional on claimedBy still holding the claim; a reclaimed
// item yields ErrClaimLost and no record is written.
func (s *Storage) CompleteItem(ctx context.Context, itemID, claimedBy, targetPlatformID string, record *domain.RepublishedRecord) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	updateQuery := `
		UPDATE queue_items
		SET status = $1,
		    target_platform_id = $2,
		    error_message = '',
		    updated_at = NOW()
		WHERE item_id = $3
		  AND status = $4
		  AND claimed_by = $5
	`

	result, err := tx.ExecContext(ctx, updateQuery, domain.ItemStatusCompleted, targetPlatformID, itemID, domain.ItemStatusProcessing, claimedBy)
	if err != nil {
		return fmt.Errorf("failed to complete queue item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrClaimLost
	}

	insertQuery := `
		INSERT INTO republished_records (
			record_id, workflow_id, source_platform, target_platform,
			source_item_id, target_item_id, title, description, status, created_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8, $9, $10
		)
	`

	_, err = tx.ExecContext(ctx, insertQuery,
		record.ID,
		record.WorkflowID,
		record.SourcePlatform,
		record.TargetPlatform,
		record.SourceItemID,
		record.TargetItemID,
		record.Title,
		record.Description,
		record.Status,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert republished record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit completion: %w", err)
	}

	s.logger.Info("Queue item completed",
		slog.String("item_id", itemID),
		slog.String("target_platform_id", targetPlatformID),
	)

	return nil
}

// FailItem marks an item FAILED with a human-readable reason. No republished
// record is written for failures. The update is conditional on claimedBy
// still holding the claim, so a reclaimed-and-completed item can never be
// overwritten by a stale failure; that case yields ErrClaimLost.
func (s *Storage) FailItem(ctx context.Context, itemID, claimedBy, errorMessage string) error {
	query := `
		UPDATE queue_items
		SET status = $1,
		    error_message = $2,
		    updated_at = NOW()
		WHERE item_id = $3
		  AND status = $4
		  AND claimed_by = $5
	`

	result, err := s.db.ExecContext(ctx, query, domain.ItemStatusFailed, errorMessage, itemID, domain.ItemStatusProcessing, claimedBy)
	if err != nil {
		return fmt.Errorf("failed to fail queue item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrClaimLost
	}

	s.logger.Info("Queue item failed",
		slog.String("item_id", itemID),
		slog.String("reason", errorMessage),
	)

	return nil
}

// ReleaseItem returns a PROCESSING item to PENDING. Used by the manual pause
// action.
func (s *Storage) ReleaseItem(ctx context.Context, itemID string) error {
	query := `
		UPDATE queue_items
		SET status = $1,
		    claimed_by = '',
		    updated_at = NOW()
		WHERE item_id = $2
		  AND status = $3
	`

	result, err := s.db.ExecContext(ctx, query, domain.ItemStatusPending, itemID, domain.ItemStatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to release queue item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrItemNotFound
	}

	return nil
}

// RetryItem returns a FAILED item to PENDING, clearing error state. This is
// the only path back from FAILED and is always user-initiated.
func (s *Storage) RetryItem(ctx context.Context, itemID string) error {
	query := `
		UPDATE queue_items
		SET status = $1,
		    error_message = '',
		    target_platform_id = '',
		    claimed_by = '',
		    updated_at = NOW()
		WHERE item_id = $2
		  AND status = $3
	`

	result, err := s.db.ExecContext(ctx, query, domain.ItemStatusPending, itemID, domain.ItemStatusFailed)
	if err != nil {
		return fmt.Errorf("failed to retry queue item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrItemNotFound
	}

	s.logger.Info("Queue item reset for retry",
		slog.String("item_id", itemID),
	)

	return nil
}

// ReclaimStuck returns items stuck in PROCESSING since before the threshold
// to PENDING so a crashed invocation cannot strand them forever.
func (s *Storage) ReclaimStuck(ctx context.Context, olderThan time.Time) (int64, error) {
	query := `
		UPDATE queue_items
		SET status = $1,
		    claimed_by = '',
		    updated_at = NOW()
		WHERE status = $2
		  AND updated_at < $3
	`

	result, err := s.db.ExecContext(ctx, query, domain.ItemStatusPending, domain.ItemStatusProcessing, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to reclaim stuck items: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected > 0 {
		s.logger.Warn("Reclaimed stuck queue items",
			slog.Int64("count", rowsAffected),
		)
	}

	return rowsAffected, nil
}
