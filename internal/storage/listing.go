package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/crosscasthq/crosscast-be/internal/domain"
)

// ItemFilter narrows a queue listing.
type ItemFilter struct {
	WorkflowID string
	Status     string
	PageSize   int
	Cursor     *ItemCursor
}

// ItemCursor is a (created_at, item_id) keyset pagination cursor.
type ItemCursor struct {
	CreatedAt time.Time
	ItemID    string
}

// ListItems lists queue items newest first with keyset pagination. Fetches
// one row beyond PageSize so the caller can tell whether more results exist.
func (s *Storage) ListItems(ctx context.Context, filter ItemFilter) ([]domain.QueueItem, error) {
	query := `
		SELECT ` + queueItemColumns + `
		FROM queue_items
		WHERE 1=1
	`
	args := []interface{}{}
	argIdx := 1

	if filter.WorkflowID != "" {
		query += fmt.Sprintf(" AND workflow_id = $%d", argIdx)
		args = append(args, filter.WorkflowID)
		argIdx++
	}

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, item_id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.ItemID)
		argIdx += 2
	}

	query += " ORDER BY created_at DESC, item_id DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var items []domain.QueueItem
	if err := s.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list queue items: %w", err)
	}

	return items, nil
}

// ListRepublished returns the republish history for a workflow, newest first.
func (s *Storage) ListRepublished(ctx context.Context, workflowID string, limit int) ([]domain.RepublishedRecord, error) {
	query := `
		SELECT record_id, workflow_id, source_platform, target_platform,
		       source_item_id, target_item_id, title, description, status, created_at
		FROM republished_records
		WHERE workflow_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	var records []domain.RepublishedRecord
	if err := s.db.SelectContext(ctx, &records, query, workflowID, limit); err != nil {
		return nil, fmt.Errorf("failed to list republished records: %w", err)
	}

	return records, nil
}
