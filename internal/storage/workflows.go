package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/crosscasthq/crosscast-be/internal/domain"
)

// ListActiveWorkflows returns every workflow the scanner should visit.
func (s *Storage) ListActiveWorkflows(ctx context.Context) ([]domain.Workflow, error) {
	query := `
		SELECT workflow_id, user_id, source_platform, target_platform,
		       source_connection_id, target_connection_id, is_active, created_at
		FROM workflows
		WHERE is_active = TRUE
		ORDER BY created_at ASC
	`

	var workflows []domain.Workflow
	if err := s.db.SelectContext(ctx, &workflows, query); err != nil {
		return nil, fmt.Errorf("failed to list active workflows: %w", err)
	}

	return workflows, nil
}

// GetWorkflow retrieves a workflow by its ID.
func (s *Storage) GetWorkflow(ctx context.Context, workflowID string) (*domain.Workflow, error) {
	query := `
		SELECT workflow_id, user_id, source_platform, target_platform,
		       source_connection_id, target_connection_id, is_active, created_at
		FROM workflows
		WHERE workflow_id = $1
	`

	var workflow domain.Workflow
	if err := s.db.GetContext(ctx, &workflow, query, workflowID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrWorkflowNotFound
		}
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}

	return &workflow, nil
}
