// Package pipeline implements the repurposing core: the ingestion scanner,
// the queue processor, and the stuck-item sweeper. All cross-invocation state
// lives in the durable stores; the pipeline itself keeps none.
package pipeline

import (
	"context"
	"time"

	"github.com/crosscasthq/crosscast-be/internal/domain"
)

// QueueStore is the work-queue contract the scanner and processor operate
// through. Implemented by internal/storage.
type QueueStore interface {
	AddMarker(ctx context.Context, marker *domain.ProcessedMarker) (bool, error)
	EnqueueItem(ctx context.Context, item *domain.QueueItem) error
	GetItem(ctx context.Context, itemID string) (*domain.QueueItem, error)
	ListPending(ctx context.Context, limit int) ([]domain.QueueItem, error)
	ClaimItem(ctx context.Context, itemID, claimedBy string) (*domain.QueueItem, error)
	CompleteItem(ctx context.Context, itemID, claimedBy, targetPlatformID string, record *domain.RepublishedRecord) error
	FailItem(ctx context.Context, itemID, claimedBy, errorMessage string) error
	ReclaimStuck(ctx context.Context, olderThan time.Time) (int64, error)
}

// WorkflowRegistry is the read contract over workflows.
type WorkflowRegistry interface {
	ListActiveWorkflows(ctx context.Context) ([]domain.Workflow, error)
	GetWorkflow(ctx context.Context, workflowID string) (*domain.Workflow, error)
}

// WorkflowScanResult is one workflow's scan outcome.
type WorkflowScanResult struct {
	WorkflowID   string `json:"workflow_id"`
	Platform     string `json:"platform"`
	NewItemCount int    `json:"new_item_count"`
	Error        string `json:"error,omitempty"`
}

// ScanReport is the result of one run-scan invocation.
type ScanReport struct {
	ProcessedWorkflowCount int                  `json:"processed_workflow_count"`
	Results                []WorkflowScanResult `json:"results"`
}

// ItemResult is one queue item's processing outcome.
type ItemResult struct {
	ItemID       string `json:"item_id"`
	Status       string `json:"status"`
	TargetItemID string `json:"target_item_id,omitempty"`
	Error        string `json:"error,omitempty"`
}

// DrainReport is the result of one drain-queue invocation.
type DrainReport struct {
	ProcessedCount int          `json:"processed_count"`
	Results        []ItemResult `json:"results"`
}
