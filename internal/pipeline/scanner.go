package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/crosscasthq/crosscast-be/internal/domain"
	"github.com/crosscasthq/crosscast-be/internal/platform"
)

// Scanner discovers new source videos for every active workflow and enqueues
// them exactly once.
type Scanner struct {
	workflows   WorkflowRegistry
	connections platform.ConnectionStore
	queue       QueueStore
	adapters    *platform.Registry
	tokens      *platform.TokenManager
	logger      *slog.Logger
	now         func() time.Time
}

// NewScanner creates a Scanner.
func NewScanner(
	workflows WorkflowRegistry,
	connections platform.ConnectionStore,
	queue QueueStore,
	adapters *platform.Registry,
	tokens *platform.TokenManager,
	logger *slog.Logger,
) *Scanner {
	return &Scanner{
		workflows:   workflows,
		connections: connections,
		queue:       queue,
		adapters:    adapters,
		tokens:      tokens,
		logger:      logger,
		now:         time.Now,
	}
}

// Run scans every active workflow. A failure in one workflow never aborts the
// others; each outcome is collected into the report. Only an unavailable
// workflow registry is fatal to the invocation.
func (s *Scanner) Run(ctx context.Context) (*ScanReport, error) {
	workflows, err := s.workflows.ListActiveWorkflows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active workflows: %w", err)
	}

	report := &ScanReport{
		ProcessedWorkflowCount: len(workflows),
		Results:                make([]WorkflowScanResult, 0, len(workflows)),
	}

	for i := range workflows {
		wf := &workflows[i]
		result := WorkflowScanResult{
			WorkflowID: wf.ID,
			Platform:   wf.SourcePlatform,
		}

		count, err := s.scanWorkflow(ctx, wf)
		result.NewItemCount = count
		if err != nil {
			result.Error = err.Error()
			s.logger.Error("Workflow scan failed",
				slog.String("workflow_id", wf.ID),
				slog.String("platform", wf.SourcePlatform),
				slog.String("error", err.Error()),
			)
		} else {
			s.logger.Info("Workflow scanned",
				slog.String("workflow_id", wf.ID),
				slog.String("platform", wf.SourcePlatform),
				slog.Int("new_items", count),
			)
		}

		report.Results = append(report.Results, result)
	}

	return report, nil
}

// scanWorkflow lists the workflow's recent source items and enqueues those
// not yet seen. Returns the number of newly enqueued items.
func (s *Scanner) scanWorkflow(ctx context.Context, wf *domain.Workflow) (int, error) {
	conn, err := s.connections.GetConnection(ctx, wf.SourceConnectionID)
	if err != nil {
		return 0, fmt.Errorf("failed to load source connection: %w", err)
	}

	adapter, err := s.adapters.Lookup(wf.SourcePlatform)
	if err != nil {
		return 0, err
	}

	var items []domain.SourceItem
	err = s.tokens.WithAuthRetry(ctx, adapter, conn, func() error {
		var fetchErr error
		items, fetchErr = adapter.FetchRecentItems(ctx, conn)
		return fetchErr
	})
	if err != nil {
		return 0, err
	}

	enqueued := 0
	for _, item := range items {
		// Marker first: if this run crashes between the two inserts, the next
		// scan skips the item instead of double-enqueueing it.
		inserted, err := s.queue.AddMarker(ctx, &domain.ProcessedMarker{
			WorkflowID:     wf.ID,
			SourcePlatform: wf.SourcePlatform,
			PlatformItemID: item.ItemID,
			ProcessedAt:    s.now(),
		})
		if err != nil {
			return enqueued, err
		}
		if !inserted {
			continue
		}

		now := s.now()
		queueItem := &domain.QueueItem{
			ID:              uuid.New().String(),
			WorkflowID:      wf.ID,
			SourcePlatform:  wf.SourcePlatform,
			PlatformItemID:  item.ItemID,
			Title:           item.Title,
			Description:     item.Description,
			Thumbnail:       item.Thumbnail,
			DurationSeconds: item.DurationSeconds,
			Status:          domain.ItemStatusPending,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		if err := s.queue.EnqueueItem(ctx, queueItem); err != nil {
			return enqueued, err
		}

		enqueued++
	}

	return enqueued, nil
}
