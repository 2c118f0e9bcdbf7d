package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/crosscasthq/crosscast-be/internal/domain"
	"github.com/crosscasthq/crosscast-be/internal/platform"
)

// itemStatusSkipped reports an item another invocation claimed first.
const itemStatusSkipped = "SKIPPED"

// maxErrorMessage bounds the error text persisted on a failed item.
const maxErrorMessage = 500

// ProcessorConfig holds processor tuning.
type ProcessorConfig struct {
	BatchSize   int
	ItemTimeout time.Duration
	WorkerID    string
}

// Processor drives claimed queue items through download and upload and
// records each outcome. It is the exclusive owner of queue item status
// transitions.
type Processor struct {
	queue       QueueStore
	workflows   WorkflowRegistry
	connections platform.ConnectionStore
	adapters    *platform.Registry
	tokens      *platform.TokenManager
	config      ProcessorConfig
	logger      *slog.Logger
	now         func() time.Time
}

// NewProcessor creates a Processor.
func NewProcessor(
	queue QueueStore,
	workflows WorkflowRegistry,
	connections platform.ConnectionStore,
	adapters *platform.Registry,
	tokens *platform.TokenManager,
	config ProcessorConfig,
	logger *slog.Logger,
) *Processor {
	return &Processor{
		queue:       queue,
		workflows:   workflows,
		connections: connections,
		adapters:    adapters,
		tokens:      tokens,
		config:      config,
		logger:      logger,
		now:         time.Now,
	}
}

// Drain processes up to the configured batch of pending items, oldest first,
// or exactly the named item when singleItemID is set. One item's failure
// never aborts the rest of the batch.
func (p *Processor) Drain(ctx context.Context, singleItemID string) (*DrainReport, error) {
	var itemIDs []string
	if singleItemID != "" {
		itemIDs = []string{singleItemID}
	} else {
		pending, err := p.queue.ListPending(ctx, p.config.BatchSize)
		if err != nil {
			return nil, fmt.Errorf("failed to list pending items: %w", err)
		}
		for _, item := range pending {
			itemIDs = append(itemIDs, item.ID)
		}
	}

	report := &DrainReport{Results: make([]ItemResult, 0, len(itemIDs))}

	for _, itemID := range itemIDs {
		item, err := p.queue.ClaimItem(ctx, itemID, p.config.WorkerID)
		if err != nil {
			if errors.Is(err, domain.ErrItemAlreadyClaimed) || errors.Is(err, domain.ErrItemNotFound) {
				p.logger.Warn("Queue item not claimable, skipping",
					slog.String("item_id", itemID),
					slog.String("reason", err.Error()),
				)
				report.Results = append(report.Results, ItemResult{
					ItemID: itemID,
					Status: itemStatusSkipped,
					Error:  err.Error(),
				})
				continue
			}
			return report, fmt.Errorf("failed to claim item %s: %w", itemID, err)
		}

		report.Results = append(report.Results, p.processItem(ctx, item))
		report.ProcessedCount++
	}

	return report, nil
}

// processItem transfers one claimed item from its source platform to its
// target platform and records the outcome.
func (p *Processor) processItem(ctx context.Context, item *domain.QueueItem) ItemResult {
	p.logger.Info("Processing queue item",
		slog.String("item_id", item.ID),
		slog.String("workflow_id", item.WorkflowID),
		slog.String("platform_item_id", item.PlatformItemID),
	)

	targetItemID, err := p.transfer(ctx, item)
	if err != nil {
		if errors.Is(err, domain.ErrClaimLost) {
			return p.dropLostOutcome(item)
		}

		message := failureMessage(err)
		if failErr := p.queue.FailItem(ctx, item.ID, p.config.WorkerID, message); failErr != nil {
			if errors.Is(failErr, domain.ErrClaimLost) {
				return p.dropLostOutcome(item)
			}
			p.logger.Error("Failed to record item failure",
				slog.String("item_id", item.ID),
				slog.String("error", failErr.Error()),
			)
		}

		p.logger.Error("Queue item transfer failed",
			slog.String("item_id", item.ID),
			slog.String("reason", message),
		)

		return ItemResult{
			ItemID: item.ID,
			Status: domain.ItemStatusFailed,
			Error:  message,
		}
	}

	p.logger.Info("Queue item transferred",
		slog.String("item_id", item.ID),
		slog.String("target_item_id", targetItemID),
	)

	return ItemResult{
		ItemID:       item.ID,
		Status:       domain.ItemStatusCompleted,
		TargetItemID: targetItemID,
	}
}

// dropLostOutcome reports an item whose claim was reclaimed mid-flight.
// Whatever this invocation observed is stale; the item's current owner
// records the authoritative outcome.
func (p *Processor) dropLostOutcome(item *domain.QueueItem) ItemResult {
	p.logger.Warn("Queue item claim lost mid-flight, dropping outcome",
		slog.String("item_id", item.ID),
		slog.String("claimed_by", p.config.WorkerID),
	)
	return ItemResult{
		ItemID: item.ID,
		Status: itemStatusSkipped,
		Error:  domain.ErrClaimLost.Error(),
	}
}

// transfer runs download then upload under the per-item timeout, then marks
// the item completed together with its republished record.
func (p *Processor) transfer(ctx context.Context, item *domain.QueueItem) (string, error) {
	workflow, err := p.workflows.GetWorkflow(ctx, item.WorkflowID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve workflow: %w", err)
	}

	sourceConn, err := p.connections.GetConnection(ctx, workflow.SourceConnectionID)
	if err != nil {
		return "", fmt.Errorf("failed to load source connection: %w", err)
	}

	targetConn, err := p.connections.GetConnection(ctx, workflow.TargetConnectionID)
	if err != nil {
		return "", fmt.Errorf("failed to load target connection: %w", err)
	}

	sourceAdapter, err := p.adapters.Lookup(workflow.SourcePlatform)
	if err != nil {
		return "", err
	}

	targetAdapter, err := p.adapters.Lookup(workflow.TargetPlatform)
	if err != nil {
		return "", err
	}

	itemCtx, cancel := context.WithTimeout(ctx, p.config.ItemTimeout)
	defer cancel()

	var media *platform.MediaLocator
	err = p.tokens.WithAuthRetry(itemCtx, sourceAdapter, sourceConn, func() error {
		var downloadErr error
		media, downloadErr = sourceAdapter.DownloadItem(itemCtx, sourceConn, item.PlatformItemID)
		return downloadErr
	})
	if err != nil {
		return "", err
	}

	var targetItemID string
	err = p.tokens.WithAuthRetry(itemCtx, targetAdapter, targetConn, func() error {
		var uploadErr error
		targetItemID, uploadErr = targetAdapter.UploadItem(itemCtx, targetConn, media, item.Title, item.Description)
		return uploadErr
	})
	if err != nil {
		return "", err
	}

	record := &domain.RepublishedRecord{
		ID:             uuid.New().String(),
		WorkflowID:     workflow.ID,
		SourcePlatform: workflow.SourcePlatform,
		TargetPlatform: workflow.TargetPlatform,
		SourceItemID:   item.PlatformItemID,
		TargetItemID:   targetItemID,
		Title:          item.Title,
		Description:    item.Description,
		Status:         domain.RepublishStatusPublished,
		CreatedAt:      p.now(),
	}

	if err := p.queue.CompleteItem(ctx, item.ID, p.config.WorkerID, targetItemID, record); err != nil {
		return "", fmt.Errorf("failed to record completion: %w", err)
	}

	return targetItemID, nil
}

// failureMessage produces the persisted, human-readable failure reason.
// Timeouts get a fixed reason; everything else is truncated. Token values
// never appear in adapter errors, so the message is safe to surface.
func failureMessage(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}

	message := err.Error()
	if len(message) > maxErrorMessage {
		message = message[:maxErrorMessage]
	}
	return message
}
