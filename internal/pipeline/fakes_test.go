package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/crosscasthq/crosscast-be/internal/domain"
	"github.com/crosscasthq/crosscast-be/internal/platform"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeQueueStore is an in-memory QueueStore with the same transition
// semantics as the real storage layer.
type fakeQueueStore struct {
	mu      sync.Mutex
	markers map[string]bool
	items   map[string]*domain.QueueItem
	order   []string
	records []*domain.RepublishedRecord

	markerErr  error
	enqueueErr error
	listErr    error
	reclaimErr error
}

func newFakeQueueStore() *fakeQueueStore {
	return &fakeQueueStore{
		markers: make(map[string]bool),
		items:   make(map[string]*domain.QueueItem),
	}
}

func markerKey(workflowID, platform, itemID string) string {
	return workflowID + "|" + platform + "|" + itemID
}

func (f *fakeQueueStore) AddMarker(ctx context.Context, marker *domain.ProcessedMarker) (bool, error) {
	if f.markerErr != nil {
		return false, f.markerErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	key := markerKey(marker.WorkflowID, marker.SourcePlatform, marker.PlatformItemID)
	if f.markers[key] {
		return false, nil
	}
	f.markers[key] = true
	return true, nil
}

func (f *fakeQueueStore) EnqueueItem(ctx context.Context, item *domain.QueueItem) error {
	if f.enqueueErr != nil {
		return f.enqueueErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	copied := *item
	f.items[item.ID] = &copied
	f.order = append(f.order, item.ID)
	return nil
}

func (f *fakeQueueStore) GetItem(ctx context.Context, itemID string) (*domain.QueueItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	item, ok := f.items[itemID]
	if !ok {
		return nil, domain.ErrItemNotFound
	}
	copied := *item
	return &copied, nil
}

func (f *fakeQueueStore) ListPending(ctx context.Context, limit int) ([]domain.QueueItem, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	var pending []domain.QueueItem
	for _, id := range f.order {
		if len(pending) >= limit {
			break
		}
		if f.items[id].Status == domain.ItemStatusPending {
			pending = append(pending, *f.items[id])
		}
	}
	return pending, nil
}

func (f *fakeQueueStore) ClaimItem(ctx context.Context, itemID, claimedBy string) (*domain.QueueItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	item, ok := f.items[itemID]
	if !ok {
		return nil, domain.ErrItemNotFound
	}
	if item.Status != domain.ItemStatusPending {
		return nil, domain.ErrItemAlreadyClaimed
	}

	item.Status = domain.ItemStatusProcessing
	item.ClaimedBy = claimedBy
	copied := *item
	return &copied, nil
}

func (f *fakeQueueStore) CompleteItem(ctx context.Context, itemID, claimedBy, targetPlatformID string, record *domain.RepublishedRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	item, ok := f.items[itemID]
	if !ok || item.Status != domain.ItemStatusProcessing || item.ClaimedBy != claimedBy {
		return domain.ErrClaimLost
	}

	item.Status = domain.ItemStatusCompleted
	item.TargetPlatformID = targetPlatformID
	item.ErrorMessage = ""

	copied := *record
	f.records = append(f.records, &copied)
	return nil
}

func (f *fakeQueueStore) FailItem(ctx context.Context, itemID, claimedBy, errorMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	item, ok := f.items[itemID]
	if !ok || item.Status != domain.ItemStatusProcessing || item.ClaimedBy != claimedBy {
		return domain.ErrClaimLost
	}
	item.Status = domain.ItemStatusFailed
	item.ErrorMessage = errorMessage
	return nil
}

func (f *fakeQueueStore) ReclaimStuck(ctx context.Context, olderThan time.Time) (int64, error) {
	if f.reclaimErr != nil {
		return 0, f.reclaimErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	var reclaimed int64
	for _, item := range f.items {
		if item.Status == domain.ItemStatusProcessing && item.UpdatedAt.Before(olderThan) {
			item.Status = domain.ItemStatusPending
			item.ClaimedBy = ""
			reclaimed++
		}
	}
	return reclaimed, nil
}

func (f *fakeQueueStore) pendingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	count := 0
	for _, item := range f.items {
		if item.Status == domain.ItemStatusPending {
			count++
		}
	}
	return count
}

func (f *fakeQueueStore) itemByPlatformID(platformItemID string) *domain.QueueItem {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, item := range f.items {
		if item.PlatformItemID == platformItemID {
			copied := *item
			return &copied
		}
	}
	return nil
}

// fakeWorkflowStore is an in-memory WorkflowRegistry.
type fakeWorkflowStore struct {
	workflows []domain.Workflow
	listErr   error
}

func (f *fakeWorkflowStore) ListActiveWorkflows(ctx context.Context) ([]domain.Workflow, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}

	var active []domain.Workflow
	for _, wf := range f.workflows {
		if wf.IsActive {
			active = append(active, wf)
		}
	}
	return active, nil
}

func (f *fakeWorkflowStore) GetWorkflow(ctx context.Context, workflowID string) (*domain.Workflow, error) {
	for i := range f.workflows {
		if f.workflows[i].ID == workflowID {
			copied := f.workflows[i]
			return &copied, nil
		}
	}
	return nil, domain.ErrWorkflowNotFound
}

// fakeConnStore is an in-memory platform.ConnectionStore.
type fakeConnStore struct {
	conns       map[string]*domain.Connection
	brokenConns []string
}

func newFakeConnStore(conns ...*domain.Connection) *fakeConnStore {
	store := &fakeConnStore{conns: make(map[string]*domain.Connection)}
	for _, conn := range conns {
		store.conns[conn.ID] = conn
	}
	return store
}

func (f *fakeConnStore) GetConnection(ctx context.Context, connectionID string) (*domain.Connection, error) {
	conn, ok := f.conns[connectionID]
	if !ok {
		return nil, domain.ErrConnectionNotFound
	}
	return conn, nil
}

func (f *fakeConnStore) UpdateTokens(ctx context.Context, connectionID string, tokens *domain.TokenSet) error {
	if _, ok := f.conns[connectionID]; !ok {
		return domain.ErrConnectionNotFound
	}
	return nil
}

func (f *fakeConnStore) MarkConnectionBroken(ctx context.Context, connectionID string) error {
	f.brokenConns = append(f.brokenConns, connectionID)
	return nil
}

// stubAdapter is a scriptable platform.Adapter.
type stubAdapter struct {
	name          string
	fetchFunc     func(ctx context.Context, conn *domain.Connection) ([]domain.SourceItem, error)
	downloadFunc  func(ctx context.Context, conn *domain.Connection, itemID string) (*platform.MediaLocator, error)
	uploadFunc    func(ctx context.Context, conn *domain.Connection, media *platform.MediaLocator, title, description string) (string, error)
	refreshFunc   func(ctx context.Context, conn *domain.Connection) (*domain.TokenSet, error)
	fetchCalls    int
	downloadCalls int
	uploadCalls   int
}

func (s *stubAdapter) Name() string { return s.name }

func (s *stubAdapter) FetchRecentItems(ctx context.Context, conn *domain.Connection) ([]domain.SourceItem, error) {
	s.fetchCalls++
	if s.fetchFunc == nil {
		return nil, nil
	}
	return s.fetchFunc(ctx, conn)
}

func (s *stubAdapter) DownloadItem(ctx context.Context, conn *domain.Connection, itemID string) (*platform.MediaLocator, error) {
	s.downloadCalls++
	if s.downloadFunc == nil {
		return nil, fmt.Errorf("downloadFunc not scripted")
	}
	return s.downloadFunc(ctx, conn, itemID)
}

func (s *stubAdapter) UploadItem(ctx context.Context, conn *domain.Connection, media *platform.MediaLocator, title, description string) (string, error) {
	s.uploadCalls++
	if s.uploadFunc == nil {
		return "", fmt.Errorf("uploadFunc not scripted")
	}
	return s.uploadFunc(ctx, conn, media, title, description)
}

func (s *stubAdapter) RefreshToken(ctx context.Context, conn *domain.Connection) (*domain.TokenSet, error) {
	if s.refreshFunc == nil {
		return nil, errors.New("refreshFunc not scripted")
	}
	return s.refreshFunc(ctx, conn)
}

func activeConnection(id, platformName string) *domain.Connection {
	return &domain.Connection{
		ID:           id,
		Platform:     platformName,
		AccessToken:  "access-" + id,
		RefreshToken: "refresh-" + id,
		ExpiresAt:    time.Now().Add(time.Hour),
		Status:       domain.ConnectionStatusActive,
	}
}
