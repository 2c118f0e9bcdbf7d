package domain

import "time"

// Workflow links one source connection/platform to one target
// connection/platform for a single user. Deactivating a workflow stops the
// scanner from enqueueing new items but keeps all history.
type Workflow struct {
	ID                 string    `db:"workflow_id"`
	UserID             string    `db:"user_id"`
	SourcePlatform     string    `db:"source_platform"`
	TargetPlatform     string    `db:"target_platform"`
	SourceConnectionID string    `db:"source_connection_id"`
	TargetConnectionID string    `db:"target_connection_id"`
	IsActive           bool      `db:"is_active"`
	CreatedAt          time.Time `db:"created_at"`
}

// Connection is a stored OAuth credential set for one user on one platform.
// Token values are opaque secrets and must never be logged.
type Connection struct {
	ID               string    `db:"connection_id"`
	UserID           string    `db:"user_id"`
	Platform         string    `db:"platform"`
	AccessToken      string    `db:"access_token"`
	RefreshToken     string    `db:"refresh_token"`
	ExpiresAt        time.Time `db:"expires_at"`
	PlatformUserID   string    `db:"platform_user_id"`
	PlatformUsername string    `db:"platform_username"`
	Status           string    `db:"status"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

// TokenSet is the result of a successful token refresh. RefreshToken is empty
// when the platform did not rotate it.
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// QueueItem is one discovered source video awaiting or having undergone
// transfer. Status transitions are owned exclusively by the processor, except
// for the external retry and pause actions.
type QueueItem struct {
	ID               string    `db:"item_id"`
	WorkflowID       string    `db:"workflow_id"`
	SourcePlatform   string    `db:"source_platform"`
	PlatformItemID   string    `db:"platform_item_id"`
	Title            string    `db:"title"`
	Description      string    `db:"description"`
	Thumbnail        string    `db:"thumbnail"`
	DurationSeconds  int       `db:"duration_seconds"`
	Status           string    `db:"status"`
	TargetPlatformID string    `db:"target_platform_id"`
	ErrorMessage     string    `db:"error_message"`
	ClaimedBy        string    `db:"claimed_by"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

// ProcessedMarker is the append-only dedup record preventing re-enqueue of an
// already-seen source item. Unique per (workflow, platform, item id).
type ProcessedMarker struct {
	WorkflowID     string    `db:"workflow_id"`
	SourcePlatform string    `db:"source_platform"`
	PlatformItemID string    `db:"platform_item_id"`
	ProcessedAt    time.Time `db:"processed_at"`
}

// RepublishedRecord is the immutable audit entry created exactly once per
// queue item that reaches COMPLETED.
type RepublishedRecord struct {
	ID             string    `db:"record_id"`
	WorkflowID     string    `db:"workflow_id"`
	SourcePlatform string    `db:"source_platform"`
	TargetPlatform string    `db:"target_platform"`
	SourceItemID   string    `db:"source_item_id"`
	TargetItemID   string    `db:"target_item_id"`
	Title          string    `db:"title"`
	Description    string    `db:"description"`
	Status         string    `db:"status"`
	CreatedAt      time.Time `db:"created_at"`
}

// SourceItem is one video as listed by a source platform adapter.
type SourceItem struct {
	ItemID          string
	Title           string
	Description     string
	Thumbnail       string
	DurationSeconds int
	CreatedAt       time.Time
}

// ItemMessage is the RabbitMQ payload for an on-demand single-item publish.
type ItemMessage struct {
	ItemID      string `json:"item_id"`
	DeliveryTag uint64 `json:"-"`
}
