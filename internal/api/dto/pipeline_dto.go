package dto

// DrainRequest optionally scopes a drain to one queue item.
type DrainRequest struct {
	ItemID string `json:"item_id"`
}

// PublishAcceptedResponse acknowledges an accepted single-item publish. The
// actual transfer is asynchronous; callers observe completion by polling the
// item's status.
type PublishAcceptedResponse struct {
	Accepted bool   `json:"accepted"`
	ItemID   string `json:"item_id"`
}

// ListItemsRequest filters and paginates a queue listing.
type ListItemsRequest struct {
	WorkflowID string `form:"workflow_id"`
	Status     string `form:"status"`
	PageSize   int    `form:"page_size"`
	Cursor     string `form:"cursor"`
}

// QueueItemDTO is the wire shape of one queue item. Error message is the only
// failure detail exposed; tokens never appear here.
type QueueItemDTO struct {
	ItemID           string `json:"item_id"`
	WorkflowID       string `json:"workflow_id"`
	SourcePlatform   string `json:"source_platform"`
	PlatformItemID   string `json:"platform_item_id"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	Thumbnail        string `json:"thumbnail"`
	DurationSeconds  int    `json:"duration_seconds"`
	Status           string `json:"status"`
	TargetPlatformID string `json:"target_platform_id,omitempty"`
	ErrorMessage     string `json:"error_message,omitempty"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
}

// ListItemsResponse is a page of queue items.
type ListItemsResponse struct {
	Items      []QueueItemDTO `json:"items"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// RepublishedRecordDTO is the wire shape of one republish audit entry.
type RepublishedRecordDTO struct {
	RecordID       string `json:"record_id"`
	WorkflowID     string `json:"workflow_id"`
	SourcePlatform string `json:"source_platform"`
	TargetPlatform string `json:"target_platform"`
	SourceItemID   string `json:"source_item_id"`
	TargetItemID   string `json:"target_item_id"`
	Title          string `json:"title"`
	Status         string `json:"status"`
	CreatedAt      string `json:"created_at"`
}

// ListRepublishedResponse is a workflow's republish history.
type ListRepublishedResponse struct {
	Records []RepublishedRecordDTO `json:"records"`
}
