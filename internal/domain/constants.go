package domain

// Queue item status constants
const (
	ItemStatusPending    = "PENDING"
	ItemStatusProcessing = "PROCESSING"
	ItemStatusCompleted  = "COMPLETED"
	ItemStatusFailed     = "FAILED"
)

// Connection status constants
const (
	ConnectionStatusActive = "active"
	// ConnectionStatusBroken marks a connection whose refresh token was
	// rejected; only a user-driven reconnect repairs it.
	ConnectionStatusBroken = "broken"
)

// Republished record status
const (
	RepublishStatusPublished = "published"
)

// Supported platform names
const (
	PlatformTikTok  = "tiktok"
	PlatformYouTube = "youtube"
)
