// Package platform isolates per-platform REST semantics behind a fixed
// capability interface. The scanner and processor contain no platform
// branching beyond adapter selection by name.
package platform

import (
	"context"
	"fmt"
	"sort"

	"github.com/crosscasthq/crosscast-be/internal/domain"
)

// MediaLocator is a fetchable handle to a downloaded item's media.
type MediaLocator struct {
	URL      string
	MimeType string
}

// Adapter is the capability set implemented once per supported platform.
//
// FetchRecentItems returns items newest first and must not mutate upstream
// state. DownloadItem resolves a media locator for one item. UploadItem
// publishes the media and returns the remote item ID; the processor
// guarantees at most one successful call per queue item. RefreshToken
// exchanges the connection's refresh token for a fresh token set.
//
// All methods translate upstream failures into the domain taxonomy:
// domain.ErrAuthExpired on token rejection, domain.ErrNotFound when the item
// vanished, domain.ErrRefreshFailed on refresh rejection, and
// *domain.UpstreamError for any other non-2xx response.
type Adapter interface {
	Name() string
	FetchRecentItems(ctx context.Context, conn *domain.Connection) ([]domain.SourceItem, error)
	DownloadItem(ctx context.Context, conn *domain.Connection, itemID string) (*MediaLocator, error)
	UploadItem(ctx context.Context, conn *domain.Connection, media *MediaLocator, title, description string) (string, error)
	RefreshToken(ctx context.Context, conn *domain.Connection) (*domain.TokenSet, error)
}

// Registry maps platform names to adapters.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry creates a registry holding the given adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Name()] = a
	}
	return r
}

// Lookup returns the adapter for a platform name.
func (r *Registry) Lookup(name string) (Adapter, error) {
	adapter, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownPlatform, name)
	}
	return adapter, nil
}

// Names returns the registered platform names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
