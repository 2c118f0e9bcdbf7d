package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/crosscasthq/crosscast-be/internal/domain"
)

const (
	youtubeAPIBase    = "https://www.googleapis.com/youtube/v3"
	youtubeUploadBase = "https://www.googleapis.com/upload/youtube/v3"
	youtubeTokenURL   = "https://oauth2.googleapis.com/token"
	youtubeWatchBase  = "https://www.youtube.com/watch"
)

// YouTubeConfig holds the OAuth application credentials for YouTube.
type YouTubeConfig struct {
	ClientID     string
	ClientSecret string
}

// YouTubeAdapter implements Adapter against the YouTube Data API. Uploads use
// the resumable protocol: an init call yields a pre-signed session URL, then
// the media bytes are sent to it in a second call.
type YouTubeAdapter struct {
	config YouTubeConfig
	http   *http.Client
}

// NewYouTubeAdapter creates a YouTube adapter.
func NewYouTubeAdapter(config YouTubeConfig, httpClient *http.Client) *YouTubeAdapter {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &YouTubeAdapter{config: config, http: httpClient}
}

// Name returns the platform name.
func (a *YouTubeAdapter) Name() string {
	return domain.PlatformYouTube
}

type youtubeSearchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			PublishedAt string `json:"publishedAt"`
			Thumbnails  struct {
				High struct {
					URL string `json:"url"`
				} `json:"high"`
			} `json:"thumbnails"`
		} `json:"snippet"`
	} `json:"items"`
}

type youtubeVideoListResponse struct {
	Items []struct {
		ID             string `json:"id"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
	} `json:"items"`
}

// FetchRecentItems lists the channel's most recent uploads, newest first.
func (a *YouTubeAdapter) FetchRecentItems(ctx context.Context, conn *domain.Connection) ([]domain.SourceItem, error) {
	params := url.Values{
		"part":       {"snippet"},
		"forMine":    {"true"},
		"type":       {"video"},
		"order":      {"date"},
		"maxResults": {"25"},
	}

	var search youtubeSearchResponse
	if err := a.getJSON(ctx, conn, "fetchRecentItems", youtubeAPIBase+"/search?"+params.Encode(), &search); err != nil {
		return nil, err
	}

	items := make([]domain.SourceItem, 0, len(search.Items))
	ids := make([]string, 0, len(search.Items))
	for _, it := range search.Items {
		createdAt, _ := time.Parse(time.RFC3339, it.Snippet.PublishedAt)
		items = append(items, domain.SourceItem{
			ItemID:      it.ID.VideoID,
			Title:       it.Snippet.Title,
			Description: it.Snippet.Description,
			Thumbnail:   it.Snippet.Thumbnails.High.URL,
			CreatedAt:   createdAt,
		})
		ids = append(ids, it.ID.VideoID)
	}

	if len(ids) == 0 {
		return items, nil
	}

	// Durations live on the videos resource, not the search result.
	detailParams := url.Values{
		"part": {"contentDetails"},
		"id":   {strings.Join(ids, ",")},
	}

	var details youtubeVideoListResponse
	if err := a.getJSON(ctx, conn, "fetchRecentItems", youtubeAPIBase+"/videos?"+detailParams.Encode(), &details); err != nil {
		return nil, err
	}

	durations := make(map[string]int, len(details.Items))
	for _, v := range details.Items {
		durations[v.ID] = parseISODuration(v.ContentDetails.Duration)
	}
	for i := range items {
		items[i].DurationSeconds = durations[items[i].ItemID]
	}

	return items, nil
}

// DownloadItem verifies the video still exists upstream and returns its watch
// URL as the media locator.
func (a *YouTubeAdapter) DownloadItem(ctx context.Context, conn *domain.Connection, itemID string) (*MediaLocator, error) {
	params := url.Values{
		"part": {"contentDetails"},
		"id":   {itemID},
	}

	var details youtubeVideoListResponse
	if err := a.getJSON(ctx, conn, "downloadItem", youtubeAPIBase+"/videos?"+params.Encode(), &details); err != nil {
		return nil, err
	}

	if len(details.Items) == 0 {
		return nil, fmt.Errorf("%w: youtube video %s", domain.ErrNotFound, itemID)
	}

	return &MediaLocator{
		URL:      youtubeWatchBase + "?v=" + url.QueryEscape(itemID),
		MimeType: "video/mp4",
	}, nil
}

// UploadItem uploads using the two-phase resumable protocol: init returns a
// session URL in the Location header, then the media bytes are PUT to it.
func (a *YouTubeAdapter) UploadItem(ctx context.Context, conn *domain.Connection, media *MediaLocator, title, description string) (string, error) {
	metadata := map[string]interface{}{
		"snippet": map[string]string{
			"title":       title,
			"description": description,
		},
		"status": map[string]string{
			"privacyStatus": "public",
		},
	}

	body, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("failed to marshal upload metadata: %w", err)
	}

	initURL := youtubeUploadBase + "/videos?uploadType=resumable&part=snippet,status"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, initURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build upload init request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+conn.AccessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Upload-Content-Type", media.MimeType)

	resp, err := a.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload init request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apiError(domain.PlatformYouTube, "uploadItem", resp)
	}

	sessionURL := resp.Header.Get("Location")
	if sessionURL == "" {
		return "", domain.NewUpstreamError(domain.PlatformYouTube, "uploadItem", resp.StatusCode, "resumable init returned no session URL")
	}

	return a.uploadMedia(ctx, conn, sessionURL, media)
}

// uploadMedia streams the media bytes from the locator into the resumable
// session.
func (a *YouTubeAdapter) uploadMedia(ctx context.Context, conn *domain.Connection, sessionURL string, media *MediaLocator) (string, error) {
	mediaReq, err := http.NewRequestWithContext(ctx, http.MethodGet, media.URL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build media fetch request: %w", err)
	}

	mediaResp, err := a.http.Do(mediaReq)
	if err != nil {
		return "", fmt.Errorf("media fetch failed: %w", err)
	}
	defer mediaResp.Body.Close()

	if mediaResp.StatusCode != http.StatusOK {
		return "", domain.NewUpstreamError(domain.PlatformYouTube, "uploadItem", mediaResp.StatusCode, "media locator fetch failed")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, sessionURL, mediaResp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+conn.AccessToken)
	req.Header.Set("Content-Type", media.MimeType)
	if mediaResp.ContentLength > 0 {
		req.ContentLength = mediaResp.ContentLength
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", apiError(domain.PlatformYouTube, "uploadItem", resp)
	}

	var uploaded struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		return "", fmt.Errorf("failed to decode upload response: %w", err)
	}
	if uploaded.ID == "" {
		return "", domain.NewUpstreamError(domain.PlatformYouTube, "uploadItem", resp.StatusCode, "upload response carried no video id")
	}

	return uploaded.ID, nil
}

// RefreshToken exchanges the stored refresh token for a fresh access token.
func (a *YouTubeAdapter) RefreshToken(ctx context.Context, conn *domain.Connection) (*domain.TokenSet, error) {
	cfg := &oauth2.Config{
		ClientID:     a.config.ClientID,
		ClientSecret: a.config.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: youtubeTokenURL},
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.http)
	token, err := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: conn.RefreshToken}).Token()
	if err != nil {
		// Only a 4xx rejection from the token endpoint condemns the refresh
		// token. Outages and transport errors are transient and must not
		// brick the connection.
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			status := retrieveErr.Response.StatusCode
			if status >= 400 && status < 500 {
				return nil, fmt.Errorf("%w: %v", domain.ErrRefreshFailed, err)
			}
			return nil, domain.NewUpstreamError(domain.PlatformYouTube, "refreshToken", status, string(retrieveErr.Body))
		}
		return nil, fmt.Errorf("refresh request failed: %w", err)
	}

	tokens := &domain.TokenSet{
		AccessToken: token.AccessToken,
		ExpiresAt:   token.Expiry,
	}
	if token.RefreshToken != "" && token.RefreshToken != conn.RefreshToken {
		tokens.RefreshToken = token.RefreshToken
	}

	return tokens, nil
}

// getJSON performs an authenticated GET and decodes the JSON response.
func (a *YouTubeAdapter) getJSON(ctx context.Context, conn *domain.Connection, operation, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", operation, err)
	}
	req.Header.Set("Authorization", "Bearer "+conn.AccessToken)

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(domain.PlatformYouTube, operation, resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", operation, err)
	}

	return nil
}

// parseISODuration converts an ISO 8601 duration like PT1H2M3S or P1DT2H to
// seconds. Days are the longest designator video durations carry; an M
// before the T separator would mean months and is ignored.
func parseISODuration(d string) int {
	d = strings.TrimPrefix(d, "P")
	total := 0
	num := ""
	inTime := false
	for _, r := range d {
		switch r {
		case 'T':
			inTime = true
			num = ""
		case 'D':
			n, _ := strconv.Atoi(num)
			total += n * 86400
			num = ""
		case 'H':
			n, _ := strconv.Atoi(num)
			total += n * 3600
			num = ""
		case 'M':
			if inTime {
				n, _ := strconv.Atoi(num)
				total += n * 60
			}
			num = ""
		case 'S':
			n, _ := strconv.Atoi(num)
			total += n
			num = ""
		default:
			num += string(r)
		}
	}
	return total
}
