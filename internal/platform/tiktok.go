package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/crosscasthq/crosscast-be/internal/domain"
)

const (
	tiktokAPIBase  = "https://open.tiktokapis.com/v2"
	tiktokTokenURL = "https://open.tiktokapis.com/v2/oauth/token/"
)

// TikTokConfig holds the OAuth application credentials for TikTok.
type TikTokConfig struct {
	ClientKey    string
	ClientSecret string
}

// TikTokAdapter implements Adapter against the TikTok open API. Unlike
// YouTube's resumable handshake, TikTok publishes in a single init call that
// pulls the media from a URL.
type TikTokAdapter struct {
	config TikTokConfig
	http   *http.Client
}

// NewTikTokAdapter creates a TikTok adapter.
func NewTikTokAdapter(config TikTokConfig, httpClient *http.Client) *TikTokAdapter {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &TikTokAdapter{config: config, http: httpClient}
}

// Name returns the platform name.
func (a *TikTokAdapter) Name() string {
	return domain.PlatformTikTok
}

type tiktokVideo struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	VideoDescription string `json:"video_description"`
	CoverImageURL    string `json:"cover_image_url"`
	Duration         int    `json:"duration"`
	CreateTime       int64  `json:"create_time"`
	EmbedLink        string `json:"embed_link"`
}

type tiktokListResponse struct {
	Data struct {
		Videos []tiktokVideo `json:"videos"`
	} `json:"data"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// FetchRecentItems lists the account's most recent videos, newest first.
func (a *TikTokAdapter) FetchRecentItems(ctx context.Context, conn *domain.Connection) ([]domain.SourceItem, error) {
	fields := "id,title,video_description,cover_image_url,duration,create_time"
	reqBody := map[string]int{"max_count": 20}

	var listResp tiktokListResponse
	if err := a.postJSON(ctx, conn, "fetchRecentItems", tiktokAPIBase+"/video/list/?fields="+url.QueryEscape(fields), reqBody, &listResp); err != nil {
		return nil, err
	}
	if err := a.checkAPIError("fetchRecentItems", listResp.Error.Code, listResp.Error.Message); err != nil {
		return nil, err
	}

	items := make([]domain.SourceItem, 0, len(listResp.Data.Videos))
	for _, v := range listResp.Data.Videos {
		title := v.Title
		if title == "" {
			title = v.VideoDescription
		}
		items = append(items, domain.SourceItem{
			ItemID:          v.ID,
			Title:           title,
			Description:     v.VideoDescription,
			Thumbnail:       v.CoverImageURL,
			DurationSeconds: v.Duration,
			CreatedAt:       time.Unix(v.CreateTime, 0).UTC(),
		})
	}

	return items, nil
}

// DownloadItem queries the video and returns its embed link as the media
// locator.
func (a *TikTokAdapter) DownloadItem(ctx context.Context, conn *domain.Connection, itemID string) (*MediaLocator, error) {
	fields := "id,embed_link"
	reqBody := map[string]interface{}{
		"filters": map[string][]string{"video_ids": {itemID}},
	}

	var queryResp tiktokListResponse
	if err := a.postJSON(ctx, conn, "downloadItem", tiktokAPIBase+"/video/query/?fields="+url.QueryEscape(fields), reqBody, &queryResp); err != nil {
		return nil, err
	}
	if err := a.checkAPIError("downloadItem", queryResp.Error.Code, queryResp.Error.Message); err != nil {
		return nil, err
	}

	if len(queryResp.Data.Videos) == 0 || queryResp.Data.Videos[0].EmbedLink == "" {
		return nil, fmt.Errorf("%w: tiktok video %s", domain.ErrNotFound, itemID)
	}

	return &MediaLocator{
		URL:      queryResp.Data.Videos[0].EmbedLink,
		MimeType: "video/mp4",
	}, nil
}

// UploadItem publishes in a single call: TikTok pulls the media from the
// locator URL and returns a publish ID.
func (a *TikTokAdapter) UploadItem(ctx context.Context, conn *domain.Connection, media *MediaLocator, title, description string) (string, error) {
	caption := title
	if description != "" {
		caption = title + "\n\n" + description
	}

	reqBody := map[string]interface{}{
		"post_info": map[string]string{
			"title":         caption,
			"privacy_level": "PUBLIC_TO_EVERYONE",
		},
		"source_info": map[string]string{
			"source":    "PULL_FROM_URL",
			"video_url": media.URL,
		},
	}

	var initResp struct {
		Data struct {
			PublishID string `json:"publish_id"`
		} `json:"data"`
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := a.postJSON(ctx, conn, "uploadItem", tiktokAPIBase+"/post/publish/video/init/", reqBody, &initResp); err != nil {
		return "", err
	}
	if err := a.checkAPIError("uploadItem", initResp.Error.Code, initResp.Error.Message); err != nil {
		return "", err
	}

	if initResp.Data.PublishID == "" {
		return "", domain.NewUpstreamError(domain.PlatformTikTok, "uploadItem", http.StatusOK, "publish init returned no publish_id")
	}

	return initResp.Data.PublishID, nil
}

// RefreshToken exchanges the refresh token at TikTok's token endpoint. TikTok
// expects client_key form fields rather than the standard client_id, so this
// posts the form directly.
func (a *TikTokAdapter) RefreshToken(ctx context.Context, conn *domain.Connection) (*domain.TokenSet, error) {
	form := url.Values{
		"client_key":    {a.config.ClientKey},
		"client_secret": {a.config.ClientSecret},
		"grant_type":    {"refresh_token"},
		"refresh_token": {conn.RefreshToken},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tiktokTokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("refresh request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Only a 4xx rejection condemns the refresh token. A 5xx or other
		// status is a transient upstream problem and must not brick the
		// connection.
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, fmt.Errorf("%w: tiktok token endpoint returned %d", domain.ErrRefreshFailed, resp.StatusCode)
		}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, domain.NewUpstreamError(domain.PlatformTikTok, "refreshToken", resp.StatusCode, string(body))
	}

	var tokenResp struct {
		AccessToken      string `json:"access_token"`
		RefreshToken     string `json:"refresh_token"`
		ExpiresIn        int    `json:"expires_in"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, fmt.Errorf("failed to decode refresh response: %w", err)
	}

	if tokenResp.Error != "" || tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("%w: %s %s", domain.ErrRefreshFailed, tokenResp.Error, tokenResp.ErrorDescription)
	}

	tokens := &domain.TokenSet{
		AccessToken: tokenResp.AccessToken,
		ExpiresAt:   time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second),
	}
	if tokenResp.RefreshToken != "" && tokenResp.RefreshToken != conn.RefreshToken {
		tokens.RefreshToken = tokenResp.RefreshToken
	}

	return tokens, nil
}

// checkAPIError maps TikTok's in-body error envelope to the domain taxonomy.
func (a *TikTokAdapter) checkAPIError(operation, code, message string) error {
	switch code {
	case "", "ok":
		return nil
	case "access_token_invalid", "token_expired":
		return fmt.Errorf("%w: tiktok %s: %s", domain.ErrAuthExpired, operation, message)
	default:
		return domain.NewUpstreamError(domain.PlatformTikTok, operation, http.StatusOK, code+": "+message)
	}
}

// postJSON performs an authenticated POST with a JSON body and decodes the
// JSON response.
func (a *TikTokAdapter) postJSON(ctx context.Context, conn *domain.Connection, operation, rawURL string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", operation, err)
	}
	req.Header.Set("Authorization", "Bearer "+conn.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(domain.PlatformTikTok, operation, resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", operation, err)
	}

	return nil
}
