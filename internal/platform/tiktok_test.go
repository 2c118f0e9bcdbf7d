package platform

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crosscasthq/crosscast-be/internal/domain"
)

// roundTripFunc lets tests serve canned responses without a network.
type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func stubClient(f roundTripFunc) *http.Client {
	return &http.Client{Transport: f}
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func tiktokTestConn() *domain.Connection {
	return &domain.Connection{
		ID:           "conn-tt",
		Platform:     domain.PlatformTikTok,
		AccessToken:  "tt-access",
		RefreshToken: "tt-refresh",
		ExpiresAt:    time.Now().Add(time.Hour),
	}
}

func TestTikTokAdapter_FetchRecentItems(t *testing.T) {
	t.Run("maps videos to source items", func(t *testing.T) {
		adapter := NewTikTokAdapter(TikTokConfig{ClientKey: "key"}, stubClient(func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, http.MethodPost, req.Method)
			assert.Contains(t, req.URL.Path, "/video/list/")
			assert.Equal(t, "Bearer tt-access", req.Header.Get("Authorization"))

			return jsonResponse(http.StatusOK, `{
				"data": {"videos": [
					{"id": "v1", "title": "First", "video_description": "desc one", "cover_image_url": "https://cover/1", "duration": 30, "create_time": 1700000000},
					{"id": "v2", "title": "", "video_description": "desc two", "duration": 45, "create_time": 1700000100}
				]},
				"error": {"code": "ok"}
			}`), nil
		}))

		items, err := adapter.FetchRecentItems(context.Background(), tiktokTestConn())
		require.NoError(t, err)
		require.Len(t, items, 2)

		assert.Equal(t, "v1", items[0].ItemID)
		assert.Equal(t, "First", items[0].Title)
		assert.Equal(t, "https://cover/1", items[0].Thumbnail)
		assert.Equal(t, 30, items[0].DurationSeconds)
		assert.Equal(t, time.Unix(1700000000, 0).UTC(), items[0].CreatedAt)

		// Untitled videos fall back to their description
		assert.Equal(t, "desc two", items[1].Title)
	})

	t.Run("in-body token error maps to auth expired", func(t *testing.T) {
		adapter := NewTikTokAdapter(TikTokConfig{}, stubClient(func(req *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, `{"data": {}, "error": {"code": "access_token_invalid", "message": "expired"}}`), nil
		}))

		_, err := adapter.FetchRecentItems(context.Background(), tiktokTestConn())
		require.ErrorIs(t, err, domain.ErrAuthExpired)
	})

	t.Run("other in-body errors map to upstream error", func(t *testing.T) {
		adapter := NewTikTokAdapter(TikTokConfig{}, stubClient(func(req *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, `{"data": {}, "error": {"code": "rate_limit_exceeded", "message": "slow down"}}`), nil
		}))

		_, err := adapter.FetchRecentItems(context.Background(), tiktokTestConn())

		var upstreamErr *domain.UpstreamError
		require.ErrorAs(t, err, &upstreamErr)
		assert.Contains(t, upstreamErr.Body, "rate_limit_exceeded")
	})

	t.Run("http 401 maps to auth expired", func(t *testing.T) {
		adapter := NewTikTokAdapter(TikTokConfig{}, stubClient(func(req *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusUnauthorized, `{}`), nil
		}))

		_, err := adapter.FetchRecentItems(context.Background(), tiktokTestConn())
		require.ErrorIs(t, err, domain.ErrAuthExpired)
	})
}

func TestTikTokAdapter_DownloadItem(t *testing.T) {
	t.Run("returns embed link locator", func(t *testing.T) {
		adapter := NewTikTokAdapter(TikTokConfig{}, stubClient(func(req *http.Request) (*http.Response, error) {
			assert.Contains(t, req.URL.Path, "/video/query/")

			var body struct {
				Filters struct {
					VideoIDs []string `json:"video_ids"`
				} `json:"filters"`
			}
			require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
			assert.Equal(t, []string{"v1"}, body.Filters.VideoIDs)

			return jsonResponse(http.StatusOK, `{
				"data": {"videos": [{"id": "v1", "embed_link": "https://www.tiktok.com/embed/v1"}]},
				"error": {"code": "ok"}
			}`), nil
		}))

		locator, err := adapter.DownloadItem(context.Background(), tiktokTestConn(), "v1")
		require.NoError(t, err)
		assert.Equal(t, "https://www.tiktok.com/embed/v1", locator.URL)
		assert.Equal(t, "video/mp4", locator.MimeType)
	})

	t.Run("vanished video maps to not found", func(t *testing.T) {
		adapter := NewTikTokAdapter(TikTokConfig{}, stubClient(func(req *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, `{"data": {"videos": []}, "error": {"code": "ok"}}`), nil
		}))

		_, err := adapter.DownloadItem(context.Background(), tiktokTestConn(), "gone")
		require.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestTikTokAdapter_UploadItem(t *testing.T) {
	t.Run("single init call pulls from locator URL", func(t *testing.T) {
		adapter := NewTikTokAdapter(TikTokConfig{}, stubClient(func(req *http.Request) (*http.Response, error) {
			assert.Contains(t, req.URL.Path, "/post/publish/video/init/")

			var body struct {
				PostInfo struct {
					Title        string `json:"title"`
					PrivacyLevel string `json:"privacy_level"`
				} `json:"post_info"`
				SourceInfo struct {
					Source   string `json:"source"`
					VideoURL string `json:"video_url"`
				} `json:"source_info"`
			}
			require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
			assert.Equal(t, "My Video\n\nA description", body.PostInfo.Title)
			assert.Equal(t, "PULL_FROM_URL", body.SourceInfo.Source)
			assert.Equal(t, "https://media/v1", body.SourceInfo.VideoURL)

			return jsonResponse(http.StatusOK, `{"data": {"publish_id": "pub-1"}, "error": {"code": "ok"}}`), nil
		}))

		media := &MediaLocator{URL: "https://media/v1", MimeType: "video/mp4"}
		publishID, err := adapter.UploadItem(context.Background(), tiktokTestConn(), media, "My Video", "A description")
		require.NoError(t, err)
		assert.Equal(t, "pub-1", publishID)
	})

	t.Run("missing publish id is an upstream error", func(t *testing.T) {
		adapter := NewTikTokAdapter(TikTokConfig{}, stubClient(func(req *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, `{"data": {}, "error": {"code": "ok"}}`), nil
		}))

		media := &MediaLocator{URL: "https://media/v1", MimeType: "video/mp4"}
		_, err := adapter.UploadItem(context.Background(), tiktokTestConn(), media, "t", "")

		var upstreamErr *domain.UpstreamError
		require.ErrorAs(t, err, &upstreamErr)
	})
}

func TestTikTokAdapter_RefreshToken(t *testing.T) {
	t.Run("exchanges refresh token with client_key form", func(t *testing.T) {
		adapter := NewTikTokAdapter(TikTokConfig{ClientKey: "key", ClientSecret: "secret"}, stubClient(func(req *http.Request) (*http.Response, error) {
			require.NoError(t, req.ParseForm())
			assert.Equal(t, "key", req.PostForm.Get("client_key"))
			assert.Equal(t, "secret", req.PostForm.Get("client_secret"))
			assert.Equal(t, "refresh_token", req.PostForm.Get("grant_type"))
			assert.Equal(t, "tt-refresh", req.PostForm.Get("refresh_token"))

			return jsonResponse(http.StatusOK, `{"access_token": "new-access", "refresh_token": "new-refresh", "expires_in": 3600}`), nil
		}))

		tokens, err := adapter.RefreshToken(context.Background(), tiktokTestConn())
		require.NoError(t, err)
		assert.Equal(t, "new-access", tokens.AccessToken)
		assert.Equal(t, "new-refresh", tokens.RefreshToken)
		assert.WithinDuration(t, time.Now().Add(time.Hour), tokens.ExpiresAt, time.Minute)
	})

	t.Run("unrotated refresh token is omitted", func(t *testing.T) {
		adapter := NewTikTokAdapter(TikTokConfig{}, stubClient(func(req *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, `{"access_token": "new-access", "refresh_token": "tt-refresh", "expires_in": 3600}`), nil
		}))

		tokens, err := adapter.RefreshToken(context.Background(), tiktokTestConn())
		require.NoError(t, err)
		assert.Empty(t, tokens.RefreshToken)
	})

	t.Run("4xx rejection maps to refresh failed", func(t *testing.T) {
		adapter := NewTikTokAdapter(TikTokConfig{}, stubClient(func(req *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusBadRequest, `{}`), nil
		}))

		_, err := adapter.RefreshToken(context.Background(), tiktokTestConn())
		require.ErrorIs(t, err, domain.ErrRefreshFailed)
	})

	t.Run("token endpoint outage is not terminal", func(t *testing.T) {
		adapter := NewTikTokAdapter(TikTokConfig{}, stubClient(func(req *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusServiceUnavailable, `{"message": "maintenance"}`), nil
		}))

		_, err := adapter.RefreshToken(context.Background(), tiktokTestConn())
		require.NotErrorIs(t, err, domain.ErrRefreshFailed)

		var upstreamErr *domain.UpstreamError
		require.ErrorAs(t, err, &upstreamErr)
		assert.Equal(t, http.StatusServiceUnavailable, upstreamErr.StatusCode)
	})

	t.Run("in-body error maps to refresh failed", func(t *testing.T) {
		adapter := NewTikTokAdapter(TikTokConfig{}, stubClient(func(req *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, `{"error": "invalid_grant", "error_description": "refresh token revoked"}`), nil
		}))

		_, err := adapter.RefreshToken(context.Background(), tiktokTestConn())
		require.ErrorIs(t, err, domain.ErrRefreshFailed)
	})
}
