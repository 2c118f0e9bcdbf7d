package platform

import (
	"fmt"
	"io"
	"net/http"

	"github.com/crosscasthq/crosscast-be/internal/domain"
)

// maxErrorBody bounds how much of an upstream error body is kept for
// diagnostics.
const maxErrorBody = 2048

// readBody reads at most maxErrorBody bytes of a response body.
func readBody(resp *http.Response) string {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return ""
	}
	return string(body)
}

// apiError translates a non-2xx platform response into the domain taxonomy.
// 401-class responses mean the access token was rejected; everything else is
// an upstream error carrying status and body.
func apiError(platform, operation string, resp *http.Response) error {
	body := readBody(resp)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s %s returned %d", domain.ErrAuthExpired, platform, operation, resp.StatusCode)
	default:
		return domain.NewUpstreamError(platform, operation, resp.StatusCode, body)
	}
}
