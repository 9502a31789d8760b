package forge

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"git.home.luguber.info/inful/attestbot/internal/foundation/errors"
)

const userAgent = "attestbot/1.0"

// maxErrorBody bounds how much of an error response we read for
// classification.
const maxErrorBody = 4 << 10

// BaseForge provides common HTTP operations for forge clients. It
// consolidates request building and response classification shared by the
// GitHub and Forgejo variants.
type BaseForge struct {
	httpClient *http.Client
	apiURL     string
	token      string

	// Forge-specific customization hooks
	authHeaderPrefix string // "Bearer " for GitHub, "token " for Forgejo
	customHeaders    map[string]string
}

// NewBaseForge creates a BaseForge with common forge HTTP client settings.
func NewBaseForge(apiURL, token string) *BaseForge {
	return &BaseForge{
		httpClient:       &http.Client{Timeout: 30 * time.Second},
		apiURL:           apiURL,
		token:            token,
		authHeaderPrefix: "Bearer ",
		customHeaders:    make(map[string]string),
	}
}

// SetAuthHeaderPrefix customizes the authorization header format.
func (b *BaseForge) SetAuthHeaderPrefix(prefix string) {
	b.authHeaderPrefix = prefix
}

// SetCustomHeader sets forge-specific headers (e.g. GitHub API version).
func (b *BaseForge) SetCustomHeader(key, value string) {
	b.customHeaders[key] = value
}

// NewRequest creates a GET request against the forge API. Endpoint is a
// relative path like "/orgs/acme/repos", optionally with a query string.
func (b *BaseForge) NewRequest(ctx context.Context, endpoint string) (*http.Request, error) {
	cleanEndpoint := strings.TrimPrefix(endpoint, "/")

	var rawQuery string
	if idx := strings.Index(cleanEndpoint, "?"); idx != -1 {
		rawQuery = cleanEndpoint[idx+1:]
		cleanEndpoint = cleanEndpoint[:idx]
	}

	u, err := url.Parse(b.apiURL)
	if err != nil {
		return nil, errors.ForgeError("failed to parse API URL").
			WithCause(err).
			WithContext("api_url", b.apiURL).
			Build()
	}

	basePath := strings.TrimSuffix(u.Path, "/")
	u.Path = path.Join(basePath, cleanEndpoint)
	if rawQuery != "" {
		u.RawQuery = rawQuery
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, errors.ForgeError("failed to create request").
			WithCause(err).
			WithContext("url", u.String()).
			Build()
	}

	if b.token != "" {
		req.Header.Set("Authorization", b.authHeaderPrefix+b.token)
	}
	req.Header.Set("User-Agent", userAgent)
	for key, value := range b.customHeaders {
		req.Header.Set(key, value)
	}

	return req, nil
}

// DoRequest executes the request and decodes the JSON response into result.
// Non-2xx responses become classified errors carrying the transport status;
// 404 and 403 are typed so callers can branch on skip-vs-retry, and an
// abuse-detection body on a 403 is flagged for the backoff floor.
func (b *BaseForge) DoRequest(req *http.Request, result any) error {
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return errors.NetworkError("forge request failed").
			WithCause(err).
			WithContext("url", req.URL.String()).
			Build()
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return classifyResponse(resp.StatusCode, body, req.URL.String())
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return errors.ForgeError("failed to decode forge response").
				WithCause(err).
				WithContext("url", req.URL.String()).
				Build()
		}
	}
	return nil
}

// classifyResponse maps an error response to the taxonomy callers branch on.
func classifyResponse(status int, body []byte, url string) error {
	lower := strings.ToLower(string(body))
	abuse := strings.Contains(lower, "abuse") || strings.Contains(lower, "secondary rate limit")

	switch {
	case status == http.StatusNotFound:
		return errors.NotFoundError("forge resource not found").
			WithStatus(status).
			WithContext("url", url).
			Build()
	case status == http.StatusForbidden && abuse:
		return errors.ForgeError("forge abuse detection triggered").
			WithStatus(status).
			WithContext("abuse_detected", true).
			WithContext("url", url).
			Build()
	case status == http.StatusForbidden:
		return errors.ForgeError("forge access forbidden").
			WithSeverity(errors.SeverityWarning).
			WithStatus(status).
			WithContext("url", url).
			Build()
	default:
		return errors.ForgeError("forge request failed").
			WithStatus(status).
			WithContext("url", url).
			Build()
	}
}
