package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "redditsaver/pkg/errors"
	"redditsaver/pkg/logger"
)

// Credentials are the values exchanged for an access token through the
// password grant of a script application.
type Credentials struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
}

// Client talks to the Reddit OAuth API and to media hosts
type Client struct {
	httpClient  *http.Client
	userAgent   string
	baseURL     string
	tokenURL    string
	accessToken string
	logger      logger.Logger
}

// NewClient creates a new Reddit API client
func NewClient(timeout time.Duration, userAgent string, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
		baseURL:    BaseURL,
		tokenURL:   TokenURL,
		logger:     log,
	}
}

// SetBaseURL points listing requests at another host
func (c *Client) SetBaseURL(base string) {
	c.baseURL = strings.TrimRight(base, "/")
}

// BaseURL returns the host listing requests are sent to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetTokenURL points token requests at another endpoint
func (c *Client) SetTokenURL(u string) {
	c.tokenURL = u
}

// SetAccessToken sets the bearer token sent on API requests
func (c *Client) SetAccessToken(token string) {
	c.accessToken = token
}

// doRequest sends req with the client's User-Agent and logs the exchange.
// A transport failure is returned as a transport error.
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, apperrors.NewTransportError(req.URL.String(), err)
	}

	logger.LogRequest(c.logger, req.Method, req.URL.String(), resp.StatusCode, duration)
	return resp, nil
}

// Authenticate exchanges creds for an access token and stores it on the client
func (c *Client) Authenticate(ctx context.Context, creds Credentials) error {
	token, err := c.AccessToken(ctx, creds)
	if err != nil {
		return err
	}
	c.SetAccessToken(token)
	return nil
}

// AccessToken requests a bearer token using the password grant
func (c *Client) AccessToken(ctx context.Context, creds Credentials) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", creds.Username)
	form.Set("password", creds.Password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.SetBasicAuth(creds.ClientID, creds.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.doRequest(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", apperrors.NewStatusError(c.tokenURL, resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", apperrors.NewParseError(c.tokenURL, err)
	}
	// Reddit answers bad credentials with 200 and an error field
	if tr.Error != "" {
		return "", fmt.Errorf("token request rejected: %s", tr.Error)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("token response did not contain an access token")
	}

	c.logger.DebugWithFields("Obtained access token", map[string]interface{}{
		"username":   creds.Username,
		"expires_in": tr.ExpiresIn,
		"scope":      tr.Scope,
	})
	return tr.AccessToken, nil
}

// GetListing fetches one listing page. The response headers are returned
// whenever a response arrived, even if err is non-nil, so the caller can
// keep its quota in sync.
func (c *Client) GetListing(ctx context.Context, pageURL string) (*Listing, http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create listing request: %w", err)
	}
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.doRequest(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.Header, apperrors.NewStatusError(pageURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.Header, apperrors.NewTransportError(pageURL, err)
	}

	var listing Listing
	if err := json.Unmarshal(body, &listing); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse listing response", map[string]interface{}{
			"url":          pageURL,
			"error":        err.Error(),
			"body_preview": preview,
		})
		return nil, resp.Header, apperrors.NewParseError(pageURL, err)
	}

	return &listing, resp.Header, nil
}

// OpenMedia starts downloading mediaURL and returns the body on a 2xx
// response. Media hosts are public, so no Authorization header is sent.
// The caller must close the returned reader.
func (c *Client) OpenMedia(ctx context.Context, mediaURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, apperrors.NewTransportError(mediaURL, err)
	}

	resp, err := c.doRequest(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, apperrors.NewStatusError(mediaURL, resp.StatusCode)
	}

	return resp.Body, nil
}
