package eligibility

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/console-zone/rental/internal/storage/models"
)

// HTTPConfig holds the identity service connection settings.
type HTTPConfig struct {
	// BaseURL is the identity service root, e.g. http://identity:8080
	BaseURL string

	// Token is sent as a bearer token when set
	Token string

	Timeout time.Duration
}

// HTTPDirectory is a client for the identity service trust endpoint.
type HTTPDirectory struct {
	config     HTTPConfig
	httpClient *http.Client
}

// NewHTTPDirectory creates a new identity service client.
func NewHTTPDirectory(config HTTPConfig) *HTTPDirectory {
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	return &HTTPDirectory{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// trustResponse is the identity service payload for GET /users/{id}/trust.
type trustResponse struct {
	UserID    string `json:"user_id"`
	KYCStatus string `json:"kyc_status"`
	Blocked   bool   `json:"blocked"`
}

// Lookup fetches the trust record of userID.
func (c *HTTPDirectory) Lookup(ctx context.Context, userID string) (*models.Requester, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/users/"+url.PathEscape(userID)+"/trust")
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrUnknownRequester
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, body)
	}

	var tr trustResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	status := models.KYCStatus(tr.KYCStatus)
	switch status {
	case models.KYCNone, models.KYCPending, models.KYCVerified, models.KYCRejected:
	default:
		// unrecognized states never grant pickup
		status = models.KYCNone
	}

	return &models.Requester{ID: userID, KYCStatus: status, Blocked: tr.Blocked}, nil
}

func (c *HTTPDirectory) newRequest(ctx context.Context, method, path string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}
	req.Header.Set("Accept", "application/json")

	return req, nil
}
