package authn

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/grafops/grafana-console/pkg/observability"
)

// ErrBadCredentials is returned when the backend rejects a login
var ErrBadCredentials = errors.New("invalid credentials")

// Profile is the identity the backend auth service vouches for
type Profile struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	Organization string `json:"organization"`
}

// BackendClient talks to the opaque backend auth service. The console never
// sees password hashes; it forwards credentials and trusts the answer.
type BackendClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *observability.Logger
}

// NewBackendClient creates a client for the auth backend at baseURL
func NewBackendClient(baseURL string, timeout time.Duration, logger *observability.Logger) *BackendClient {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &BackendClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string  `json:"token"`
	User  Profile `json:"user"`
}

// Login exchanges credentials for the backend's profile and bearer token.
// A 401 from the backend maps to ErrBadCredentials.
func (c *BackendClient) Login(ctx context.Context, username, password string) (*Profile, string, error) {
	body, err := json.Marshal(loginRequest{Username: username, Password: password})
	if err != nil {
		return nil, "", fmt.Errorf("auth backend: encode login: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return nil, "", fmt.Errorf("auth backend: build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("auth backend: login: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, "", ErrBadCredentials
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, "", fmt.Errorf("auth backend: login returned status %d", resp.StatusCode)
	}

	var result loginResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&result); err != nil {
		return nil, "", fmt.Errorf("auth backend: decode login response: %w", err)
	}
	if result.Token == "" {
		return nil, "", fmt.Errorf("auth backend: login response missing token")
	}
	return &result.User, result.Token, nil
}

// Me validates a backend token and returns the profile it belongs to
func (c *BackendClient) Me(ctx context.Context, token string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/me", nil)
	if err != nil {
		return nil, fmt.Errorf("auth backend: build me request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth backend: me: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrBadCredentials
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("auth backend: me returned status %d", resp.StatusCode)
	}

	var profile Profile
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&profile); err != nil {
		return nil, fmt.Errorf("auth backend: decode me response: %w", err)
	}
	return &profile, nil
}

// Ping probes the backend for readiness checks. Any HTTP answer counts as
// alive; only transport failures are reported.
func (c *BackendClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/me", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("auth backend unreachable: %w", err)
	}
	resp.Body.Close()
	return nil
}
