// Copyright (c) 2025 Casedesk
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Endpoints contains the URL paths for the backend API. They are fixed per
// deployment; tests point them at httptest servers.
type Endpoints struct {
	Version          string
	SignIn           string
	SignOut          string
	Session          string
	Refresh          string
	Profile          string
	Impersonate      string
	EndImpersonation string
	Events           string
}

// DefaultEndpoints returns the production API paths.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Version:          "/api/version",
		SignIn:           "/api/client/sign-in",
		SignOut:          "/api/client/sign-out",
		Session:          "/api/client/session",
		Refresh:          "/api/client/refresh",
		Profile:          "/api/client/profile",
		Impersonate:      "/api/client/impersonate",
		EndImpersonation: "/api/client/impersonate/end",
		Events:           "/api/client/events",
	}
}

// HTTP implements API over REST endpoints.
type HTTP struct {
	// baseURL is the base URL for all HTTP requests (e.g., "https://api.casedesk.io")
	baseURL string
	// endpoints contains the URL paths for various API endpoints
	endpoints Endpoints
	// client is the underlying HTTP client with configured timeout
	client *http.Client
	// clientID identifies this client instance across requests
	clientID string
}

// newHTTP creates a new HTTP client with the given base URL and endpoints.
// It configures a 10-second timeout for all requests.
func newHTTP(baseURL string, endpoints Endpoints) *HTTP {
	return &HTTP{
		baseURL:   strings.TrimRight(baseURL, "/"),
		endpoints: endpoints,
		client:    &http.Client{Timeout: 10 * time.Second},
		clientID:  uuid.NewString(),
	}
}

// newRequest builds a request with the standard headers set.
func (h *HTTP) newRequest(ctx context.Context, method, path, accessToken string, body any) (*http.Request, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Casedesk-Client", h.clientID)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	return req, nil
}

// do executes the request, mapping transport failures to ErrNetwork and
// auth failures to ErrUnauthorized/ErrForbidden. On success the body is
// decoded into out when out is non-nil.
func (h *HTTP) do(req *http.Request, out any) error {
	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusForbidden:
		return ErrForbidden
	case resp.StatusCode >= 400:
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s: %d %s", req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(b)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

// GetVersion calls GET /api/version and returns the version string when available.
// No authentication required. This can be used to check connectivity to the backend service.
func (h *HTTP) GetVersion(ctx context.Context) (string, error) {
	req, err := h.newRequest(ctx, http.MethodGet, h.endpoints.Version, "", nil)
	if err != nil {
		return "", err
	}
	var out struct {
		Version string `json:"version"`
	}
	if err := h.do(req, &out); err != nil {
		return "", err
	}
	if out.Version == "" {
		return "unknown", nil
	}
	return out.Version, nil
}
