// Copyright (c) 2025 Casedesk
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"context"
	"errors"
	"net/http"
)

// SignIn posts credentials to /api/client/sign-in and returns the issued
// session. Invalid credentials yield ErrUnauthorized; connectivity problems
// yield an error wrapping ErrNetwork.
func (h *HTTP) SignIn(ctx context.Context, email, password string) (Session, error) {
	req, err := h.newRequest(ctx, http.MethodPost, h.endpoints.SignIn, "", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return Session{}, err
	}

	var s Session
	if err := h.do(req, &s); err != nil {
		return Session{}, err
	}
	if s.AccessToken == "" {
		return Session{}, errors.New("sign-in response missing access token")
	}
	return s, nil
}

// SignOut posts to /api/client/sign-out with the Authorization header.
func (h *HTTP) SignOut(ctx context.Context, accessToken string) error {
	req, err := h.newRequest(ctx, http.MethodPost, h.endpoints.SignOut, accessToken, nil)
	if err != nil {
		return err
	}
	return h.do(req, nil)
}

// GetSession validates the access token against /api/client/session and
// returns the owning user ID. An expired or revoked token yields
// ErrUnauthorized.
func (h *HTTP) GetSession(ctx context.Context, accessToken string) (string, error) {
	req, err := h.newRequest(ctx, http.MethodGet, h.endpoints.Session, accessToken, nil)
	if err != nil {
		return "", err
	}

	var out struct {
		UserID string `json:"user_id"`
	}
	if err := h.do(req, &out); err != nil {
		return "", err
	}
	if out.UserID == "" {
		return "", errors.New("session response missing user id")
	}
	return out.UserID, nil
}

// RefreshSession exchanges a refresh token for a fresh session at
// /api/client/refresh. A rejected refresh token yields ErrUnauthorized.
func (h *HTTP) RefreshSession(ctx context.Context, refreshToken string) (Session, error) {
	req, err := h.newRequest(ctx, http.MethodPost, h.endpoints.Refresh, "", map[string]string{
		"refresh_token": refreshToken,
	})
	if err != nil {
		return Session{}, err
	}

	var s Session
	if err := h.do(req, &s); err != nil {
		return Session{}, err
	}
	if s.AccessToken == "" {
		return Session{}, errors.New("refresh response missing access token")
	}
	return s, nil
}

// Impersonate requests a session scoped to targetUserID. The backend checks
// that the caller's role permits impersonation; ErrForbidden otherwise.
func (h *HTTP) Impersonate(ctx context.Context, accessToken, targetUserID string) (Session, error) {
	req, err := h.newRequest(ctx, http.MethodPost, h.endpoints.Impersonate, accessToken, map[string]string{
		"user_id": targetUserID,
	})
	if err != nil {
		return Session{}, err
	}

	var s Session
	if err := h.do(req, &s); err != nil {
		return Session{}, err
	}
	if s.AccessToken == "" {
		return Session{}, errors.New("impersonate response missing access token")
	}
	return s, nil
}

// EndImpersonation invalidates the impersonation session on the backend.
// The caller restores its retained administrator session locally.
func (h *HTTP) EndImpersonation(ctx context.Context, accessToken string) error {
	req, err := h.newRequest(ctx, http.MethodPost, h.endpoints.EndImpersonation, accessToken, nil)
	if err != nil {
		return err
	}
	return h.do(req, nil)
}
