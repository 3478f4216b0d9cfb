// Copyright (c) 2025 Casedesk
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package backend provides interfaces and implementations for communicating
// with the Casedesk identity/backend service. It defines the API contract for
// authentication, session validation, profile lookup and session-change
// watching. The package includes both interface definitions and an HTTP-based
// implementation.
package backend

import (
	"context"
	"time"
)

// Session is the token pair the backend issues for an authenticated user.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	UserID       string `json:"user_id"`
}

// Profile carries the application-level user attributes keyed by user ID.
type Profile struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	Locale      string `json:"locale"`
	CompanyID   string `json:"company_id"`
}

// EventKind enumerates session-change notifications pushed by the backend.
type EventKind string

const (
	EventSignedIn  EventKind = "signed_in"
	EventSignedOut EventKind = "signed_out"
	EventRefreshed EventKind = "refreshed"
)

// Event is one session-change notification.
type Event struct {
	Kind    EventKind `json:"kind"`
	UserID  string    `json:"user_id,omitempty"`
	Session *Session  `json:"session,omitempty"`
	At      time.Time `json:"at"`
}

// API defines backend operations the client depends on.
// Implementations may call real HTTP endpoints or provide fakes for tests.
type API interface {
	GetVersion(ctx context.Context) (string, error)
	// SignIn exchanges credentials for a session.
	SignIn(ctx context.Context, email, password string) (Session, error)
	// SignOut invalidates the current access token on the backend.
	SignOut(ctx context.Context, accessToken string) error
	// GetSession validates the access token and returns the owning user ID.
	GetSession(ctx context.Context, accessToken string) (string, error)
	// RefreshSession exchanges a refresh token for a fresh session.
	RefreshSession(ctx context.Context, refreshToken string) (Session, error)
	// GetProfile retrieves the profile for the token's user.
	GetProfile(ctx context.Context, accessToken string) (Profile, error)
	// Impersonate issues a session scoped to the target user. The caller
	// keeps its own session for restoration when impersonation ends.
	Impersonate(ctx context.Context, accessToken, targetUserID string) (Session, error)
	// EndImpersonation invalidates an impersonation session on the backend.
	EndImpersonation(ctx context.Context, accessToken string) error
	// WatchSession delivers session-change events until ctx is cancelled.
	// The returned channel is closed when the watch stops.
	WatchSession(ctx context.Context, accessToken string) <-chan Event
}

// New constructs the default HTTP-backed API client.
func New(baseURL string, endpoints Endpoints) API {
	return newHTTP(baseURL, endpoints)
}
