// Copyright (c) 2025 Casedesk
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import (
	"encoding/json"
	"time"

	"casedesk/cli/internal/backend"
	"casedesk/cli/internal/storage"
	"casedesk/cli/internal/token"
)

// Record is the client-held session: the token pair plus the validity window
// decoded from the access token. It is owned exclusively by the store and
// replaced wholesale on refresh, never mutated in place.
type Record struct {
	AccessToken  string
	RefreshToken string
	IssuedAt     time.Time
	ExpiresAt    time.Time
	UserID       string
}

// newRecord builds a Record from a backend session, deriving the validity
// window from the access token payload. ok=false when the token fails the
// structural checks.
func newRecord(s backend.Session, now time.Time) (Record, bool) {
	claims, ok := token.Validate(s.AccessToken, now)
	if !ok {
		return Record{}, false
	}
	userID := s.UserID
	if userID == "" {
		userID = claims.Subject
	}
	return Record{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		IssuedAt:     claims.IssuedAt,
		ExpiresAt:    claims.ExpiresAt,
		UserID:       userID,
	}, true
}

// persistedState mirrors the teacher-of-record auth_state blob: the minimal
// non-secret login marker kept alongside the tokens.
type persistedState struct {
	LoggedIn bool   `json:"logged_in"`
	Account  string `json:"account"`
}

// persist writes the record and profile cache to storage. Failures are
// returned so the caller can log them; a persistence failure does not undo
// an in-memory transition.
func persist(store storage.Store, r Record, p *backend.Profile) error {
	if err := store.Set(storage.KeyAccessToken, r.AccessToken); err != nil {
		return err
	}
	if err := store.Set(storage.KeyRefreshToken, r.RefreshToken); err != nil {
		return err
	}
	st, err := json.Marshal(persistedState{LoggedIn: true, Account: r.UserID})
	if err == nil {
		if serr := store.Set(storage.KeyAuthState, string(st)); serr != nil {
			return serr
		}
	}
	if p != nil {
		if b, err := json.Marshal(p); err == nil {
			if serr := store.Set(storage.KeyProfile, string(b)); serr != nil {
				return serr
			}
		}
	}
	return nil
}

// purge removes session keys from storage, continuing past individual
// failures and returning the first one.
func purge(store storage.Store) error {
	var first error
	for _, key := range storage.SessionKeys() {
		if key == storage.KeyBreaker {
			// The breaker record has its own owner and lifecycle.
			continue
		}
		if err := store.Delete(key); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// cachedProfile loads the profile cache, if present and well-formed.
func cachedProfile(store storage.Store) *backend.Profile {
	raw, err := store.Get(storage.KeyProfile)
	if err != nil || raw == "" {
		return nil
	}
	var p backend.Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil || p.UserID == "" {
		return nil
	}
	return &p
}
