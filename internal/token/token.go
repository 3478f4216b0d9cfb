// Copyright (c) 2025 Casedesk
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package token structurally validates session tokens on the client side.
//
// The client holds no signing keys, so validation is purely structural: a
// token must decompose into the standard three-part JWT layout, carry a JSON
// payload with subject, issued-at and expiry claims, and be unexpired.
// Signature verification is the backend's job; these checks only decide
// whether a stored token is worth presenting at all.
package token

import (
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Claims is the decoded subset of a session token the client cares about.
type Claims struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Validate inspects raw and reports whether it is a well-formed, unexpired
// session token. It is total: every malformed input yields ok=false, never a
// panic or an error. On success the decoded claims are returned.
func Validate(raw string, now time.Time) (Claims, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Claims{}, false
	}
	if strings.Count(raw, ".") != 2 {
		return Claims{}, false
	}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return Claims{}, false
	}

	if claims.Subject == "" || claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return Claims{}, false
	}
	if !claims.ExpiresAt.Time.After(now) {
		return Claims{}, false
	}

	return Claims{
		Subject:   claims.Subject,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, true
}

// Stale reports whether a token that passed Validate was issued more than
// maxAge ago. Such tokens are technically unexpired but suspect after a long
// device sleep; the result is a hint for a proactive refresh, not a failure.
func Stale(c Claims, now time.Time, maxAge time.Duration) bool {
	if maxAge <= 0 {
		return false
	}
	return now.Sub(c.IssuedAt) > maxAge
}
