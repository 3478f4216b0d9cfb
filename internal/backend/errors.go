// Copyright (c) 2025 Casedesk
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import "errors"

// Sentinel errors callers branch on. Everything else coming out of this
// package wraps one of these or carries the raw HTTP status text.
var (
	// ErrUnauthorized means the backend rejected the credentials or token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNetwork means the backend could not be reached at all.
	ErrNetwork = errors.New("backend unreachable")
	// ErrForbidden means the token is valid but lacks the required role.
	ErrForbidden = errors.New("forbidden")
)
