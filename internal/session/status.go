// Copyright (c) 2025 Casedesk
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

// Status is the client's view of "is the user logged in". Exactly one status
// holds at any instant; the store's transitions are the only way it changes.
type Status string

const (
	// StatusLoading is the initial status while the boot-time session check runs.
	StatusLoading Status = "loading"
	// StatusAuthenticated means a valid session and profile are present.
	StatusAuthenticated Status = "authenticated"
	// StatusUnauthenticated means no session exists.
	StatusUnauthenticated Status = "unauthenticated"
	// StatusError means a terminal auth error occurred; recovery is the only
	// forward path.
	StatusError Status = "error"
	// StatusImpersonating means an administrator is acting as another user.
	StatusImpersonating Status = "impersonating"
)

// SignedIn reports whether the status carries a live session.
func (s Status) SignedIn() bool {
	return s == StatusAuthenticated || s == StatusImpersonating
}
