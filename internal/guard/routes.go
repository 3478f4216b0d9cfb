// Copyright (c) 2025 Casedesk
// Licensed under the MIT License. See LICENSE file in the project root for details.

package guard

// Route describes one application route for guarding purposes.
type Route struct {
	Path string
	// Protected routes require a signed-in session.
	Protected bool
	// RequiredRole, when set, additionally gates the route on the profile
	// role once state is stable.
	RequiredRole string
}

// Well-known paths.
const (
	PathLogin = "/login"
	PathHome  = "/"
)

// Table maps paths to routes. Unknown paths are treated as protected: an
// unlisted screen must never render without a session.
type Table map[string]Route

// DefaultTable returns the casedesk route table.
func DefaultTable() Table {
	routes := []Route{
		{Path: PathLogin},
		{Path: PathHome, Protected: true},
		{Path: "/tickets", Protected: true},
		{Path: "/dashboard", Protected: true},
		{Path: "/companies", Protected: true, RequiredRole: "admin"},
		{Path: "/admin/builder", Protected: true, RequiredRole: "admin"},
	}
	t := make(Table, len(routes))
	for _, r := range routes {
		t[r.Path] = r
	}
	return t
}

// Lookup resolves path, defaulting unknown paths to protected.
func (t Table) Lookup(path string) Route {
	if r, ok := t[path]; ok {
		return r
	}
	return Route{Path: path, Protected: true}
}
