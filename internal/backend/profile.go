// Copyright (c) 2025 Casedesk
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"context"
	"errors"
	"net/http"
)

// GetProfile retrieves the token owner's profile from /api/client/profile.
// The profile is read-mostly; the session store caches it for the lifetime
// of the session.
func (h *HTTP) GetProfile(ctx context.Context, accessToken string) (Profile, error) {
	req, err := h.newRequest(ctx, http.MethodGet, h.endpoints.Profile, accessToken, nil)
	if err != nil {
		return Profile{}, err
	}

	var p Profile
	if err := h.do(req, &p); err != nil {
		return Profile{}, err
	}
	if p.UserID == "" {
		return Profile{}, errors.New("profile response missing user id")
	}
	return p, nil
}
