// Copyright (c) 2025 Casedesk
// Licensed under the MIT License. See LICENSE file in the project root for details.

package nav

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderPushAndReplace(t *testing.T) {
	r := NewRecorder("/")

	r.Navigate("/tickets", Options{})
	r.Navigate("/login", Options{State: map[string]string{StateFrom: "/tickets"}})
	history := r.History()
	require.Len(t, history, 2)
	assert.Equal(t, "/tickets", history[1].State[StateFrom])

	// Replace swaps the top entry instead of pushing.
	r.Navigate("/dashboard", Options{Replace: true})
	history = r.History()
	require.Len(t, history, 2)
	assert.Equal(t, "/dashboard", history[1].Path)
	assert.Equal(t, "/dashboard", r.Current().Path)
}

func TestRecorderHardNavigate(t *testing.T) {
	r := NewRecorder("/tickets")

	r.HardNavigate("/login")
	assert.Equal(t, []string{"/login"}, r.HardURLs())
	assert.Equal(t, "/login", r.Current().Path)
	assert.Empty(t, r.History(), "hard navigations are not in-app history")
}

func TestRecorderSetCurrent(t *testing.T) {
	r := NewRecorder("/")

	r.SetCurrent(Location{Path: "/login", State: map[string]string{StateFrom: "/tickets"}})
	assert.Equal(t, "/login", r.Current().Path)
	assert.Empty(t, r.History())
}
