// Copyright (c) 2025 Casedesk
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package nav abstracts client navigation. The guard and the recovery
// coordinator never touch the rendering layer directly; they drive a
// Navigator, which the CLI shell implements as screen changes and tests
// implement as a Recorder.
package nav

import "sync"

// Options modifies an in-app navigation.
type Options struct {
	// Replace substitutes the current history entry instead of pushing.
	Replace bool
	// State is opaque route state carried across the navigation, e.g. the
	// originally requested path captured before a login redirect.
	State map[string]string
}

// Location is the navigator's current position.
type Location struct {
	Path  string
	State map[string]string
}

// Navigator performs in-app route changes and hard reloads.
//
// HardNavigate is the "full document reload" of the browser world: it must
// discard all in-memory client state along with the navigation, which the
// CLI realizes by re-execing into the target screen.
type Navigator interface {
	Navigate(path string, opts Options)
	HardNavigate(url string)
	Current() Location
}

// StateFrom is the route-state key carrying the origin path of a redirect.
const StateFrom = "from"

// Recorder is a Navigator that records calls. It backs tests and the CLI
// shell, which replays recorded navigations as screen transitions.
type Recorder struct {
	mu       sync.Mutex
	current  Location
	history  []Location
	hardURLs []string
}

// NewRecorder creates a Recorder positioned at path.
func NewRecorder(path string) *Recorder {
	return &Recorder{current: Location{Path: path}}
}

func (r *Recorder) Navigate(path string, opts Options) {
	r.mu.Lock()
	defer r.mu.Unlock()

	loc := Location{Path: path, State: opts.State}
	if opts.Replace && len(r.history) > 0 {
		r.history[len(r.history)-1] = loc
	} else {
		r.history = append(r.history, loc)
	}
	r.current = loc
}

func (r *Recorder) HardNavigate(url string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.hardURLs = append(r.hardURLs, url)
	r.current = Location{Path: url}
}

// History returns the recorded in-app navigations.
func (r *Recorder) History() []Location {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Location, len(r.history))
	copy(out, r.history)
	return out
}

// HardURLs returns the recorded hard navigations.
func (r *Recorder) HardURLs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, len(r.hardURLs))
	copy(out, r.hardURLs)
	return out
}

func (r *Recorder) Current() Location {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.current
}

// SetCurrent repositions the recorder without recording a navigation.
func (r *Recorder) SetCurrent(loc Location) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.current = loc
}
