// Copyright (c) 2025 Casedesk
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package loopdetect recognizes pathological redirect cycles. Route guards
// that bounce unauthenticated users to login while the login screen bounces
// authenticated users home can oscillate forever when the underlying session
// determination itself oscillates (e.g. mid-refresh). The detector counts
// redirects in a sliding window and converts an infinite loop into a single
// detected-and-halted event.
//
// The redirect window is volatile: it lives in tab/process-lifetime storage
// and expires automatically after a quiet period.
package loopdetect

import (
	"encoding/json"
	"sync"
	"time"

	"casedesk/cli/internal/storage"
)

// windowKey is the volatile storage key holding the redirect window. Other
// components may read it for display; only the detector writes it.
const windowKey = "redirect_window"

// window is the serialized redirect window.
type window struct {
	Count        int       `json:"count"`
	LastRedirect time.Time `json:"last_redirect"`
}

// Detector flags redirect storms. Safe for concurrent use.
type Detector struct {
	mu    sync.Mutex
	store storage.Store

	threshold int
	window    time.Duration
	quiet     time.Duration
	now       func() time.Time

	quietTimer *time.Timer
}

// Option modifies a Detector instance.
type Option func(*Detector)

// WithNow sets the clock function (primarily for testing).
func WithNow(now func() time.Time) Option {
	return func(d *Detector) { d.now = now }
}

// New constructs a Detector backed by volatile storage. threshold redirects
// within window flag a loop; quiet with no redirects resets the counter.
func New(store storage.Store, threshold int, win, quiet time.Duration, options ...Option) *Detector {
	if threshold <= 0 {
		threshold = 5
	}
	if win <= 0 {
		win = 5 * time.Second
	}
	if quiet <= 0 {
		quiet = 25 * time.Second
	}

	d := &Detector{
		store:     store,
		threshold: threshold,
		window:    win,
		quiet:     quiet,
		now:       time.Now,
	}
	for _, opt := range options {
		opt(d)
	}
	return d
}

// RecordRedirect counts one redirect and reports whether a loop is now
// flagged. When it returns true the caller must not perform the redirect and
// should surface a static recovery affordance instead.
func (d *Detector) RecordRedirect() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	w := d.loadWindow()

	if !w.LastRedirect.IsZero() && now.Sub(w.LastRedirect) > d.window {
		w.Count = 0
	}
	w.Count++
	w.LastRedirect = now
	d.saveWindow(w)

	// Restart the quiet-period expiry on every redirect.
	if d.quietTimer != nil {
		d.quietTimer.Stop()
	}
	d.quietTimer = time.AfterFunc(d.quiet, d.expire)

	return w.Count >= d.threshold
}

// Reset clears the redirect window and cancels the pending expiry. Used by
// the recovery coordinator and on tests' teardown.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopTimerLocked()
	_ = d.store.Delete(windowKey)
}

// Cancel stops the pending quiet-period timer without touching the counter.
// Call on teardown so no orphaned timer outlives the owner.
func (d *Detector) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopTimerLocked()
}

func (d *Detector) stopTimerLocked() {
	if d.quietTimer != nil {
		d.quietTimer.Stop()
		d.quietTimer = nil
	}
}

func (d *Detector) expire() {
	d.mu.Lock()
	defer d.mu.Unlock()

	_ = d.store.Delete(windowKey)
	d.quietTimer = nil
}

func (d *Detector) loadWindow() window {
	raw, err := d.store.Get(windowKey)
	if err != nil || raw == "" {
		return window{}
	}
	var w window
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return window{}
	}
	return w
}

func (d *Detector) saveWindow(w window) {
	raw, err := json.Marshal(w)
	if err != nil {
		return
	}
	// Volatile storage; a failed write only weakens detection for one event.
	_ = d.store.Set(windowKey, string(raw))
}
