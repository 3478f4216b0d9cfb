// Copyright (c) 2025 Casedesk
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package breaker implements the sign-in circuit breaker. Consecutive
// authentication failures inside a rolling window open the breaker for a
// cooldown, during which the client refuses to attempt authentication at all.
//
// The record is persisted so a process restart does not reset an open
// breaker. Only a successful authentication, cooldown expiry or an explicit
// reset closes it.
package breaker

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"casedesk/cli/internal/storage"
)

// OpenError reports a sign-in attempt refused because the breaker is open.
// Callers surface the remaining cooldown to the user.
type OpenError struct {
	Reason    string
	Remaining time.Duration
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("too many failed sign-in attempts, retry in %s", e.Remaining.Round(time.Second))
}

// Record is the persisted breaker state.
type Record struct {
	Failures    int       `json:"failures"`
	LastFailure time.Time `json:"last_failure"`
	Open        bool      `json:"open"`
	OpenUntil   time.Time `json:"open_until"`
	Reason      string    `json:"reason,omitempty"`
}

// Status is the caller-facing view of the breaker.
type Status struct {
	Open      bool
	Reason    string
	Remaining time.Duration
}

// Breaker tracks consecutive sign-in failures against persisted storage.
type Breaker struct {
	mu    sync.Mutex
	store storage.Store

	threshold int
	window    time.Duration
	cooldown  time.Duration
	now       func() time.Time
}

// Option modifies a Breaker instance.
type Option func(*Breaker)

// WithNow sets the clock function (primarily for testing).
func WithNow(now func() time.Time) Option {
	return func(b *Breaker) { b.now = now }
}

// New constructs a Breaker. threshold failures within window open it for
// cooldown.
func New(store storage.Store, threshold int, window, cooldown time.Duration, options ...Option) *Breaker {
	if threshold <= 0 {
		threshold = 3
	}
	if window <= 0 {
		window = 30 * time.Second
	}
	if cooldown <= 0 {
		cooldown = 5 * time.Minute
	}

	b := &Breaker{
		store:     store,
		threshold: threshold,
		window:    window,
		cooldown:  cooldown,
		now:       time.Now,
	}
	for _, opt := range options {
		opt(b)
	}
	return b
}

// load reads the persisted record. A missing or corrupt record yields the
// zero value; an unreadable medium is surfaced to the caller.
func (b *Breaker) load() (Record, error) {
	raw, err := b.store.Get(storage.KeyBreaker)
	if err != nil {
		return Record{}, err
	}
	if raw == "" {
		return Record{}, nil
	}
	var r Record
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return Record{}, nil
	}
	return r, nil
}

func (b *Breaker) save(r Record) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return b.store.Set(storage.KeyBreaker, string(raw))
}

// RecordFailure counts one authentication failure. Failures older than the
// rolling window are forgotten first; crossing the threshold opens the
// breaker and stamps the cooldown deadline with the given reason.
func (b *Breaker) RecordFailure(reason string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	r, err := b.load()
	if err != nil {
		return err
	}

	if !r.LastFailure.IsZero() && now.Sub(r.LastFailure) > b.window {
		r.Failures = 0
	}
	r.Failures++
	r.LastFailure = now

	if r.Failures >= b.threshold && !r.Open {
		r.Open = true
		r.OpenUntil = now.Add(b.cooldown)
		r.Reason = reason
	}

	return b.save(r)
}

// RecordSuccess closes the breaker unconditionally and zeroes the failure
// count. A single success fully rehabilitates the circuit.
func (b *Breaker) RecordSuccess() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.store.Delete(storage.KeyBreaker)
}

// Reset force-closes the breaker regardless of cooldown. It is the
// administrative action used by the recovery coordinator.
func (b *Breaker) Reset() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.store.Delete(storage.KeyBreaker)
}

// Status reports whether the breaker is open and, if so, the remaining
// cooldown. Observing an expired cooldown closes the breaker in place.
// When the storage medium is unreadable the breaker reports closed: a broken
// disk must not lock the user out.
func (b *Breaker) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()

	r, err := b.load()
	if err != nil || !r.Open {
		return Status{}
	}

	now := b.now()
	if !now.Before(r.OpenUntil) {
		// Cooldown expired: close, keep the stale failure count cleared.
		_ = b.store.Delete(storage.KeyBreaker)
		return Status{}
	}

	return Status{
		Open:      true,
		Reason:    r.Reason,
		Remaining: r.OpenUntil.Sub(now),
	}
}
