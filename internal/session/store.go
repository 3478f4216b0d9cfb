// Copyright (c) 2025 Casedesk
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package session owns the client-side authentication state machine. It
// reconciles asynchronous, out-of-order inputs — backend session-change
// notifications, the boot-time session check, manual sign-in and sign-out —
// into one consistent view of whether the user is logged in.
//
// Two rules carry the correctness of the machine:
//
//  1. A signed-in user is never logged out by a transient failure. Explicit
//     sign-out and backend signed-out notifications are the only paths from
//     Authenticated to Unauthenticated; a failed background refresh routes
//     to Error instead.
//
//  2. Downgrade proposals are debounced. A transition to a lesser status is
//     held for a short stability window and discarded when a contradicting
//     greater status arrives inside it, which suppresses the blip a token
//     refresh produces. Errors and explicit sign-out bypass the window.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"casedesk/cli/internal/backend"
	"casedesk/cli/internal/breaker"
	"casedesk/cli/internal/logging"
	"casedesk/cli/internal/storage"
	"casedesk/cli/internal/token"
)

// Snapshot is the subscriber-facing view of the store at one instant.
// Record and Profile are non-nil exactly when Status carries a session.
type Snapshot struct {
	Status  Status
	Record  *Record
	Profile *backend.Profile
	// Cause is the human-readable reason when Status is StatusError.
	Cause string
	// Impersonating's retained administrator identity, for display.
	AdminUserID string
}

// Store is the session state machine. All exported methods are safe for
// concurrent use.
type Store struct {
	be  backend.API
	db  storage.Store
	brk *breaker.Breaker

	stability   time.Duration
	tokenMaxAge time.Duration
	now         func() time.Time

	mu      sync.Mutex
	status  Status
	record  *Record
	profile *backend.Profile
	cause   string

	// Retained administrator session while impersonating.
	adminRecord  *Record
	adminProfile *backend.Profile

	// gen serializes transitions: every inbound event bumps it, and an async
	// result only commits while its generation is still current.
	gen         int
	cancelFetch context.CancelFunc

	downgrade *time.Timer

	subs    map[int]chan Snapshot
	nextSub int

	watchCancel context.CancelFunc
	closed      bool
}

// Option modifies a Store instance.
type Option func(*Store)

// WithNow sets the clock function (primarily for testing).
func WithNow(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithStability sets the downgrade stability window.
func WithStability(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.stability = d
		}
	}
}

// WithTokenMaxAge sets the age beyond which an unexpired token is treated as
// stale and refreshed proactively.
func WithTokenMaxAge(d time.Duration) Option {
	return func(s *Store) { s.tokenMaxAge = d }
}

// New constructs a Store in StatusLoading. Call Start to run the boot-time
// session check and begin watching backend notifications.
func New(be backend.API, db storage.Store, brk *breaker.Breaker, options ...Option) *Store {
	s := &Store{
		be:          be,
		db:          db,
		brk:         brk,
		stability:   time.Second,
		tokenMaxAge: 12 * time.Hour,
		now:         time.Now,
		status:      StatusLoading,
		subs:        make(map[int]chan Snapshot),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Start restores an existing session from persisted storage, if any, and
// resolves StatusLoading. A stored token that fails the structural checks is
// treated as absence of a session, never as a user-caused failure.
func (s *Store) Start(ctx context.Context) {
	raw, err := s.db.Get(storage.KeyAccessToken)
	if err != nil {
		logging.Debug.Warn().Err(err).Msg("session restore: storage read failed")
		raw = ""
	}

	claims, ok := token.Validate(raw, s.now())
	if !ok {
		s.mu.Lock()
		s.commitUnauthenticatedLocked()
		s.mu.Unlock()
		return
	}

	refresh, _ := s.db.Get(storage.KeyRefreshToken)
	rec := Record{
		AccessToken:  raw,
		RefreshToken: refresh,
		IssuedAt:     claims.IssuedAt,
		ExpiresAt:    claims.ExpiresAt,
		UserID:       claims.Subject,
	}

	// Unexpired but suspiciously old, e.g. after a long device sleep: swap
	// the token pair before trusting it.
	if token.Stale(claims, s.now(), s.tokenMaxAge) && refresh != "" {
		if fresh, err := s.be.RefreshSession(ctx, refresh); err == nil {
			if r, ok := newRecord(fresh, s.now()); ok {
				rec = r
			}
		}
	}

	s.establish(ctx, rec)
}

// establish fetches the profile for rec and commits the signed-in state.
// It only runs during boot, so an unauthorized token that survives the
// refresh retry is absence of a session, not a user-caused failure.
func (s *Store) establish(ctx context.Context, rec Record) {
	profile, err := s.be.GetProfile(ctx, rec.AccessToken)
	if err != nil && errors.Is(err, backend.ErrUnauthorized) && rec.RefreshToken != "" {
		// Token revoked server-side; one refresh attempt before giving up.
		if fresh, rerr := s.be.RefreshSession(ctx, rec.RefreshToken); rerr == nil {
			if r, ok := newRecord(fresh, s.now()); ok {
				rec = r
				profile, err = s.be.GetProfile(ctx, rec.AccessToken)
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case err == nil:
		s.commitSessionLocked(rec, &profile)
	case errors.Is(err, backend.ErrUnauthorized):
		s.commitUnauthenticatedLocked()
	default:
		// A network outage falls back to the cached profile so an offline
		// start still renders the signed-in view.
		if errors.Is(err, backend.ErrNetwork) {
			if p := cachedProfile(s.db); p != nil && p.UserID == rec.UserID {
				s.commitSessionLocked(rec, p)
				return
			}
		}
		// Valid session but the profile is unreachable: Error, not sign-out.
		s.commitErrorLocked(fmt.Sprintf("profile fetch failed: %v", err))
	}
}

// SignIn authenticates with the backend. While the circuit breaker is open
// the attempt is refused locally with a *breaker.OpenError carrying the
// remaining cooldown; no network call is made.
func (s *Store) SignIn(ctx context.Context, email, password string) error {
	if st := s.brk.Status(); st.Open {
		return &breaker.OpenError{Reason: st.Reason, Remaining: st.Remaining}
	}

	sess, err := s.be.SignIn(ctx, email, password)
	if err != nil {
		switch {
		case errors.Is(err, backend.ErrUnauthorized):
			if berr := s.brk.RecordFailure("invalid credentials"); berr != nil {
				logging.Debug.Warn().Err(berr).Msg("breaker: record failure")
			}
		case errors.Is(err, backend.ErrNetwork):
			if berr := s.brk.RecordFailure("network failure"); berr != nil {
				logging.Debug.Warn().Err(berr).Msg("breaker: record failure")
			}
		default:
			if berr := s.brk.RecordFailure("backend error"); berr != nil {
				logging.Debug.Warn().Err(berr).Msg("breaker: record failure")
			}
		}
		return err
	}

	rec, ok := newRecord(sess, s.now())
	if !ok {
		return errors.New("backend issued a malformed session token")
	}

	profile, err := s.be.GetProfile(ctx, rec.AccessToken)
	if err != nil {
		// The session itself was established; a dead profile service is the
		// unrecoverable case the Error state exists for.
		s.mu.Lock()
		s.commitErrorLocked(fmt.Sprintf("profile fetch failed: %v", err))
		s.mu.Unlock()
		return fmt.Errorf("signed in but profile fetch failed: %w", err)
	}

	if berr := s.brk.RecordSuccess(); berr != nil {
		logging.Debug.Warn().Err(berr).Msg("breaker: record success")
	}

	s.mu.Lock()
	s.commitSessionLocked(rec, &profile)
	s.mu.Unlock()
	return nil
}

// SignOut ends the session explicitly. The backend call is best-effort; the
// local transition to Unauthenticated is immediate and bypasses the
// stability window.
func (s *Store) SignOut(ctx context.Context) {
	s.mu.Lock()
	rec := s.record
	s.mu.Unlock()

	if rec != nil {
		if err := s.be.SignOut(ctx, rec.AccessToken); err != nil {
			logging.Debug.Warn().Err(err).Msg("sign-out: backend call failed")
		}
	}
	if err := purge(s.db); err != nil {
		logging.Debug.Warn().Err(err).Msg("sign-out: storage purge failed")
	}

	s.mu.Lock()
	s.commitUnauthenticatedLocked()
	s.mu.Unlock()
}

// Refresh replaces the session using the stored refresh token. Per the
// machine's central correctness property a failed refresh routes to Error,
// never silently to Unauthenticated.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.record == nil {
		s.mu.Unlock()
		return errors.New("no session to refresh")
	}
	refresh := s.record.RefreshToken
	s.mu.Unlock()

	sess, err := s.be.RefreshSession(ctx, refresh)
	if err != nil {
		s.mu.Lock()
		s.commitErrorLocked(fmt.Sprintf("session refresh failed: %v", err))
		s.mu.Unlock()
		return err
	}

	rec, ok := newRecord(sess, s.now())
	if !ok {
		s.mu.Lock()
		s.commitErrorLocked("session refresh returned a malformed token")
		s.mu.Unlock()
		return errors.New("session refresh returned a malformed token")
	}

	s.mu.Lock()
	profile := s.profile
	s.commitSessionLocked(rec, profile)
	s.mu.Unlock()
	return nil
}

// BeginImpersonation starts an impersonation session for targetUserID. The
// administrator's own record is retained in memory for restoration; the
// persisted tokens stay the administrator's, so a crash mid-impersonation
// falls back to the administrator session on next start.
func (s *Store) BeginImpersonation(ctx context.Context, targetUserID string) error {
	s.mu.Lock()
	if s.status != StatusAuthenticated || s.record == nil {
		s.mu.Unlock()
		return errors.New("impersonation requires an authenticated session")
	}
	admin := *s.record
	adminProfile := s.profile
	s.mu.Unlock()

	sess, err := s.be.Impersonate(ctx, admin.AccessToken, targetUserID)
	if err != nil {
		return err
	}
	rec, ok := newRecord(sess, s.now())
	if !ok {
		return errors.New("impersonation returned a malformed token")
	}

	profile, err := s.be.GetProfile(ctx, rec.AccessToken)
	if err != nil {
		return fmt.Errorf("impersonation profile fetch failed: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.supersedeLocked()
	s.adminRecord = &admin
	s.adminProfile = adminProfile
	s.record = &rec
	s.profile = &profile
	s.status = StatusImpersonating
	s.cause = ""
	s.startWatchLocked()
	s.publishLocked()
	return nil
}

// EndImpersonation restores the administrator's own session. The backend
// call invalidating the impersonation token is best-effort.
func (s *Store) EndImpersonation(ctx context.Context) error {
	s.mu.Lock()
	if s.status != StatusImpersonating || s.adminRecord == nil {
		s.mu.Unlock()
		return errors.New("not impersonating")
	}
	imp := s.record
	s.mu.Unlock()

	if imp != nil {
		if err := s.be.EndImpersonation(ctx, imp.AccessToken); err != nil {
			logging.Debug.Warn().Err(err).Msg("end impersonation: backend call failed")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.supersedeLocked()
	s.record = s.adminRecord
	s.profile = s.adminProfile
	s.adminRecord = nil
	s.adminProfile = nil
	s.status = StatusAuthenticated
	s.cause = ""
	s.startWatchLocked()
	s.publishLocked()
	return nil
}

// SetError moves the machine to StatusError immediately, bypassing the
// stability window. cause is shown to the user alongside the recovery
// affordance.
func (s *Store) SetError(cause string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitErrorLocked(cause)
}

// ForceUnauthenticated resets the machine to a clean Unauthenticated state
// without backend or storage side effects. It is the recovery coordinator's
// hook; recovery handles the purging itself.
func (s *Store) ForceUnauthenticated() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitUnauthenticatedLocked()
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers a state listener. The current snapshot is delivered
// immediately; the returned cancel function unsubscribes. Slow subscribers
// lose intermediate snapshots, never the latest one.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan Snapshot, 8)
	s.subs[id] = ch
	s.sendLocked(ch, s.snapshotLocked())

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

// Close tears the store down: the backend watch stops, pending timers and
// in-flight fetches are cancelled, and subscriber channels close.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.supersedeLocked()
	if s.watchCancel != nil {
		s.watchCancel()
		s.watchCancel = nil
	}
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}

// --- internal transitions (callers hold s.mu) ---

// supersedeLocked invalidates any in-flight async work and pending downgrade:
// the next event's result is the only one allowed to commit.
func (s *Store) supersedeLocked() {
	s.gen++
	if s.cancelFetch != nil {
		s.cancelFetch()
		s.cancelFetch = nil
	}
	if s.downgrade != nil {
		s.downgrade.Stop()
		s.downgrade = nil
	}
}

func (s *Store) commitSessionLocked(rec Record, profile *backend.Profile) {
	s.supersedeLocked()
	s.record = &rec
	s.profile = profile
	s.status = StatusAuthenticated
	s.cause = ""
	s.adminRecord = nil
	s.adminProfile = nil
	if err := persist(s.db, rec, profile); err != nil {
		logging.Debug.Warn().Err(err).Msg("session persist failed")
	}
	s.startWatchLocked()
	s.publishLocked()
}

func (s *Store) commitUnauthenticatedLocked() {
	s.supersedeLocked()
	s.record = nil
	s.profile = nil
	s.adminRecord = nil
	s.adminProfile = nil
	s.status = StatusUnauthenticated
	s.cause = ""
	if s.watchCancel != nil {
		s.watchCancel()
		s.watchCancel = nil
	}
	s.publishLocked()
}

func (s *Store) commitErrorLocked(cause string) {
	s.supersedeLocked()
	// Recovery is the only path out of Error, so no backend event may move
	// the machine from here: stop the watch.
	if s.watchCancel != nil {
		s.watchCancel()
		s.watchCancel = nil
	}
	s.status = StatusError
	s.cause = cause
	s.publishLocked()
}

// proposeDowngradeLocked schedules a transition to Unauthenticated after the
// stability window. Any commit in the meantime supersedes it, which is what
// suppresses the signed-out blip a token refresh produces.
func (s *Store) proposeDowngradeLocked() {
	if s.status == StatusError {
		// A watch event already in flight when the Error transition
		// cancelled the watch must not bypass recovery.
		return
	}
	if !s.status.SignedIn() {
		s.commitUnauthenticatedLocked()
		return
	}
	if s.downgrade != nil {
		return // one pending proposal is enough
	}

	gen := s.gen
	s.downgrade = time.AfterFunc(s.stability, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.gen != gen || s.closed {
			return
		}
		s.downgrade = nil
		s.commitUnauthenticatedLocked()
	})
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{Status: s.status, Cause: s.cause}
	if s.record != nil {
		r := *s.record
		snap.Record = &r
	}
	if s.profile != nil {
		p := *s.profile
		snap.Profile = &p
	}
	if s.adminRecord != nil {
		snap.AdminUserID = s.adminRecord.UserID
	}
	return snap
}

func (s *Store) publishLocked() {
	snap := s.snapshotLocked()
	for _, ch := range s.subs {
		s.sendLocked(ch, snap)
	}
}

// sendLocked delivers without blocking: when a subscriber lags, the oldest
// queued snapshot is dropped in favor of the newest.
func (s *Store) sendLocked(ch chan Snapshot, snap Snapshot) {
	select {
	case ch <- snap:
	default:
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

// --- backend watch ---

// startWatchLocked (re)subscribes to backend session-change notifications
// using the current access token. The previous watch, if any, is cancelled.
func (s *Store) startWatchLocked() {
	if s.watchCancel != nil {
		s.watchCancel()
		s.watchCancel = nil
	}
	if s.closed || s.record == nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.watchCancel = cancel
	events := s.be.WatchSession(ctx, s.record.AccessToken)

	go func() {
		for ev := range events {
			s.handleEvent(ctx, ev)
		}
	}()
}

// handleEvent folds one backend notification into the machine.
func (s *Store) handleEvent(ctx context.Context, ev backend.Event) {
	switch ev.Kind {
	case backend.EventSignedOut:
		s.mu.Lock()
		s.proposeDowngradeLocked()
		s.mu.Unlock()

	case backend.EventSignedIn, backend.EventRefreshed:
		if ev.Session == nil {
			return
		}
		rec, ok := newRecord(*ev.Session, s.now())
		if !ok {
			logging.Debug.Warn().Str("kind", string(ev.Kind)).Msg("watch: malformed session in event")
			return
		}

		s.mu.Lock()
		if s.status == StatusImpersonating {
			// A rotation of the impersonation token swaps the record in
			// place. The retained administrator session and the persisted
			// token pair are untouched; events for any other user are
			// ignored until impersonation ends.
			if s.record != nil && s.record.UserID == rec.UserID {
				s.supersedeLocked()
				s.record = &rec
				s.startWatchLocked()
				s.publishLocked()
			}
			s.mu.Unlock()
			return
		}
		// Refresh events for the user we already hold keep the cached
		// profile; a different user forces a fresh profile fetch.
		if s.profile != nil && s.record != nil && s.record.UserID == rec.UserID {
			s.commitSessionLocked(rec, s.profile)
			s.mu.Unlock()
			return
		}
		s.supersedeLocked()
		gen := s.gen
		fetchCtx, cancel := context.WithCancel(ctx)
		s.cancelFetch = cancel
		s.mu.Unlock()

		go func() {
			profile, err := s.be.GetProfile(fetchCtx, rec.AccessToken)
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.gen != gen || s.closed {
				return // superseded; this result is abandoned
			}
			s.cancelFetch = nil
			if err != nil {
				s.commitErrorLocked(fmt.Sprintf("profile fetch failed: %v", err))
				return
			}
			s.commitSessionLocked(rec, &profile)
		}()
	}
}
