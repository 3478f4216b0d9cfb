// Copyright (c) 2025 Casedesk
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package guard decides, per route, whether to render protected content,
// render a transient loading view, or redirect — and refuses to take part in
// redirect storms. It consumes session state snapshots and the loop detector;
// it never talks to the backend itself.
package guard

import (
	"sync"
	"time"

	"casedesk/cli/internal/loopdetect"
	"casedesk/cli/internal/nav"
	"casedesk/cli/internal/notify"
	"casedesk/cli/internal/session"
)

// Action is what the guard tells the shell to do for the active route.
type Action int

const (
	// ActionRender renders the route's content.
	ActionRender Action = iota
	// ActionLoading renders the interstitial loading view; never redirect
	// while the session determination is still in flight.
	ActionLoading
	// ActionRedirect means a debounced redirect to Decision.Target was
	// scheduled.
	ActionRedirect
	// ActionRecovery renders the recovery affordance.
	ActionRecovery
	// ActionContinue renders the static "you appear to be signed in;
	// continue" affordance shown when a loop was flagged mid-redirect.
	ActionContinue
)

// Decision is the guard's verdict for one route evaluation.
type Decision struct {
	Action Action
	// Target is the redirect destination when Action is ActionRedirect.
	Target string
	// Notice is a user-visible explanation (e.g. a role denial).
	Notice string
}

// States narrows the session store to what the guard needs.
type States interface {
	Snapshot() session.Snapshot
}

// Guard is a route-level consumer of session state. One instance guards one
// shell; Close cancels its pending redirect.
type Guard struct {
	states   States
	loops    *loopdetect.Detector
	nav      nav.Navigator
	notifier notify.Notifier
	routes   Table
	debounce time.Duration

	mu      sync.Mutex
	pending *pendingRedirect
	closed  bool
}

type pendingRedirect struct {
	target string
	timer  *time.Timer
	// done closes once the redirect has committed or been cancelled.
	done chan struct{}
}

// New constructs a Guard. debounce is the delay between issuing a redirect
// and committing it, absorbing state flips already in flight.
func New(states States, loops *loopdetect.Detector, navigator nav.Navigator, notifier notify.Notifier, routes Table, debounce time.Duration) *Guard {
	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}
	return &Guard{
		states:   states,
		loops:    loops,
		nav:      navigator,
		notifier: notifier,
		routes:   routes,
		debounce: debounce,
	}
}

// Evaluate decides what to do for path. Redirect decisions are committed
// asynchronously after the debounce; any later Evaluate that reaches a
// different verdict cancels the pending redirect first.
func (g *Guard) Evaluate(path string) Decision {
	snap := g.states.Snapshot()
	route := g.routes.Lookup(path)

	switch snap.Status {
	case session.StatusLoading:
		g.cancelPending()
		return Decision{Action: ActionLoading}

	case session.StatusError:
		// Recovery is the only forward path, regardless of route.
		g.cancelPending()
		return Decision{Action: ActionRecovery}

	case session.StatusAuthenticated, session.StatusImpersonating:
		if route.Path == PathLogin {
			target := g.capturedOrigin()
			if g.loops.RecordRedirect() {
				g.cancelPending()
				return Decision{Action: ActionContinue, Target: target}
			}
			g.schedule(target, nav.Options{Replace: true}, func() bool {
				return g.states.Snapshot().Status.SignedIn()
			})
			return Decision{Action: ActionRedirect, Target: target}
		}

		// Secondary role check once state is stable. Skipped while
		// impersonating: impersonation intentionally narrows privilege.
		if route.RequiredRole != "" && snap.Status == session.StatusAuthenticated {
			if snap.Profile == nil || snap.Profile.Role != route.RequiredRole {
				notice := "You do not have access to " + route.Path
				g.notifier.Warn(notice)
				g.schedule(PathHome, nav.Options{Replace: true}, func() bool {
					return g.states.Snapshot().Status.SignedIn()
				})
				return Decision{Action: ActionRedirect, Target: PathHome, Notice: notice}
			}
		}

		g.cancelPending()
		return Decision{Action: ActionRender}

	default: // StatusUnauthenticated
		if !route.Protected {
			g.cancelPending()
			return Decision{Action: ActionRender}
		}
		if g.loops.RecordRedirect() {
			g.cancelPending()
			return Decision{Action: ActionRecovery}
		}
		// Carry the origin so sign-in can restore it.
		g.schedule(PathLogin, nav.Options{State: map[string]string{nav.StateFrom: path}}, func() bool {
			return !g.states.Snapshot().Status.SignedIn()
		})
		return Decision{Action: ActionRedirect, Target: PathLogin}
	}
}

// Close cancels any pending redirect. Call on shell teardown so no orphaned
// timer navigates a dead shell.
func (g *Guard) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	g.cancelPendingLocked()
}

// capturedOrigin returns the originally requested path recorded by a prior
// login redirect, falling back to home.
func (g *Guard) capturedOrigin() string {
	loc := g.nav.Current()
	if from := loc.State[nav.StateFrom]; from != "" && from != PathLogin {
		return from
	}
	return PathHome
}

// schedule arms a debounced redirect to target. Only one pending redirect
// exists per guard; a redirect to the same target leaves the existing one in
// place, anything else supersedes it. stillValid re-checks state at commit
// time so a flip during the debounce aborts the navigation.
func (g *Guard) schedule(target string, opts nav.Options, stillValid func() bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return
	}
	if g.pending != nil {
		if g.pending.target == target {
			return
		}
		g.cancelPendingLocked()
	}

	p := &pendingRedirect{target: target, done: make(chan struct{})}
	p.timer = time.AfterFunc(g.debounce, func() {
		g.mu.Lock()
		if g.closed || g.pending != p {
			// Superseded or closed; cancelPendingLocked closed done.
			g.mu.Unlock()
			return
		}
		g.pending = nil
		g.mu.Unlock()
		defer close(p.done)

		if stillValid != nil && !stillValid() {
			return
		}
		g.nav.Navigate(target, opts)
	})
	g.pending = p
}

// Wait blocks until the pending redirect, if any, has committed or been
// cancelled. It returns immediately when nothing is pending.
func (g *Guard) Wait() {
	g.mu.Lock()
	p := g.pending
	g.mu.Unlock()

	if p != nil {
		<-p.done
	}
}

func (g *Guard) cancelPending() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancelPendingLocked()
}

func (g *Guard) cancelPendingLocked() {
	if g.pending != nil {
		g.pending.timer.Stop()
		close(g.pending.done)
		g.pending = nil
	}
}
