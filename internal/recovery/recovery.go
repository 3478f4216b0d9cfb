// Copyright (c) 2025 Casedesk
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package recovery forcibly resets corrupted client state back to a clean
// signed-out baseline. It is invoked from the Error state's affordance or by
// an explicit user action, and it must make progress no matter which of its
// collaborators is broken: every step is independently fault-tolerant.
package recovery

import (
	"context"

	"casedesk/cli/internal/backend"
	"casedesk/cli/internal/breaker"
	"casedesk/cli/internal/guard"
	"casedesk/cli/internal/loopdetect"
	"casedesk/cli/internal/logging"
	"casedesk/cli/internal/nav"
	"casedesk/cli/internal/session"
	"casedesk/cli/internal/storage"
)

// Coordinator orchestrates the full client reset.
type Coordinator struct {
	be    backend.API
	db    storage.Store
	brk   *breaker.Breaker
	loops *loopdetect.Detector
	store *session.Store
	nav   nav.Navigator
}

// New constructs a Coordinator over the session-related components.
func New(be backend.API, db storage.Store, brk *breaker.Breaker, loops *loopdetect.Detector, store *session.Store, navigator nav.Navigator) *Coordinator {
	return &Coordinator{be: be, db: db, brk: brk, loops: loops, store: store, nav: navigator}
}

// Recover resets everything. Steps, in order: force-close the circuit
// breaker, best-effort backend sign-out, purge persisted session keys, reset
// the loop detector, force the session store to Unauthenticated, and hard
// navigate to the login route when not already there. A failure in one step
// never prevents the following steps; even a fully inaccessible storage
// medium still yields best-effort success, because the hard navigation is
// itself the ultimate reset.
func (c *Coordinator) Recover(ctx context.Context) bool {
	if err := c.brk.Reset(); err != nil {
		logging.Debug.Warn().Err(err).Msg("recover: breaker reset failed")
	}

	if tok, err := c.db.Get(storage.KeyAccessToken); err == nil && tok != "" {
		if err := c.be.SignOut(ctx, tok); err != nil {
			logging.Debug.Warn().Err(err).Msg("recover: backend sign-out failed")
		}
	}

	for _, key := range storage.SessionKeys() {
		if err := c.db.Delete(key); err != nil {
			logging.Debug.Warn().Err(err).Str("key", key).Msg("recover: purge failed")
		}
	}

	c.loops.Reset()
	c.store.ForceUnauthenticated()

	if c.nav.Current().Path != guard.PathLogin {
		c.nav.HardNavigate(guard.PathLogin)
	}
	return true
}
