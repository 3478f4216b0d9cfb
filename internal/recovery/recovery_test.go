// Copyright (c) 2025 Casedesk
// Licensed under the MIT License. See LICENSE file in the project root for details.

package recovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casedesk/cli/internal/backend"
	"casedesk/cli/internal/breaker"
	"casedesk/cli/internal/guard"
	"casedesk/cli/internal/loopdetect"
	"casedesk/cli/internal/nav"
	"casedesk/cli/internal/session"
	"casedesk/cli/internal/storage"
)

// stubBackend only needs SignOut behavior; everything else is unreachable
// from the coordinator.
type stubBackend struct {
	backend.API
	signOutCalls int
	signOutErr   error
}

func (s *stubBackend) SignOut(context.Context, string) error {
	s.signOutCalls++
	return s.signOutErr
}

// flakyStore fails every delete but reads and writes normally.
type flakyStore struct {
	storage.Store
}

func (f flakyStore) Delete(string) error { return errors.New("medium unavailable") }

type fixture struct {
	be    *stubBackend
	db    storage.Store
	brk   *breaker.Breaker
	loops *loopdetect.Detector
	store *session.Store
	rec   *nav.Recorder
	coord *Coordinator
}

func newFixture(t *testing.T, db storage.Store) *fixture {
	t.Helper()
	be := &stubBackend{}
	brk := breaker.New(db, 3, 30*time.Second, 5*time.Minute)
	loops := loopdetect.New(storage.NewMemory(), 5, 5*time.Second, 25*time.Second)
	store := session.New(be, db, brk)
	rec := nav.NewRecorder("/tickets")
	t.Cleanup(func() {
		store.Close()
		loops.Cancel()
	})
	return &fixture{
		be:    be,
		db:    db,
		brk:   brk,
		loops: loops,
		store: store,
		rec:   rec,
		coord: New(be, db, brk, loops, store, rec),
	}
}

func TestRecoverResetsEverything(t *testing.T) {
	db := storage.NewMemory()
	require.NoError(t, db.Set(storage.KeyAccessToken, "tok-1"))
	require.NoError(t, db.Set(storage.KeyRefreshToken, "refresh-1"))
	fx := newFixture(t, db)

	// Put every collaborator into a dirty state first.
	for i := 0; i < 3; i++ {
		require.NoError(t, fx.brk.RecordFailure("invalid credentials"))
	}
	require.True(t, fx.brk.Status().Open)
	fx.loops.RecordRedirect()
	fx.store.SetError("stuck")

	assert.True(t, fx.coord.Recover(context.Background()))

	assert.False(t, fx.brk.Status().Open, "breaker is force-closed")
	assert.Equal(t, session.StatusUnauthenticated, fx.store.Snapshot().Status)
	assert.Equal(t, 1, fx.be.signOutCalls, "stored token is signed out server-side")

	for _, key := range storage.SessionKeys() {
		v, err := db.Get(key)
		require.NoError(t, err)
		assert.Empty(t, v, "key %s must be purged", key)
	}

	assert.Equal(t, []string{guard.PathLogin}, fx.rec.HardURLs())
}

func TestRecoverWithoutStoredTokenSkipsSignOut(t *testing.T) {
	fx := newFixture(t, storage.NewMemory())

	assert.True(t, fx.coord.Recover(context.Background()))
	assert.Zero(t, fx.be.signOutCalls)
}

func TestRecoverSurvivesBackendFailure(t *testing.T) {
	db := storage.NewMemory()
	require.NoError(t, db.Set(storage.KeyAccessToken, "tok-1"))
	fx := newFixture(t, db)
	fx.be.signOutErr = errors.New("backend unreachable")

	assert.True(t, fx.coord.Recover(context.Background()))

	// The failed sign-out does not stop any later step.
	assert.Equal(t, session.StatusUnauthenticated, fx.store.Snapshot().Status)
	v, err := db.Get(storage.KeyAccessToken)
	require.NoError(t, err)
	assert.Empty(t, v)
	assert.Equal(t, []string{guard.PathLogin}, fx.rec.HardURLs())
}

func TestRecoverSurvivesStorageFailure(t *testing.T) {
	db := flakyStore{Store: storage.NewMemory()}
	require.NoError(t, db.Set(storage.KeyAccessToken, "tok-1"))
	fx := newFixture(t, db)

	assert.True(t, fx.coord.Recover(context.Background()),
		"an inaccessible medium still yields best-effort success")
	assert.Equal(t, session.StatusUnauthenticated, fx.store.Snapshot().Status)
	assert.Equal(t, []string{guard.PathLogin}, fx.rec.HardURLs())
}

func TestRecoverSkipsNavigationWhenAlreadyOnLogin(t *testing.T) {
	fx := newFixture(t, storage.NewMemory())
	fx.rec.SetCurrent(nav.Location{Path: guard.PathLogin})

	assert.True(t, fx.coord.Recover(context.Background()))
	assert.Empty(t, fx.rec.HardURLs())
}
