// Copyright (c) 2025 Casedesk
// Licensed under the MIT License. See LICENSE file in the project root for details.

package breaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casedesk/cli/internal/storage"
)

// fakeClock is a manually advanced clock for breaker tests.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(store storage.Store, clock *fakeClock) *Breaker {
	return New(store, 3, 30*time.Second, 5*time.Minute, WithNow(clock.Now))
}

func TestBreakerOpensAtThreshold(t *testing.T) {
	clock := newFakeClock()
	db := storage.NewMemory()
	b := newTestBreaker(db, clock)

	require.NoError(t, b.RecordFailure("invalid credentials"))
	assert.False(t, b.Status().Open)

	require.NoError(t, b.RecordFailure("invalid credentials"))
	assert.False(t, b.Status().Open)

	require.NoError(t, b.RecordFailure("invalid credentials"))
	st := b.Status()
	assert.True(t, st.Open)
	assert.Equal(t, "invalid credentials", st.Reason)
	assert.Equal(t, 5*time.Minute, st.Remaining)
}

func TestBreakerWindowForgetsOldFailures(t *testing.T) {
	clock := newFakeClock()
	db := storage.NewMemory()
	b := newTestBreaker(db, clock)

	require.NoError(t, b.RecordFailure("invalid credentials"))
	require.NoError(t, b.RecordFailure("invalid credentials"))

	// A pause past the rolling window wipes the accumulated count, so two
	// more failures still leave the breaker closed.
	clock.Advance(31 * time.Second)
	require.NoError(t, b.RecordFailure("invalid credentials"))
	require.NoError(t, b.RecordFailure("invalid credentials"))
	assert.False(t, b.Status().Open)

	require.NoError(t, b.RecordFailure("invalid credentials"))
	assert.True(t, b.Status().Open)
}

func TestBreakerSingleSuccessCloses(t *testing.T) {
	clock := newFakeClock()
	db := storage.NewMemory()
	b := newTestBreaker(db, clock)

	for i := 0; i < 3; i++ {
		require.NoError(t, b.RecordFailure("invalid credentials"))
	}
	require.True(t, b.Status().Open)

	require.NoError(t, b.RecordSuccess())
	assert.False(t, b.Status().Open)

	// The failure count is zeroed too: two fresh failures stay below the
	// threshold.
	require.NoError(t, b.RecordFailure("invalid credentials"))
	require.NoError(t, b.RecordFailure("invalid credentials"))
	assert.False(t, b.Status().Open)
}

func TestBreakerCooldownExpiry(t *testing.T) {
	clock := newFakeClock()
	db := storage.NewMemory()
	b := newTestBreaker(db, clock)

	for i := 0; i < 3; i++ {
		require.NoError(t, b.RecordFailure("network failure"))
	}

	clock.Advance(4 * time.Minute)
	st := b.Status()
	assert.True(t, st.Open)
	assert.Equal(t, time.Minute, st.Remaining)

	clock.Advance(time.Minute)
	assert.False(t, b.Status().Open)

	// Expiry also cleared the persisted record entirely.
	raw, err := db.Get(storage.KeyBreaker)
	require.NoError(t, err)
	assert.Empty(t, raw)
}

func TestBreakerSurvivesRestart(t *testing.T) {
	clock := newFakeClock()
	db := storage.NewMemory()
	b := newTestBreaker(db, clock)

	for i := 0; i < 3; i++ {
		require.NoError(t, b.RecordFailure("invalid credentials"))
	}
	require.True(t, b.Status().Open)

	// A new instance over the same storage sees the open breaker.
	reborn := newTestBreaker(db, clock)
	st := reborn.Status()
	assert.True(t, st.Open)
	assert.Equal(t, "invalid credentials", st.Reason)
}

func TestBreakerReset(t *testing.T) {
	clock := newFakeClock()
	db := storage.NewMemory()
	b := newTestBreaker(db, clock)

	for i := 0; i < 3; i++ {
		require.NoError(t, b.RecordFailure("invalid credentials"))
	}
	require.True(t, b.Status().Open)

	require.NoError(t, b.Reset())
	assert.False(t, b.Status().Open)
}

func TestBreakerCorruptRecordTreatedAsEmpty(t *testing.T) {
	clock := newFakeClock()
	db := storage.NewMemory()
	require.NoError(t, db.Set(storage.KeyBreaker, "{not json"))

	b := newTestBreaker(db, clock)
	assert.False(t, b.Status().Open)
	require.NoError(t, b.RecordFailure("invalid credentials"))
	assert.False(t, b.Status().Open)
}

// errStore fails every operation; the breaker must fail open (closed circuit)
// rather than lock the user out on a broken medium.
type errStore struct{}

func (errStore) Get(string) (string, error) { return "", errors.New("medium unavailable") }
func (errStore) Set(string, string) error   { return errors.New("medium unavailable") }
func (errStore) Delete(string) error        { return errors.New("medium unavailable") }

func TestBreakerUnreadableStorageReportsClosed(t *testing.T) {
	clock := newFakeClock()
	b := newTestBreaker(errStore{}, clock)

	assert.False(t, b.Status().Open)
	assert.Error(t, b.RecordFailure("invalid credentials"))
}

func TestOpenErrorMessage(t *testing.T) {
	err := &OpenError{Reason: "invalid credentials", Remaining: 90 * time.Second}
	assert.Equal(t, "too many failed sign-in attempts, retry in 1m30s", err.Error())
}
