// Copyright (c) 2025 Casedesk
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package storage provides persisted and volatile key-value storage for the
// casedesk client. Session tokens, the circuit breaker record and the cached
// profile live in persisted storage so they survive process restarts; the
// redirect window used by loop detection lives in volatile storage and dies
// with the process.
//
// Each key has a single writer: session keys are written by the session store
// and the recovery coordinator, the breaker record by the circuit breaker,
// the redirect window by the loop detector. Other components only read.
package storage

import "sync"

// Keys used for session-related client state.
const (
	KeyAccessToken  = "auth_access_token"
	KeyRefreshToken = "auth_refresh_token"
	KeyAuthState    = "auth_state"
	KeyBreaker      = "auth_circuit_breaker"
	KeyProfile      = "auth_profile_cache"
)

// SessionKeys lists every persisted key the recovery coordinator purges.
func SessionKeys() []string {
	return []string{KeyAccessToken, KeyRefreshToken, KeyAuthState, KeyBreaker, KeyProfile}
}

// Store is a key-value store for client state. A missing key yields ("", nil);
// errors indicate the medium itself failed. Implementations must be safe for
// concurrent use. Callers must handle errors, never assume availability.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// Memory is an in-process Store used for volatile state and tests.
type Memory struct {
	mu sync.RWMutex
	m  map[string]string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{m: make(map[string]string)}
}

func (s *Memory) Get(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.m[key], nil
}

func (s *Memory) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
	return nil
}

func (s *Memory) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}
