// Copyright (c) 2025 Casedesk
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"os"
	"path/filepath"

	"casedesk/cli/internal/backend"
	"casedesk/cli/internal/breaker"
	"casedesk/cli/internal/config"
	apperrors "casedesk/cli/internal/errors"
	"casedesk/cli/internal/guard"
	"casedesk/cli/internal/logging"
	"casedesk/cli/internal/loopdetect"
	"casedesk/cli/internal/nav"
	"casedesk/cli/internal/notify"
	"casedesk/cli/internal/recovery"
	"casedesk/cli/internal/session"
	"casedesk/cli/internal/storage"
	"casedesk/cli/internal/xdg"
)

// app wires the session-lifecycle components for one command invocation.
// Every component is instantiated once here and passed by reference; nothing
// reaches for hidden singletons.
type app struct {
	cfg   config.Config
	db    storage.Store
	be    backend.API
	brk   *breaker.Breaker
	loops *loopdetect.Detector
	store *session.Store
	nav   *nav.Recorder
	guard *guard.Guard
	rec   *recovery.Coordinator
}

// newApp loads configuration and assembles the component graph. Config load
// failures fall back to defaults; an unusable keychain falls back to the
// file store so the CLI still works on stripped-down systems.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		logging.Debug.Warn().Err(err).Msg("config load failed, using defaults")
	}
	logging.Setup(cfg.LogLevel)

	db, err := openStore()
	if err != nil {
		return nil, err
	}

	be := backend.New(cfg.BackendURL, backend.DefaultEndpoints())
	brk := breaker.New(db, cfg.BreakerThreshold, cfg.BreakerWindow.Std(), cfg.BreakerCooldown.Std())
	loops := loopdetect.New(storage.NewMemory(), cfg.LoopThreshold, cfg.LoopWindow.Std(), cfg.LoopQuiet.Std())
	store := session.New(be, db, brk,
		session.WithStability(cfg.StabilityWindow.Std()),
		session.WithTokenMaxAge(cfg.TokenMaxAge.Std()),
	)
	navigator := nav.NewRecorder(guard.PathHome)
	g := guard.New(store, loops, navigator, notify.Terminal{}, guard.DefaultTable(), cfg.RedirectDebounce.Std())
	rec := recovery.New(be, db, brk, loops, store, navigator)

	return &app{
		cfg:   cfg,
		db:    db,
		be:    be,
		brk:   brk,
		loops: loops,
		store: store,
		nav:   navigator,
		guard: g,
		rec:   rec,
	}, nil
}

// openStore opens the keyring-backed store, or the file store when the
// keyring is unavailable or disabled via CASEDESK_NO_KEYRING=1.
func openStore() (storage.Store, error) {
	if os.Getenv("CASEDESK_NO_KEYRING") != "1" {
		kr, err := storage.OpenKeyring()
		if err == nil {
			return kr, nil
		}
		logging.Debug.Warn().Err(err).Msg("keyring unavailable, falling back to file store")
	}

	dir, err := xdg.StateDir()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.StorageUnavailable, "cannot resolve state directory", err)
	}
	return storage.NewFile(filepath.Join(dir, "client_state.json")), nil
}

// close tears down timers, watches and pending redirects.
func (a *app) close() {
	a.guard.Close()
	a.loops.Cancel()
	a.store.Close()
}
