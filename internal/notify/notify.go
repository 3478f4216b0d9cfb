// Copyright (c) 2025 Casedesk
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package notify is the user-facing notification channel: transient
// toast-style messages for errors, successes and cooldown messaging.
// Fire-and-forget; no acknowledgment contract.
package notify

import "github.com/pterm/pterm"

// Notifier delivers transient user-facing messages.
type Notifier interface {
	Success(msg string)
	Info(msg string)
	Warn(msg string)
	Error(msg string)
}

// Terminal renders notifications with pterm prefixes.
type Terminal struct{}

func (Terminal) Success(msg string) { pterm.Success.Println(msg) }
func (Terminal) Info(msg string)    { pterm.Info.Println(msg) }
func (Terminal) Warn(msg string)    { pterm.Warning.Println(msg) }
func (Terminal) Error(msg string)   { pterm.Error.Println(msg) }

// Silent drops all notifications. Used in tests.
type Silent struct{}

func (Silent) Success(string) {}
func (Silent) Info(string)    {}
func (Silent) Warn(string)    {}
func (Silent) Error(string)   {}
