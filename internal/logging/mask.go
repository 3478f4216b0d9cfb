// Copyright (c) 2025 Casedesk
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package logging provides utilities for secure logging and error presentation.
// It includes functions for masking sensitive information in log messages and
// formatting errors for user-friendly display while protecting credentials and secrets.
//
// The package helps ensure that sensitive data like passwords, tokens, and API keys
// are not accidentally exposed in logs or error messages shown to users.
package logging

import "regexp"

var (
	rePassword = regexp.MustCompile(`(?i)(password=)([^\s;&]+)`)
	reToken    = regexp.MustCompile(`(?i)(token=|bearer\s+)([A-Za-z0-9._-]+)`)
	reJWT      = regexp.MustCompile(`\beyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]*`)
	reAPIKey   = regexp.MustCompile(`(?i)(apikey=|api_key=)([^\s;&]+)`)
	reEnvPair  = regexp.MustCompile(`\b(CASEDESK_PASSWORD|ACCESS_TOKEN|REFRESH_TOKEN)=([^\s;&]+)`)
)

// Mask replaces sensitive values in the input string with "*".
// JWT-shaped substrings are masked wholesale so session tokens never reach
// the debug log or an error message verbatim.
func Mask(s string) string {
	out := s
	out = rePassword.ReplaceAllString(out, "$1***")
	out = reToken.ReplaceAllString(out, "$1***")
	out = reJWT.ReplaceAllString(out, "***")
	out = reAPIKey.ReplaceAllString(out, "$1***")
	out = reEnvPair.ReplaceAllString(out, "$1=***")
	return out
}
