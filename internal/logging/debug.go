// Copyright (c) 2025 Casedesk
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"casedesk/cli/internal/xdg"
)

// Debug is the diagnostic logger. It writes to casedesk.log in the XDG state
// dir; user-facing output goes through pterm, never through this logger.
// Until Setup runs it discards everything.
var Debug = zerolog.Nop()

// Setup opens the debug log file and installs the diagnostic logger at the
// given level. Failures are ignored: diagnostics must never break the CLI.
func Setup(level string) {
	dir, err := xdg.StateDir()
	if err != nil {
		return
	}
	f, err := os.OpenFile(filepath.Join(dir, "casedesk.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	Debug = zerolog.New(f).Level(lvl).With().Timestamp().Logger()
}
