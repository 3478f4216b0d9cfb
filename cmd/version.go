// Copyright (c) 2025 Casedesk
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

// Version is the client version, overridden at build time via
// -ldflags "-X casedesk/cli/cmd.Version=...".
var Version = "dev"
