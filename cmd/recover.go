// Copyright (c) 2025 Casedesk
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	apperrors "casedesk/cli/internal/errors"
)

// recoverCmd forcibly resets the client: closes the sign-in circuit, signs
// out of the backend best-effort, and purges all local session state. It is
// the way out of the error state and of self-inflicted redirect loops.
var recoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Reset broken client state",
	Long: `The recover command resets all session-related client state: the sign-in
circuit breaker is force-closed, the backend session is invalidated (best
effort), and locally stored tokens and caches are purged. Afterwards the
client is cleanly signed out.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		stopSpinner := startInlineSpinner(os.Stdout, "Resetting client state", spinnerFrames, 120*time.Millisecond)
		ok := a.rec.Recover(ctx)
		stopSpinner()

		if !ok {
			pterm.Error.Println("Recovery could not complete.")
			return apperrors.New(apperrors.RecoveryFailed, "client reset could not complete")
		}
		pterm.Success.Println("Client state reset.")
		fmt.Println("   Run 'casedesk login' to sign in again.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(recoverCmd)
}
