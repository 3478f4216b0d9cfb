// Copyright (c) 2025 Casedesk
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// whoamiCmd represents the whoami command for displaying current authentication state.
// It restores the session from local storage, validates it and shows the
// account identity when authentication is valid.
var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show current authenticated account",
	Long: `The whoami command displays information about the currently authenticated account.
It restores the stored session, validates it structurally and against the
backend, and shows the account identity if authentication is valid.

If no valid session exists, it will indicate that the user is not logged in.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		a.store.Start(ctx)
		snap := a.store.Snapshot()
		if !snap.Status.SignedIn() {
			fmt.Println("🔒 You're not logged in yet!")
			fmt.Println("   Run 'casedesk login' to get started.")
			return nil
		}

		fmt.Printf("👤 Current user: %s\n", accountLabel(snap.Profile, snap.Record.UserID))
		if snap.AdminUserID != "" {
			fmt.Printf("   (impersonating — your own account is %s)\n", snap.AdminUserID)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}
