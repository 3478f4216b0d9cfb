// Copyright (c) 2025 Casedesk
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// logoutCmd signs the user out. The backend call is best-effort; local
// credentials and state are cleared regardless.
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and clear local credentials",

	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		a.store.Start(ctx)
		if !a.store.Snapshot().Status.SignedIn() {
			fmt.Println("You're not logged in.")
			return nil
		}

		a.store.SignOut(ctx)
		fmt.Println("👋 Logged out.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
