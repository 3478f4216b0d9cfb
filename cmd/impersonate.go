// Copyright (c) 2025 Casedesk
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"casedesk/cli/internal/backend"
	apperrors "casedesk/cli/internal/errors"
)

var endImpersonation bool

// impersonateCmd starts or ends an impersonation session. Impersonation
// gives an administrator the target user's session context while their own
// identity is retained for restoration.
var impersonateCmd = &cobra.Command{
	Use:   "impersonate <user-id>",
	Short: "Act as another user (administrators only)",
	Long: `The impersonate command starts a support impersonation session scoped to
the target user. Your own administrator session is retained and restored
when impersonation ends.

End an active impersonation with 'casedesk impersonate --end'.`,

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
			return apperrors.New(apperrors.SessionInvalid, "no valid session; run 'casedesk login' first")
		}

		if endImpersonation {
			if err := a.store.EndImpersonation(ctx); err != nil {
				return err
			}
			snap := a.store.Snapshot()
			pterm.Success.Printf("Back to your own account: %s\n", accountLabel(snap.Profile, snap.Record.UserID))
			return nil
		}

		if len(args) != 1 {
			return errors.New("expected a target user id (or --end)")
		}

		if err := a.store.BeginImpersonation(ctx, args[0]); err != nil {
			if errors.Is(err, backend.ErrForbidden) {
				pterm.Error.Println("Your role does not permit impersonation.")
				return fmt.Errorf("impersonation denied")
			}
			return err
		}

		snap := a.store.Snapshot()
		pterm.Success.Printf("Now acting as %s\n", accountLabel(snap.Profile, snap.Record.UserID))
		fmt.Println("   Run 'casedesk impersonate --end' to return to your own account.")
		return nil
	},
}

func init() {
	impersonateCmd.Flags().BoolVar(&endImpersonation, "end", false, "End the active impersonation session")
	rootCmd.AddCommand(impersonateCmd)
}
