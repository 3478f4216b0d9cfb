// Copyright (c) 2025 Casedesk
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"casedesk/cli/internal/session"
)

// statusCmd shows the full session state: status, identity, token validity
// and the circuit breaker, including the remaining cooldown when open.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show session and sign-in circuit state",

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

		rows := pterm.TableData{{"Field", "Value"}}
		rows = append(rows, []string{"Status", string(snap.Status)})

		switch {
		case snap.Status.SignedIn():
			rows = append(rows, []string{"Account", accountLabel(snap.Profile, snap.Record.UserID)})
			if snap.Profile != nil && snap.Profile.Role != "" {
				rows = append(rows, []string{"Role", snap.Profile.Role})
			}
			rows = append(rows, []string{"Token expires", snap.Record.ExpiresAt.Local().Format(time.RFC1123)})
			if snap.AdminUserID != "" {
				rows = append(rows, []string{"Impersonating as", snap.Record.UserID})
				rows = append(rows, []string{"Your account", snap.AdminUserID})
			}
		case snap.Status == session.StatusError:
			rows = append(rows, []string{"Cause", snap.Cause})
			rows = append(rows, []string{"Next step", "run 'casedesk recover'"})
		}

		if st := a.brk.Status(); st.Open {
			rows = append(rows, []string{"Sign-in circuit", fmt.Sprintf("open (%s), closes in %s", st.Reason, st.Remaining.Round(time.Second))})
		} else {
			rows = append(rows, []string{"Sign-in circuit", "closed"})
		}

		return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
