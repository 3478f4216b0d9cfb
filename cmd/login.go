// Copyright (c) 2025 Casedesk
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"casedesk/cli/internal/backend"
	"casedesk/cli/internal/breaker"
	apperrors "casedesk/cli/internal/errors"
	"casedesk/cli/internal/guard"
	"casedesk/cli/internal/httperrors"
	"casedesk/cli/internal/nav"
	"casedesk/cli/internal/terminal"
)

// loginCmd represents the login command for credential authentication.
// It prompts for email and password, signs in against the backend, and
// restores the originally requested screen captured before the login
// redirect. Attempts are refused locally while the circuit breaker is open.
var loginCmd = &cobra.Command{
	Use:     "login",
	Aliases: []string{"auth"},
	Short:   "Sign in to Casedesk",
	Long: `The login command authenticates this client against the Casedesk backend.
It prompts for your email and password, stores the resulting session tokens
securely, and returns you to the screen you originally asked for.

After repeated failed attempts the client refuses further tries for a
cooldown period and shows the remaining time.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		a.store.Start(ctx)
		if snap := a.store.Snapshot(); snap.Status.SignedIn() {
			fmt.Printf("Already logged in as %s\n", accountLabel(snap.Profile, snap.Record.UserID))
			return nil
		}

		// Refuse locally while the breaker is open; no network call is made.
		if st := a.brk.Status(); st.Open {
			showCooldown(st)
			return apperrors.New(apperrors.SignInFailed, "sign-in temporarily blocked")
		}

		email, password, promptLen, err := promptCredentials()
		if err != nil {
			return err
		}
		terminal.ClearPreviousLines(promptLen)

		stopSpinner := startInlineSpinner(os.Stdout, "Signing in", spinnerFrames, 120*time.Millisecond)
		err = a.store.SignIn(ctx, email, password)
		stopSpinner()

		if err != nil {
			var open *breaker.OpenError
			switch {
			case errors.As(err, &open):
				showCooldown(a.brk.Status())
				return apperrors.New(apperrors.SignInFailed, "sign-in temporarily blocked")
			case errors.Is(err, backend.ErrUnauthorized):
				pterm.Error.Println("Invalid email or password.")
				if st := a.brk.Status(); st.Open {
					showCooldown(st)
				}
				return apperrors.New(apperrors.SignInFailed, "invalid email or password")
			case errors.Is(err, backend.ErrNetwork):
				return httperrors.FormatNetworkError(err, "signing in")
			default:
				return err
			}
		}

		snap := a.store.Snapshot()
		pterm.Success.Printf("Welcome back, %s!\n", accountLabel(snap.Profile, snap.Record.UserID))

		// Leave the login screen through the guard so the originally
		// requested destination, if any, is restored.
		a.nav.SetCurrent(nav.Location{Path: guard.PathLogin, State: a.nav.Current().State})
		if d := a.guard.Evaluate(guard.PathLogin); d.Action == guard.ActionRedirect {
			a.guard.Wait()
			fmt.Printf("Continuing to %s\n", a.nav.Current().Path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
}

// promptCredentials reads the email and a hidden password from the terminal.
// It returns the total prompt length so the caller can scrub the lines.
func promptCredentials() (email, password string, promptLen int, err error) {
	fmt.Print("Email: ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", "", 0, err
	}
	email = strings.TrimSpace(line)

	fmt.Print("Password: ")
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", "", 0, err
	}

	promptLen = len("Email: ") + len(email) + len("Password: ")
	return email, string(pw), promptLen, nil
}

// showCooldown surfaces the open breaker with the remaining time.
func showCooldown(st breaker.Status) {
	pterm.Warning.Printf("Too many failed sign-in attempts (%s).\n", st.Reason)
	pterm.Printf("   Try again in %s.\n", st.Remaining.Round(time.Second))
}

// accountLabel prefers the profile display name over the raw user ID.
func accountLabel(p *backend.Profile, userID string) string {
	if p != nil {
		if p.DisplayName != "" {
			return p.DisplayName
		}
		if p.Email != "" {
			return p.Email
		}
	}
	return userID
}
