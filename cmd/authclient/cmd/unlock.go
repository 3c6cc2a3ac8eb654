package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/jrsteele09/go-auth-client/credstore"
	"github.com/jrsteele09/go-auth-client/internal/config"
	"github.com/jrsteele09/go-auth-client/unlock"
	"github.com/spf13/cobra"
)

var unlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Check that the stored session may be resumed",
	Long: `Runs the unlock gate against the stored session. Without biometric
hardware the gate either resumes without a challenge (UNLOCK_FALLBACK=fail-open)
or asks for the local passcode (UNLOCK_FALLBACK=passcode).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			return runUnlock(cmd.Context(), a)
		})
	},
}

var passcodeCmd = &cobra.Command{
	Use:   "passcode",
	Short: "Manage the unlock passcode",
}

var passcodeSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set the passcode asked for by the unlock fallback",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			var code, confirm string
			form := huh.NewForm(huh.NewGroup(
				huh.NewInput().Title("New passcode").EchoMode(huh.EchoModePassword).Value(&code).
					Validate(func(s string) error {
						if len(s) < unlock.MinPasscodeLength {
							return unlock.ErrPasscodeTooShort
						}
						return nil
					}),
				huh.NewInput().Title("Repeat passcode").EchoMode(huh.EchoModePassword).Value(&confirm),
			))
			if err := form.Run(); err != nil {
				return err
			}
			if code != confirm {
				return errors.New("passcodes do not match")
			}
			if err := passcodes(a).Set(code); err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, "Passcode set")
			return nil
		})
	},
}

var passcodeClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the unlock passcode",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			return passcodes(a).Clear()
		})
	},
}

func init() {
	passcodeCmd.AddCommand(passcodeSetCmd)
	passcodeCmd.AddCommand(passcodeClearCmd)
	rootCmd.AddCommand(unlockCmd)
	rootCmd.AddCommand(passcodeCmd)
}

func passcodes(a *app) *unlock.Passcodes {
	return unlock.NewPasscodes(a.creds, credstore.DefaultKDFParams())
}

func promptPasscode(ctx context.Context) (string, error) {
	var code string
	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().Title("Passcode").EchoMode(huh.EchoModePassword).Value(&code),
	))
	err := form.RunWithContext(ctx)
	return code, err
}

func confirmDiscard() (bool, error) {
	var discard bool
	err := huh.NewConfirm().
		Title("Unlock failed. Sign out and discard the stored session?").
		Affirmative("Sign out").
		Negative("Keep").
		Value(&discard).
		Run()
	return discard, err
}

func newGate(a *app) *unlock.Gate {
	opts := []unlock.Option{unlock.WithPromptMessage("Unlock " + cfg.GetAppName())}
	if cfg.GetUnlockFallback() == config.UnlockFallbackPasscode {
		opts = append(opts, unlock.WithPasscodeFallback(passcodes(a), promptPasscode))
	}
	return unlock.NewGate(unlock.Unsupported{}, a.sessions, opts...)
}

func runUnlock(ctx context.Context, a *app) error {
	gate := newGate(a)
	decision, err := gate.Resume(ctx)
	if err != nil {
		return err
	}
	switch decision {
	case unlock.DecisionNoSession:
		fmt.Fprintln(os.Stdout, "No stored session; run 'authclient login'")
		return nil
	case unlock.DecisionLocked:
		discard, err := confirmDiscard()
		if err != nil {
			return err
		}
		if discard {
			if err := gate.Discard(); err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, "Signed out")
			return nil
		}
		return errors.New("session locked")
	}
	if decision == unlock.DecisionResumedWithoutChallenge {
		fmt.Fprintln(os.Stderr, warnStyle.Render("No biometric hardware, resumed without a challenge"))
	}
	rec, err := a.sessions.Load()
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, renderStatus(rec, rec != nil && a.resolver.IsExpired(rec)))
	return nil
}
