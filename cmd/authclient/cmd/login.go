package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jrsteele09/go-auth-client/authflow"
	"github.com/jrsteele09/go-auth-client/oauthmodel"
	"github.com/jrsteele09/go-auth-client/pkce"
	"github.com/spf13/cobra"
)

var relogin bool

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in through the browser",
	Long: `Prints the provider's authorization URL and waits on the redirect URL
for the callback. The pending attempt expires after ten minutes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		return withApp(func(a *app) error {
			return runLogin(ctx, a)
		})
	},
}

var callbackCmd = &cobra.Command{
	Use:   "callback <redirected-url>",
	Short: "Finish a sign-in from a pasted redirect URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := oauthmodel.ParseCallbackURL(args[0])
		if err != nil {
			return err
		}
		return withApp(func(a *app) error {
			return finishLogin(cmd.Context(), a, params)
		})
	},
}

func init() {
	loginCmd.Flags().BoolVar(&relogin, "relogin", false, "Discard the current session before signing in")
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(callbackCmd)
}

func runLogin(ctx context.Context, a *app) error {
	if !a.flow.Configured() {
		return errors.New("no provider configured: set AUTH_DOMAIN and AUTH_CLIENT_ID, or use dev-login")
	}
	cs, err := listenForCallback(cfg.GetRedirectURL())
	if err != nil {
		return err
	}
	defer cs.Close()

	begin := a.flow.Begin
	if relogin {
		begin = a.flow.Relogin
	}
	req, err := begin(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Open this URL to sign in:\n\n  %s\n\n", req.URL)

	waitCtx, cancel := context.WithTimeout(ctx, pkce.TTL)
	defer cancel()
	params, err := cs.Wait(waitCtx)
	if err != nil {
		return fmt.Errorf("waiting for the redirect: %w", err)
	}
	return finishLogin(ctx, a, params)
}

func finishLogin(ctx context.Context, a *app, params oauthmodel.CallbackParams) error {
	rec, err := a.flow.HandleCallback(ctx, params)
	if err != nil {
		if authflow.RetryAllowed(err) {
			fmt.Fprintln(os.Stderr, "The exchange failed. The same redirect may be retried once with 'authclient callback'.")
		}
		return err
	}
	fmt.Fprintln(os.Stdout, renderStatus(rec, a.resolver.IsExpired(rec)))
	return nil
}
