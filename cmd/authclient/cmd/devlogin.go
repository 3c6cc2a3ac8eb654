package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/jrsteele09/go-auth-client/authflow"
	"github.com/jrsteele09/go-auth-client/internal/config"
	"github.com/spf13/cobra"
)

var devLoginCmd = &cobra.Command{
	Use:    "dev-login",
	Short:  "Store a placeholder session when no provider is configured",
	Hidden: !authflow.DevBypassAvailable,
	RunE: func(cmd *cobra.Command, args []string) error {
		if config.IsProduction(cfg) {
			return fmt.Errorf("%w: ENV is %s", authflow.ErrDevBypassUnavailable, cfg.GetEnv())
		}
		return withApp(func(a *app) error {
			rec, err := a.flow.DevBypass()
			if errors.Is(err, authflow.ErrDevBypassNotAllowed) {
				return fmt.Errorf("%w: unset AUTH_DOMAIN and AUTH_CLIENT_ID first", err)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, renderStatus(rec, false))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(devLoginCmd)
}
