package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jrsteele09/go-auth-client/apiclient"
	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print the access token that API calls would send",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			token, ok, err := a.resolver.ResolveAccessToken()
			if err != nil {
				return err
			}
			if !ok {
				return errors.New("no usable access token")
			}
			fmt.Fprintln(os.Stdout, token)
			return nil
		})
	},
}

var getCmd = &cobra.Command{
	Use:   "get <path>",
	Short: "GET a path on API_BASE_URL with the access token attached",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			resp, err := a.api(cfg).Get(cmd.Context(), args[0])
			if errors.Is(err, apiclient.ErrReauthenticationRequired) {
				return fmt.Errorf("%w: run 'authclient login --relogin'", err)
			}
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			fmt.Fprintf(os.Stderr, "%s\n", resp.Status)
			_, err = io.Copy(os.Stdout, resp.Body)
			return err
		})
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(getCmd)
}
