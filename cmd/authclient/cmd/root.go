package cmd

import (
	"github.com/jrsteele09/go-auth-client/internal/config"
	"github.com/jrsteele09/go-auth-client/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfg    config.Config
	pretty bool
)

var rootCmd = &cobra.Command{
	Use:   "authclient",
	Short: "Sign in to an OAuth2 provider and keep the session in an encrypted local store",
	Long: `authclient signs in with the OAuth2 authorization code flow and PKCE,
stores the resulting session in an encrypted credential store and hands the
access token to API calls.

Configuration is read from the environment and an optional .env file:
  AUTH_DOMAIN, AUTH_CLIENT_ID, AUTH_AUDIENCE, AUTH_REDIRECT_URL,
  API_BASE_URL, DATA_FOLDER, STORE_BACKEND, STORE_PASSPHRASE,
  UNLOCK_FALLBACK, LOG_LEVEL`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.New()
		if err != nil {
			return err
		}
		cfg = c
		logging.Setup(c.GetLogLevel(), pretty, nil)
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&pretty, "pretty", true, "Human readable log output on stderr")
}
