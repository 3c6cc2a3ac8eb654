package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Delete the stored session and any pending sign-in",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			if err := a.flow.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, "Signed out")
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
