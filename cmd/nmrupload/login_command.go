package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLoginCommand(ctx *commandContext) *cobra.Command {
	var url, username string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and print a reusable session token",
		Long: "Sign in and print the session token. Pass it back with --session,\n" +
			"ACDATA_SESSION or auth.session to skip signing in on later runs.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.newClient(url)
			if err != nil {
				return err
			}
			session, err := ctx.login(cmd.Context(), cmd, client, username)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(session))
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "URL of the ACData instance")
	cmd.Flags().StringVarP(&username, "username", "u", "", "zID to sign in with")
	return cmd
}
