package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newAuthCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Run the OAuth2 authorization code flow",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "url",
		Short: "Print the URL granting access to the client",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), a.client.Auth().AuthorizationURL(uuid.NewString()))
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "exchange <code>",
		Short: "Exchange an authorization code for a token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := a.client.Auth().Exchange(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, token)
		},
	})

	return cmd
}
