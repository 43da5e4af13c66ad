package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/rsg-workblocks/internal/storage"
)

func newLoginCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Obtain and cache an API token",
		Long: `login prompts for a password unless a token is already cached, then
checks that the RSE exists on the server.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.submitter(cmd, false)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (rse %d), token cached in %s.\n",
				a.cfg.RSE, s.RSEPK(), a.cfg.TokenFile)
			return nil
		},
	}
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the cached API token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := storage.NewTokenFile(a.cfg.TokenFile).Remove(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed cached token %s.\n", a.cfg.TokenFile)
			return nil
		},
	}
}
