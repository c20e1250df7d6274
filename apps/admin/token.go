package main

import (
	"fmt"

	"github.com/spf13/cobra"

	echoapi "github.com/trezcool/kamusi/apps/api/echo"
	"github.com/trezcool/kamusi/core"
)

func (cli *commandLine) tokenCmd() *cobra.Command {
	var id core.Identity
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API token for a user (for development)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlags(cmd, "user", "username"); err != nil {
				return err
			}
			token, err := echoapi.GenerateToken(cli.conf, echoapi.GetIdentityClaims(cli.conf, id))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cli.out, token)
			return err
		},
	}
	cmd.Flags().StringVarP(&id.UserID, "user", "u", "", "user ID (token subject)")
	cmd.Flags().StringVar(&id.Username, "username", "", "username")
	cmd.Flags().StringVar(&id.Email, "email", "", "email address")
	return cmd
}
