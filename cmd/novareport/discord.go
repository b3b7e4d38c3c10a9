package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDiscordCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "discord",
		Short: "Discord community access",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "invite",
		Short: "Email yourself an invite to the subscribers' Discord",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, g)
			if err != nil {
				return err
			}
			if err := a.requireSession(); err != nil {
				return err
			}
			if err := a.client.SendDiscordInvite(cmd.Context()); err != nil {
				return a.handleAuthError(err)
			}
			fmt.Fprintln(a.out, "En inbjudan till Discord har skickats till din e-post.")
			return nil
		},
	})

	return cmd
}
