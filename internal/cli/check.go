package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCheckCommand(c *cliContext) *cobra.Command {
	var audience string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Ask the provider for a session without interaction",
		Long: `Run a silent (prompt=none) authorization. The CLI keeps no cookies between
runs, so this reports whether the provider would sign the user in without a
login page, which from a fresh process is normally not the case.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			f, err := c.newFlow(ctx, audience, nil)
			if err != nil {
				return err
			}

			ok, err := f.manager.CheckSession(ctx, audience, "")
			if err != nil {
				return fmt.Errorf("check session: %w", err)
			}
			fmt.Fprintf(out, "authenticated: %t\n", ok)
			if ok {
				if p, found := f.manager.Profile(); found {
					fmt.Fprintf(out, "sub: %s\n", p.Subject())
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&audience, "audience", "", "Audience to check")
	return cmd
}
