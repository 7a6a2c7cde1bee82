package cli

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/authsession/pkg/authsdk"
)

func newLogoutCommand(c *cliContext) *cobra.Command {
	var (
		returnTo string
		open     bool
	)

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Print the provider logout URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			nav := func(*http.Client, *authsdk.Callback) authsdk.Navigator {
				return authsdk.NavigatorFunc(func(ctx context.Context, logoutURL string) error {
					if err := (authsdk.WriterNavigator{W: out}).Navigate(ctx, logoutURL); err != nil {
						return err
					}
					if open {
						return openBrowser(logoutURL)
					}
					return nil
				})
			}

			f, err := c.newFlow(ctx, "", nav)
			if err != nil {
				return err
			}
			if err := f.manager.SignOut(ctx, returnTo); err != nil {
				return fmt.Errorf("logout: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&returnTo, "return-to", c.cfg.ReturnTo, "Where the provider sends the browser after logout")
	cmd.Flags().BoolVar(&open, "open", false, "Open the logout URL in a browser")
	return cmd
}
