package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/authsession/pkg/authsdk"
	"github.com/aussiebroadwan/authsession/pkg/session"
)

func newLoginCommand(c *cliContext) *cobra.Command {
	var (
		username  string
		password  string
		audiences []string
		noBrowser bool
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and print the user profile",
		Long: `Sign in through the provider's hosted login.

Without --username the login URL is opened in a browser and a loopback server
on --redirect-uri waits for the result. With --username the login form is
submitted directly and the password is prompted for when --password is not set.

Each --audience is then requested silently and its access token printed.

Examples:
  # Browser login
  authsession login --domain http://localhost:8080

  # Headless login against devidp, plus a token for an API
  authsession login --username demo --audience urn:api`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			var (
				nav navigatorFactory
				lb  *loopback
			)
			if username != "" {
				if password == "" {
					p, err := promptPassword(cmd)
					if err != nil {
						return err
					}
					password = p
				}
				nav = func(client *http.Client, cb *authsdk.Callback) authsdk.Navigator {
					return &authsdk.HTTPNavigator{
						Client:   client,
						Callback: cb,
						Username: username,
						Password: password,
					}
				}
			} else {
				nav = func(_ *http.Client, cb *authsdk.Callback) authsdk.Navigator {
					return authsdk.NavigatorFunc(func(ctx context.Context, authURL string) error {
						var err error
						if lb, err = startLoopback(c.cfg.RedirectURI, cb); err != nil {
							return err
						}
						fmt.Fprintf(out, "Open this URL to sign in:\n%s\n\n", authURL)
						if !noBrowser {
							if err := openBrowser(authURL); err != nil {
								c.logger.Debug("failed to open browser", "error", err)
							}
						}
						fmt.Fprintln(out, "Waiting for authentication...")
						return lb.Wait(ctx, timeout)
					})
				}
			}

			f, err := c.newFlow(ctx, c.cfg.Audience, nav)
			if err != nil {
				return err
			}
			defer func() {
				if lb != nil {
					_ = lb.Close()
				}
			}()

			if err := f.manager.SignIn(ctx); err != nil {
				return fmt.Errorf("sign in failed: %w", err)
			}
			profile, err := f.manager.ParseHash(ctx)
			if err != nil {
				return fmt.Errorf("sign in failed: %w", err)
			}

			if err := printProfile(out, profile); err != nil {
				return err
			}
			if tok, ok := f.manager.AccessToken(""); ok {
				printToken(out, "default", tok)
			}

			for _, aud := range audiences {
				ok, err := f.manager.CheckSession(ctx, aud, "")
				if err != nil {
					return fmt.Errorf("token for %s: %w", aud, err)
				}
				if !ok {
					fmt.Fprintf(out, "%s: authenticated: false\n", aud)
					continue
				}
				tok, _ := f.manager.AccessToken(aud)
				printToken(out, aud, tok)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Username for headless login")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password for headless login (prompted when empty)")
	cmd.Flags().StringSliceVar(&audiences, "audience", nil, "Audience to request a token for after login (repeatable)")
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Print the login URL without opening a browser")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "How long to wait for the browser")

	return cmd
}

func printProfile(w io.Writer, p session.Profile) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("failed to print profile: %w", err)
	}
	return nil
}

func printToken(w io.Writer, audience, token string) {
	fmt.Fprintf(w, "%s: %s\n", audience, token)
}
