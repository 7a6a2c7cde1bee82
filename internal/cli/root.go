package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/authsession/pkg/slogx"
)

// Version is reported by --version.
const Version = "v0.1.0"

type cliContext struct {
	cfg    Config
	logger *slog.Logger
}

// NewRootCommand creates the root command. cfg supplies the flag defaults.
func NewRootCommand(cfg Config) *cobra.Command {
	c := &cliContext{cfg: cfg, logger: slog.Default()}

	rootCmd := &cobra.Command{
		Use:           "authsession",
		Short:         "Sign in to a hosted-login identity provider from the terminal",
		Long:          `authsession drives an implicit-flow session against a hosted-login provider such as devidp.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c.logger = slogx.New(slogx.Config{
				Service: "authsession",
				Version: Version,
				Env:     "cli",
				Level:   c.cfg.LogLevel,
				Format:  c.cfg.LogFormat,
				Output:  cmd.ErrOrStderr(),
			}).With("component", "cli")
			c.logger.Debug("CLI started", "command", cmd.Name(), "domain", c.cfg.Domain)
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&c.cfg.Domain, "domain", cfg.Domain, "Provider domain or base URL")
	flags.StringVar(&c.cfg.ClientID, "client-id", cfg.ClientID, "OAuth client identifier")
	flags.StringVar(&c.cfg.RedirectURI, "redirect-uri", cfg.RedirectURI, "Registered redirect URI (the loopback callback)")
	flags.StringVar(&c.cfg.Scope, "scope", cfg.Scope, "Space-delimited scope requested on sign-in")
	flags.BoolVar(&c.cfg.SkipVerify, "skip-verify", cfg.SkipVerify, "Do not verify ID token signatures")
	flags.StringVar(&c.cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flags.StringVar(&c.cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (text, json)")

	rootCmd.AddCommand(newLoginCommand(c))
	rootCmd.AddCommand(newCheckCommand(c))
	rootCmd.AddCommand(newLogoutCommand(c))

	return rootCmd
}
