package config

import (
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/motionsort/internal/app"
	"github.com/tphakala/motionsort/internal/conf"
	"github.com/tphakala/motionsort/internal/privacy"
)

// Command prints the effective configuration.
func Command(a *app.Context) *cobra.Command {
	var reveal bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Long: `Print the configuration after defaults, config file, environment variables and
flags have been merged. Credentials are masked unless --reveal is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := a.Settings
			if !reveal {
				s = MaskSecrets(s)
			}
			return WriteYAML(cmd.OutOrStdout(), s)
		},
	}

	cmd.Flags().BoolVar(&reveal, "reveal", false, "Print credentials in clear text")

	return cmd
}

// WriteYAML writes settings as YAML.
func WriteYAML(w io.Writer, s *conf.Settings) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}
	return enc.Close()
}

// MaskSecrets returns a copy of s with tokens, keys and credential-bearing URLs masked.
func MaskSecrets(s *conf.Settings) *conf.Settings {
	masked := *s

	po := &masked.Notification.Pushover
	po.Token = privacy.MaskSecret(po.Token)
	po.User = privacy.MaskSecret(po.User)

	urls := slices.Clone(masked.Notification.Shoutrrr.URLs)
	for i, u := range urls {
		urls[i] = privacy.AnonymizeURL(u)
	}
	masked.Notification.Shoutrrr.URLs = urls

	if masked.Telemetry.Sentry.DSN != "" {
		masked.Telemetry.Sentry.DSN = privacy.AnonymizeURL(masked.Telemetry.Sentry.DSN)
	}
	return &masked
}
