package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Mohsinsiddi/ronexport/internal/config"
	"github.com/Mohsinsiddi/ronexport/internal/secret"
	"github.com/Mohsinsiddi/ronexport/internal/ui"
	"github.com/spf13/cobra"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			apiKey := ui.Meta("not set")
			if envKey, ok := opts.env.Lookup(config.EnvAPIKey); ok && envKey != "" {
				apiKey = "set (" + config.EnvAPIKey + ")"
			} else if _, err := openKeystore(cfg.Dir()).APIKey(); err == nil {
				apiKey = "set (keychain)"
			}
			otelEndpoint := cfg.OtelEndpoint
			if otelEndpoint == "" {
				otelEndpoint = ui.Meta("disabled")
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.KeyValueBlock("Current Configuration", [][2]string{
				{"host", cfg.Host},
				{"output_dir", cfg.OutputDir},
				{"retries", strconv.Itoa(cfg.Retries)},
				{"timeout", fmt.Sprintf("%ds", cfg.Timeout)},
				{"skip_self", strconv.FormatBool(cfg.SkipSelf)},
				{"otel_endpoint", otelEndpoint},
				{"api_key", apiKey},
			}))
			fmt.Fprintln(out, ui.Meta("Config directory: "+cfg.Dir()))
			return nil
		},
	}

	setCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: "Set a configuration value and save it to config.json.\n\nKeys: " +
			strings.Join(config.Keys, ", "),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Flags and env overrides are applied to opts.cfg; persist only the file.
			cfg, err := config.Load(opts.cfg.Dir())
			if err != nil {
				return err
			}
			if err := cfg.Set(args[0], args[1]); err != nil {
				return err
			}
			if err := cfg.Save(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("%s set to %q", args[0], args[1])))
			return nil
		},
	}

	setAPIKeyCmd := &cobra.Command{
		Use:   "set-api-key [key]",
		Short: "Store the ronin.rest API key in the OS keychain",
		Long: `Store the ronin.rest API key in the OS keychain. Without an argument the
key is read from standard input. The ` + config.EnvAPIKey + ` variable overrides
the stored key.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var key string
			if len(args) == 1 {
				key = args[0]
			} else {
				fmt.Fprint(cmd.OutOrStdout(), ui.StyleValue.Render("API key: "))
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("reading api key: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout())
				key = line
			}
			key = strings.TrimSpace(key)
			if key == "" {
				return errors.New("api key is empty")
			}
			if err := openKeystore(opts.cfg.Dir()).SetAPIKey(key); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Success("API key stored in keychain"))
			return nil
		},
	}

	deleteAPIKeyCmd := &cobra.Command{
		Use:   "delete-api-key",
		Short: "Remove the stored ronin.rest API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ks := openKeystore(opts.cfg.Dir())
			if _, err := ks.APIKey(); errors.Is(err, secret.ErrNotFound) {
				fmt.Fprintln(cmd.OutOrStdout(), ui.Warn("no API key stored"))
				return nil
			}
			if err := ks.DeleteAPIKey(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Success("API key removed"))
			return nil
		},
	}

	configCmd.AddCommand(showCmd, setCmd, setAPIKeyCmd, deleteAPIKeyCmd)
	return configCmd
}
