package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/0xmhha/royalty-monitor/pkg/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and reset the configuration",
	}

	cmd.AddCommand(
		newConfigShowCmd(a),
		newConfigPathCmd(a),
		newConfigResetCmd(a),
	)

	return cmd
}

func newConfigShowCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.init(cmd.ErrOrStderr()); err != nil {
				return err
			}

			cfg := config.Redacted(a.cfg)
			out := cmd.OutOrStdout()

			switch output {
			case "json":
				return showJSON(out, cfg)
			case "yaml":
				return showYAML(out, cfg, a.configSource())
			default:
				return fmt.Errorf("unknown output %q: must be yaml or json", output)
			}
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "yaml", "output format (yaml, json)")

	return cmd
}

// showYAML displays configuration in YAML format.
func showYAML(out io.Writer, cfg *config.Config, source string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	fmt.Fprintln(out, "# Current Configuration")
	fmt.Fprintln(out, "# Source:", source)
	fmt.Fprintln(out)
	_, err = out.Write(data)
	return err
}

// showJSON displays configuration in JSON format.
func showJSON(out io.Writer, cfg *config.Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	_, err = fmt.Fprintln(out, string(data))
	return err
}

func newConfigPathCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show the configuration file search paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			fmt.Fprintln(out, "Configuration file search paths (in order of precedence):")
			fmt.Fprintln(out)

			for i, p := range []string{"./config.yaml", config.DefaultConfigPath()} {
				exists := "not found"
				if _, err := os.Stat(p); err == nil {
					exists = "found"
				}
				fmt.Fprintf(out, "  %d. %s [%s]\n", i+1, p, exists)
			}

			fmt.Fprintln(out)
			_, err := fmt.Fprintln(out, "Active configuration:", a.configSource())
			return err
		},
	}
}

func newConfigResetCmd(a *app) *cobra.Command {
	var (
		output string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Write the default configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = config.DefaultConfigPath()
			}

			if _, err := os.Stat(output); err == nil && !force {
				return fmt.Errorf("config file already exists at %s (use --force to overwrite)", output)
			}

			if err := config.Save(config.Default(), output); err != nil {
				return err
			}

			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Configuration reset to defaults at: %s\n", output)
			return err
		},
	}

	cmd.Flags().StringVar(&output, "output", "", "file to write (default: user config path)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	return cmd
}

// configSource describes where the configuration was read from.
func (a *app) configSource() string {
	path := a.source
	if path == "" {
		path = config.NewLoader(a.configPath).Path()
	}
	if path == "" {
		return "defaults (no config file found)"
	}
	return path
}
