package cli

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/forPelevin/vdenoise/internal/config"
)

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect vdenoise configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "sample",
		Short: "Print an annotated sample config.toml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprint(cmd.OutOrStdout(), config.SampleConfig())
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration after file and environment overrides",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, loaded, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			b, err := toml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			out := cmd.OutOrStdout()
			if loaded != "" {
				fmt.Fprintf(out, "# loaded from %s\n", loaded)
			} else {
				fmt.Fprintln(out, "# no config file found, using defaults")
			}
			_, err = out.Write(b)
			return err
		},
	})
	return cmd
}
