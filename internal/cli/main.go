package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "vdenoise <input_video> <output_video>",
		Short:        "Denoise the dialogue track of a video with DeepFilterNet",
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0], args[1])
		},
	}

	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	root.PersistentFlags().String("config", "", "Path to config.toml (default: ~/.config/vdenoise/config.toml)")
	root.Flags().String("log-level", "", "Log level: debug, info, warn, error")
	root.Flags().String("log-format", "", "Log format: auto, console, json")
	root.Flags().String("report", "", "Write a JSON run summary to this path")

	// Hidden debugging flag
	root.Flags().Bool("keep-temp", false, "Keep intermediate audio files")
	_ = root.Flags().MarkHidden("keep-temp")

	root.AddCommand(newDoctorCommand(), newConfigCommand())
	return root
}
