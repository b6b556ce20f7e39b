package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/forPelevin/vdenoise/internal/deps"
)

func newDoctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that ffmpeg, ffprobe and deep-filter are installed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			statuses := deps.CheckBinaries(deps.Requirements(cfg.Tools.FFmpeg, cfg.Tools.FFprobe, cfg.Tools.DeepFilter))
			fmt.Fprintln(cmd.OutOrStdout(), renderStatuses(statuses))

			if missing := deps.Missing(statuses); len(missing) > 0 {
				return fmt.Errorf("%d required tool(s) missing", len(missing))
			}
			return nil
		},
	}
}

func renderStatuses(statuses []deps.Status) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Tool", "Command", "Status", "Used for"})
	for _, s := range statuses {
		state := "ok"
		cmd := s.Path
		if !s.Available {
			state = "missing"
			if s.Detail != "" {
				state = s.Detail
			}
			cmd = s.Command
		}
		tw.AppendRow(table.Row{s.Name, cmd, state, s.Description})
	}
	return tw.Render()
}
