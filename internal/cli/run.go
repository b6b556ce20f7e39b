package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/forPelevin/vdenoise/internal/config"
	"github.com/forPelevin/vdenoise/internal/logging"
	"github.com/forPelevin/vdenoise/internal/pipeline"
	"github.com/forPelevin/vdenoise/internal/types"
)

func run(cmd *cobra.Command, input, output string) error {
	cfg, loaded, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level, _ = cmd.Flags().GetString("log-level")
	}
	if cmd.Flags().Changed("log-format") {
		cfg.Logging.Format, _ = cmd.Flags().GetString("log-format")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	reportPath, _ := cmd.Flags().GetString("report")
	keepTemp, _ := cmd.Flags().GetBool("keep-temp")

	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Writer: cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if loaded != "" {
		logger.Debug("config loaded", logging.String("path", loaded))
	}

	// Cancelling the context kills ffmpeg/deep-filter and lets the pipeline
	// remove its temporary files before the process exits.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Work.TimeoutMinutes)*time.Minute)
	defer cancel()

	_, err = pipeline.Run(ctx, pipeline.Config{
		InputPath:  input,
		OutputPath: output,
		Audio: types.AudioEncoding{
			Codec:   cfg.Audio.Codec,
			Bitrate: cfg.Audio.Bitrate,
		},
		TempDir:    cfg.Work.TempDir,
		KeepTemp:   keepTemp,
		ReportPath: reportPath,
		Logger:     logger,

		FFmpegPath:    cfg.Tools.FFmpeg,
		FFprobePath:   cfg.Tools.FFprobe,
		DeepFilterBin: cfg.Tools.DeepFilter,
	})
	if err == nil {
		return nil
	}
	if kind := types.KindOf(err); kind != nil {
		logger.Debug("run failed", logging.String("kind", kind.Error()), logging.Error(err))
	}
	if ctx.Err() != nil {
		return fmt.Errorf("aborted (%v): %w", context.Cause(ctx), err)
	}
	return err
}

func loadConfig(cmd *cobra.Command) (config.Config, string, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, loaded, err := config.Load(path, os.Getenv)
	if err != nil {
		return config.Config{}, "", fmt.Errorf("config: %w", err)
	}
	return cfg, loaded, nil
}
