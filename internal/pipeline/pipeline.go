package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/forPelevin/vdenoise/internal/deps"
	"github.com/forPelevin/vdenoise/internal/logging"
	"github.com/forPelevin/vdenoise/internal/ports"
	"github.com/forPelevin/vdenoise/internal/ports/adapters/deepfilter"
	"github.com/forPelevin/vdenoise/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/vdenoise/internal/types"
	"github.com/forPelevin/vdenoise/internal/usecase"
)

type Config struct {
	InputPath  string
	OutputPath string
	Audio      types.AudioEncoding

	// TempDir is the parent of the per-run workspace. If empty, defaults to
	// os.TempDir().
	TempDir  string
	KeepTemp bool
	// ReportPath, when set, receives a JSON summary of the run.
	ReportPath string
	Logger     *slog.Logger

	FFmpegPath    string
	FFprobePath   string
	DeepFilterBin string
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.InputPath) == "" {
		return errors.New("input is empty")
	}
	if strings.TrimSpace(c.OutputPath) == "" {
		return errors.New("output is empty")
	}
	info, err := os.Stat(c.InputPath)
	if err != nil {
		return types.MediaRead("stat input", err)
	}
	if info.IsDir() {
		return types.MediaRead("stat input", fmt.Errorf("%s is a directory", c.InputPath))
	}

	absIn, err := filepath.Abs(c.InputPath)
	if err != nil {
		return err
	}
	absOut, err := filepath.Abs(c.OutputPath)
	if err != nil {
		return err
	}
	if absIn == absOut {
		return errors.New("output must not overwrite the input")
	}
	if filepath.Ext(absOut) == "" {
		return fmt.Errorf("output %s needs a container extension such as .mp4", c.OutputPath)
	}
	if info, err := os.Stat(absOut); err == nil && info.IsDir() {
		return types.MediaWrite("stat output", fmt.Errorf("%s is a directory", c.OutputPath))
	}
	if info, err := os.Stat(filepath.Dir(absOut)); err != nil {
		return types.MediaWrite("stat output directory", err)
	} else if !info.IsDir() {
		return types.MediaWrite("stat output directory", fmt.Errorf("%s is not a directory", filepath.Dir(absOut)))
	}
	return nil
}

func Run(ctx context.Context, cfg Config) (types.Report, error) {
	if err := cfg.Validate(); err != nil {
		return types.Report{}, err
	}
	if err := preflight(cfg); err != nil {
		return types.Report{}, err
	}

	// adapters
	media := ffmpeg.New(cfg.FFmpegPath, cfg.FFprobePath)
	model := deepfilter.New(cfg.DeepFilterBin)

	return run(ctx, cfg, usecase.Deps{Media: media, Enhancer: model})
}

// run expects a validated cfg.
func run(ctx context.Context, cfg Config, d usecase.Deps) (types.Report, error) {
	started := time.Now()
	runID := uuid.NewString()
	log := logging.NewComponentLogger(cfg.Logger, "pipeline").With(logging.String(logging.FieldRunID, runID))

	absIn, _ := filepath.Abs(cfg.InputPath)
	absOut, _ := filepath.Abs(cfg.OutputPath)

	lock, err := acquireOutputLock(cfg.TempDir, absOut)
	if err != nil {
		return types.Report{}, err
	}
	defer lock.release()

	ws, err := newWorkspace(cfg.TempDir, workspaceName(absIn, runID))
	if err != nil {
		return types.Report{}, types.MediaWrite("create workspace", err)
	}
	defer func() {
		if cfg.KeepTemp {
			log.Info("keeping temporary files", logging.String("workspace", ws.dir))
			return
		}
		if err := ws.Close(); err != nil {
			log.Warn("temporary file cleanup failed", logging.Error(err))
			return
		}
		log.Debug("temporary files removed", logging.String("workspace", ws.dir))
	}()
	log.Debug("workspace ready", logging.String("workspace", ws.dir))

	staging := stagingPath(absOut, runID)
	ws.track(staging)

	res, err := usecase.New(d).Run(ctx, usecase.Input{
		InputPath:  absIn,
		OutputPath: staging,
		WorkDir:    ws.dir,
		Audio:      cfg.Audio,
		Logger:     log,
	})
	if err != nil {
		return types.Report{}, err
	}

	log.Info("writing final video file", logging.String(logging.FieldStage, "mux"), logging.String("output", absOut))
	if err := os.Rename(staging, absOut); err != nil {
		return types.Report{}, types.MediaWrite("move output into place", err)
	}

	rep := res.Report
	rep.RunID = runID
	rep.Input = absIn
	rep.Output = absOut
	rep.ElapsedSec = time.Since(started).Seconds()

	if cfg.ReportPath != "" {
		if err := writeReport(cfg.ReportPath, rep); err != nil {
			return rep, err
		}
		log.Info("report written", logging.String("path", cfg.ReportPath))
	}
	log.Info("process complete",
		logging.Float64("input_duration_sec", rep.InputDurationSec),
		logging.Float64("output_duration_sec", rep.OutputDurationSec),
		logging.Duration("elapsed", time.Since(started)),
	)
	return rep, nil
}

// preflight turns missing binaries into the error kind of the stage that
// would have failed on them.
func preflight(cfg Config) error {
	var errs []error
	for _, s := range deps.Missing(deps.CheckBinaries(deps.Requirements(orDefault(cfg.FFmpegPath, "ffmpeg"), orDefault(cfg.FFprobePath, "ffprobe"), orDefault(cfg.DeepFilterBin, "deep-filter")))) {
		detail := fmt.Errorf("%s: %s", s.Name, s.Detail)
		if s.Name == "DeepFilterNet" {
			errs = append(errs, types.ModelLoad("preflight", detail))
			continue
		}
		errs = append(errs, types.MediaRead("preflight", detail))
	}
	return errors.Join(errs...)
}

func writeReport(path string, rep types.Report) error {
	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// stagingPath is a hidden sibling of out that keeps its extension so ffmpeg
// picks the same muxer.
func stagingPath(out, runID string) string {
	ext := filepath.Ext(out)
	stem := strings.TrimSuffix(filepath.Base(out), ext)
	return filepath.Join(filepath.Dir(out), fmt.Sprintf(".%s.vdenoise-%s%s", stem, shortID(runID), ext))
}

func workspaceName(input, runID string) string {
	name := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	name = normalizePathSegment(name)
	if name == "" {
		name = "input"
	}
	return fmt.Sprintf("vdenoise-%s-%s", name, shortID(runID))
}

func shortID(runID string) string {
	id := strings.ReplaceAll(runID, "-", "")
	if len(id) > 12 {
		id = id[:12]
	}
	return id
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// ensure adapters implement ports
var _ ports.MediaTool = (*ffmpeg.Adapter)(nil)
var _ ports.Enhancer = (*deepfilter.Adapter)(nil)
