package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/forPelevin/vdenoise/internal/domain/wave"
	"github.com/forPelevin/vdenoise/internal/logging"
	"github.com/forPelevin/vdenoise/internal/ports"
	"github.com/forPelevin/vdenoise/internal/types"
)

// frameTolerance is how far (in frames) a stage output may drift from the
// length it should have.
const frameTolerance = 1

type Deps struct {
	Media    ports.MediaTool
	Enhancer ports.Enhancer
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase { return Usecase{d: d} }

type Input struct {
	InputPath string
	// OutputPath receives the muxed container. The caller owns moving it
	// into its final place.
	OutputPath string
	// WorkDir holds the intermediate waveforms; the caller deletes it.
	WorkDir string
	Audio   types.AudioEncoding
	Logger  *slog.Logger
}

type Result struct {
	Report types.Report
}

func (u Usecase) Run(ctx context.Context, in Input) (Result, error) {
	log := in.Logger
	if log == nil {
		log = logging.NewNop()
	}
	rep := types.Report{Input: in.InputPath, Output: in.OutputPath}

	log.Info("loading video", logging.String(logging.FieldStage, "open"), logging.String("path", in.InputPath))
	clip, err := u.Open(ctx, in.InputPath)
	if err != nil {
		return Result{}, err
	}
	rep.InputDurationSec = clip.Duration.Seconds()

	// Fail on a missing model before spending time on extraction.
	if err := u.d.Enhancer.Load(ctx); err != nil {
		return Result{}, types.ModelLoad("load enhancement model", err)
	}

	log.Info("extracting audio from video",
		logging.String(logging.FieldStage, "extract"),
		logging.Int("source_rate", clip.AudioSampleRate),
		logging.Int("channels", clip.AudioChannels),
	)
	extracted, err := u.Extract(ctx, clip, filepath.Join(in.WorkDir, "audio.wav"))
	if err != nil {
		return Result{}, err
	}
	rep.Extracted = extracted

	log.Info("resampling audio to 48kHz if needed", logging.String(logging.FieldStage, "resample"))
	resampledFrom := extracted.SampleRate
	audio, changed, err := u.Resample(ctx, extracted.Path)
	if err != nil {
		return Result{}, err
	}
	rep.Resampled = changed
	if changed {
		log.Info("audio resampled", logging.String(logging.FieldStage, "resample"), logging.Int("from", resampledFrom), logging.Int("to", audio.SampleRate))
	} else {
		log.Info("audio is already at 48kHz", logging.String(logging.FieldStage, "resample"))
	}

	log.Info("enhancing audio", logging.String(logging.FieldStage, "enhance"), logging.Duration("audio_duration", audio.Duration()))
	enhanced, conformed, err := u.Enhance(ctx, audio, filepath.Join(in.WorkDir, "enhanced.wav"))
	if err != nil {
		return Result{}, err
	}
	rep.Enhanced = enhanced
	rep.Conformed = conformed
	log.Debug("enhanced audio ready",
		logging.String(logging.FieldStage, "enhance"),
		logging.Int64("frames", enhanced.Frames),
		logging.Bool("conformed", conformed),
	)

	log.Info("attaching enhanced audio to video", logging.String(logging.FieldStage, "mux"), logging.String("output", in.OutputPath))
	out, err := u.Mux(ctx, clip, enhanced.Path, in.OutputPath, in.Audio)
	if err != nil {
		return Result{}, err
	}
	rep.OutputDurationSec = out.Duration.Seconds()

	return Result{Report: rep}, nil
}

// Open probes path and returns its clip handle. The clip must carry audio.
func (u Usecase) Open(ctx context.Context, path string) (types.Clip, error) {
	info, err := os.Stat(path)
	if err != nil {
		return types.Clip{}, types.MediaRead("open input", err)
	}
	if info.IsDir() {
		return types.Clip{}, types.MediaRead("open input", fmt.Errorf("%s is a directory", path))
	}
	clip, err := u.d.Media.Probe(ctx, path)
	if err != nil {
		return types.Clip{}, types.MediaRead("probe input", err)
	}
	if !clip.HasAudio() {
		return types.Clip{}, types.MediaRead("probe input", fmt.Errorf("%s has no audio track", path))
	}
	return clip, nil
}

// Extract writes the clip's first audio stream to wavPath as 16-bit PCM at
// the target rate.
func (u Usecase) Extract(ctx context.Context, clip types.Clip, wavPath string) (types.Waveform, error) {
	if err := u.d.Media.ExtractAudio(ctx, clip.Path, wavPath, types.TargetSampleRate); err != nil {
		return types.Waveform{}, types.MediaRead("extract audio", err)
	}
	w, err := wave.Inspect(wavPath)
	if err != nil {
		return types.Waveform{}, types.MediaRead("inspect extracted audio", err)
	}
	return w, nil
}

// Resample makes sure the waveform at path is at the target rate, rewriting
// it in place when it is not. It reports whether the file changed.
func (u Usecase) Resample(ctx context.Context, path string) (types.Waveform, bool, error) {
	w, err := wave.Inspect(path)
	if err != nil {
		return types.Waveform{}, false, types.MediaRead("inspect audio", err)
	}
	if w.SampleRate == types.TargetSampleRate {
		return w, false, nil
	}

	want := wave.ExpectedFrames(w.Frames, w.SampleRate, types.TargetSampleRate)
	tmp := siblingPath(path, "resampled")
	if err := u.d.Media.Resample(ctx, path, tmp, types.TargetSampleRate); err != nil {
		_ = os.Remove(tmp)
		if errors.Is(err, ports.ErrUnreadableInput) {
			return types.Waveform{}, false, types.MediaRead("resample audio", err)
		}
		return types.Waveform{}, false, types.MediaWrite("resample audio", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return types.Waveform{}, false, types.MediaWrite("replace resampled audio", err)
	}

	out, err := wave.Inspect(path)
	if err != nil {
		return types.Waveform{}, false, types.MediaRead("inspect resampled audio", err)
	}
	if out.SampleRate != types.TargetSampleRate {
		return types.Waveform{}, false, types.MediaWrite("resample audio", fmt.Errorf("resampler produced %d Hz, want %d Hz", out.SampleRate, types.TargetSampleRate))
	}
	if withinFrames(out.Frames, want) {
		return out, true, nil
	}

	// The resampler's filter delay can shift the tail by a few frames.
	out, err = u.conform(ctx, path, want)
	if err != nil {
		return types.Waveform{}, false, err
	}
	if !withinFrames(out.Frames, want) {
		return types.Waveform{}, false, types.MediaWrite("resample audio", fmt.Errorf("resampled audio has %d frames, want %d", out.Frames, want))
	}
	return out, true, nil
}

// Enhance runs the model over in and writes the result to outPath. The
// output keeps the input's channel count and, within one frame, its length.
func (u Usecase) Enhance(ctx context.Context, in types.Waveform, outPath string) (types.Waveform, bool, error) {
	if rate := u.d.Enhancer.SampleRate(); in.SampleRate != rate {
		return types.Waveform{}, false, types.Inference("enhance audio", fmt.Errorf("input is %d Hz, model requires %d Hz", in.SampleRate, rate))
	}
	if in.Frames == 0 {
		return types.Waveform{}, false, types.Inference("enhance audio", errors.New("input waveform is empty"))
	}
	if err := u.d.Enhancer.Enhance(ctx, in.Path, outPath); err != nil {
		return types.Waveform{}, false, types.Inference("enhance audio", err)
	}

	out, err := wave.Inspect(outPath)
	if err != nil {
		return types.Waveform{}, false, types.Inference("inspect enhanced audio", err)
	}
	if out.Channels != in.Channels {
		return types.Waveform{}, false, types.Inference("enhance audio", fmt.Errorf("model returned %d channels for %d-channel input", out.Channels, in.Channels))
	}
	if out.SampleRate != in.SampleRate {
		return types.Waveform{}, false, types.Inference("enhance audio", fmt.Errorf("model returned %d Hz for %d Hz input", out.SampleRate, in.SampleRate))
	}
	if wave.SameLength(in, out, frameTolerance) {
		return out, false, nil
	}

	out, err = u.conform(ctx, outPath, in.Frames)
	if err != nil {
		return types.Waveform{}, false, err
	}
	if !wave.SameLength(in, out, frameTolerance) {
		return types.Waveform{}, false, types.Inference("enhance audio", fmt.Errorf("enhanced audio has %d frames, want %d", out.Frames, in.Frames))
	}
	return out, true, nil
}

// Mux writes clip's video with wavPath as its only audio track to outPath
// and probes the result.
func (u Usecase) Mux(ctx context.Context, clip types.Clip, wavPath, outPath string, enc types.AudioEncoding) (types.Clip, error) {
	if err := u.d.Media.Mux(ctx, clip.Path, wavPath, outPath, enc); err != nil {
		return types.Clip{}, types.MediaWrite("write output video", err)
	}
	out, err := u.d.Media.Probe(ctx, outPath)
	if err != nil {
		return types.Clip{}, types.MediaWrite("verify output video", err)
	}
	if !out.HasAudio() {
		return types.Clip{}, types.MediaWrite("verify output video", fmt.Errorf("%s has no audio track", outPath))
	}
	return out, nil
}

// conform pads or trims the waveform at path to frames, in place.
func (u Usecase) conform(ctx context.Context, path string, frames int64) (types.Waveform, error) {
	tmp := siblingPath(path, "conformed")
	if err := u.d.Media.ConformLength(ctx, path, tmp, frames); err != nil {
		_ = os.Remove(tmp)
		return types.Waveform{}, types.MediaWrite("conform audio length", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return types.Waveform{}, types.MediaWrite("conform audio length", err)
	}
	out, err := wave.Inspect(path)
	if err != nil {
		return types.Waveform{}, types.MediaRead("inspect conformed audio", err)
	}
	return out, nil
}

func withinFrames(got, want int64) bool {
	d := got - want
	return d >= -frameTolerance && d <= frameTolerance
}

func siblingPath(path, tag string) string {
	ext := filepath.Ext(path)
	stem := path[:len(path)-len(ext)]
	return fmt.Sprintf("%s.%s.%d%s", stem, tag, time.Now().UnixNano(), ext)
}
