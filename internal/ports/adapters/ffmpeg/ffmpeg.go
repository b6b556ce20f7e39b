package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/forPelevin/vdenoise/internal/ports"
	"github.com/forPelevin/vdenoise/internal/types"
)

type Adapter struct {
	ffmpeg  string
	ffprobe string
}

func New(ffmpegPath, ffprobePath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

func (a *Adapter) ExtractAudio(ctx context.Context, inVideo, outWav string, sampleRate int) error {
	return a.run(ctx, "ffmpeg extract audio", extractArgs(inVideo, outWav, sampleRate))
}

func (a *Adapter) Resample(ctx context.Context, inWav, outWav string, sampleRate int) error {
	return a.run(ctx, "ffmpeg resample", resampleArgs(inWav, outWav, sampleRate))
}

func (a *Adapter) ConformLength(ctx context.Context, inWav, outWav string, frames int64) error {
	if frames <= 0 {
		return fmt.Errorf("ffmpeg conform: frame count must be > 0, got %d", frames)
	}
	return a.run(ctx, "ffmpeg conform", conformArgs(inWav, outWav, frames))
}

func (a *Adapter) Mux(ctx context.Context, inVideo, inWav, outVideo string, enc types.AudioEncoding) error {
	return a.run(ctx, "ffmpeg mux", muxArgs(inVideo, inWav, outVideo, enc))
}

func (a *Adapter) run(ctx context.Context, op string, args []string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		out := strings.TrimSpace(string(b))
		if inputFailure(out) {
			return fmt.Errorf("%s: %w: %w\n%s", op, ports.ErrUnreadableInput, err, out)
		}
		return fmt.Errorf("%s: %w\n%s", op, err, out)
	}
	return nil
}

// ffmpeg messages that only appear when the input side fails.
var inputFailureMarkers = []string{
	"Invalid data found when processing input",
	"Error opening input",
	"could not find codec parameters",
	"Error while decoding",
	"does not contain any stream",
}

func inputFailure(stderr string) bool {
	for _, m := range inputFailureMarkers {
		if strings.Contains(stderr, m) {
			return true
		}
	}
	return false
}

func extractArgs(inVideo, outWav string, sampleRate int) []string {
	return []string{
		"-y",
		"-v", "error",
		"-i", inVideo,
		"-map", "0:a:0",
		"-vn", "-sn", "-dn",
		"-ar", strconv.Itoa(sampleRate),
		"-c:a", "pcm_s16le",
		"-f", "wav",
		outWav,
	}
}

func resampleArgs(inWav, outWav string, sampleRate int) []string {
	return []string{
		"-y",
		"-v", "error",
		"-i", inWav,
		"-af", "aresample=" + strconv.Itoa(sampleRate),
		"-c:a", "pcm_s16le",
		"-f", "wav",
		outWav,
	}
}

func conformArgs(inWav, outWav string, frames int64) []string {
	n := strconv.FormatInt(frames, 10)
	return []string{
		"-y",
		"-v", "error",
		"-i", inWav,
		"-af", "apad=whole_len=" + n + ",atrim=end_sample=" + n,
		"-c:a", "pcm_s16le",
		"-f", "wav",
		outWav,
	}
}

func muxArgs(inVideo, inWav, outVideo string, enc types.AudioEncoding) []string {
	codec := enc.Codec
	if codec == "" {
		codec = "aac"
	}
	args := []string{
		"-y",
		"-v", "error",
		"-i", inVideo,
		"-i", inWav,
		"-map", "0:v?",
		"-map", "1:a:0",
		"-map_metadata", "0",
		"-c:v", "copy",
		"-c:a", codec,
	}
	if enc.Bitrate != "" {
		args = append(args, "-b:a", enc.Bitrate)
	}
	switch strings.ToLower(filepath.Ext(outVideo)) {
	case ".mp4", ".m4v", ".mov":
		args = append(args, "-movflags", "+faststart")
	}
	return append(args, outVideo)
}
