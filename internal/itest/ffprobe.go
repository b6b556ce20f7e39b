//go:build integration

package itest

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// fixtureFPS is the frame rate of videos built by makeFixture.
const fixtureFPS = 25

// probeVideoDurationSeconds reads the duration of the first video stream.
func probeVideoDurationSeconds(path string) (float64, error) {
	return probeSeconds(path, "-select_streams", "v:0", "-show_entries", "stream=duration")
}

func probeSeconds(path string, selectArgs ...string) (float64, error) {
	args := append([]string{"-v", "error"}, selectArgs...)
	args = append(args, "-of", "default=noprint_wrappers=1:nokey=1", path)
	b, err := exec.Command("ffprobe", args...).CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w\n%s", err, string(b))
	}
	s := strings.TrimSpace(string(b))
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return sec, nil
}

// probeAudio returns the codec and sample rate of the first audio stream.
func probeAudio(path string) (codec string, sampleRate int, err error) {
	cmd := exec.Command("ffprobe",
		"-v", "error",
		"-select_streams", "a:0",
		"-show_entries", "stream=codec_name,sample_rate",
		"-of", "default=noprint_wrappers=1",
		path,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return "", 0, fmt.Errorf("ffprobe: %w\n%s", err, string(b))
	}
	for _, line := range strings.Split(strings.TrimSpace(string(b)), "\n") {
		k, v, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok {
			continue
		}
		switch k {
		case "codec_name":
			codec = v
		case "sample_rate":
			sampleRate, _ = strconv.Atoi(v)
		}
	}
	if codec == "" {
		return "", 0, fmt.Errorf("no audio stream in %s", path)
	}
	return codec, sampleRate, nil
}

// makeFixture renders a test-pattern video with a noisy tone at sampleRate.
func makeFixture(path string, seconds, sampleRate int) error {
	d := strconv.Itoa(seconds)
	cmd := exec.Command("ffmpeg",
		"-y", "-v", "error",
		"-f", "lavfi", "-i", "testsrc=size=320x240:rate="+strconv.Itoa(fixtureFPS)+":duration="+d,
		"-f", "lavfi", "-i", "sine=frequency=440:sample_rate="+strconv.Itoa(sampleRate)+":duration="+d,
		"-f", "lavfi", "-i", "anoisesrc=color=pink:amplitude=0.2:sample_rate="+strconv.Itoa(sampleRate)+":duration="+d,
		"-filter_complex", "[1:a][2:a]amix=inputs=2:duration=shortest[a]",
		"-map", "0:v", "-map", "[a]",
		"-c:v", "libx264", "-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-shortest",
		path,
	)
	if b, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg fixture: %w\n%s", err, string(b))
	}
	return nil
}
