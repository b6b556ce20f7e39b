package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/forPelevin/vdenoise/internal/types"
)

type probeResult struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

type probeStream struct {
	Index      int    `json:"index"`
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
	Duration   string `json:"duration"`
	// attached_pic streams (cover art) report as video but carry no frames.
	Disposition struct {
		AttachedPic int `json:"attached_pic"`
	} `json:"disposition"`
}

type probeFormat struct {
	Duration   string `json:"duration"`
	FormatName string `json:"format_name"`
}

func (a *Adapter) Probe(ctx context.Context, path string) (types.Clip, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-hide_banner",
		"-show_format",
		"-show_streams",
		"-of", "json",
		"--", path,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return types.Clip{}, fmt.Errorf("ffprobe: %w\n%s", err, strings.TrimSpace(string(b)))
	}
	return parseProbe(path, b)
}

func parseProbe(path string, b []byte) (types.Clip, error) {
	var res probeResult
	if err := json.Unmarshal(b, &res); err != nil {
		return types.Clip{}, fmt.Errorf("ffprobe parse: %w", err)
	}

	clip := types.Clip{Path: path, Duration: seconds(res.Format.Duration)}
	for _, s := range res.Streams {
		switch strings.ToLower(s.CodecType) {
		case "video":
			if s.Disposition.AttachedPic == 0 {
				clip.VideoStreams++
			}
		case "audio":
			clip.AudioStreams++
			if clip.AudioStreams == 1 {
				clip.AudioCodec = s.CodecName
				clip.AudioSampleRate, _ = strconv.Atoi(strings.TrimSpace(s.SampleRate))
				clip.AudioChannels = s.Channels
				if clip.Duration == 0 {
					clip.Duration = seconds(s.Duration)
				}
			}
		}
	}
	return clip, nil
}

func seconds(v string) time.Duration {
	sec, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || math.IsNaN(sec) || sec < 0 {
		return 0
	}
	return time.Duration(sec * float64(time.Second))
}
