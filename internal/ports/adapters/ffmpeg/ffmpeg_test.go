package ffmpeg

import (
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/forPelevin/vdenoise/internal/types"
)

const sampleProbe = `{
  "streams": [
    {"index": 0, "codec_name": "h264", "codec_type": "video", "duration": "5.000000"},
    {"index": 1, "codec_name": "aac", "codec_type": "audio", "sample_rate": "44100", "channels": 2, "duration": "5.015011"},
    {"index": 2, "codec_name": "mjpeg", "codec_type": "video", "disposition": {"attached_pic": 1}}
  ],
  "format": {"duration": "5.015011", "format_name": "mov,mp4,m4a,3gp,3g2,mj2"}
}`

func TestParseProbe(t *testing.T) {
	clip, err := parseProbe("in.mp4", []byte(sampleProbe))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if clip.VideoStreams != 1 {
		t.Fatalf("expected cover art to be ignored, got %d video streams", clip.VideoStreams)
	}
	if !clip.HasAudio() || clip.AudioCodec != "aac" || clip.AudioSampleRate != 44100 || clip.AudioChannels != 2 {
		t.Fatalf("unexpected audio fields: %+v", clip)
	}
	if clip.Duration < 5*time.Second || clip.Duration > 5*time.Second+20*time.Millisecond {
		t.Fatalf("unexpected duration: %v", clip.Duration)
	}
}

func TestParseProbe_NoAudio(t *testing.T) {
	clip, err := parseProbe("silent.mp4", []byte(`{"streams":[{"codec_type":"video"}],"format":{"duration":"bad"}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if clip.HasAudio() {
		t.Fatalf("expected no audio streams")
	}
	if clip.Duration != 0 {
		t.Fatalf("expected zero duration for unparsable value, got %v", clip.Duration)
	}
}

func TestParseProbe_InvalidJSON(t *testing.T) {
	if _, err := parseProbe("x", []byte("not json")); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestExtractArgs(t *testing.T) {
	args := extractArgs("in.mp4", "out.wav", 48000)
	for _, want := range [][]string{{"-ar", "48000"}, {"-c:a", "pcm_s16le"}, {"-map", "0:a:0"}} {
		if !containsPair(args, want[0], want[1]) {
			t.Fatalf("missing %v in %v", want, args)
		}
	}
	if args[len(args)-1] != "out.wav" {
		t.Fatalf("output must be last: %v", args)
	}
}

func TestConformArgs(t *testing.T) {
	args := conformArgs("in.wav", "out.wav", 240000)
	if !containsPair(args, "-af", "apad=whole_len=240000,atrim=end_sample=240000") {
		t.Fatalf("unexpected filter: %v", args)
	}
}

func TestMuxArgs(t *testing.T) {
	tests := []struct {
		name      string
		out       string
		enc       types.AudioEncoding
		wantCodec string
		faststart bool
		bitrate   bool
	}{
		{"mp4 default codec", "out.mp4", types.AudioEncoding{Bitrate: "192k"}, "aac", true, true},
		{"mkv custom codec", "out.mkv", types.AudioEncoding{Codec: "libopus"}, "libopus", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := muxArgs("in.mp4", "clean.wav", tt.out, tt.enc)
			if !containsPair(args, "-c:v", "copy") {
				t.Fatalf("video must be passed through: %v", args)
			}
			if !containsPair(args, "-c:a", tt.wantCodec) {
				t.Fatalf("expected codec %s: %v", tt.wantCodec, args)
			}
			if got := slices.Contains(args, "+faststart"); got != tt.faststart {
				t.Fatalf("faststart = %v, want %v", got, tt.faststart)
			}
			if got := slices.Contains(args, "-b:a"); got != tt.bitrate {
				t.Fatalf("bitrate flag = %v, want %v", got, tt.bitrate)
			}
			if args[len(args)-1] != tt.out {
				t.Fatalf("output must be last: %s", strings.Join(args, " "))
			}
		})
	}
}

func containsPair(args []string, k, v string) bool {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == k && args[i+1] == v {
			return true
		}
	}
	return false
}
