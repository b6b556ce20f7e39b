//go:build integration

package itest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/forPelevin/vdenoise/internal/domain/wave"
	"github.com/forPelevin/vdenoise/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/vdenoise/internal/testsupport"
	"github.com/forPelevin/vdenoise/internal/types"
	"github.com/forPelevin/vdenoise/internal/usecase"
)

func TestFFmpeg_ExtractThenResample(t *testing.T) {
	tmp := t.TempDir()
	in := filepath.Join(tmp, "input.mp4")
	if err := makeFixture(in, 2, 44100); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	a := ffmpeg.New("ffmpeg", "ffprobe")

	clip, err := a.Probe(ctx, in)
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if !clip.HasAudio() || clip.AudioSampleRate != 44100 {
		t.Fatalf("unexpected clip: %+v", clip)
	}

	extracted := filepath.Join(tmp, "audio.wav")
	if err := a.ExtractAudio(ctx, in, extracted, 44100); err != nil {
		t.Fatalf("extract: %v", err)
	}
	src, err := wave.Inspect(extracted)
	if err != nil {
		t.Fatalf("inspect extracted: %v", err)
	}

	want := wave.ExpectedFrames(src.Frames, src.SampleRate, types.TargetSampleRate)

	dst, changed, err := usecase.New(usecase.Deps{Media: a}).Resample(ctx, extracted)
	if err != nil {
		t.Fatalf("resample: %v", err)
	}
	if !changed || dst.SampleRate != types.TargetSampleRate {
		t.Fatalf("unexpected resample result: changed=%v %+v", changed, dst)
	}
	if d := dst.Frames - want; d < -1 || d > 1 {
		t.Fatalf("frames = %d, want %d within one frame", dst.Frames, want)
	}
}

func TestFFmpeg_ConformLength(t *testing.T) {
	tmp := t.TempDir()
	ctx := context.Background()
	a := ffmpeg.New("ffmpeg", "ffprobe")

	short := filepath.Join(tmp, "short.wav")
	testsupport.WriteTone(t, short, types.TargetSampleRate, 1, 1000)

	for _, frames := range []int64{1200, 800} {
		out := filepath.Join(tmp, "conformed.wav")
		if err := a.ConformLength(ctx, short, out, frames); err != nil {
			t.Fatalf("conform to %d: %v", frames, err)
		}
		w, err := wave.Inspect(out)
		if err != nil {
			t.Fatal(err)
		}
		if w.Frames != frames {
			t.Fatalf("frames = %d, want %d", w.Frames, frames)
		}
	}
}
