package wave

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/go-audio/wav"

	"github.com/forPelevin/vdenoise/internal/types"
)

// Inspect reads the RIFF/WAVE header of path and the size of its data chunk.
// The PCM payload itself is never loaded.
func Inspect(path string) (types.Waveform, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.Waveform{}, err
	}
	defer f.Close()

	// Not IsValidFile: it rejects a valid file with an empty data chunk.
	d := wav.NewDecoder(f)
	d.ReadInfo()
	if err := d.Err(); err != nil {
		return types.Waveform{}, fmt.Errorf("parse wav %s: %w", path, err)
	}
	if d.NumChans < 1 || d.BitDepth < 8 {
		return types.Waveform{}, fmt.Errorf("parse wav %s: not a valid WAVE file", path)
	}
	if err := d.FwdToPCM(); err != nil {
		return types.Waveform{}, fmt.Errorf("locate pcm data %s: %w", path, err)
	}

	w := types.Waveform{
		Path:       path,
		SampleRate: int(d.SampleRate),
		BitDepth:   int(d.BitDepth),
		Channels:   int(d.NumChans),
	}
	frameBytes := int64(w.Channels) * int64(w.BitDepth/8)
	if frameBytes <= 0 {
		return types.Waveform{}, errors.New("wav header reports zero-sized frames")
	}
	w.Frames = d.PCMLen() / frameBytes
	return w, nil
}

// ExpectedFrames is the frame count a resampler should produce when
// converting frames from one rate to another.
func ExpectedFrames(frames int64, fromRate, toRate int) int64 {
	if fromRate <= 0 || toRate <= 0 {
		return 0
	}
	if fromRate == toRate {
		return frames
	}
	return int64(math.Round(float64(frames) * float64(toRate) / float64(fromRate)))
}

// SameLength reports whether a and b differ by at most tolerance frames.
// Both must be at the same rate for the comparison to be meaningful.
func SameLength(a, b types.Waveform, tolerance int64) bool {
	if a.SampleRate != b.SampleRate {
		return false
	}
	diff := a.Frames - b.Frames
	if diff < 0 {
		diff = -diff
	}
	return diff <= tolerance
}
