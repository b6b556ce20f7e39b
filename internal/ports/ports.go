package ports

import (
	"context"
	"errors"

	"github.com/forPelevin/vdenoise/internal/types"
)

// ErrUnreadableInput marks a MediaTool failure caused by the input file
// rather than by writing the output.
var ErrUnreadableInput = errors.New("input could not be decoded")

type MediaTool interface {
	Probe(ctx context.Context, path string) (types.Clip, error)
	ExtractAudio(ctx context.Context, inVideo, outWav string, sampleRate int) error
	Resample(ctx context.Context, inWav, outWav string, sampleRate int) error
	// ConformLength pads with silence or trims inWav to exactly frames frames.
	ConformLength(ctx context.Context, inWav, outWav string, frames int64) error
	Mux(ctx context.Context, inVideo, inWav, outVideo string, enc types.AudioEncoding) error
}

type Enhancer interface {
	// Load checks that the model can be run; it is cheap to call repeatedly.
	Load(ctx context.Context) error
	SampleRate() int
	Enhance(ctx context.Context, inWav, outWav string) error
}
