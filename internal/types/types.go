package types

import "time"

// TargetSampleRate is the rate every intermediate waveform is normalized to.
const TargetSampleRate = 48000

type Waveform struct {
	Path       string `json:"path"`
	SampleRate int    `json:"sample_rate"`
	BitDepth   int    `json:"bit_depth"`
	Channels   int    `json:"channels"`
	Frames     int64  `json:"frames"`
}

// Duration is derived from the frame count, so it is exact for PCM files.
func (w Waveform) Duration() time.Duration {
	if w.SampleRate <= 0 {
		return 0
	}
	return time.Duration(w.Frames) * time.Second / time.Duration(w.SampleRate)
}

// Clip is the probed view of an input container.
type Clip struct {
	Path            string
	Duration        time.Duration
	VideoStreams    int
	AudioStreams    int
	AudioCodec      string
	AudioSampleRate int
	AudioChannels   int
}

func (c Clip) HasAudio() bool { return c.AudioStreams > 0 }

type AudioEncoding struct {
	Codec   string
	Bitrate string
}

type Report struct {
	RunID             string   `json:"run_id"`
	Input             string   `json:"input"`
	Output            string   `json:"output"`
	Extracted         Waveform `json:"extracted"`
	Resampled         bool     `json:"resampled"`
	Enhanced          Waveform `json:"enhanced"`
	Conformed         bool     `json:"conformed"`
	InputDurationSec  float64  `json:"input_duration_sec"`
	OutputDurationSec float64  `json:"output_duration_sec"`
	ElapsedSec        float64  `json:"elapsed_sec"`
}
