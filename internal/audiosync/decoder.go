package audiosync

import (
	"bytes"
	"fmt"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Decoder turns raw container bytes into mono float samples in [-1, 1].
type Decoder interface {
	Decode(data []byte) (samples []float64, sampleRate int, err error)
}

// WAVDecoder decodes RIFF/WAV audio. Only the first channel is used; offset
// estimation does not care about the stereo image.
type WAVDecoder struct{}

func (WAVDecoder) Decode(data []byte) ([]float64, int, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode wav: %w", err)
	}
	if buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, 0, fmt.Errorf("wav buffer has no format")
	}

	bitDepth := int(dec.BitDepth)
	if bitDepth == 0 {
		bitDepth = 16
	}

	return monoSamples(buf, bitDepth), int(dec.SampleRate), nil
}

func monoSamples(buf *audio.IntBuffer, bitDepth int) []float64 {
	scale := float64(int64(1) << (bitDepth - 1))

	channels := buf.Format.NumChannels
	samples := make([]float64, 0, len(buf.Data)/channels)
	for i := 0; i < len(buf.Data); i += channels {
		samples = append(samples, float64(buf.Data[i])/scale)
	}

	return samples
}
