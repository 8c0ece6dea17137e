// Package audio decodes WAV files into the mono float64 PCM stream
// the fingerprinting core consumes, grounded on the teacher's own
// go-audio-based spectrogram dump tool.
package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrInvalidWAV is returned when the input is not a valid WAV stream.
var ErrInvalidWAV = errors.New("audio: not a valid WAV file")

// DecodeMono reads a WAV stream and returns its samples as mono
// float64 PCM in [-1.0, 1.0], along with the file's native sample
// rate. Multi-channel files are downmixed by averaging channels.
func DecodeMono(r io.ReadSeeker) (pcm []float64, sampleRate int, err error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, 0, ErrInvalidWAV
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("audio: reading PCM buffer: %w", err)
	}

	pcm = downmix(buf)
	return pcm, int(decoder.SampleRate), nil
}

// DecodeFile opens path and decodes it via DecodeMono.
func DecodeFile(path string) (pcm []float64, sampleRate int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("audio: opening %s: %w", path, err)
	}
	defer f.Close()
	return DecodeMono(f)
}

// downmix converts an integer PCM buffer to normalized mono float64
// samples, averaging across channels when the source is not already
// mono.
func downmix(buf *audio.IntBuffer) []float64 {
	channels := buf.Format.NumChannels
	if channels <= 0 {
		channels = 1
	}
	maxVal := float64(int(1) << uint(buf.SourceBitDepth-1))
	if maxVal == 0 {
		maxVal = 1
	}

	frames := len(buf.Data) / channels
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(buf.Data[i*channels+c]) / maxVal
		}
		out[i] = sum / float64(channels)
	}
	return out
}
