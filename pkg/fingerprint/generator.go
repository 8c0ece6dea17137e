// Package fingerprint orchestrates the spectrogram, Haar transform, and
// top-wavelet encoder into the fingerprint list for one audio clip.
package fingerprint

import (
	"errors"
	"math"

	"github.com/wavesketch/wavesketch/pkg/spectrogram"
	"github.com/wavesketch/wavesketch/pkg/wavelet"
)

// Config bundles every parameter needed to turn PCM into fingerprints.
// FingerprintLength and FrequencyBins must be equal (a square tile) and
// a power of two.
type Config struct {
	SampleRate     int
	WindowSize     int
	Overlap        int
	FingerprintLength int // T, tile time-dimension and stride
	FrequencyBins  int    // W, must equal FingerprintLength
	StartFrequency float64
	EndFrequency   float64
	TopWavelets    int
	LogBase        float64
}

// DefaultConfig mirrors spectrogram.DefaultConfig with a 64-frame tile
// and 32 retained top wavelets, matching the reference parameters used
// throughout this package's tests.
func DefaultConfig() Config {
	return Config{
		SampleRate:        5512,
		WindowSize:        1024,
		Overlap:           256,
		FingerprintLength: 64,
		FrequencyBins:     64,
		StartFrequency:    20,
		EndFrequency:      2600,
		TopWavelets:       32,
		LogBase:           2,
	}
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

func (c Config) validate() error {
	if !isPowerOfTwo(c.FingerprintLength) {
		return ErrInvalidConfig
	}
	if c.FrequencyBins != c.FingerprintLength {
		return ErrInvalidConfig
	}
	if c.TopWavelets <= 0 || c.TopWavelets > 2*c.FingerprintLength*c.FingerprintLength {
		return ErrInvalidConfig
	}
	return nil
}

func (c Config) spectrogramConfig() spectrogram.Config {
	return spectrogram.Config{
		SampleRate:     c.SampleRate,
		WindowSize:     c.WindowSize,
		Overlap:        c.Overlap,
		FrequencyBins:  c.FrequencyBins,
		StartFrequency: c.StartFrequency,
		EndFrequency:   c.EndFrequency,
		LogBase:        c.LogBase,
	}
}

// ErrInvalidConfig is returned when the fingerprint configuration
// violates one of its structural invariants (non-power-of-two tile,
// mismatched square dimensions, out-of-range topWavelets).
var ErrInvalidConfig = errors.New("fingerprint: invalid configuration")

// Create builds the fingerprint list for one clip's PCM samples. Short
// clips (fewer than FingerprintLength STFT frames) return a nil bits
// slice and no error: callers must treat this as "not indexable", not
// as a failure. The spectrogram is also returned for callers (such as
// debug tooling) that want to inspect it directly.
func Create(pcm []float64, cfg Config) (spec [][]float64, bits [][]byte, err error) {
	if err := cfg.validate(); err != nil {
		return nil, nil, err
	}

	spec, err = spectrogram.Build(pcm, cfg.spectrogramConfig())
	if err != nil {
		if errors.Is(err, spectrogram.ErrTooShort) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	tile := cfg.FingerprintLength
	frames := len(spec)
	numTiles := frames / tile
	if numTiles == 0 {
		return spec, nil, nil
	}

	bits = make([][]byte, 0, numTiles)
	for i := 0; i < numTiles; i++ {
		window := spec[i*tile : (i+1)*tile]
		grid := normalize(window)
		wavelet.Transform2D(grid)
		bits = append(bits, wavelet.EncodeTopWavelets(grid, cfg.TopWavelets))
	}
	return spec, bits, nil
}

// normalize copies a T-frame window of the spectrogram into an
// independent T×T grid shifted to zero mean, so the DC (0,0) Haar
// coefficient after transform is zero and only level differences
// within the tile reach the encoder, independent of the tile's overall
// log-magnitude level.
func normalize(window [][]float64) [][]float64 {
	t := len(window)
	grid := make([][]float64, t)
	var mean float64
	for _, row := range window {
		for _, v := range row {
			mean += v
		}
	}
	mean /= float64(t * t)

	for r, row := range window {
		grid[r] = make([]float64, t)
		for c, v := range row {
			grid[r][c] = v - mean
		}
	}
	return grid
}

// FingerprintCount is a convenience for callers that only need to know
// how many tiles a clip of the given frame count would yield, without
// running the STFT.
func FingerprintCount(frames, tile int) int {
	if tile <= 0 {
		return 0
	}
	return int(math.Floor(float64(frames) / float64(tile)))
}
