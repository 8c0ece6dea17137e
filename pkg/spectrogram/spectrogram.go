// Package spectrogram builds a log-frequency magnitude spectrogram
// from a mono PCM stream via windowed STFT, following the teacher's
// FFT-based approach (github.com/mjibson/go-dsp/fft) but mapping the
// linear FFT bins onto a logarithmic frequency grid.
package spectrogram

import (
	"errors"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// Config controls the STFT and the log-frequency grid it is resampled
// onto. Field names mirror spec §4.4.
type Config struct {
	SampleRate     int
	WindowSize     int
	Overlap        int // hop size in samples between consecutive frames
	FrequencyBins  int // W, number of log-spaced output bins per frame
	StartFrequency float64
	EndFrequency   float64
	LogBase        float64
}

// DefaultConfig returns the reference parameters used across the
// package's tests: 5512 Hz sample rate, a 1024-sample window with a
// 256-sample hop, and 64 log-spaced bins between 20 Hz and 2600 Hz.
func DefaultConfig() Config {
	return Config{
		SampleRate:     5512,
		WindowSize:     1024,
		Overlap:        256,
		FrequencyBins:  64,
		StartFrequency: 20,
		EndFrequency:   2600,
		LogBase:        2,
	}
}

func (c Config) validate() error {
	if c.WindowSize <= 0 || c.Overlap <= 0 {
		return errors.New("spectrogram: window size and overlap must be positive")
	}
	if c.FrequencyBins <= 0 {
		return errors.New("spectrogram: frequency bins must be positive")
	}
	if c.StartFrequency <= 0 || c.EndFrequency <= c.StartFrequency {
		return errors.New("spectrogram: invalid frequency range")
	}
	if c.LogBase <= 1 {
		return errors.New("spectrogram: log base must be greater than 1")
	}
	return nil
}

// Hamming returns an n-point Hamming window, computed the same way as
// the teacher's fingerprint.Hamming.
func Hamming(n int) []float64 {
	w := make([]float64, n)
	for i := 0; i < n; i++ {
		w[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

// magnitudeSpectrum returns the magnitude of the positive-frequency
// half of an FFT result.
func magnitudeSpectrum(spectrum []complex128) []float64 {
	half := len(spectrum) / 2
	mag := make([]float64, half)
	for i := 0; i < half; i++ {
		mag[i] = cmplx.Abs(spectrum[i])
	}
	return mag
}

// stft slides a Hamming-windowed frame of windowSize samples across
// the signal with the given hop, returning one linear-bin magnitude
// row per frame.
func stft(samples []float64, windowSize, hop int, window []float64) [][]float64 {
	frames := make([][]float64, 0, (len(samples)-windowSize)/hop+1)
	frame := make([]float64, windowSize)
	for start := 0; start+windowSize <= len(samples); start += hop {
		for i := 0; i < windowSize; i++ {
			frame[i] = samples[start+i] * window[i]
		}
		spectrum := fft.FFTReal(frame)
		frames = append(frames, magnitudeSpectrum(spectrum))
	}
	return frames
}

// logBinEdges returns the W+1 frequency boundaries of the log-spaced
// grid described in spec §4.1: edge(i) = startFreq * base^(i*delta).
func logBinEdges(cfg Config) []float64 {
	logStart := math.Log(cfg.StartFrequency) / math.Log(cfg.LogBase)
	logEnd := math.Log(cfg.EndFrequency) / math.Log(cfg.LogBase)
	delta := (logEnd - logStart) / float64(cfg.FrequencyBins)

	edges := make([]float64, cfg.FrequencyBins+1)
	for i := range edges {
		edges[i] = cfg.StartFrequency * math.Pow(cfg.LogBase, float64(i)*delta)
	}
	return edges
}

// Build computes the log-magnitude, log-frequency spectrogram of pcm.
// Rows are contiguous in time; each row has cfg.FrequencyBins columns.
// ErrTooShort is returned if pcm has fewer samples than one window.
func Build(pcm []float64, cfg Config) ([][]float64, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if len(pcm) < cfg.WindowSize {
		return nil, ErrTooShort
	}

	window := Hamming(cfg.WindowSize)
	linear := stft(pcm, cfg.WindowSize, cfg.Overlap, window)
	if len(linear) == 0 {
		return nil, ErrTooShort
	}

	edges := logBinEdges(cfg)
	freqRes := float64(cfg.SampleRate) / float64(cfg.WindowSize)
	nyquistBins := len(linear[0])

	// Precompute, per output bin, the half-open range of FFT indices
	// it averages over.
	type binRange struct{ lo, hi int }
	ranges := make([]binRange, cfg.FrequencyBins)
	for i := 0; i < cfg.FrequencyBins; i++ {
		lo := int(math.Floor(edges[i] / freqRes))
		hi := int(math.Ceil(edges[i+1] / freqRes))
		if lo < 0 {
			lo = 0
		}
		if hi > nyquistBins {
			hi = nyquistBins
		}
		if hi <= lo {
			hi = lo + 1
		}
		ranges[i] = binRange{lo, hi}
	}

	out := make([][]float64, len(linear))
	for t, row := range linear {
		logRow := make([]float64, cfg.FrequencyBins)
		for i, r := range ranges {
			if r.lo >= nyquistBins {
				logRow[i] = 0
				continue
			}
			hi := r.hi
			if hi > nyquistBins {
				hi = nyquistBins
			}
			var sum float64
			count := 0
			for f := r.lo; f < hi; f++ {
				sum += row[f]
				count++
			}
			mean := 0.0
			if count > 0 {
				mean = sum / float64(count)
			}
			logRow[i] = math.Log1p(mean)
		}
		out[t] = logRow
	}
	return out, nil
}

// ErrTooShort is returned by Build when pcm has fewer samples than
// one STFT window.
var ErrTooShort = errors.New("spectrogram: audio shorter than one window")
