package spectrogram

import (
	"math"
	"testing"
)

func TestHammingWindow(t *testing.T) {
	for _, size := range []int{128, 256, 1024} {
		w := Hamming(size)
		if len(w) != size {
			t.Fatalf("expected window size %d, got %d", size, len(w))
		}
		for i, v := range w {
			if v < 0 || v > 1 {
				t.Errorf("window value %d out of range [0,1]: %f", i, v)
			}
		}
		if w[0] >= w[size/2] {
			t.Error("hamming window should be lower at the edges than the center")
		}
	}
}

func TestBuildTooShort(t *testing.T) {
	cfg := DefaultConfig()
	pcm := make([]float64, cfg.WindowSize-1)
	if _, err := Build(pcm, cfg); err != ErrTooShort {
		t.Fatalf("expected ErrTooShort, got %v", err)
	}
}

func TestBuildShapeAndNonNegative(t *testing.T) {
	cfg := DefaultConfig()
	pcm := make([]float64, cfg.SampleRate*2)
	for i := range pcm {
		// 440 Hz tone
		pcm[i] = math.Sin(2 * math.Pi * 440 * float64(i) / float64(cfg.SampleRate))
	}

	spec, err := Build(pcm, cfg)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(spec) == 0 {
		t.Fatal("expected at least one spectrogram frame")
	}
	for t2, row := range spec {
		if len(row) != cfg.FrequencyBins {
			t.Fatalf("frame %d: expected %d bins, got %d", t2, cfg.FrequencyBins, len(row))
		}
		for i, v := range row {
			if v < 0 {
				t.Errorf("frame %d bin %d: log-magnitude must be non-negative, got %f", t2, i, v)
			}
		}
	}
}

func TestLogBinEdgesMonotonic(t *testing.T) {
	cfg := DefaultConfig()
	edges := logBinEdges(cfg)
	if len(edges) != cfg.FrequencyBins+1 {
		t.Fatalf("expected %d edges, got %d", cfg.FrequencyBins+1, len(edges))
	}
	for i := 1; i < len(edges); i++ {
		if edges[i] <= edges[i-1] {
			t.Fatalf("edges must be strictly increasing: edges[%d]=%f <= edges[%d]=%f", i, edges[i], i-1, edges[i-1])
		}
	}
	if math.Abs(edges[0]-cfg.StartFrequency) > 1e-9 {
		t.Errorf("first edge should equal StartFrequency, got %f", edges[0])
	}
	if math.Abs(edges[len(edges)-1]-cfg.EndFrequency) > 1e-6 {
		t.Errorf("last edge should equal EndFrequency, got %f", edges[len(edges)-1])
	}
}

func TestInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WindowSize = 0
	if _, err := Build(make([]float64, 10), cfg); err == nil {
		t.Fatal("expected error for zero window size")
	}
}
