package fingerprint

import (
	"math"
	"testing"
)

func sine(freq float64, cfg Config, seconds float64) []float64 {
	n := int(float64(cfg.SampleRate) * seconds)
	pcm := make([]float64, n)
	for i := range pcm {
		pcm[i] = math.Sin(2 * math.Pi * freq * float64(i) / float64(cfg.SampleRate))
	}
	return pcm
}

func TestCreateShortClipReturnsEmptyNotError(t *testing.T) {
	cfg := DefaultConfig()
	pcm := make([]float64, cfg.WindowSize/2)
	_, bits, err := Create(pcm, cfg)
	if err != nil {
		t.Fatalf("expected nil error for short clip, got %v", err)
	}
	if bits != nil {
		t.Fatalf("expected nil fingerprint list for short clip, got %d entries", len(bits))
	}
}

func TestCreateProducesFingerprintsForLongClip(t *testing.T) {
	cfg := DefaultConfig()
	pcm := sine(440, cfg, 5)
	_, bits, err := Create(pcm, cfg)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if len(bits) == 0 {
		t.Fatal("expected at least one fingerprint for a 5s clip")
	}
	expectedLen := 2 * cfg.FingerprintLength * cfg.FingerprintLength
	for i, b := range bits {
		if len(b) != expectedLen {
			t.Fatalf("fingerprint %d: expected length %d, got %d", i, expectedLen, len(b))
		}
	}
}

func TestCreateInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FingerprintLength = 63 // not a power of two
	if _, _, err := Create(sine(440, cfg, 1), cfg); err != ErrInvalidConfig {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}

	cfg = DefaultConfig()
	cfg.FrequencyBins = cfg.FingerprintLength + 1
	if _, _, err := Create(sine(440, cfg, 1), cfg); err != ErrInvalidConfig {
		t.Fatalf("expected ErrInvalidConfig for mismatched square tile, got %v", err)
	}
}

func TestFingerprintCount(t *testing.T) {
	if got := FingerprintCount(200, 64); got != 3 {
		t.Errorf("expected 3 tiles for 200 frames of width 64, got %d", got)
	}
	if got := FingerprintCount(63, 64); got != 0 {
		t.Errorf("expected 0 tiles for a clip shorter than one tile, got %d", got)
	}
}
