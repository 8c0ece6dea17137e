package audio

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// writeTestWAV builds a mono 16-bit PCM WAV file containing a short
// sine wave and returns its path, for round-tripping through
// DecodeFile/DecodeMono.
func writeTestWAV(t *testing.T, sampleRate int, seconds float64, freq float64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating test wav: %v", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	n := int(float64(sampleRate) * seconds)
	data := make([]int, n)
	for i := range data {
		data[i] = int(32767 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
	}
	intBuf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(intBuf); err != nil {
		t.Fatalf("encoding test wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("closing encoder: %v", err)
	}
	return path
}

func TestDecodeFileRoundTrip(t *testing.T) {
	path := writeTestWAV(t, 8000, 0.1, 440)

	pcm, sr, err := DecodeFile(path)
	if err != nil {
		t.Fatalf("DecodeFile failed: %v", err)
	}
	if sr != 8000 {
		t.Errorf("expected sample rate 8000, got %d", sr)
	}
	if len(pcm) == 0 {
		t.Fatal("expected non-empty decoded PCM")
	}
	for _, v := range pcm {
		if v < -1.0001 || v > 1.0001 {
			t.Fatalf("sample out of normalized range: %f", v)
		}
	}
}

func TestDecodeMonoRejectsInvalidWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	if err := os.WriteFile(path, []byte("not a wav file"), 0o644); err != nil {
		t.Fatalf("writing bad file: %v", err)
	}
	if _, _, err := DecodeFile(path); err != ErrInvalidWAV {
		t.Fatalf("expected ErrInvalidWAV, got %v", err)
	}
}
