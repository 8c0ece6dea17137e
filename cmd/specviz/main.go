// Command specviz is a debug tool: it decodes one WAV file, dumps a
// raw linear-bin FFT spectrogram of it as a PNG for visual
// sanity-checking, and prints how many fingerprint tiles the
// fingerprinting core would produce for it at its default
// configuration. It writes no images of the tiles themselves.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/draw"
	"log"
	"os"
	"path/filepath"

	"github.com/eligwz/spectrogram"

	"github.com/wavesketch/wavesketch/internal/audio"
	fpkg "github.com/wavesketch/wavesketch/pkg/fingerprint"
	"github.com/wavesketch/wavesketch/pkg/utils"
)

func main() {
	inputPath := flag.String("in", "", "WAV file to visualize (required)")
	outDir := flag.String("out", "spectrograms", "directory to write PNGs into")
	width := flag.Int("width", 2048, "output image width")
	height := flag.Int("height", 512, "output image height (FFT bins)")
	flag.Parse()

	if *inputPath == "" {
		fmt.Println("usage: specviz --in <file.wav> [--out dir] [--width n] [--height n]")
		os.Exit(1)
	}

	if err := utils.MakeDir(*outDir); err != nil {
		log.Fatalf("creating output dir: %v", err)
	}

	samples, sampleRate, err := audio.DecodeFile(*inputPath)
	if err != nil {
		log.Fatalf("decoding %s: %v", *inputPath, err)
	}
	fmt.Printf("decoded %d samples at %d Hz\n", len(samples), sampleRate)

	img := spectrogram.NewImage128(image.Rect(0, 0, *width, *height))
	black := spectrogram.ParseColor("000000")
	draw.Draw(img, img.Bounds(), image.NewUniform(black), image.Point{}, draw.Src)

	spectrogram.Drawfft(
		img,
		samples,
		uint32(sampleRate),
		uint32(*height),
		false, // RECTANGLE: use Hamming window
		false, // DFT: use FFT
		true,  // MAG: magnitude
		false, // LOG10: linear scale
	)

	baseName := filepath.Base(*inputPath)
	outputPath := filepath.Join(*outDir, baseName+".png")
	if err := spectrogram.SavePng(img, outputPath); err != nil {
		log.Fatalf("saving %s: %v", outputPath, err)
	}
	fmt.Printf("saved raw spectrogram to %s\n", outputPath)

	cfg := fpkg.DefaultConfig()
	cfg.SampleRate = sampleRate
	_, bits, err := fpkg.Create(samples, cfg)
	if err != nil {
		log.Fatalf("fingerprinting: %v", err)
	}
	fmt.Printf("would produce %d fingerprint tile(s) at this configuration\n", len(bits))
}
