// Package config loads the YAML file and environment overrides the
// cmd/ front ends use to build a wavesketch.Config. Programmatic
// callers of pkg/wavesketch never need this layer.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// File is the on-disk shape of a wavesketch YAML config file. Every
// field is optional; zero values fall through to wavesketch's own
// defaults.
type File struct {
	DBPath          string  `yaml:"dbPath"`
	PostgresDSN     string  `yaml:"postgresDsn"`
	PermutationPath string  `yaml:"permutationPath"`
	PermutationSeed int64   `yaml:"permutationSeed"`
	TempDir         string  `yaml:"tempDir"`
	SampleRate      int     `yaml:"sampleRate"`
	HashTables      int     `yaml:"hashTables"`
	HashKeysPerTable int    `yaml:"hashKeysPerTable"`
	ThresholdTables int     `yaml:"thresholdTables"`
	Alpha           float64 `yaml:"alpha"`
}

// envOverrides are applied after the YAML file, matching the layering
// order godotenv-based CLIs in the pack use: file defaults, then
// environment wins.
type envOverrides struct {
	DBPath      string
	PostgresDSN string
	TempDir     string
	SampleRate  string
}

// Load reads a YAML config file at path (if it exists; a missing file
// is not an error) and layers .env-provided environment variables on
// top of it. Both layers are optional — an empty path and no matching
// environment variables just returns File{}.
func Load(path string) (File, error) {
	var f File

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return File{}, fmt.Errorf("config: reading %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &f); err != nil {
			return File{}, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	// godotenv.Load is a no-op (returns an error we ignore) when no
	// .env file is present, matching the pack's CLI entry points that
	// call it unconditionally at startup.
	_ = godotenv.Load()

	env := readEnvOverrides()
	if env.DBPath != "" {
		f.DBPath = env.DBPath
	}
	if env.PostgresDSN != "" {
		f.PostgresDSN = env.PostgresDSN
	}
	if env.TempDir != "" {
		f.TempDir = env.TempDir
	}
	if env.SampleRate != "" {
		if rate, err := strconv.Atoi(env.SampleRate); err == nil {
			f.SampleRate = rate
		}
	}

	return f, nil
}

func readEnvOverrides() envOverrides {
	return envOverrides{
		DBPath:      os.Getenv("WAVESKETCH_DB_PATH"),
		PostgresDSN: os.Getenv("WAVESKETCH_POSTGRES_DSN"),
		TempDir:     os.Getenv("WAVESKETCH_TEMP_DIR"),
		SampleRate:  os.Getenv("WAVESKETCH_SAMPLE_RATE"),
	}
}
