//go:build !js && !wasm

// Command server is the HTTP API front end for the fingerprinting
// engine.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wavesketch/wavesketch/internal/config"
	"github.com/wavesketch/wavesketch/pkg/utils"
	"github.com/wavesketch/wavesketch/pkg/wavesketch"
)

var (
	port           int
	configPath     string
	dbPath         string
	tempDir        string
	sampleRate     int
	allowedOrigins string
)

func init() {
	flag.IntVar(&port, "port", 8080, "HTTP server port")
	flag.StringVar(&configPath, "config", "", "path to a YAML config file")
	flag.StringVar(&dbPath, "db", "", "path to the SQLite database (overrides config)")
	flag.StringVar(&tempDir, "temp", "", "temporary directory (overrides config)")
	flag.IntVar(&sampleRate, "rate", 0, "audio sample rate (overrides config)")
	flag.StringVar(&allowedOrigins, "origins", "*", "comma-separated list of allowed CORS origins")
}

func main() {
	flag.Parse()

	file, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if dbPath != "" {
		file.DBPath = dbPath
	}
	if tempDir != "" {
		file.TempDir = tempDir
	}
	if sampleRate != 0 {
		file.SampleRate = sampleRate
	}
	if file.TempDir == "" {
		file.TempDir = "/tmp"
	}
	if err := prepareTempDir(file.TempDir); err != nil {
		log.Fatalf("failed to prepare temp dir: %v", err)
	}

	var origins []string
	if allowedOrigins == "*" {
		origins = []string{"*"}
	} else {
		for _, o := range strings.Split(allowedOrigins, ",") {
			origins = append(origins, strings.TrimSpace(o))
		}
	}

	opts := []wavesketch.Option{}
	if file.DBPath != "" {
		opts = append(opts, wavesketch.WithDBPath(file.DBPath))
	}
	if file.PostgresDSN != "" {
		opts = append(opts, wavesketch.WithPostgresDSN(file.PostgresDSN))
	}
	if file.TempDir != "" {
		opts = append(opts, wavesketch.WithTempDir(file.TempDir))
	}
	if file.SampleRate != 0 {
		opts = append(opts, wavesketch.WithSampleRate(file.SampleRate))
	}

	service, err := wavesketch.NewService(opts...)
	if err != nil {
		log.Fatalf("failed to create service: %v", err)
	}
	defer service.Close()

	cfg := &ServerConfig{
		Port:           port,
		DBPath:         file.DBPath,
		TempDir:        file.TempDir,
		SampleRate:     file.SampleRate,
		AllowedOrigins: origins,
	}

	server := NewServer(service, cfg)
	if err := server.Start(); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

// prepareTempDir starts the upload staging area clean on every boot.
// Anything left in TempDir/failed by a prior run's quarantined uploads
// is archived aside first (a crash restart should not silently destroy
// the evidence), then the whole temp dir is wiped and recreated.
func prepareTempDir(tempDir string) error {
	quarantineDir := filepath.Join(tempDir, "failed")
	if info, err := os.Stat(quarantineDir); err == nil && info.IsDir() {
		archiveRoot := filepath.Join(filepath.Dir(tempDir), "wavesketch-quarantine-archive")
		if err := utils.MakeDir(archiveRoot); err != nil {
			return fmt.Errorf("creating quarantine archive dir: %w", err)
		}
		archived := filepath.Join(archiveRoot, fmt.Sprintf("failed-%d", time.Now().Unix()))
		if err := utils.MoveDir(quarantineDir, archived); err != nil {
			return fmt.Errorf("archiving quarantined uploads: %w", err)
		}
	}
	if err := utils.DeleteDir(tempDir); err != nil {
		return fmt.Errorf("clearing stale temp dir: %w", err)
	}
	return utils.MakeDir(tempDir)
}
