// Command wavesketch is the CLI front end for the fingerprinting
// engine: add tracks to the index, query for similar ones, list what's
// indexed, and reset the database.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/wavesketch/wavesketch/internal/audio"
	"github.com/wavesketch/wavesketch/internal/config"
	"github.com/wavesketch/wavesketch/pkg/logger"
	"github.com/wavesketch/wavesketch/pkg/models"
	"github.com/wavesketch/wavesketch/pkg/utils"
	"github.com/wavesketch/wavesketch/pkg/wavesketch"
)

var (
	configPath string
	dbPath     string
	tempDir    string
	sampleRate int
)

func init() {
	flag.StringVar(&configPath, "config", "", "path to a YAML config file")
	flag.StringVar(&dbPath, "db", "", "path to the SQLite database file (overrides config)")
	flag.StringVar(&tempDir, "temp", "", "directory for temporary files (overrides config)")
	flag.IntVar(&sampleRate, "rate", 0, "audio sample rate for processing (overrides config)")
}

// newRequestContext tags one command invocation with a request id so
// its log lines, and the query engine's own diagnostics, can be
// correlated end to end the same way the HTTP server's are.
func newRequestContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	reqID := utils.NewRequestID()
	ctx, cancel := context.WithTimeout(utils.WithRequestID(context.Background(), reqID), timeout)
	return ctx, cancel
}

func createService() (wavesketch.Service, error) {
	file, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	opts := []wavesketch.Option{}
	if file.DBPath != "" {
		opts = append(opts, wavesketch.WithDBPath(file.DBPath))
	}
	if file.PostgresDSN != "" {
		opts = append(opts, wavesketch.WithPostgresDSN(file.PostgresDSN))
	}
	if file.PermutationPath != "" {
		opts = append(opts, wavesketch.WithPermutationPath(file.PermutationPath))
	}
	if file.PermutationSeed != 0 {
		opts = append(opts, wavesketch.WithPermutationSeed(file.PermutationSeed))
	}
	if file.TempDir != "" {
		opts = append(opts, wavesketch.WithTempDir(file.TempDir))
	}
	if file.SampleRate != 0 {
		opts = append(opts, wavesketch.WithSampleRate(file.SampleRate))
	}
	if file.HashTables != 0 && file.HashKeysPerTable != 0 {
		opts = append(opts, wavesketch.WithHashLayout(file.HashTables, file.HashKeysPerTable))
	}
	if file.ThresholdTables != 0 {
		opts = append(opts, wavesketch.WithThreshold(file.ThresholdTables))
	}
	if file.Alpha != 0 {
		opts = append(opts, wavesketch.WithAlpha(file.Alpha))
	}

	// Flags win over both the config file and the environment.
	if dbPath != "" {
		opts = append(opts, wavesketch.WithDBPath(dbPath))
	}
	if tempDir != "" {
		opts = append(opts, wavesketch.WithTempDir(tempDir))
	}
	if sampleRate != 0 {
		opts = append(opts, wavesketch.WithSampleRate(sampleRate))
	}

	return wavesketch.NewService(opts...)
}

func main() {
	log := logger.GetLogger()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// The command verb comes before the global flags in this CLI's
	// grammar, so parse it first and hand the rest to flag.Parse.
	command := os.Args[1]
	flag.CommandLine.Parse(os.Args[2:])

	log.Infof("executing command: %s", command)

	switch command {
	case "add":
		handleAdd(flag.Args())
	case "query":
		handleQuery(flag.Args())
	case "list":
		handleList(flag.Args())
	case "reset":
		handleReset()
	case "delete":
		handleDelete(flag.Args())
	default:
		fmt.Printf("unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func handleAdd(args []string) {
	log := logger.GetLogger()
	if len(args) < 1 {
		fmt.Println("usage: wavesketch add <audio_file> --title <title> --artist <artist>")
		os.Exit(1)
	}

	addCmd := flag.NewFlagSet("add", flag.ExitOnError)
	title := addCmd.String("title", "", "track title")
	artist := addCmd.String("artist", "", "artist name")
	addCmd.Parse(args[1:])

	if *title == "" || *artist == "" {
		fmt.Println("error: --title and --artist are required")
		os.Exit(1)
	}

	svc, err := createService()
	if err != nil {
		fmt.Printf("failed to initialize service: %v\n", err)
		os.Exit(1)
	}
	defer svc.Close()

	pcm, sr, err := audio.DecodeFile(args[0])
	if err != nil {
		fmt.Printf("failed to decode audio file: %v\n", err)
		os.Exit(1)
	}
	log.Infof("decoded %s samples at %d Hz", humanize.Comma(int64(len(pcm))), sr)

	ctx, cancel := newRequestContext(5 * time.Minute)
	defer cancel()
	log.WithRequestID(ctx).Debugf("adding %q by %s", *title, *artist)

	id, err := svc.IngestTrack(ctx, models.Track{Artist: *artist, Title: *title, Path: args[0]}, pcm)
	if err != nil {
		fmt.Printf("failed to add track: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("added track %d: \"%s\" by %s\n", id, *title, *artist)
}

func handleQuery(args []string) {
	if len(args) < 1 {
		fmt.Println("usage: wavesketch query <audio_file> [--search-all]")
		os.Exit(1)
	}

	queryCmd := flag.NewFlagSet("query", flag.ExitOnError)
	searchAll := queryCmd.Bool("search-all", false, "bypass LSH and compare against every fingerprint")
	queryCmd.Parse(args[1:])

	svc, err := createService()
	if err != nil {
		fmt.Printf("failed to initialize service: %v\n", err)
		os.Exit(1)
	}
	defer svc.Close()

	ctx, cancel := newRequestContext(2 * time.Minute)
	defer cancel()
	logger.GetLogger().WithRequestID(ctx).Debugf("querying %s", args[0])

	results, err := svc.FindSimilarFromFile(ctx, args[0], wavesketch.WithSearchAll(*searchAll))
	if err != nil {
		fmt.Printf("query failed: %v\n", err)
		os.Exit(1)
	}

	if len(results) == 0 {
		fmt.Println("no matches found")
		return
	}

	fmt.Printf("found %s match(es):\n\n", humanize.Comma(int64(len(results))))
	for i, r := range results {
		fmt.Printf("%d. \"%s\" by %s (track %d)\n", i+1, r.Track.Title, r.Track.Artist, r.Track.ID)
		fmt.Printf("   similarity: %.1f%% | votes: %d | ordering: %.4f\n\n",
			r.Stats.Similarity*100, r.Stats.TotalTableVotes, r.Ordering)
	}
}

func handleList(args []string) {
	listCmd := flag.NewFlagSet("list", flag.ExitOnError)
	artist := listCmd.String("artist", "", "filter by artist substring")
	listCmd.Parse(args)

	svc, err := createService()
	if err != nil {
		fmt.Printf("failed to initialize service: %v\n", err)
		os.Exit(1)
	}
	defer svc.Close()

	tracks, err := svc.ListTracks(models.ListFilter{ArtistLike: *artist})
	if err != nil {
		fmt.Printf("failed to list tracks: %v\n", err)
		os.Exit(1)
	}

	if len(tracks) == 0 {
		fmt.Println("no tracks indexed")
		return
	}

	fmt.Printf("%s track(s):\n\n", humanize.Comma(int64(len(tracks))))
	for _, t := range tracks {
		fmt.Printf("%d. \"%s\" by %s\n", t.ID, t.Title, t.Artist)
	}
}

func handleReset() {
	svc, err := createService()
	if err != nil {
		fmt.Printf("failed to initialize service: %v\n", err)
		os.Exit(1)
	}
	defer svc.Close()

	if err := svc.ResetDatabase(context.Background()); err != nil {
		fmt.Printf("failed to reset database: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("database reset")
}

func handleDelete(args []string) {
	if len(args) < 1 {
		fmt.Println("usage: wavesketch delete <track_id>")
		os.Exit(1)
	}

	id, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		fmt.Printf("invalid track id: %v\n", err)
		os.Exit(1)
	}

	svc, err := createService()
	if err != nil {
		fmt.Printf("failed to initialize service: %v\n", err)
		os.Exit(1)
	}
	defer svc.Close()

	ctx, cancel := newRequestContext(30 * time.Second)
	defer cancel()

	if err := svc.DeleteTrack(ctx, uint(id)); err != nil {
		fmt.Printf("failed to delete track: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("deleted track %d\n", id)
}

func printUsage() {
	fmt.Println("wavesketch - audio fingerprinting and similarity search")
	fmt.Println()
	fmt.Println("usage:")
	fmt.Println("  wavesketch add [global-options] <audio_file> --title <title> --artist <artist>")
	fmt.Println("  wavesketch query [global-options] <audio_file> [--search-all]")
	fmt.Println("  wavesketch list [global-options] [--artist <substring>]")
	fmt.Println("  wavesketch reset [global-options]")
	fmt.Println("  wavesketch delete [global-options] <track_id>")
	fmt.Println()
	fmt.Println("global options:")
	fmt.Println("  --config <path>   YAML config file")
	fmt.Println("  --db <path>       SQLite database path (env: WAVESKETCH_DB_PATH)")
	fmt.Println("  --temp <dir>      temp directory (env: WAVESKETCH_TEMP_DIR)")
	fmt.Println("  --rate <hz>       audio sample rate (env: WAVESKETCH_SAMPLE_RATE)")
}
