package wavesketch

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/wavesketch/wavesketch/pkg/models"
	"github.com/wavesketch/wavesketch/pkg/storage"
)

// newTestService builds a facade backed by a fresh temp-dir SQLite
// store and a small, fast permutation table, so tests never touch the
// working directory or a shared fixture.
func newTestService(t *testing.T) Service {
	t.Helper()
	dir := t.TempDir()

	store, err := storage.NewSQLite(filepath.Join(dir, "test.sqlite3"))
	if err != nil {
		t.Fatalf("opening test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	svc, err := NewService(
		WithStorage(store),
		WithPermutationPath(""), // in-memory only, never persisted
		WithPermutationSeed(42),
		WithSampleRate(5512),
		WithHashLayout(8, 4),
		WithThreshold(2),
	)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	return svc
}

// tone synthesizes seconds of a freq-Hz sine wave sampled at
// sampleRate. The 6-second clips below yield 126 STFT frames, i.e. one
// 64-frame fingerprint tile, under the default windowing parameters.
func tone(sampleRate int, seconds float64, freq float64) []float64 {
	n := int(float64(sampleRate) * seconds)
	pcm := make([]float64, n)
	for i := range pcm {
		pcm[i] = math.Sin(2 * math.Pi * freq * float64(i) / float64(sampleRate))
	}
	return pcm
}

func TestIngestAndFindSimilarSelfMatch(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	pcm := tone(5512, 6, 440)
	track := models.Track{Artist: "Test Artist", Title: "Test Track"}
	id, err := svc.IngestTrack(ctx, track, pcm)
	if err != nil {
		t.Fatalf("IngestTrack failed: %v", err)
	}
	if id == 0 {
		t.Fatal("expected a non-zero track id")
	}

	results, err := svc.FindSimilarFromSamples(ctx, pcm)
	if err != nil {
		t.Fatalf("FindSimilarFromSamples failed: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected at least one match for the ingested track's own audio")
	}
	if results[0].Track.ID != id {
		t.Fatalf("expected the ingested track to rank first, got track %d", results[0].Track.ID)
	}
}

func TestFindSimilarOnEmptyStoreReturnsEmpty(t *testing.T) {
	svc := newTestService(t)
	pcm := tone(5512, 6, 440)

	results, err := svc.FindSimilarFromSamples(context.Background(), pcm)
	if err != nil {
		t.Fatalf("expected no error on an empty store, got %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no matches, got %d", len(results))
	}
}

func TestFindSimilarShortClipReturnsAudioTooShort(t *testing.T) {
	svc := newTestService(t)
	pcm := tone(5512, 0.05, 440) // well under one fingerprint tile

	_, err := svc.FindSimilarFromSamples(context.Background(), pcm)
	if err == nil {
		t.Fatal("expected an error for a too-short clip")
	}
	if kind, ok := KindOf(err); !ok || kind != AudioTooShort {
		t.Fatalf("expected AudioTooShort, got %v (kind=%v ok=%v)", err, kind, ok)
	}
}

func TestIngestShortClipStillInsertsTrack(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	pcm := tone(5512, 0.05, 440)

	id, err := svc.IngestTrack(ctx, models.Track{Artist: "A", Title: "B"}, pcm)
	if err != nil {
		t.Fatalf("IngestTrack failed on short clip: %v", err)
	}
	if id == 0 {
		t.Fatal("expected the track to be inserted even though it is unqueryable")
	}

	got, err := svc.GetTrackByID(id)
	if err != nil {
		t.Fatalf("GetTrackByID failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected the short-clip track to be retrievable by id")
	}

	count, err := svc.CountTracks()
	if err != nil {
		t.Fatalf("CountTracks failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 track, got %d", count)
	}
}

func TestResetDatabaseClearsTracks(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	pcm := tone(5512, 6, 440)

	if _, err := svc.IngestTrack(ctx, models.Track{Artist: "A", Title: "B"}, pcm); err != nil {
		t.Fatalf("IngestTrack failed: %v", err)
	}
	if err := svc.ResetDatabase(ctx); err != nil {
		t.Fatalf("ResetDatabase failed: %v", err)
	}
	count, err := svc.CountTracks()
	if err != nil {
		t.Fatalf("CountTracks failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 tracks after reset, got %d", count)
	}
}

func TestListTracksFiltersByArtist(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	pcm := tone(5512, 6, 440)

	if _, err := svc.IngestTrack(ctx, models.Track{Artist: "Alice", Title: "Song One"}, pcm); err != nil {
		t.Fatalf("IngestTrack failed: %v", err)
	}
	if _, err := svc.IngestTrack(ctx, models.Track{Artist: "Bob", Title: "Song Two"}, pcm); err != nil {
		t.Fatalf("IngestTrack failed: %v", err)
	}

	results, err := svc.ListTracks(models.ListFilter{ArtistLike: "Ali"})
	if err != nil {
		t.Fatalf("ListTracks failed: %v", err)
	}
	if len(results) != 1 || results[0].Artist != "Alice" {
		t.Fatalf("expected exactly Alice's track, got %+v", results)
	}
}

func TestDeleteTrackRemovesFromIndexAndQueries(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	pcm := tone(5512, 6, 440)

	id, err := svc.IngestTrack(ctx, models.Track{Artist: "A", Title: "B"}, pcm)
	if err != nil {
		t.Fatalf("IngestTrack failed: %v", err)
	}

	if err := svc.DeleteTrack(ctx, id); err != nil {
		t.Fatalf("DeleteTrack failed: %v", err)
	}

	got, err := svc.GetTrackByID(id)
	if err != nil {
		t.Fatalf("GetTrackByID failed: %v", err)
	}
	if got != nil {
		t.Fatal("expected the deleted track to no longer be retrievable")
	}

	count, err := svc.CountTracks()
	if err != nil {
		t.Fatalf("CountTracks failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 tracks after delete, got %d", count)
	}

	results, err := svc.FindSimilarFromSamples(ctx, pcm)
	if err != nil {
		t.Fatalf("FindSimilarFromSamples failed: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected the deleted track to no longer surface in queries, got %d result(s)", len(results))
	}
}

func TestFindSimilarFromFileRejectsMissingFile(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.FindSimilarFromFile(context.Background(), filepath.Join(t.TempDir(), "missing.wav"))
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
	if kind, ok := KindOf(err); !ok || kind != InvalidConfig {
		t.Fatalf("expected InvalidConfig, got %v (kind=%v ok=%v)", err, kind, ok)
	}
}
