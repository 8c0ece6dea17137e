package storage

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/wavesketch/wavesketch/pkg/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.sqlite3")
	store, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestInsertTrackRoundTrip(t *testing.T) {
	store := newTestStore(t)

	id, err := store.InsertTrack(models.Track{
		Artist: "Radiohead",
		Title:  "Videotape",
		Path:   "/music/videotape.wav",
		Tags:   map[string]string{"genre": "rock", "year": "2007"},
	})
	if err != nil {
		t.Fatalf("InsertTrack failed: %v", err)
	}

	got, err := store.ReadTrackByID([]uint{id})
	if err != nil {
		t.Fatalf("ReadTrackByID failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 track, got %d", len(got))
	}
	if got[0].Title != "Videotape" || got[0].Artist != "Radiohead" {
		t.Errorf("unexpected track: %+v", got[0])
	}
	if got[0].Tags["genre"] != "rock" || got[0].Tags["year"] != "2007" {
		t.Errorf("tags did not round trip: %+v", got[0].Tags)
	}
}

func TestFingerprintRoundTripAndTotalStamp(t *testing.T) {
	store := newTestStore(t)

	trackID, err := store.InsertTrack(models.Track{Artist: "A", Title: "B"})
	if err != nil {
		t.Fatalf("InsertTrack failed: %v", err)
	}

	sig1 := []byte{1, 0, 1, 1, 0}
	sig2 := []byte{0, 1, 0, 0, 1}
	inserted, err := store.InsertFingerprints([]models.Fingerprint{
		{TrackID: trackID, SongOrder: 0, Signature: sig1},
		{TrackID: trackID, SongOrder: 1, Signature: sig2},
	})
	if err != nil {
		t.Fatalf("InsertFingerprints failed: %v", err)
	}
	if len(inserted) != 2 {
		t.Fatalf("expected 2 inserted fingerprints, got %d", len(inserted))
	}
	for _, fp := range inserted {
		if fp.TotalPerTrack != 2 {
			t.Errorf("expected totalPerTrack=2, got %d", fp.TotalPerTrack)
		}
		if fp.ID == 0 {
			t.Error("expected a non-zero assigned id")
		}
	}

	ids := []uint{inserted[0].ID, inserted[1].ID}
	readBack, err := store.ReadFingerprintsByID(ids)
	if err != nil {
		t.Fatalf("ReadFingerprintsByID failed: %v", err)
	}
	if len(readBack) != 2 {
		t.Fatalf("expected 2 fingerprints read back, got %d", len(readBack))
	}
	for _, fp := range readBack {
		var want []byte
		if fp.SongOrder == 0 {
			want = sig1
		} else {
			want = sig2
		}
		if !bytes.Equal(fp.Signature, want) {
			t.Errorf("signature did not round trip for songOrder %d: got %v want %v", fp.SongOrder, fp.Signature, want)
		}
	}
}

func TestLookupByHashBinsDedupesAndGroups(t *testing.T) {
	store := newTestStore(t)

	trackID, _ := store.InsertTrack(models.Track{Artist: "A", Title: "B"})
	fps, err := store.InsertFingerprints([]models.Fingerprint{{TrackID: trackID, SongOrder: 0, Signature: []byte{1}}})
	if err != nil {
		t.Fatalf("InsertFingerprints failed: %v", err)
	}
	fpID := fps[0].ID

	err = store.InsertHashBins([]models.HashBin{
		{Bin: 42, HashTable: 0, TrackID: trackID, FingerprintID: fpID},
		{Bin: 99, HashTable: 1, TrackID: trackID, FingerprintID: fpID},
	})
	if err != nil {
		t.Fatalf("InsertHashBins failed: %v", err)
	}

	got, err := store.LookupByHashBins([]int64{42, 42, 99, 12345})
	if err != nil {
		t.Fatalf("LookupByHashBins failed: %v", err)
	}
	rows, ok := got[fpID]
	if !ok {
		t.Fatalf("expected fingerprint %d in lookup result", fpID)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 hash-bin rows for fingerprint %d, got %d", fpID, len(rows))
	}
}

func TestReadAllHashBinsIsUnbounded(t *testing.T) {
	store := newTestStore(t)

	trackID, _ := store.InsertTrack(models.Track{Artist: "A", Title: "B"})
	const n = 50
	fps := make([]models.Fingerprint, n)
	for i := range fps {
		fps[i] = models.Fingerprint{TrackID: trackID, SongOrder: i, Signature: []byte{1}}
	}
	inserted, err := store.InsertFingerprints(fps)
	if err != nil {
		t.Fatalf("InsertFingerprints failed: %v", err)
	}

	bins := make([]models.HashBin, n)
	for i, fp := range inserted {
		bins[i] = models.HashBin{Bin: int64(i), HashTable: 0, TrackID: trackID, FingerprintID: fp.ID}
	}
	if err := store.InsertHashBins(bins); err != nil {
		t.Fatalf("InsertHashBins failed: %v", err)
	}

	all, err := store.ReadAllHashBins()
	if err != nil {
		t.Fatalf("ReadAllHashBins failed: %v", err)
	}
	if len(all) != n {
		t.Fatalf("expected %d fingerprints represented, got %d", n, len(all))
	}
}

func TestDeleteTrackRemovesFingerprintsAndHashBins(t *testing.T) {
	store := newTestStore(t)

	trackID, err := store.InsertTrack(models.Track{Artist: "A", Title: "B"})
	if err != nil {
		t.Fatalf("InsertTrack failed: %v", err)
	}
	fps, err := store.InsertFingerprints([]models.Fingerprint{{TrackID: trackID, SongOrder: 0, Signature: []byte{1}}})
	if err != nil {
		t.Fatalf("InsertFingerprints failed: %v", err)
	}
	if err := store.InsertHashBins([]models.HashBin{{Bin: 7, HashTable: 0, TrackID: trackID, FingerprintID: fps[0].ID}}); err != nil {
		t.Fatalf("InsertHashBins failed: %v", err)
	}

	if err := store.DeleteTrack(trackID); err != nil {
		t.Fatalf("DeleteTrack failed: %v", err)
	}

	remaining, err := store.ReadTrackByID([]uint{trackID})
	if err != nil {
		t.Fatalf("ReadTrackByID failed: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected the track to be gone, got %+v", remaining)
	}

	fpRows, err := store.ReadFingerprintsByID([]uint{fps[0].ID})
	if err != nil {
		t.Fatalf("ReadFingerprintsByID failed: %v", err)
	}
	if len(fpRows) != 0 {
		t.Fatalf("expected fingerprints to be gone, got %+v", fpRows)
	}

	bins, err := store.LookupByHashBins([]int64{7})
	if err != nil {
		t.Fatalf("LookupByHashBins failed: %v", err)
	}
	if len(bins) != 0 {
		t.Fatalf("expected hash bins to be gone, got %+v", bins)
	}
}

func TestResetClearsTables(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.InsertTrack(models.Track{Artist: "A", Title: "B"}); err != nil {
		t.Fatalf("InsertTrack failed: %v", err)
	}
	if err := store.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	count, err := store.CountTracks()
	if err != nil {
		t.Fatalf("CountTracks failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 tracks after reset, got %d", count)
	}
}
