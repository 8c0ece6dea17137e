package wavesketch

import (
	"context"

	"github.com/wavesketch/wavesketch/pkg/models"
)

// Service is the repository facade's public surface (C9).
type Service interface {
	IngestTrack(ctx context.Context, track models.Track, pcm []float64) (uint, error)
	FindSimilarFromSamples(ctx context.Context, pcm []float64, opts ...QueryOption) ([]models.MatchResult, error)
	FindSimilarFromFile(ctx context.Context, path string, opts ...QueryOption) ([]models.MatchResult, error)
	ResetDatabase(ctx context.Context) error
	CountTracks() (int64, error)
	ListTracks(filter models.ListFilter) ([]models.Track, error)
	GetTrackByID(id uint) (*models.Track, error)
	DeleteTrack(ctx context.Context, id uint) error
	Close() error
}

// Storage is the C7 index store contract the facade depends on. It is
// satisfied directly by *pkg/storage.Store.
type Storage interface {
	InsertTrack(track models.Track) (uint, error)
	ReadTrackByID(ids []uint) ([]models.Track, error)
	ReadTracks(filter models.ListFilter) ([]models.Track, error)
	CountTracks() (int64, error)
	InsertFingerprints(fps []models.Fingerprint) ([]models.Fingerprint, error)
	ReadFingerprintsByID(ids []uint) ([]models.Fingerprint, error)
	InsertHashBins(bins []models.HashBin) error
	LookupByHashBins(bandKeys []int64) (map[uint][]models.HashBin, error)
	ReadAllHashBins() (map[uint][]models.HashBin, error)
	DeleteTrack(id uint) error
	Reset() error
	Close() error
}

// Logger is the small leveled-logging interface every subsystem takes
// instead of reaching for a package-level default.
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}
