package wavesketch

import (
	"context"
	"errors"

	internalaudio "github.com/wavesketch/wavesketch/internal/audio"
	"github.com/wavesketch/wavesketch/pkg/fingerprint"
	"github.com/wavesketch/wavesketch/pkg/logger"
	"github.com/wavesketch/wavesketch/pkg/minhash"
	"github.com/wavesketch/wavesketch/pkg/models"
	"github.com/wavesketch/wavesketch/pkg/query"
	"github.com/wavesketch/wavesketch/pkg/utils"
)

// service is the default Service implementation (C9): the repository
// facade wiring fingerprinting, MinHash, the index store, and the
// query engine behind the public operations.
type service struct {
	storage Storage
	log     Logger
	cfg     *Config
	table   minhash.Table
}

// NewService applies opts over the default Config and constructs the
// facade. When no Storage option is supplied, a SQLite (or Postgres,
// if a DSN is configured) backend is opened at cfg.DBPath. The
// permutation table is loaded once here and held for the service's
// lifetime.
func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}

	stor := cfg.Storage
	if stor == nil {
		var err error
		if cfg.PostgresDSN != "" {
			stor, err = NewPostgresStorage(cfg.PostgresDSN)
		} else {
			stor, err = NewSQLiteStorage(cfg.DBPath)
		}
		if err != nil {
			return nil, newError(StoreWrite, "opening storage backend", err)
		}
	}

	table, err := loadOrCreatePermutations(cfg)
	if err != nil {
		return nil, err
	}

	return &service{storage: stor, log: cfg.Logger, cfg: cfg, table: table}, nil
}

func (s *service) fingerprintConfig() fingerprint.Config {
	return fingerprint.Config{
		SampleRate:        s.cfg.SampleRate,
		WindowSize:        s.cfg.WindowSize,
		Overlap:           s.cfg.Overlap,
		FingerprintLength: s.cfg.FingerprintLength,
		FrequencyBins:     s.cfg.FrequencyBins,
		StartFrequency:    s.cfg.StartFrequency,
		EndFrequency:      s.cfg.EndFrequency,
		TopWavelets:       s.cfg.TopWavelets,
		LogBase:           s.cfg.LogBase,
	}
}

func (s *service) queryConfig(searchAll bool) query.Config {
	return query.Config{
		HashTables:        s.cfg.HashTables,
		HashKeysPerTable:  s.cfg.HashKeysPerTable,
		Threshold:         s.cfg.ThresholdTables,
		SearchAll:         searchAll,
		TopCandidates:     s.cfg.TopCandidates,
		Alpha:             s.cfg.Alpha,
		ParallelThreshold: 200,
	}
}

// IngestTrack fingerprints pcm, persists the track row, then its
// fingerprints and hash-bins. A clip too short to yield any
// fingerprint still inserts the track: it is left queryable-never
// rather than rejected outright. A failure past that point leaves the
// track without hash-bins (its fingerprint rows may already be stored),
// which is sufficient to keep it out of every query's candidate set
// until DeleteTrack removes it.
func (s *service) IngestTrack(ctx context.Context, track models.Track, pcm []float64) (uint, error) {
	_, bits, err := fingerprint.Create(pcm, s.fingerprintConfig())
	if err != nil {
		return 0, newError(InvalidConfig, "invalid fingerprint configuration", err)
	}

	trackID, err := s.storage.InsertTrack(track)
	if err != nil {
		return 0, newError(StoreWrite, "inserting track", err)
	}

	reqID, hasReqID := utils.RequestIDFromContext(ctx)

	if len(bits) == 0 {
		if hasReqID {
			s.log.Warnf("request %s: track %d (%s - %s) is shorter than one fingerprint tile; indexed but unqueryable", reqID, trackID, track.Artist, track.Title)
		} else {
			s.log.Warnf("track %d (%s - %s) is shorter than one fingerprint tile; indexed but unqueryable", trackID, track.Artist, track.Title)
		}
		return trackID, nil
	}

	fps := make([]models.Fingerprint, len(bits))
	for i, b := range bits {
		fps[i] = models.Fingerprint{TrackID: trackID, SongOrder: i, Signature: b}
	}
	inserted, err := s.storage.InsertFingerprints(fps)
	if err != nil {
		return 0, newError(StoreWrite, "inserting fingerprints", err)
	}

	bins := make([]models.HashBin, 0, len(inserted)*s.cfg.HashTables)
	for _, fp := range inserted {
		sig, err := minhash.ComputeSignature(fp.Signature, s.table)
		if err != nil {
			return 0, newError(SchemaMismatch, "computing minhash signature", err)
		}
		bandKeys, err := minhash.GroupToBands(sig, s.cfg.HashTables, s.cfg.HashKeysPerTable)
		if err != nil {
			return 0, newError(InvalidConfig, "grouping signature into bands", err)
		}
		for band, key := range bandKeys {
			bins = append(bins, models.HashBin{Bin: key, HashTable: band, TrackID: trackID, FingerprintID: fp.ID})
		}
	}
	if err := s.storage.InsertHashBins(bins); err != nil {
		return 0, newError(StoreWrite, "inserting hash bins", err)
	}

	if hasReqID {
		s.log.Infof("request %s: ingested track %d (%s - %s): %d fingerprints, %d hash bins", reqID, trackID, track.Artist, track.Title, len(inserted), len(bins))
	} else {
		s.log.Infof("ingested track %d (%s - %s): %d fingerprints, %d hash bins", trackID, track.Artist, track.Title, len(inserted), len(bins))
	}
	return trackID, nil
}

// FindSimilarFromSamples fingerprints pcm and ranks the store's tracks
// by similarity to it.
func (s *service) FindSimilarFromSamples(ctx context.Context, pcm []float64, opts ...QueryOption) ([]models.MatchResult, error) {
	options := defaultQueryOptions()
	for _, opt := range opts {
		opt(&options)
	}

	_, bits, err := fingerprint.Create(pcm, s.fingerprintConfig())
	if err != nil {
		return nil, newError(InvalidConfig, "invalid fingerprint configuration", err)
	}
	if len(bits) == 0 {
		return nil, newError(AudioTooShort, "clip shorter than one fingerprint tile", nil)
	}

	if options.OptimizeSignatureCount && s.cfg.MaxSignatureCount > 0 && len(bits) > s.cfg.MaxSignatureCount {
		s.log.Debugf("truncating %d fingerprints to maxSignatureCount=%d", len(bits), s.cfg.MaxSignatureCount)
		bits = bits[:s.cfg.MaxSignatureCount]
	}

	engine, err := query.New(s.storage, s.table, s.queryConfig(options.SearchAll), s.log)
	if err != nil {
		return nil, newError(InvalidConfig, "invalid query configuration", err)
	}

	results, err := engine.Query(ctx, bits)
	if err != nil {
		return nil, translateQueryError(err)
	}
	return results, nil
}

// FindSimilarFromFile decodes a WAV file and delegates to
// FindSimilarFromSamples. A sample-rate mismatch against the
// configured rate is logged, not rejected: resampling is out of scope.
func (s *service) FindSimilarFromFile(ctx context.Context, path string, opts ...QueryOption) ([]models.MatchResult, error) {
	pcm, sampleRate, err := internalaudio.DecodeFile(path)
	if err != nil {
		return nil, newError(InvalidConfig, "decoding audio file", err)
	}
	if sampleRate != s.cfg.SampleRate {
		s.log.Warnf("file %s sample rate %d does not match configured %d; results may be degraded", path, sampleRate, s.cfg.SampleRate)
	}
	return s.FindSimilarFromSamples(ctx, pcm, opts...)
}

// ResetDatabase drops and recreates every table.
func (s *service) ResetDatabase(ctx context.Context) error {
	if err := s.storage.Reset(); err != nil {
		return newError(StoreWrite, "resetting database", err)
	}
	return nil
}

// CountTracks returns the number of indexed tracks.
func (s *service) CountTracks() (int64, error) {
	n, err := s.storage.CountTracks()
	if err != nil {
		return 0, newError(StoreRead, "counting tracks", err)
	}
	return n, nil
}

// ListTracks lists tracks matching filter.
func (s *service) ListTracks(filter models.ListFilter) ([]models.Track, error) {
	tracks, err := s.storage.ReadTracks(filter)
	if err != nil {
		return nil, newError(StoreRead, "listing tracks", err)
	}
	return tracks, nil
}

// GetTrackByID resolves a single track, returning (nil, nil) if it
// does not exist.
func (s *service) GetTrackByID(id uint) (*models.Track, error) {
	tracks, err := s.storage.ReadTrackByID([]uint{id})
	if err != nil {
		return nil, newError(StoreRead, "reading track", err)
	}
	if len(tracks) == 0 {
		return nil, nil
	}
	return &tracks[0], nil
}

// DeleteTrack removes a track and its fingerprints and hash bins,
// taking it out of every future query's candidate set. ctx is honored
// only for cancellation before the storage call; the delete itself is
// a single transaction and does not support partial cancellation.
func (s *service) DeleteTrack(ctx context.Context, id uint) error {
	if err := ctx.Err(); err != nil {
		return newError(Cancelled, "delete cancelled", err)
	}
	if err := s.storage.DeleteTrack(id); err != nil {
		return newError(StoreWrite, "deleting track", err)
	}
	s.log.Infof("deleted track %d", id)
	return nil
}

// Close releases the storage backend.
func (s *service) Close() error {
	return s.storage.Close()
}

func translateQueryError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return newError(Cancelled, "query cancelled", err)
	}
	if errors.Is(err, minhash.ErrSchemaMismatch) {
		return newError(SchemaMismatch, "query fingerprint length does not match permutation table", err)
	}
	if errors.Is(err, query.ErrInvalidConfig) {
		return newError(InvalidConfig, "invalid query configuration", err)
	}
	return newError(StoreRead, "querying index", err)
}
