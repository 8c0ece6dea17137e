package storage

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mdobak/go-xerrors"
	"gorm.io/gorm"

	"github.com/wavesketch/wavesketch/pkg/models"
)

const batchSize = 500

// Store is the C7 index store: a single GORM connection guarded by a
// write mutex, matching the single-writer, multi-reader model the
// facade requires. Queries may run concurrently; ingestion must not
// overlap itself unless the underlying driver tolerates it, which
// neither SQLite nor Postgres do for this workload.
type Store struct {
	db      *gorm.DB
	writeMu sync.Mutex
}

func open(dialector gorm.Dialector, gormCfg *gorm.Config) (*Store, error) {
	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, xerrors.New(err)
	}
	if err := db.AutoMigrate(&trackRow{}, &fingerprintRow{}, &hashBinRow{}); err != nil {
		return nil, xerrors.New(err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return xerrors.New(err)
	}
	return sqlDB.Close()
}

func encodeTags(tags map[string]string) string {
	if len(tags) == 0 {
		return ""
	}
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + tags[k]
	}
	return strings.Join(parts, ";")
}

func decodeTags(s string) map[string]string {
	if s == "" {
		return nil
	}
	tags := make(map[string]string)
	for _, pair := range strings.Split(s, ";") {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			continue
		}
		tags[kv[0]] = kv[1]
	}
	return tags
}

func toRow(t models.Track) trackRow {
	return trackRow{
		ID:         t.ID,
		AlbumID:    t.AlbumID,
		DurationMs: t.DurationMs,
		Artist:     t.Artist,
		Title:      t.Title,
		Path:       t.Path,
		Tags:       encodeTags(t.Tags),
		CreatedAt:  t.CreatedAt,
	}
}

func fromRow(r trackRow) models.Track {
	return models.Track{
		ID:         r.ID,
		AlbumID:    r.AlbumID,
		DurationMs: r.DurationMs,
		Artist:     r.Artist,
		Title:      r.Title,
		Path:       r.Path,
		Tags:       decodeTags(r.Tags),
		CreatedAt:  r.CreatedAt,
	}
}

// InsertTrack persists a new track and returns its assigned id.
func (s *Store) InsertTrack(track models.Track) (uint, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	row := toRow(track)
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if err := s.db.Create(&row).Error; err != nil {
		return 0, xerrors.New(err)
	}
	return row.ID, nil
}

// ReadTrackByID resolves a set of track ids to their rows. Missing ids
// are silently omitted from the result, matching a plain IN-lookup.
func (s *Store) ReadTrackByID(ids []uint) ([]models.Track, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []trackRow
	if err := s.db.Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, xerrors.New(err)
	}
	out := make([]models.Track, len(rows))
	for i, r := range rows {
		out[i] = fromRow(r)
	}
	return out, nil
}

// ReadTracks lists tracks matching an optional artist/title substring
// filter, with pagination.
func (s *Store) ReadTracks(filter models.ListFilter) ([]models.Track, error) {
	q := s.db.Model(&trackRow{})
	if filter.ArtistLike != "" {
		q = q.Where("artist LIKE ?", "%"+filter.ArtistLike+"%")
	}
	if filter.TitleLike != "" {
		q = q.Where("title LIKE ?", "%"+filter.TitleLike+"%")
	}
	q = q.Order("id ASC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var rows []trackRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, xerrors.New(err)
	}
	out := make([]models.Track, len(rows))
	for i, r := range rows {
		out[i] = fromRow(r)
	}
	return out, nil
}

// CountTracks returns the number of indexed tracks.
func (s *Store) CountTracks() (int64, error) {
	var count int64
	if err := s.db.Model(&trackRow{}).Count(&count).Error; err != nil {
		return 0, xerrors.New(err)
	}
	return count, nil
}

// InsertFingerprints persists a track's full fingerprint list in one
// atomic transaction, stamping totalPerTrack to the list's length, and
// returns the rows with their assigned ids filled in (needed by the
// caller to build the corresponding hash-bin rows).
func (s *Store) InsertFingerprints(fps []models.Fingerprint) ([]models.Fingerprint, error) {
	if len(fps) == 0 {
		return nil, nil
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	total := len(fps)
	rows := make([]fingerprintRow, len(fps))
	for i, fp := range fps {
		rows[i] = fingerprintRow{
			TrackID:       fp.TrackID,
			SongOrder:     fp.SongOrder,
			TotalPerTrack: total,
			Signature:     fp.Signature,
		}
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(rows, batchSize).Error
	})
	if err != nil {
		return nil, xerrors.New(err)
	}

	out := make([]models.Fingerprint, len(rows))
	for i, r := range rows {
		out[i] = models.Fingerprint{
			ID:            r.ID,
			TrackID:       r.TrackID,
			SongOrder:     r.SongOrder,
			TotalPerTrack: r.TotalPerTrack,
			Signature:     r.Signature,
		}
	}
	return out, nil
}

// ReadFingerprintsByID resolves fingerprint ids to their rows.
func (s *Store) ReadFingerprintsByID(ids []uint) ([]models.Fingerprint, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []fingerprintRow
	if err := s.db.Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, xerrors.New(err)
	}
	out := make([]models.Fingerprint, len(rows))
	for i, r := range rows {
		out[i] = models.Fingerprint{
			ID: r.ID, TrackID: r.TrackID, SongOrder: r.SongOrder,
			TotalPerTrack: r.TotalPerTrack, Signature: r.Signature,
		}
	}
	return out, nil
}

// InsertHashBins persists a batch of LSH band-key rows atomically.
func (s *Store) InsertHashBins(bins []models.HashBin) error {
	if len(bins) == 0 {
		return nil
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	rows := make([]hashBinRow, len(bins))
	for i, b := range bins {
		rows[i] = hashBinRow{
			Bin: b.Bin, HashTable: b.HashTable,
			TrackID: b.TrackID, FingerprintID: b.FingerprintID,
		}
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(rows, batchSize).Error
	})
	if err != nil {
		return xerrors.New(err)
	}
	return nil
}

// LookupByHashBins returns, for every hash-bin row whose key is among
// bandKeys, the row grouped by fingerprint id. Duplicate keys in the
// input are deduplicated by the SQL IN-list itself.
func (s *Store) LookupByHashBins(bandKeys []int64) (map[uint][]models.HashBin, error) {
	result := make(map[uint][]models.HashBin)
	if len(bandKeys) == 0 {
		return result, nil
	}

	var rows []hashBinRow
	if err := s.db.Where("bin IN ?", bandKeys).Find(&rows).Error; err != nil {
		return nil, xerrors.New(err)
	}
	for _, r := range rows {
		result[r.FingerprintID] = append(result[r.FingerprintID], models.HashBin{
			ID: r.ID, Bin: r.Bin, HashTable: r.HashTable,
			TrackID: r.TrackID, FingerprintID: r.FingerprintID,
		})
	}
	return result, nil
}

// ReadAllHashBins returns every hash-bin row grouped by fingerprint,
// for the searchAll escape hatch. Deliberately unlimited: the source
// this engine is modeled on issued a malformed LIMIT that truncated
// this scan to the size of an unrelated IN-list, which was a bug, not
// a feature — this method scans the whole table.
func (s *Store) ReadAllHashBins() (map[uint][]models.HashBin, error) {
	var rows []hashBinRow
	if err := s.db.Find(&rows).Error; err != nil {
		return nil, xerrors.New(err)
	}
	result := make(map[uint][]models.HashBin, len(rows))
	for _, r := range rows {
		result[r.FingerprintID] = append(result[r.FingerprintID], models.HashBin{
			ID: r.ID, Bin: r.Bin, HashTable: r.HashTable,
			TrackID: r.TrackID, FingerprintID: r.FingerprintID,
		})
	}
	return result, nil
}

// DeleteTrack removes a track and every fingerprint and hash-bin row
// derived from it, in one transaction, so it drops out of both the
// listing and the query candidate set atomically.
func (s *Store) DeleteTrack(id uint) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("track_id = ?", id).Delete(&hashBinRow{}).Error; err != nil {
			return xerrors.New(err)
		}
		if err := tx.Where("track_id = ?", id).Delete(&fingerprintRow{}).Error; err != nil {
			return xerrors.New(err)
		}
		if err := tx.Delete(&trackRow{}, id).Error; err != nil {
			return xerrors.New(err)
		}
		return nil
	})
}

// Reset drops and recreates all three tables, used by ResetDatabase.
func (s *Store) Reset() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Migrator().DropTable(&hashBinRow{}, &fingerprintRow{}, &trackRow{}); err != nil {
			return fmt.Errorf("dropping tables: %w", err)
		}
		if err := tx.AutoMigrate(&trackRow{}, &fingerprintRow{}, &hashBinRow{}); err != nil {
			return fmt.Errorf("recreating tables: %w", err)
		}
		return nil
	})
}
