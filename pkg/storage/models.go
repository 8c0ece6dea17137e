// Package storage persists tracks, fingerprints, and LSH hash-bin rows
// behind a single GORM-backed Store, selectable between a pure-Go
// SQLite backend (the default) and PostgreSQL.
package storage

import "time"

// trackRow is the GORM row shape for a Track. Tags are serialized as
// "k=v;k=v" per the abstract store schema.
type trackRow struct {
	ID         uint `gorm:"primaryKey;autoIncrement"`
	AlbumID    *uint
	DurationMs int
	Artist     string `gorm:"index:idx_track_artist"`
	Title      string `gorm:"index:idx_track_title"`
	Path       string
	Tags       string
	CreatedAt  time.Time
}

func (trackRow) TableName() string { return "tracks" }

// fingerprintRow is the GORM row shape for a Fingerprint. Signature is
// stored one byte per bit, matching the source format by default.
type fingerprintRow struct {
	ID            uint `gorm:"primaryKey;autoIncrement"`
	TrackID       uint `gorm:"index:idx_fingerprint_track"`
	SongOrder     int
	TotalPerTrack int
	Signature     []byte
}

func (fingerprintRow) TableName() string { return "fingerprints" }

// hashBinRow is the GORM row shape for a HashBin. The unique index
// enforces the (fingerprintId, hashTable) invariant from the data
// model; the (bin, hashTable) index is what lookupByHashBins scans.
type hashBinRow struct {
	ID            uint  `gorm:"primaryKey;autoIncrement"`
	Bin           int64 `gorm:"index:idx_hashbin_lookup,priority:1"`
	HashTable     int   `gorm:"index:idx_hashbin_lookup,priority:2;uniqueIndex:idx_hashbin_fp,priority:2"`
	TrackID       uint  `gorm:"index:idx_hashbin_track"`
	FingerprintID uint  `gorm:"uniqueIndex:idx_hashbin_fp,priority:1"`
}

func (hashBinRow) TableName() string { return "hash_bins" }
