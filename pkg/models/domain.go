// Package models defines the persistent shapes shared across the
// fingerprinting core: the track catalog, its fingerprints, and the
// LSH hash-bin rows that index them.
package models

import "time"

// Track is a single indexed audio file. The engine never mutates a
// Track after insert; a track is removed, together with its
// fingerprints and hash bins, by the store's DeleteTrack.
type Track struct {
	ID         uint
	AlbumID    *uint
	DurationMs int
	Artist     string
	Title      string
	Path       string
	Tags       map[string]string
	CreatedAt  time.Time
}

// Fingerprint is one F-bit perceptual signature belonging to a Track.
// SongOrder is its 0-based position among the track's fingerprints;
// TotalPerTrack is the count stamped at insert time and is advisory
// only — it is never re-derived after the batch that created it.
type Fingerprint struct {
	ID            uint
	TrackID       uint
	SongOrder     int
	TotalPerTrack int
	Signature     []byte // one byte per bit, each 0 or 1
}

// HashBin is one LSH band-key row: it records that Fingerprint's
// band-th group of MinHash signature elements hashed to Bin.
type HashBin struct {
	ID            uint
	Bin           int64
	HashTable     int
	TrackID       uint
	FingerprintID uint
}

// QueryStats accumulates the evidence gathered for one candidate track
// while a query is scored. During aggregation its totals, count and
// Similarity only grow and MinHammingDistance only shrinks; ranking
// treats it as immutable once produced.
type QueryStats struct {
	TrackID           uint
	TotalTableVotes   int
	HammingDistance   float64
	MinHammingDistance float64
	CandidateCount    int
	Similarity        float64
}

// OrderingValue is the composite score used to rank tracks: lower is
// a better match. Alpha is the blend constant from spec §4.8 and is a
// configurable, not a hardcoded, constant.
func (q QueryStats) OrderingValue(alpha float64) float64 {
	if q.TotalTableVotes == 0 {
		return q.HammingDistance + alpha*q.MinHammingDistance
	}
	return q.HammingDistance/float64(q.TotalTableVotes) + alpha*q.MinHammingDistance
}

// MatchResult is a single ranked query result joined with track
// metadata for presentation to a caller.
type MatchResult struct {
	Track      Track
	Stats      QueryStats
	Ordering   float64
}

// ListFilter narrows ListTracks results by substring match on artist
// or title, with simple pagination.
type ListFilter struct {
	ArtistLike string
	TitleLike  string
	Offset     int
	Limit      int
}
