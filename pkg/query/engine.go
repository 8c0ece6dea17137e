// Package query implements the similarity query engine (C8): per-band
// candidate lookup, Hamming scoring, and composite-score ranking over
// an index store.
package query

import (
	"context"
	"errors"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/wavesketch/wavesketch/pkg/minhash"
	"github.com/wavesketch/wavesketch/pkg/models"
	"github.com/wavesketch/wavesketch/pkg/utils"
)

// Logger is the narrow logging surface the engine needs for
// per-request diagnostics; a nil Logger disables them.
type Logger interface {
	Debugf(format string, args ...any)
}

// ErrInvalidConfig is returned when a query's threshold or band layout
// is inconsistent with the engine's configuration.
var ErrInvalidConfig = errors.New("query: invalid threshold or band layout")

// Store is the subset of pkg/storage.Store the query engine depends
// on, kept narrow so callers can substitute a test double.
type Store interface {
	LookupByHashBins(bandKeys []int64) (map[uint][]models.HashBin, error)
	ReadAllHashBins() (map[uint][]models.HashBin, error)
	ReadFingerprintsByID(ids []uint) ([]models.Fingerprint, error)
	ReadTrackByID(ids []uint) ([]models.Track, error)
}

// Config controls one query invocation. L and B must match the
// database's indexed band layout.
type Config struct {
	HashTables       int // L
	HashKeysPerTable int // B
	Threshold        int
	SearchAll        bool
	TopCandidates    int
	Alpha            float64

	// ParallelThreshold is the candidate count above which the
	// aggregation step is fanned out across goroutines. Below it, the
	// sequential path runs directly — spinning up an errgroup for a
	// handful of candidates is pure overhead.
	ParallelThreshold int
}

// DefaultConfig matches the typical values named in spec.md section 6.
func DefaultConfig() Config {
	return Config{
		HashTables:        25,
		HashKeysPerTable:  4,
		Threshold:         4,
		TopCandidates:     200,
		Alpha:             0.4,
		ParallelThreshold: 200,
	}
}

func (c Config) validate() error {
	if c.HashTables <= 0 || c.HashKeysPerTable <= 0 {
		return ErrInvalidConfig
	}
	if c.Threshold < 0 || c.Threshold > c.HashTables {
		return ErrInvalidConfig
	}
	return nil
}

// Engine ties a Store and a permutation table together to answer
// similarity queries.
type Engine struct {
	store Store
	table minhash.Table
	cfg   Config
	log   Logger
}

// New constructs a query engine. cfg is validated eagerly: InvalidConfig
// is raised at call entry, never mid-query. log may be nil, in which
// case per-request diagnostics are skipped.
func New(store Store, table minhash.Table, cfg Config, log Logger) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Engine{store: store, table: table, cfg: cfg, log: log}, nil
}

// perQueryEvidence is one query fingerprint's contribution to a
// candidate track, keyed by trackId, before it is merged into the
// running QueryStats map.
type perQueryEvidence struct {
	trackID    uint
	tableVotes int
	hamming    float64
}

// Query scores every stored fingerprint reachable from queryFPs
// against those query fingerprints and returns tracks ordered by
// ascending composite score (best match first), truncated to
// cfg.TopCandidates. ctx is checked between query fingerprints and
// again before the final ranking pass; a cancellation drops all
// partial results.
func (e *Engine) Query(ctx context.Context, queryFPs [][]byte) ([]models.MatchResult, error) {
	if e.log != nil {
		if reqID, ok := utils.RequestIDFromContext(ctx); ok {
			e.log.Debugf("request %s: scoring %d query fingerprint(s) against the index", reqID, len(queryFPs))
		} else {
			e.log.Debugf("scoring %d query fingerprint(s) against the index", len(queryFPs))
		}
	}

	stats := make(map[uint]models.QueryStats)

	for _, q := range queryFPs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		evidence, err := e.evaluateOne(q)
		if err != nil {
			return nil, err
		}
		for _, ev := range evidence {
			merge(stats, ev, len(q))
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return e.rank(stats)
}

// evaluateOne computes the band keys for one query fingerprint,
// gathers candidates, and scores them, parallelizing the per-candidate
// Hamming computation once the candidate count crosses
// ParallelThreshold. The merge into the caller's running stats map
// stays single-threaded and order-independent (associative,
// commutative accumulation), so results are bit-identical whether or
// not this step ran in parallel.
func (e *Engine) evaluateOne(q []byte) ([]perQueryEvidence, error) {
	sig, err := minhash.ComputeSignature(q, e.table)
	if err != nil {
		return nil, err
	}
	bandKeys, err := minhash.GroupToBands(sig, e.cfg.HashTables, e.cfg.HashKeysPerTable)
	if err != nil {
		return nil, err
	}

	var raw map[uint][]models.HashBin
	if e.cfg.SearchAll {
		raw, err = e.store.ReadAllHashBins()
	} else {
		keys := make([]int64, 0, len(bandKeys))
		for _, k := range bandKeys {
			keys = append(keys, k)
		}
		raw, err = e.store.LookupByHashBins(keys)
	}
	if err != nil {
		return nil, err
	}

	fpIDs := make([]uint, 0, len(raw))
	for fpID := range raw {
		fpIDs = append(fpIDs, fpID)
	}
	sort.Slice(fpIDs, func(i, j int) bool { return fpIDs[i] < fpIDs[j] })

	candidates, err := e.store.ReadFingerprintsByID(fpIDs)
	if err != nil {
		return nil, err
	}
	sigByID := make(map[uint]models.Fingerprint, len(candidates))
	for _, c := range candidates {
		sigByID[c.ID] = c
	}

	// A hash-bin row can outlive its fingerprint under concurrent
	// ingestion; ids with no resolvable signature are dropped here so
	// scoreOne never has to guess whether a zero-value Fingerprint
	// means "found but empty" or "not found".
	present := fpIDs[:0]
	for _, id := range fpIDs {
		if _, ok := sigByID[id]; ok {
			present = append(present, id)
		}
	}
	fpIDs = present

	if len(fpIDs) < e.cfg.ParallelThreshold {
		out := make([]perQueryEvidence, 0, len(fpIDs))
		for _, id := range fpIDs {
			if ev, ok := e.scoreOne(raw[id], sigByID[id], bandKeys, q); ok {
				out = append(out, ev)
			}
		}
		return out, nil
	}
	return e.scoreParallel(fpIDs, raw, sigByID, bandKeys, q)
}

// scoreOne evaluates a single candidate fingerprint against the query,
// returning its evidence and whether it survived the threshold filter.
func (e *Engine) scoreOne(rows []models.HashBin, candidate models.Fingerprint, bandKeys map[int]int64, q []byte) (perQueryEvidence, bool) {
	seenBands := make(map[int]bool)
	for _, r := range rows {
		if expected, ok := bandKeys[r.HashTable]; ok && expected == r.Bin {
			seenBands[r.HashTable] = true
		}
	}
	votes := len(seenBands)
	if e.cfg.SearchAll {
		votes = e.cfg.HashTables
	}
	if votes < e.cfg.Threshold {
		return perQueryEvidence{}, false
	}
	return perQueryEvidence{
		trackID:    candidate.TrackID,
		tableVotes: votes,
		hamming:    hammingDistance(candidate.Signature, q),
	}, true
}

// scoreParallel runs scoreOne over contiguous, index-ordered chunks of
// fpIDs concurrently via errgroup, then concatenates each chunk's
// output in original order — a deterministic parallel map, not a
// nondeterministic fan-in.
func (e *Engine) scoreParallel(fpIDs []uint, raw map[uint][]models.HashBin, sigByID map[uint]models.Fingerprint, bandKeys map[int]int64, q []byte) ([]perQueryEvidence, error) {
	const chunks = 8
	chunkSize := (len(fpIDs) + chunks - 1) / chunks
	results := make([][]perQueryEvidence, chunks)

	g := new(errgroup.Group)
	for c := 0; c < chunks; c++ {
		start := c * chunkSize
		if start >= len(fpIDs) {
			break
		}
		end := start + chunkSize
		if end > len(fpIDs) {
			end = len(fpIDs)
		}
		c, start, end := c, start, end
		g.Go(func() error {
			out := make([]perQueryEvidence, 0, end-start)
			for _, id := range fpIDs[start:end] {
				if ev, ok := e.scoreOne(raw[id], sigByID[id], bandKeys, q); ok {
					out = append(out, ev)
				}
			}
			results[c] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, r := range results {
		total += len(r)
	}
	out := make([]perQueryEvidence, 0, total)
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

// merge folds one candidate's evidence into the running per-track
// QueryStats. F is the fingerprint bit length, used to derive
// similarity.
func merge(stats map[uint]models.QueryStats, ev perQueryEvidence, f int) {
	s := stats[ev.trackID]
	s.TrackID = ev.trackID
	s.TotalTableVotes += ev.tableVotes
	s.HammingDistance += ev.hamming
	if s.CandidateCount == 0 || ev.hamming < s.MinHammingDistance {
		s.MinHammingDistance = ev.hamming
	}
	s.CandidateCount++
	if f > 0 {
		sim := 1 - ev.hamming/float64(f)
		if sim > s.Similarity {
			s.Similarity = sim
		}
	}
	stats[ev.trackID] = s
}

// rank orders the accumulated stats and resolves track metadata.
func (e *Engine) rank(stats map[uint]models.QueryStats) ([]models.MatchResult, error) {
	if len(stats) == 0 {
		return nil, nil
	}

	trackIDs := make([]uint, 0, len(stats))
	for id := range stats {
		trackIDs = append(trackIDs, id)
	}
	sort.Slice(trackIDs, func(i, j int) bool {
		si, sj := stats[trackIDs[i]], stats[trackIDs[j]]
		oi, oj := si.OrderingValue(e.cfg.Alpha), sj.OrderingValue(e.cfg.Alpha)
		if oi != oj {
			return oi < oj
		}
		if si.MinHammingDistance != sj.MinHammingDistance {
			return si.MinHammingDistance < sj.MinHammingDistance
		}
		return trackIDs[i] < trackIDs[j]
	})

	if e.cfg.TopCandidates > 0 && len(trackIDs) > e.cfg.TopCandidates {
		trackIDs = trackIDs[:e.cfg.TopCandidates]
	}

	tracks, err := e.store.ReadTrackByID(trackIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]models.Track, len(tracks))
	for _, t := range tracks {
		byID[t.ID] = t
	}

	out := make([]models.MatchResult, 0, len(trackIDs))
	for _, id := range trackIDs {
		track, ok := byID[id]
		if !ok {
			continue
		}
		s := stats[id]
		out = append(out, models.MatchResult{
			Track:    track,
			Stats:    s,
			Ordering: s.OrderingValue(e.cfg.Alpha),
		})
	}
	return out, nil
}

// hammingDistance counts differing bit positions between two
// equal-length fingerprint vectors.
func hammingDistance(a, b []byte) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var d int
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			d++
		}
	}
	d += abs(len(a) - len(b))
	return float64(d)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
