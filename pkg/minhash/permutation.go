// Package minhash computes fixed-length MinHash signatures over binary
// fingerprints and groups them into LSH band keys.
package minhash

import (
	"bufio"
	"fmt"
	"io"
	"math/rand"
	"strconv"
	"strings"
)

// Table is the K×F permutation matrix: Table[p] is a permutation of
// [0, F) used by the p-th MinHash function. It is process-wide
// read-only state once loaded.
type Table [][]int

// Generate produces a fresh K×F permutation table. When seed is
// non-zero the table is fully reproducible; a zero seed draws from an
// unseeded source, adequate here since these are LSH hash families,
// not secrets.
func Generate(k, f int, seed int64) Table {
	src := rand.NewSource(seed)
	if seed == 0 {
		src = rand.NewSource(rand.Int63())
	}
	rng := rand.New(src)

	table := make(Table, k)
	for p := 0; p < k; p++ {
		perm := rng.Perm(f)
		table[p] = perm
	}
	return table
}

// F returns the permutation width, i.e. the fingerprint bit length
// this table was generated for.
func (t Table) F() int {
	if len(t) == 0 {
		return 0
	}
	return len(t[0])
}

// K returns the number of permutations, i.e. the MinHash signature
// length this table produces.
func (t Table) K() int {
	return len(t)
}

// Write serializes the table as one line of space-separated integers
// per permutation, the row-per-line text format of the permutation file.
func Write(w io.Writer, t Table) error {
	bw := bufio.NewWriter(w)
	for _, row := range t {
		parts := make([]string, len(row))
		for i, v := range row {
			parts[i] = strconv.Itoa(v)
		}
		if _, err := fmt.Fprintln(bw, strings.Join(parts, " ")); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Read parses a permutation table previously written by Write.
func Read(r io.Reader) (Table, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	var table Table
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		row := make([]int, len(fields))
		for i, f := range fields {
			v, err := strconv.Atoi(f)
			if err != nil {
				return nil, fmt.Errorf("minhash: parsing permutation row: %w", err)
			}
			row[i] = v
		}
		table = append(table, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return table, nil
}
