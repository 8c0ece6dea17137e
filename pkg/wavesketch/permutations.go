package wavesketch

import (
	"os"

	"github.com/wavesketch/wavesketch/pkg/minhash"
)

// loadOrCreatePermutations loads the permutation table at
// cfg.PermutationPath if that file exists; when no such file exists it
// generates a fresh table and persists it (when a path is configured).
// Regenerating invalidates all stored signatures, so an on-disk table
// whose K or F differs from the configuration is treated as
// SchemaMismatch rather than silently overwritten.
func loadOrCreatePermutations(cfg *Config) (minhash.Table, error) {
	k := cfg.HashTables * cfg.HashKeysPerTable
	f := cfg.fingerprintLen()

	if cfg.PermutationPath != "" {
		if file, err := os.Open(cfg.PermutationPath); err == nil {
			defer file.Close()
			table, err := minhash.Read(file)
			if err != nil {
				return nil, newError(StoreRead, "reading permutation table", err)
			}
			if table.K() != k || table.F() != f {
				return nil, newError(SchemaMismatch, "permutation table does not match configured hashTables*hashKeysPerTable or fingerprint length", nil)
			}
			return table, nil
		}
	}

	table := minhash.Generate(k, f, cfg.PermutationSeed)
	if cfg.PermutationPath != "" {
		file, err := os.Create(cfg.PermutationPath)
		if err != nil {
			return nil, newError(StoreWrite, "creating permutation file", err)
		}
		defer file.Close()
		if err := minhash.Write(file, table); err != nil {
			return nil, newError(StoreWrite, "writing permutation table", err)
		}
	}
	return table, nil
}
