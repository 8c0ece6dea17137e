package wavesketch

import "github.com/wavesketch/wavesketch/pkg/storage"

// NewSQLiteStorage opens the default pure-Go SQLite-backed Storage.
// *storage.Store already satisfies the Storage interface directly; this
// constructor exists so callers of the facade never need to import
// pkg/storage themselves.
func NewSQLiteStorage(dbPath string) (Storage, error) {
	return storage.NewSQLite(dbPath)
}

// NewPostgresStorage opens a Postgres-backed Storage from a DSN.
func NewPostgresStorage(dsn string) (Storage, error) {
	return storage.NewPostgres(dsn)
}
