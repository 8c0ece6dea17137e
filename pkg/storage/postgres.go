package storage

import (
	"github.com/mdobak/go-xerrors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewPostgres opens a Postgres-backed Store from a DSN, the
// alternative index-store backend for deployments that already run a
// Postgres instance rather than shipping a local SQLite file.
func NewPostgres(dsn string) (*Store, error) {
	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}
	store, err := open(postgres.Open(dsn), gormCfg)
	if err != nil {
		return nil, xerrors.New(err)
	}
	return store, nil
}
