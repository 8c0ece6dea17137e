//go:build !js && !wasm
// +build !js,!wasm

package storage

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/mdobak/go-xerrors"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/wavesketch/wavesketch/pkg/utils"
)

// DefaultSQLitePath is the file used when no path is configured,
// mirroring the teacher's DefaultDBFile constant.
const DefaultSQLitePath = "wavesketch.sqlite3"

// NewSQLite opens (creating if needed) a pure-Go SQLite-backed Store.
// This is the engine's default backend: no cgo, single binary.
func NewSQLite(path string) (*Store, error) {
	if path == "" {
		path = DefaultSQLitePath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := utils.MakeDir(dir); err != nil {
			return nil, fmt.Errorf("creating sqlite db dir: %w", err)
		}
	}

	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}
	store, err := open(sqlite.Open(path+"?_foreign_keys=on"), gormCfg)
	if err != nil {
		return nil, xerrors.New(err)
	}

	sqlDB, err := store.db.DB()
	if err != nil {
		return nil, xerrors.New(err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return store, nil
}
