package storage

import (
	"fmt"

	"cheese-stick/src/interfaces"
	"cheese-stick/src/logger"
	"cheese-stick/src/models"
)

// Open builds and initializes the configured backend.
func Open(cfg *models.MConfig, log *logger.Logger) (interfaces.IDatabase, error) {
	var (
		db  interfaces.IDatabase
		err error
	)
	switch cfg.Storage.DBType {
	case "sqlite":
		db, err = NewAsyncSQLiteDB(cfg, log)
	case "postgres":
		db, err = NewPostgresDB(cfg, log)
	default:
		return nil, fmt.Errorf("unsupported database type: %q", cfg.Storage.DBType)
	}
	if err != nil {
		return nil, err
	}
	if err := db.Initialize(); err != nil {
		return nil, err
	}
	return db, nil
}
