package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cheese-stick/src/helpers"
	"cheese-stick/src/logger"
	"cheese-stick/src/models"

	_ "modernc.org/sqlite"
)

// competitionID is the key of the single competition document.
const competitionID = "main"

// -----------------------------------------------------------------------------

type AsyncSQLiteDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewAsyncSQLiteDB(cfg *models.MConfig, log *logger.Logger) (*AsyncSQLiteDB, error) {
	if cfg.Storage.DBPath == "" {
		return nil, fmt.Errorf("sqlite: empty database path")
	}
	return &AsyncSQLiteDB{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Initialize() error {
	db, err := sql.Open("sqlite", d.Config.Storage.DBPath)
	if err != nil {
		return helpers.NewDatabaseError(err, "open sqlite %s", d.Config.Storage.DBPath)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return helpers.NewDatabaseError(err, "ping sqlite")
	}

	// Single writer; avoids SQLITE_BUSY between the HTTP handlers.
	db.SetMaxOpenConns(1)
	d.DB = db

	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	return d.createTables()
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS competition (
			id TEXT PRIMARY KEY,
			doc TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS price_cache (
			cache_key TEXT PRIMARY KEY,
			doc TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);`,
	}
	for _, q := range queries {
		if _, err := d.DB.Exec(q); err != nil {
			return helpers.NewDatabaseError(err, "create tables")
		}
	}
	d.Logger.Info("SQLite initialized (%s)", d.Config.Storage.DBPath)
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) LoadCompetition() (*models.MCompetition, error) {
	var doc string
	err := d.DB.QueryRow(`SELECT doc FROM competition WHERE id = ?`, competitionID).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, helpers.NewDatabaseError(err, "load competition")
	}
	return decodeCompetition(doc)
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) SaveCompetition(comp *models.MCompetition) error {
	doc, err := json.Marshal(comp)
	if err != nil {
		return err
	}
	_, err = d.DB.Exec(`
		INSERT INTO competition (id, doc, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at
	`, competitionID, string(doc), time.Now().Unix())
	if err != nil {
		return helpers.NewDatabaseError(err, "save competition")
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) LoadPriceCache(key string) (models.MPriceTable, bool, error) {
	var doc string
	err := d.DB.QueryRow(`SELECT doc FROM price_cache WHERE cache_key = ?`, key).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, helpers.NewDatabaseError(err, "load price cache")
	}
	table, err := decodePriceTable(doc)
	if err != nil {
		return nil, false, err
	}
	return table, true, nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) SavePriceCache(key string, table models.MPriceTable) error {
	doc, err := json.Marshal(table)
	if err != nil {
		return err
	}
	_, err = d.DB.Exec(`
		INSERT INTO price_cache (cache_key, doc, created_at) VALUES (?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET doc = excluded.doc, created_at = excluded.created_at
	`, key, string(doc), time.Now().Unix())
	if err != nil {
		return helpers.NewDatabaseError(err, "save price cache")
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) CleanupOldData(keepDays int) error {
	cutoff := time.Now().UTC().AddDate(0, 0, -keepDays).Unix()
	res, err := d.DB.Exec(`DELETE FROM price_cache WHERE created_at < ?`, cutoff)
	if err != nil {
		return helpers.NewDatabaseError(err, "cleanup price cache")
	}
	if n, _ := res.RowsAffected(); n > 0 {
		d.Logger.Info("Removed %d cached price ranges older than %d days", n, keepDays)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}

// -----------------------------------------------------------------------------

func decodeCompetition(doc string) (*models.MCompetition, error) {
	var comp models.MCompetition
	if err := json.Unmarshal([]byte(doc), &comp); err != nil {
		return nil, helpers.NewDatabaseError(err, "decode competition")
	}
	return &comp, nil
}

func decodePriceTable(doc string) (models.MPriceTable, error) {
	table := models.MPriceTable{}
	if err := json.Unmarshal([]byte(doc), &table); err != nil {
		return nil, helpers.NewDatabaseError(err, "decode price cache")
	}
	return table, nil
}
