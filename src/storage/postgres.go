package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"cheese-stick/src/helpers"
	"cheese-stick/src/logger"
	"cheese-stick/src/models"

	_ "github.com/lib/pq"
)

var unsafeSchemaChars = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// -----------------------------------------------------------------------------

type PostgresDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Schema string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

// NewPostgresDB keeps its tables in a schema named after the executable.
func NewPostgresDB(cfg *models.MConfig, log *logger.Logger) (*PostgresDB, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable name: %w", err)
	}
	name := filepath.Base(exe)
	name = strings.TrimSuffix(name, filepath.Ext(name))

	return &PostgresDB{
		Config: cfg,
		Schema: SchemaName(name),
		Logger: log,
	}, nil
}

// SchemaName turns an executable name into a safe schema identifier.
func SchemaName(name string) string {
	s := strings.ToLower(unsafeSchemaChars.ReplaceAllString(name, "_"))
	if s == "" {
		return "cheese_stick"
	}
	return s
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize() error {
	db, err := sql.Open("postgres", d.Config.Storage.DBConnectionString)
	if err != nil {
		return helpers.NewDatabaseError(err, "open postgres")
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return helpers.NewDatabaseError(err, "ping postgres")
	}

	d.DB = db

	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return helpers.NewDatabaseError(err, "create schema %s", d.Schema)
	}

	if err := d.createTables(); err != nil {
		return err
	}

	d.Logger.Info("PostgresDB initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) createTables() error {
	queries := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS "%s"."competition" (
				id TEXT PRIMARY KEY,
				doc JSONB NOT NULL,
				updated_at BIGINT NOT NULL
			);`, d.Schema),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS "%s"."price_cache" (
				cache_key TEXT PRIMARY KEY,
				doc JSONB NOT NULL,
				created_at BIGINT NOT NULL
			);`, d.Schema),
	}
	for _, q := range queries {
		if _, err := d.DB.Exec(q); err != nil {
			return helpers.NewDatabaseError(err, "create tables")
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) LoadCompetition() (*models.MCompetition, error) {
	var doc string
	query := fmt.Sprintf(`SELECT doc FROM "%s"."competition" WHERE id = $1`, d.Schema)
	err := d.DB.QueryRow(query, competitionID).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, helpers.NewDatabaseError(err, "load competition")
	}
	return decodeCompetition(doc)
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) SaveCompetition(comp *models.MCompetition) error {
	doc, err := json.Marshal(comp)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
		INSERT INTO "%s"."competition" (id, doc, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = EXCLUDED.updated_at
	`, d.Schema)
	if _, err := d.DB.Exec(query, competitionID, string(doc), time.Now().Unix()); err != nil {
		return helpers.NewDatabaseError(err, "save competition")
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) LoadPriceCache(key string) (models.MPriceTable, bool, error) {
	var doc string
	query := fmt.Sprintf(`SELECT doc FROM "%s"."price_cache" WHERE cache_key = $1`, d.Schema)
	err := d.DB.QueryRow(query, key).Scan(&doc)
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

func (d *PostgresDB) SavePriceCache(key string, table models.MPriceTable) error {
	doc, err := json.Marshal(table)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
		INSERT INTO "%s"."price_cache" (cache_key, doc, created_at) VALUES ($1, $2, $3)
		ON CONFLICT (cache_key) DO UPDATE SET doc = EXCLUDED.doc, created_at = EXCLUDED.created_at
	`, d.Schema)
	if _, err := d.DB.Exec(query, key, string(doc), time.Now().Unix()); err != nil {
		return helpers.NewDatabaseError(err, "save price cache")
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) CleanupOldData(keepDays int) error {
	cutoff := time.Now().UTC().AddDate(0, 0, -keepDays).Unix()
	query := fmt.Sprintf(`DELETE FROM "%s"."price_cache" WHERE created_at < $1`, d.Schema)
	if _, err := d.DB.Exec(query, cutoff); err != nil {
		return helpers.NewDatabaseError(err, "cleanup price cache")
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
