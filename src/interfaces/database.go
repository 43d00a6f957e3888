package interfaces

import "cheese-stick/src/models"

// -----------------------------------------------------------------------------
// IDatabase defines the contract for storage operations.
// -----------------------------------------------------------------------------

type IDatabase interface {

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// LoadCompetition returns the stored competition, or nil if none was saved.
	LoadCompetition() (*models.MCompetition, error)

	// SaveCompetition replaces the stored competition.
	SaveCompetition(comp *models.MCompetition) error

	// -----------------------------------------------------------------------------

	// LoadPriceCache returns the cached price table for key.
	LoadPriceCache(key string) (models.MPriceTable, bool, error)

	// SavePriceCache stores table under key, replacing any previous entry.
	SavePriceCache(key string, table models.MPriceTable) error

	// -----------------------------------------------------------------------------

	// CleanupOldData removes cached price tables older than keepDays.
	CleanupOldData(keepDays int) error

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
