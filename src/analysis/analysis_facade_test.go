package analysis

import (
	"context"
	"errors"
	"testing"

	"cheese-stick/src/helpers"
	"cheese-stick/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memDB struct {
	comp *models.MCompetition
}

func (m *memDB) Initialize() error                              { return nil }
func (m *memDB) LoadCompetition() (*models.MCompetition, error) { return m.comp, nil }
func (m *memDB) SaveCompetition(c *models.MCompetition) error   { m.comp = c; return nil }
func (m *memDB) CleanupOldData(int) error                       { return nil }
func (m *memDB) Close() error                                   { return nil }
func (m *memDB) LoadPriceCache(string) (models.MPriceTable, bool, error) {
	return nil, false, nil
}
func (m *memDB) SavePriceCache(string, models.MPriceTable) error { return nil }

type stubPrices struct {
	table   models.MPriceTable
	err     error
	symbols []string
	end     string
}

func (s *stubPrices) GetPrices(_ context.Context, _ []string, _, end string) (models.MPriceTable, error) {
	s.end = end
	return s.table, s.err
}

func (s *stubPrices) UpdateSymbols(symbols []string) { s.symbols = symbols }

type stubNews struct {
	asked []string
	valid bool
	err   error
}

func (s *stubNews) FetchNews(_ context.Context, symbols []string) ([]models.MNewsItem, error) {
	s.asked = symbols
	return []models.MNewsItem{{Title: "t", Symbol: symbols[0]}}, nil
}

func (s *stubNews) ValidateSymbol(context.Context, string) (bool, error) { return s.valid, s.err }

func newFacade(comp *models.MCompetition, prices *stubPrices, news *stubNews) *PortfolioFacade {
	f := NewPortfolioFacade(&models.MConfig{}, &memDB{comp: comp}, prices, news, nil)
	f.Today = func() string { return "2024-02-05" }
	return f
}

func TestFacadePerformance(t *testing.T) {
	prices := &stubPrices{table: testPrices()}
	f := newFacade(testCompetition(), prices, &stubNews{})

	perf, comp, err := f.Performance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Test", comp.Name)
	assert.Len(t, perf.TradingDays, 3)
	assert.Equal(t, "2024-02-05", prices.end)
}

func TestFacadeWithoutCompetition(t *testing.T) {
	f := newFacade(nil, &stubPrices{}, &stubNews{})

	_, _, err := f.Performance(context.Background())
	assert.ErrorIs(t, err, ErrNoCompetition)

	_, err = f.StockDetails(context.Background())
	assert.ErrorIs(t, err, ErrNoCompetition)
}

func TestFacadeSourceFailure(t *testing.T) {
	f := newFacade(testCompetition(), &stubPrices{err: errors.New("down")}, &stubNews{})

	_, _, err := f.Performance(context.Background())
	var dsErr *helpers.DataSourceError
	assert.ErrorAs(t, err, &dsErr)

	f.Prices = &stubPrices{table: models.MPriceTable{}}
	_, _, err = f.Performance(context.Background())
	assert.ErrorIs(t, err, ErrNoTradingData)
}

func TestFacadePlayerDetailsIndex(t *testing.T) {
	f := newFacade(testCompetition(), &stubPrices{table: testPrices()}, &stubNews{})

	_, err := f.PlayerDetails(context.Background(), 3)
	assert.ErrorIs(t, err, ErrPlayerIndex)

	d, err := f.PlayerDetails(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, "Ann", d.Name)
}

func TestFacadeSaveNormalizes(t *testing.T) {
	prices := &stubPrices{}
	f := newFacade(nil, prices, &stubNews{})

	comp := testCompetition()
	comp.Players[0].Longs = []string{"a", "b", "c", "d", "e"}
	require.NoError(t, f.SaveCompetition(comp))

	stored, err := f.Competition()
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C", "D", "E"}, stored.Players[0].Longs)
	assert.Equal(t, []string{"A", "B", "C", "D", "E", "S"}, prices.symbols)

	bad := testCompetition()
	bad.StartDate = ""
	assert.True(t, helpers.IsValidation(f.SaveCompetition(bad)))
}

func TestFacadeNewsAndValidation(t *testing.T) {
	news := &stubNews{valid: true}
	f := newFacade(testCompetition(), &stubPrices{}, news)

	items, err := f.NewsFor(context.Background(), "aapl, msft,,")
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, news.asked)
	assert.Len(t, items, 1)

	items, err = f.NewsFor(context.Background(), " ")
	require.NoError(t, err)
	assert.Empty(t, items)

	sym, ok := f.ValidateSymbol(context.Background(), "tsla")
	assert.Equal(t, "TSLA", sym)
	assert.True(t, ok)

	news.err = errors.New("boom")
	_, ok = f.ValidateSymbol(context.Background(), "tsla")
	assert.False(t, ok)
}
