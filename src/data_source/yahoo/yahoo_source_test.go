package yahoo

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"cheese-stick/src/helpers"
	"cheese-stick/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubNetwork struct {
	mu        sync.Mutex
	responses map[string]string
	calls     []string
}

func (n *stubNetwork) Get(_ context.Context, url string, params map[string]string) ([]byte, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, url)
	for prefix, body := range n.responses {
		if strings.HasPrefix(url, prefix) {
			return []byte(body), nil
		}
	}
	return nil, helpers.NewNotFoundError("%s", url)
}

func newSource(net *stubNetwork) *YahooFinanceSource {
	cfg := &models.MConfig{}
	cfg.Network.ConcurrentRequests = 2
	s := NewYahooFinanceSource(cfg, models.MSourceConfig{Name: "yahoo", Type: "yahoo"}, net)
	s.ChartURL = "chart/"
	s.RSSURL = "rss"
	s.SearchURL = "search"
	return s
}

// 2024-01-02 and 2024-01-03 14:30 UTC, New York session.
const chartAAPL = `{"chart":{"result":[{"meta":{"symbol":"AAPL","gmtoffset":-18000,"exchangeTimezoneName":"America/New_York","regularMarketPrice":190.5},
"timestamp":[1704205800,1704292200,1704378600],
"indicators":{"quote":[{"close":[185.0,184.0,null]}],"adjclose":[{"adjclose":[184.5,183.5,null]}]}}],"error":null}}`

const chartError = `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`

func TestParseDailyClosesPrefersAdjusted(t *testing.T) {
	closes, err := ParseDailyCloses("AAPL", []byte(chartAAPL))
	require.NoError(t, err)
	require.Len(t, closes, 2)
	assert.Equal(t, models.MDailyClose{Symbol: "AAPL", Date: "2024-01-02", Close: 184.5}, closes[0])
	assert.Equal(t, "2024-01-03", closes[1].Date)
}

func TestParseDailyClosesAPIError(t *testing.T) {
	_, err := ParseDailyCloses("ZZZZ", []byte(chartError))
	require.Error(t, err)
	assert.True(t, helpers.IsValidation(err))
}

func TestFetchDailyClosesPartialFailure(t *testing.T) {
	net := &stubNetwork{responses: map[string]string{"chart/AAPL": chartAAPL}}
	table, err := newSource(net).FetchDailyCloses(context.Background(), []string{"AAPL", "MISSING"}, "2024-01-01", "2024-01-05")
	require.NoError(t, err)

	v, ok := table.Lookup("AAPL", "2024-01-03")
	assert.True(t, ok)
	assert.Equal(t, 183.5, v)
	_, ok = table["MISSING"]
	assert.False(t, ok)
}

func TestFetchDailyClosesAllFail(t *testing.T) {
	net := &stubNetwork{responses: map[string]string{}}
	_, err := newSource(net).FetchDailyCloses(context.Background(), []string{"X", "Y"}, "2024-01-01", "2024-01-05")
	var dsErr *helpers.DataSourceError
	assert.True(t, errors.As(err, &dsErr))
}

func TestFetchDailyClosesRejectsBadRange(t *testing.T) {
	_, err := newSource(&stubNetwork{}).FetchDailyCloses(context.Background(), []string{"AAPL"}, "2024-02-01", "2024-01-01")
	assert.True(t, helpers.IsValidation(err))
}

func TestValidateSymbol(t *testing.T) {
	net := &stubNetwork{responses: map[string]string{"chart/AAPL": chartAAPL, "chart/BAD": chartError}}
	s := newSource(net)

	ok, err := s.ValidateSymbol(context.Background(), "aapl")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.ValidateSymbol(context.Background(), "BAD")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.ValidateSymbol(context.Background(), "NOPE")
	require.NoError(t, err)
	assert.False(t, ok)
}

const rssOne = `<?xml version="1.0"?><rss version="2.0"><channel><title>x</title>
<item><title>Apple beats estimates</title><link>https://example.com/a</link><pubDate>Tue, 02 Jan 2024 15:00:00 +0000</pubDate></item>
</channel></rss>`

const searchNews = `{"news":[
{"title":"Apple beats estimates","publisher":"Reuters","link":"https://example.com/dup","providerPublishTime":1704207600},
{"title":"Apple unveils product","publisher":"","link":"https://example.com/b","providerPublishTime":1704300000}]}`

func TestFetchNewsFallsBackToSearch(t *testing.T) {
	net := &stubNetwork{responses: map[string]string{"rss": rssOne, "search": searchNews}}
	items, err := newSource(net).FetchNews(context.Background(), "AAPL", 5)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "Apple beats estimates", items[0].Title)
	assert.Equal(t, "Yahoo Finance", items[0].Publisher)
	assert.Equal(t, int64(1704207600), items[0].Published)
	assert.Equal(t, "Unknown", items[1].Publisher)
}
