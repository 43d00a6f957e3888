package yahoo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"cheese-stick/src/helpers"
	"cheese-stick/src/interfaces"
	"cheese-stick/src/logger"
	"cheese-stick/src/models"

	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"
)

// Default endpoints. Tests point these at an httptest server.
const (
	DefaultChartURL  = "https://query1.finance.yahoo.com/v8/finance/chart/"
	DefaultRSSURL    = "https://feeds.finance.yahoo.com/rss/2.0/headline"
	DefaultSearchURL = "https://query2.finance.yahoo.com/v1/finance/search"

	rssItemsPerSymbol    = 5
	searchItemsPerSymbol = 3
	minRSSItems          = 2
)

type YahooFinanceSource struct {
	Config       *models.MConfig
	SourceConfig models.MSourceConfig
	Network      interfaces.INetworkManager
	Logger       *logger.Logger

	ChartURL  string
	RSSURL    string
	SearchURL string
}

// -----------------------------------------------------------------------------

func (s *YahooFinanceSource) Name() string {
	return s.SourceConfig.Name
}

// -----------------------------------------------------------------------------

func NewYahooFinanceSource(cfg *models.MConfig, sourceCfg models.MSourceConfig, netMgr interfaces.INetworkManager) *YahooFinanceSource {
	return &YahooFinanceSource{
		Config:       cfg,
		SourceConfig: sourceCfg,
		Network:      netMgr,
		Logger:       logger.NewLogger(cfg, "YahooFinanceSource-"+sourceCfg.Name),
		ChartURL:     DefaultChartURL,
		RSSURL:       DefaultRSSURL,
		SearchURL:    DefaultSearchURL,
	}
}

// -----------------------------------------------------------------------------

// FetchDailyCloses fetches adjusted daily closes for every symbol in
// [start, end]. Symbols that fail are logged and left out; the call fails
// only when every symbol failed.
func (s *YahooFinanceSource) FetchDailyCloses(ctx context.Context, symbols []string, start, end string) (models.MPriceTable, error) {
	if len(symbols) == 0 {
		return models.MPriceTable{}, nil
	}

	startT, err := time.Parse(time.DateOnly, start)
	if err != nil {
		return nil, helpers.NewValidationError("invalid start date %q", start)
	}
	endT, err := time.Parse(time.DateOnly, end)
	if err != nil {
		return nil, helpers.NewValidationError("invalid end date %q", end)
	}
	if endT.Before(startT) {
		return nil, helpers.NewValidationError("end date %s is before start date %s", end, start)
	}

	results := models.MPriceTable{}
	var mu sync.Mutex
	var errs []error

	limit := s.Config.Network.ConcurrentRequests
	if limit <= 0 {
		limit = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for _, symbol := range symbols {
		sym := symbol
		g.Go(func() error {
			closes, err := s.fetchSymbolCloses(gctx, sym, startT, endT.AddDate(0, 0, 1))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.Logger.Warning("Error fetching symbol %s: %v", sym, err)
				errs = append(errs, err)
				return nil
			}
			for _, c := range closes {
				results.Set(c.Symbol, c.Date, c.Close)
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.Logger.Info("Fetched daily closes for %d/%d symbols", len(results), len(symbols))

	if len(results) == 0 && len(errs) > 0 {
		return nil, helpers.NewDataSourceError(errs[0], "all %d symbol fetches failed", len(symbols))
	}
	return results, nil
}

// -----------------------------------------------------------------------------

func (s *YahooFinanceSource) fetchSymbolCloses(ctx context.Context, symbol string, from, to time.Time) ([]models.MDailyClose, error) {
	params := map[string]string{
		"interval":       "1d",
		"period1":        strconv.FormatInt(from.Unix(), 10),
		"period2":        strconv.FormatInt(to.Unix(), 10),
		"includePrePost": "false",
		"events":         "div,split",
	}

	respBytes, err := s.Network.Get(ctx, s.ChartURL+url.PathEscape(symbol), params)
	if err != nil {
		return nil, fmt.Errorf("network error for %s: %w", symbol, err)
	}

	return ParseDailyCloses(symbol, respBytes)
}

// -----------------------------------------------------------------------------

type YahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency             string  `json:"currency"`
				Symbol               string  `json:"symbol"`
				ExchangeName         string  `json:"exchangeName"`
				Gmtoffset            int     `json:"gmtoffset"`
				ExchangeTimezoneName string  `json:"exchangeTimezoneName"`
				RegularMarketPrice   float64 `json:"regularMarketPrice"`
				PreviousClose        float64 `json:"previousClose"`
				ChartPreviousClose   float64 `json:"chartPreviousClose"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// -----------------------------------------------------------------------------

// ParseDailyCloses decodes a chart response into dated closes. Adjusted
// closes are preferred; null points are skipped; dates are exchange local.
func ParseDailyCloses(symbol string, data []byte) ([]models.MDailyClose, error) {
	var resp YahooChartResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("json unmarshal failed: %w", err)
	}

	if resp.Chart.Error != nil {
		return nil, helpers.NewValidationError("yahoo api error: %s - %s", resp.Chart.Error.Code, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("no result in response for %s", symbol)
	}

	result := resp.Chart.Result[0]
	if len(result.Timestamp) == 0 {
		return nil, fmt.Errorf("no timestamps in response for %s", symbol)
	}

	var series []*float64
	if adj := result.Indicators.AdjClose; len(adj) > 0 && len(adj[0].AdjClose) == len(result.Timestamp) {
		series = adj[0].AdjClose
	} else if q := result.Indicators.Quote; len(q) > 0 && len(q[0].Close) == len(result.Timestamp) {
		series = q[0].Close
	} else {
		return nil, fmt.Errorf("data alignment error for %s", symbol)
	}

	loc := time.FixedZone("exchange", result.Meta.Gmtoffset)
	if result.Meta.ExchangeTimezoneName != "" {
		if l, err := time.LoadLocation(result.Meta.ExchangeTimezoneName); err == nil {
			loc = l
		}
	}

	byDate := make(map[string]float64, len(series))
	for i, ts := range result.Timestamp {
		if series[i] == nil || *series[i] <= 0 {
			continue
		}
		byDate[time.Unix(ts, 0).In(loc).Format(time.DateOnly)] = *series[i]
	}

	if len(byDate) == 0 {
		return nil, fmt.Errorf("no valid data points for %s", symbol)
	}

	out := make([]models.MDailyClose, 0, len(byDate))
	for date, c := range byDate {
		out = append(out, models.MDailyClose{Symbol: symbol, Date: date, Close: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// -----------------------------------------------------------------------------

// ValidateSymbol reports whether symbol has a current or previous price.
func (s *YahooFinanceSource) ValidateSymbol(ctx context.Context, symbol string) (bool, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return false, nil
	}

	body, err := s.Network.Get(ctx, s.ChartURL+url.PathEscape(symbol), map[string]string{
		"interval": "1d",
		"range":    "5d",
	})
	if err != nil {
		if helpers.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}

	var resp YahooChartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return false, nil
	}
	if resp.Chart.Error != nil || len(resp.Chart.Result) == 0 {
		return false, nil
	}
	meta := resp.Chart.Result[0].Meta
	return meta.RegularMarketPrice > 0 || meta.PreviousClose > 0 || meta.ChartPreviousClose > 0, nil
}

// -----------------------------------------------------------------------------

// FetchNews returns up to limit headlines for symbol from the RSS feed, topped
// up from the search API when the feed has fewer than two items.
func (s *YahooFinanceSource) FetchNews(ctx context.Context, symbol string, limit int) ([]models.MNewsItem, error) {
	if limit <= 0 {
		limit = rssItemsPerSymbol
	}

	items, rssErr := s.fetchRSSNews(ctx, symbol, min(limit, rssItemsPerSymbol))
	if rssErr != nil {
		s.Logger.Warning("RSS error for %s: %v", symbol, rssErr)
	}

	if len(items) < minRSSItems {
		extra, err := s.fetchSearchNews(ctx, symbol)
		if err != nil {
			s.Logger.Warning("Search news error for %s: %v", symbol, err)
			if len(items) == 0 && rssErr != nil {
				return nil, helpers.NewDataSourceError(err, "no news source answered for %s", symbol)
			}
		}
		seen := make(map[string]bool, len(items))
		for _, it := range items {
			seen[it.Title] = true
		}
		for _, it := range extra {
			if !seen[it.Title] {
				seen[it.Title] = true
				items = append(items, it)
			}
		}
	}

	return items, nil
}

// -----------------------------------------------------------------------------

func (s *YahooFinanceSource) fetchRSSNews(ctx context.Context, symbol string, limit int) ([]models.MNewsItem, error) {
	body, err := s.Network.Get(ctx, s.RSSURL, map[string]string{
		"s":      symbol,
		"region": "US",
		"lang":   "en-US",
	})
	if err != nil {
		return nil, err
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse rss: %w", err)
	}

	var items []models.MNewsItem
	for _, it := range feed.Items {
		if len(items) >= limit {
			break
		}
		if strings.TrimSpace(it.Title) == "" {
			continue
		}
		published := time.Now().Unix()
		if it.PublishedParsed != nil {
			published = it.PublishedParsed.Unix()
		}
		items = append(items, models.MNewsItem{
			Symbol:    symbol,
			Title:     it.Title,
			Publisher: "Yahoo Finance",
			Link:      it.Link,
			Published: published,
		})
	}
	return items, nil
}

// -----------------------------------------------------------------------------

type searchResponse struct {
	News []struct {
		Title               string `json:"title"`
		Publisher           string `json:"publisher"`
		Link                string `json:"link"`
		ProviderPublishTime int64  `json:"providerPublishTime"`
	} `json:"news"`
}

func (s *YahooFinanceSource) fetchSearchNews(ctx context.Context, symbol string) ([]models.MNewsItem, error) {
	body, err := s.Network.Get(ctx, s.SearchURL, map[string]string{
		"q":           symbol,
		"newsCount":   strconv.Itoa(searchItemsPerSymbol),
		"quotesCount": "0",
	})
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("json unmarshal failed: %w", err)
	}

	var items []models.MNewsItem
	for _, n := range resp.News {
		if len(items) >= searchItemsPerSymbol {
			break
		}
		if n.Title == "" {
			continue
		}
		publisher := n.Publisher
		if publisher == "" {
			publisher = "Unknown"
		}
		items = append(items, models.MNewsItem{
			Symbol:    symbol,
			Title:     n.Title,
			Publisher: publisher,
			Link:      n.Link,
			Published: n.ProviderPublishTime,
		})
	}
	return items, nil
}
