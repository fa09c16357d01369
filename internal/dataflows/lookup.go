package dataflows

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/dyike/StockLens/config"
	"github.com/dyike/StockLens/internal/models"
)

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// YahooLookup resolves company or index names through the Yahoo Finance
// search endpoint.
type YahooLookup struct {
	client *resty.Client
	url    string
	count  int
}

func NewYahooLookup(cfg *config.Config) *YahooLookup {
	client := resty.New().
		SetTimeout(cfg.FetchTimeout).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json")

	count := cfg.LookupCount
	if count <= 0 {
		count = 10
	}
	return &YahooLookup{client: client, url: cfg.YahooSearchURL, count: count}
}

type yahooSearchResponse struct {
	Quotes []struct {
		Symbol    string `json:"symbol"`
		QuoteType string `json:"quoteType"`
		ShortName string `json:"shortname"`
		Exchange  string `json:"exchange"`
	} `json:"quotes"`
}

func kindMatches(kind SymbolKind, quoteType string) bool {
	switch strings.ToUpper(quoteType) {
	case "INDEX":
		return kind == KindIndex
	case "EQUITY", "ETF":
		return kind == KindStock
	}
	return false
}

// Lookup returns up to count tickers matching query in the order the search
// API ranks them. No match yields an empty slice and a nil error.
func (y *YahooLookup) Lookup(ctx context.Context, query string, kind SymbolKind) ([]string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []string{}, nil
	}

	resp, err := y.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":           query,
			"quotesCount": strconv.Itoa(y.count * 2),
			"newsCount":   "0",
			"listsCount":  "0",
		}).
		Get(y.url)
	if err != nil {
		return nil, models.NewNetworkError(query, err)
	}
	if resp.StatusCode() != 200 {
		return nil, models.NewNetworkError(query, fmt.Errorf("symbol search returned HTTP %d", resp.StatusCode()))
	}

	var body yahooSearchResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, models.NewNetworkError(query, fmt.Errorf("decode symbol search: %w", err))
	}

	symbols := make([]string, 0, y.count)
	for _, q := range body.Quotes {
		if q.Symbol == "" || !kindMatches(kind, q.QuoteType) {
			continue
		}
		symbols = append(symbols, q.Symbol)
		if len(symbols) == y.count {
			break
		}
	}
	return symbols, nil
}
