package dataflows

import (
	"context"
	"log"
	"path/filepath"
	"time"

	"github.com/dyike/StockLens/config"
	"github.com/dyike/StockLens/internal/models"
)

// MarketDataSource downloads the full daily return history of one symbol.
type MarketDataSource interface {
	DownloadReturns(ctx context.Context, symbol string) (*models.ReturnSeries, error)
}

// SymbolKind restricts a lookup to stocks or indices.
type SymbolKind string

const (
	KindStock SymbolKind = "stock"
	KindIndex SymbolKind = "index"
)

// ParseSymbolKind maps a tool argument to a kind. Anything but "index" is a stock.
func ParseSymbolKind(s string) SymbolKind {
	if SymbolKind(s) == KindIndex {
		return KindIndex
	}
	return KindStock
}

// SymbolLookup resolves a free-text name to candidate tickers, most relevant first.
type SymbolLookup interface {
	Lookup(ctx context.Context, query string, kind SymbolKind) ([]string, error)
}

// IndicatorRequest names one technical-analysis query.
type IndicatorRequest struct {
	Symbol   string
	Exchange string
	Screener string
	Interval string
}

// IndicatorSource produces the technical-indicator snapshot of a symbol.
type IndicatorSource interface {
	Analyze(ctx context.Context, req IndicatorRequest) (*models.IndicatorSnapshot, error)
}

// NewMarketDataSource picks the configured provider and wraps it with the file
// cache. Longport falls back to Yahoo when its credentials are missing.
func NewMarketDataSource(cfg *config.Config) MarketDataSource {
	var source MarketDataSource
	name := config.ProviderYahoo

	switch cfg.MarketDataProvider {
	case config.ProviderLongport:
		if cfg.HasLongportCredentials() {
			source = NewLongportClient(cfg)
			name = config.ProviderLongport
		} else {
			log.Printf("[DataFlows] Longport credentials missing, falling back to Yahoo Finance")
		}
	}
	if source == nil {
		source = NewYahooFinanceClient(cfg)
	}

	if !cfg.CacheEnabled {
		return source
	}
	cache := NewCacheManager(filepath.Join(cfg.DataCacheDir, name), 12*time.Hour, true)
	return NewCachedSource(name, source, cache)
}

// CachedSource serves return series from the file cache and falls through to
// the wrapped source on a miss.
type CachedSource struct {
	name   string
	source MarketDataSource
	cache  *CacheManager
	now    func() time.Time
}

func NewCachedSource(name string, source MarketDataSource, cache *CacheManager) *CachedSource {
	return &CachedSource{name: name, source: source, cache: cache, now: time.Now}
}

func (c *CachedSource) DownloadReturns(ctx context.Context, symbol string) (*models.ReturnSeries, error) {
	key := map[string]string{
		"symbol": symbol,
		"day":    c.now().UTC().Format(time.DateOnly),
	}

	var cached models.ReturnSeries
	if c.cache.Get(c.name, "returns", key, &cached) {
		return &cached, nil
	}

	series, err := c.source.DownloadReturns(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(c.name, "returns", key, series); err != nil {
		log.Printf("[DataFlows] failed to cache %s returns: %v", symbol, err)
	}
	return series, nil
}
