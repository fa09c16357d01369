package dataflows

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/StockLens/config"
	"github.com/dyike/StockLens/internal/models"
)

func TestCacheManagerRoundTrip(t *testing.T) {
	cm := NewCacheManager(t.TempDir(), time.Hour, true)

	type payload struct{ N int }
	require.NoError(t, cm.Set("yahoo", "returns", "AAPL", payload{N: 7}))

	var got payload
	assert.True(t, cm.Get("yahoo", "returns", "AAPL", &got))
	assert.Equal(t, 7, got.N)
	assert.False(t, cm.Get("yahoo", "returns", "MSFT", &got))
}

func TestCacheManagerExpires(t *testing.T) {
	dir := t.TempDir()
	cm := NewCacheManager(dir, time.Minute, true)
	require.NoError(t, cm.Set("yahoo", "returns", "AAPL", 1))

	path := filepath.Join(dir, cm.getCacheKey("yahoo", "returns", "AAPL"))
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))

	var v int
	assert.False(t, cm.Get("yahoo", "returns", "AAPL", &v))
	assert.NoFileExists(t, path)
}

func TestCacheManagerDisabled(t *testing.T) {
	dir := t.TempDir()
	cm := NewCacheManager(dir, time.Hour, false)
	require.NoError(t, cm.Set("yahoo", "returns", "AAPL", 1))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWithRetryStopsOnNonRetryable(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), fastRetry(), func(context.Context) error {
		calls++
		return models.NewDataUnavailable("X", nil)
	})
	assert.ErrorIs(t, err, models.ErrDataUnavailable)
	assert.Equal(t, 1, calls)
}

func TestWithRetryGivesUpAfterMax(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), fastRetry(), func(context.Context) error {
		calls++
		return models.NewNetworkError("X", errors.New("reset"))
	})
	assert.ErrorIs(t, err, models.ErrNetwork)
	assert.Equal(t, 2, calls, "one attempt plus one retry")
}

func TestWithRetryHonoursContext(t *testing.T) {
	cfg := DefaultRetryConfig()
	cfg.BaseDelay = time.Hour
	cfg.MaxDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := WithRetry(ctx, cfg, func(context.Context) error {
		calls++
		cancel()
		return models.NewNetworkError("X", errors.New("reset"))
	})
	assert.ErrorIs(t, err, models.ErrNetwork)
	assert.Equal(t, 1, calls)
}

type countingSource struct {
	calls  atomic.Int32
	series *models.ReturnSeries
	err    error
}

func (c *countingSource) DownloadReturns(context.Context, string) (*models.ReturnSeries, error) {
	c.calls.Add(1)
	return c.series, c.err
}

func TestCachedSourceServesRepeatFromCache(t *testing.T) {
	d := func(s string) time.Time { v, _ := time.Parse(time.DateOnly, s); return v }
	series, err := models.NewReturnSeries("AAPL", []models.Point{
		{Date: d("2024-01-02"), Return: 0.01},
		{Date: d("2024-01-03"), Return: -0.02},
	})
	require.NoError(t, err)

	inner := &countingSource{series: series}
	cached := NewCachedSource("yahoo", inner, NewCacheManager(t.TempDir(), time.Hour, true))

	first, err := cached.DownloadReturns(context.Background(), "AAPL")
	require.NoError(t, err)
	second, err := cached.DownloadReturns(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.Equal(t, int32(1), inner.calls.Load())
	assert.Equal(t, first.Points(), second.Points())
}

func TestCachedSourceDoesNotCacheErrors(t *testing.T) {
	inner := &countingSource{err: models.NewDataUnavailable("ZZZZ", nil)}
	cached := NewCachedSource("yahoo", inner, NewCacheManager(t.TempDir(), time.Hour, true))

	for i := 0; i < 2; i++ {
		_, err := cached.DownloadReturns(context.Background(), "ZZZZ")
		assert.ErrorIs(t, err, models.ErrDataUnavailable)
	}
	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestNewMarketDataSourceSelection(t *testing.T) {
	cfg := testConfig(t)
	cfg.CacheEnabled = false
	cfg.MarketDataProvider = config.ProviderLongport
	cfg.LongportAppKey, cfg.LongportAppSecret, cfg.LongportAccessToken = "", "", ""

	_, isYahoo := NewMarketDataSource(cfg).(*YahooFinanceClient)
	assert.True(t, isYahoo, "longport without credentials falls back to yahoo")

	cfg.LongportAppKey, cfg.LongportAppSecret, cfg.LongportAccessToken = "k", "s", "t"
	_, isLongport := NewMarketDataSource(cfg).(*LongportClient)
	assert.True(t, isLongport)

	cfg.CacheEnabled = true
	_, isCached := NewMarketDataSource(cfg).(*CachedSource)
	assert.True(t, isCached)
}
