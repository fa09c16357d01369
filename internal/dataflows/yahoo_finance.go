package dataflows

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/shopspring/decimal"

	"github.com/dyike/StockLens/config"
	"github.com/dyike/StockLens/internal/models"
)

var historyStart = time.Date(1970, 1, 2, 0, 0, 0, 0, time.UTC)

// PriceBar is one daily close as delivered by a chart provider.
type PriceBar struct {
	Timestamp int64
	Close     decimal.Decimal
	AdjClose  decimal.Decimal
}

// ChartFetcher downloads daily bars between start and end. gmtOffset is the
// exchange offset in seconds used to map timestamps to trading days.
type ChartFetcher func(symbol string, start, end time.Time) (bars []PriceBar, gmtOffset int, err error)

// YahooFinanceClient handles Yahoo Finance data operations
type YahooFinanceClient struct {
	fetch   ChartFetcher
	timeout time.Duration
	retry   *RetryConfig
	now     func() time.Time
	debug   bool
}

// NewYahooFinanceClient creates a new Yahoo Finance client
func NewYahooFinanceClient(cfg *config.Config) *YahooFinanceClient {
	return &YahooFinanceClient{
		fetch:   fetchYahooChart,
		timeout: cfg.FetchTimeout,
		retry:   DefaultRetryConfig(),
		now:     time.Now,
		debug:   cfg.Debug,
	}
}

// WithFetcher swaps the chart download, mainly for tests.
func (yf *YahooFinanceClient) WithFetcher(fetch ChartFetcher) *YahooFinanceClient {
	yf.fetch = fetch
	return yf
}

// WithRetryConfig overrides the retry policy.
func (yf *YahooFinanceClient) WithRetryConfig(retry *RetryConfig) *YahooFinanceClient {
	yf.retry = retry
	return yf
}

func fetchYahooChart(symbol string, start, end time.Time) ([]PriceBar, int, error) {
	params := &chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	}

	iter := chart.Get(params)

	bars := make([]PriceBar, 0, 1024)
	for iter.Next() {
		bar := iter.Bar()
		bars = append(bars, PriceBar{
			Timestamp: int64(bar.Timestamp),
			Close:     bar.Close,
			AdjClose:  bar.AdjClose,
		})
	}
	if err := iter.Err(); err != nil {
		return nil, 0, err
	}

	return bars, iter.Meta().Gmtoffset, nil
}

// DownloadReturns fetches the full daily history of symbol and converts
// adjusted closes to daily percentage returns. A network failure is retried
// once; missing data is not.
func (yf *YahooFinanceClient) DownloadReturns(ctx context.Context, symbol string) (*models.ReturnSeries, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, models.NewDataUnavailable(symbol, err)
	}

	var series *models.ReturnSeries
	err := WithRetry(ctx, yf.retry, func(ctx context.Context) error {
		s, err := yf.download(ctx, symbol)
		if err != nil {
			if IsNetworkError(err) {
				log.Printf("[YahooFinance] fetch %s failed: %v", symbol, err)
			}
			return err
		}
		series = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return series, nil
}

type chartResult struct {
	bars   []PriceBar
	offset int
	err    error
}

func (yf *YahooFinanceClient) download(ctx context.Context, symbol string) (*models.ReturnSeries, error) {
	if yf.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, yf.timeout)
		defer cancel()
	}

	// The chart client has no context hook, so the call runs in its own
	// goroutine and is abandoned when ctx ends.
	done := make(chan chartResult, 1)
	go func() {
		bars, offset, err := yf.fetch(symbol, historyStart, yf.now())
		done <- chartResult{bars: bars, offset: offset, err: err}
	}()

	var res chartResult
	select {
	case <-ctx.Done():
		return nil, models.NewNetworkError(symbol, fmt.Errorf("fetch aborted: %w", ctx.Err()))
	case res = <-done:
	}

	if res.err != nil {
		return nil, classifyFetchError(symbol, res.err)
	}
	if yf.debug {
		log.Printf("[YahooFinance] %s: %d bars", symbol, len(res.bars))
	}

	points := barsToReturns(res.bars, res.offset)
	if len(points) == 0 {
		return nil, models.NewDataUnavailable(symbol, fmt.Errorf("no price history"))
	}
	return models.NewReturnSeries(symbol, points)
}

// barsToReturns computes close-to-close returns, preferring the adjusted close.
// Bars without a positive price are skipped, and the first usable bar only
// seeds the previous price.
func barsToReturns(bars []PriceBar, gmtOffset int) []models.Point {
	one := decimal.NewFromInt(1)
	points := make([]models.Point, 0, len(bars))
	seen := make(map[time.Time]bool, len(bars))

	var prev decimal.Decimal
	for _, bar := range bars {
		price := bar.AdjClose
		if !price.IsPositive() {
			price = bar.Close
		}
		if !price.IsPositive() {
			continue
		}
		day := models.Day(time.Unix(bar.Timestamp+int64(gmtOffset), 0).UTC())
		if seen[day] {
			continue
		}
		seen[day] = true

		if prev.IsPositive() {
			ret := price.Div(prev).Sub(one).InexactFloat64()
			points = append(points, models.Point{Date: day, Return: ret})
		}
		prev = price
	}
	return points
}

var notFoundMarkers = []string{"not found", "no data", "delisted", "404", "invalid symbol", "no such"}

// classifyFetchError maps a provider error to DataUnavailable when the remote
// said the symbol has no data, and to NetworkError otherwise.
func classifyFetchError(symbol string, err error) error {
	msg := strings.ToLower(err.Error())
	for _, marker := range notFoundMarkers {
		if strings.Contains(msg, marker) {
			return models.NewDataUnavailable(symbol, err)
		}
	}
	return models.NewNetworkError(symbol, err)
}
