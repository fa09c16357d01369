package dataflows

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	lpconfig "github.com/longportapp/openapi-go/config"
	"github.com/longportapp/openapi-go/quote"

	"github.com/dyike/StockLens/config"
	"github.com/dyike/StockLens/internal/models"
)

// maxLongportSticks is the largest candlestick page the quote API returns.
const maxLongportSticks = 1000

// CandleFetcher returns daily bars for a symbol, oldest first.
type CandleFetcher func(ctx context.Context, symbol string, count int) ([]PriceBar, error)

// LongportClient serves return series from Longport daily candlesticks. The
// quote connection is opened on first use.
type LongportClient struct {
	appKey, appSecret, accessToken string

	timeout time.Duration
	retry   *RetryConfig

	mu       sync.Mutex
	quoteCtx *quote.QuoteContext
	fetch    CandleFetcher
}

func NewLongportClient(cfg *config.Config) *LongportClient {
	lpc := &LongportClient{
		appKey:      cfg.LongportAppKey,
		appSecret:   cfg.LongportAppSecret,
		accessToken: cfg.LongportAccessToken,
		timeout:     cfg.FetchTimeout,
		retry:       DefaultRetryConfig(),
	}
	lpc.fetch = lpc.candlesticks
	return lpc
}

// WithFetcher swaps the candlestick download, mainly for tests.
func (lpc *LongportClient) WithFetcher(fetch CandleFetcher) *LongportClient {
	lpc.fetch = fetch
	return lpc
}

func (lpc *LongportClient) quoteContext() (*quote.QuoteContext, error) {
	lpc.mu.Lock()
	defer lpc.mu.Unlock()

	if lpc.quoteCtx != nil {
		return lpc.quoteCtx, nil
	}
	if lpc.appKey == "" || lpc.appSecret == "" || lpc.accessToken == "" {
		return nil, errors.New("longport API credentials not configured")
	}

	conf, err := lpconfig.New(lpconfig.WithConfigKey(lpc.appKey, lpc.appSecret, lpc.accessToken))
	if err != nil {
		return nil, err
	}
	quoteContext, err := quote.NewFromCfg(conf)
	if err != nil {
		return nil, err
	}
	lpc.quoteCtx = quoteContext
	return quoteContext, nil
}

func (lpc *LongportClient) candlesticks(ctx context.Context, symbol string, count int) ([]PriceBar, error) {
	qc, err := lpc.quoteContext()
	if err != nil {
		return nil, err
	}
	sticks, err := qc.Candlesticks(ctx, symbol, quote.PeriodDay, int32(count), quote.AdjustTypeNo)
	if err != nil {
		return nil, err
	}

	bars := make([]PriceBar, 0, len(sticks))
	for _, stick := range sticks {
		if stick == nil || stick.Close == nil {
			continue
		}
		bars = append(bars, PriceBar{
			Timestamp: stick.Timestamp,
			Close:     *stick.Close,
		})
	}
	return bars, nil
}

func (lpc *LongportClient) DownloadReturns(ctx context.Context, symbol string) (*models.ReturnSeries, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, models.NewDataUnavailable(symbol, err)
	}

	var series *models.ReturnSeries
	err := WithRetry(ctx, lpc.retry, func(ctx context.Context) error {
		if lpc.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, lpc.timeout)
			defer cancel()
		}

		bars, err := lpc.fetch(ctx, symbol, maxLongportSticks)
		if err != nil {
			if ctx.Err() != nil {
				return models.NewNetworkError(symbol, fmt.Errorf("fetch aborted: %w", ctx.Err()))
			}
			return classifyFetchError(symbol, err)
		}

		points := barsToReturns(bars, 0)
		if len(points) == 0 {
			return models.NewDataUnavailable(symbol, fmt.Errorf("no candlesticks"))
		}
		s, err := models.NewReturnSeries(symbol, points)
		if err != nil {
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

// Close releases the quote connection if one was opened.
func (lpc *LongportClient) Close() {
	lpc.mu.Lock()
	defer lpc.mu.Unlock()
	if lpc.quoteCtx != nil {
		lpc.quoteCtx.Close()
		lpc.quoteCtx = nil
	}
}
