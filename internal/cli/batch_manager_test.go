package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/StockLens/internal/models"
)

type fakeRunner struct {
	inFlight atomic.Int32
	peak     atomic.Int32
	mu       sync.Mutex
	calls    []string
}

func (f *fakeRunner) Compare(ctx context.Context, symbol, benchmark string) (*models.ComparisonReport, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	f.mu.Lock()
	f.calls = append(f.calls, symbol)
	f.mu.Unlock()

	time.Sleep(5 * time.Millisecond)
	switch symbol {
	case "DEAD":
		return nil, errors.New("fetch: data unavailable for DEAD")
	case "BOOM":
		panic("renderer exploded")
	}
	total := map[string]float64{"AAPL": 1.2, "MSFT": 0.8, "NVDA": 3.4}[symbol]
	return &models.ComparisonReport{
		Symbol:    symbol,
		Benchmark: benchmark,
		Metrics: []models.Metric{
			{Name: "Cumulative Return", Strategy: total, Percent: true},
			{Name: "Sharpe", Strategy: 1},
		},
		ReportPath: "/results/" + symbol + "/performance_report.html",
	}, nil
}

func TestRunBatchRanksAndRecordsFailures(t *testing.T) {
	runner := &fakeRunner{}
	bm := NewBatchManager(runner, 2)
	var updates atomic.Int32
	bm.OnUpdate = func(done, total int) {
		updates.Add(1)
		assert.Equal(t, 5, total)
	}

	progress, err := bm.RunBatch(context.Background(), []string{"MSFT", "DEAD", "NVDA", "BOOM", "AAPL"}, "^GSPC")
	require.NoError(t, err)

	assert.Equal(t, 3, progress.Completed)
	assert.Equal(t, 2, progress.Failed)
	assert.Equal(t, int32(5), updates.Load())
	assert.LessOrEqual(t, runner.peak.Load(), int32(2))

	ranked := progress.Ranked()
	var order []string
	for _, r := range ranked {
		order = append(order, r.Symbol)
	}
	assert.Equal(t, []string{"NVDA", "AAPL", "MSFT", "DEAD", "BOOM"}, order)
	assert.Equal(t, BatchFailed, ranked[4].Status)
	assert.Contains(t, ranked[4].Error, "internal error")
	assert.Contains(t, ranked[3].Error, "data unavailable")
}

func TestRunBatchValidatesInput(t *testing.T) {
	bm := NewBatchManager(&fakeRunner{}, 0)
	assert.Equal(t, defaultConcurrency, bm.concurrency)

	_, err := bm.RunBatch(context.Background(), nil, "^GSPC")
	assert.Error(t, err)
	_, err = bm.RunBatch(context.Background(), []string{"AAPL"}, " ")
	assert.Error(t, err)
}

func TestRunBatchHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	progress, err := NewBatchManager(&fakeRunner{}, 1).RunBatch(ctx, []string{"AAPL"}, "^GSPC")
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotNil(t, progress)
}

func TestLoadSymbolsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watchlist.txt")
	require.NoError(t, os.WriteFile(path, []byte("AAPL\n# tech\n\n msft \n^GSPC\n"), 0o644))

	symbols, err := LoadSymbolsFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "msft", "^GSPC"}, symbols)

	empty := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte("# nothing\n"), 0o644))
	_, err = LoadSymbolsFromFile(empty)
	assert.Error(t, err)
}

func TestDedupeSymbols(t *testing.T) {
	assert.Equal(t, []string{"AAPL", "MSFT"}, dedupeSymbols([]string{"AAPL", " ", "aapl", "MSFT", "AAPL"}))
}

func TestBatchCommand(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.run(t, "batch", "^GSPC", "AAPL", "NVDA")
	require.NoError(t, err)
	assert.Contains(t, out, "BATCH COMPARISON vs ^GSPC")
	assert.Contains(t, out, "340.00%")

	_, err = env.run(t, "batch", "^GSPC", "DEAD")
	assert.ErrorContains(t, err, "all 1 comparisons failed")
}
