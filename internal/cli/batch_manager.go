package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dyike/StockLens/internal/display"
	"github.com/dyike/StockLens/internal/models"
)

const (
	defaultConcurrency = 3
	maxConcurrency     = 10
)

// CompareRunner builds one comparison report. *report.Pipeline satisfies it.
type CompareRunner interface {
	Compare(ctx context.Context, symbol, benchmark string) (*models.ComparisonReport, error)
}

// BatchManager compares many symbols against one benchmark.
type BatchManager struct {
	runner      CompareRunner
	concurrency int
	// OnUpdate is called after every finished comparison.
	OnUpdate func(done, total int)
}

// BatchStatus represents the status of batch analysis item
type BatchStatus int

const (
	BatchPending BatchStatus = iota
	BatchRunning
	BatchCompleted
	BatchFailed
)

// String returns string representation of BatchStatus
func (bs BatchStatus) String() string {
	switch bs {
	case BatchPending:
		return "⏳ Pending"
	case BatchRunning:
		return "🔄 Running"
	case BatchCompleted:
		return "✅ Completed"
	case BatchFailed:
		return "❌ Failed"
	default:
		return "❓ Unknown"
	}
}

// BatchResult is the outcome of one comparison in a batch.
type BatchResult struct {
	Symbol   string
	Status   BatchStatus
	Error    string
	Duration time.Duration
	Report   *models.ComparisonReport
}

// BatchProgress tracks progress of batch analysis
type BatchProgress struct {
	Benchmark string
	Total     int
	Completed int
	Failed    int
	Results   []BatchResult
	StartTime time.Time
	Elapsed   time.Duration
	mutex     sync.RWMutex
}

func (p *BatchProgress) finished() int {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.Completed + p.Failed
}

func NewBatchManager(runner CompareRunner, concurrency int) *BatchManager {
	if concurrency <= 0 || concurrency > maxConcurrency {
		concurrency = defaultConcurrency
	}
	return &BatchManager{runner: runner, concurrency: concurrency}
}

// RunBatch compares every symbol with benchmark, at most concurrency at a
// time. A failed symbol is recorded and does not stop the others.
func (bm *BatchManager) RunBatch(ctx context.Context, symbols []string, benchmark string) (*BatchProgress, error) {
	if len(symbols) == 0 {
		return nil, errors.New("no symbols provided for batch comparison")
	}
	if strings.TrimSpace(benchmark) == "" {
		return nil, errors.New("a benchmark is required")
	}

	progress := &BatchProgress{
		Benchmark: benchmark,
		Total:     len(symbols),
		Results:   make([]BatchResult, len(symbols)),
		StartTime: time.Now(),
	}
	for i, symbol := range symbols {
		progress.Results[i] = BatchResult{Symbol: symbol, Status: BatchPending}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bm.concurrency)
	for i := range progress.Results {
		g.Go(func() error {
			bm.processOne(gctx, progress, i)
			if bm.OnUpdate != nil {
				bm.OnUpdate(progress.finished(), progress.Total)
			}
			return nil
		})
	}
	_ = g.Wait()

	progress.Elapsed = time.Since(progress.StartTime)
	return progress, ctx.Err()
}

func (bm *BatchManager) processOne(ctx context.Context, progress *BatchProgress, idx int) {
	progress.mutex.Lock()
	progress.Results[idx].Status = BatchRunning
	symbol := progress.Results[idx].Symbol
	progress.mutex.Unlock()

	started := time.Now()
	rep, err := bm.compare(ctx, symbol, progress.Benchmark)

	progress.mutex.Lock()
	defer progress.mutex.Unlock()
	r := &progress.Results[idx]
	r.Duration = time.Since(started)
	if err != nil {
		r.Status = BatchFailed
		r.Error = err.Error()
		progress.Failed++
		return
	}
	r.Status = BatchCompleted
	r.Report = rep
	progress.Completed++
}

func (bm *BatchManager) compare(ctx context.Context, symbol, benchmark string) (rep *models.ComparisonReport, err error) {
	defer func() {
		if r := recover(); r != nil {
			rep, err = nil, fmt.Errorf("%s: internal error: %v", symbol, r)
		}
	}()
	return bm.runner.Compare(ctx, symbol, benchmark)
}

func metricValue(rep *models.ComparisonReport, name string) (models.Metric, bool) {
	if rep == nil {
		return models.Metric{}, false
	}
	for _, m := range rep.Metrics {
		if m.Name == name {
			return m, true
		}
	}
	return models.Metric{}, false
}

// Ranked returns the completed results by cumulative return, best first,
// followed by the failures in input order.
func (p *BatchProgress) Ranked() []BatchResult {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	var ok, failed []BatchResult
	for _, r := range p.Results {
		if r.Status == BatchCompleted {
			ok = append(ok, r)
		} else {
			failed = append(failed, r)
		}
	}
	sort.SliceStable(ok, func(i, j int) bool {
		a, _ := metricValue(ok[i].Report, "Cumulative Return")
		b, _ := metricValue(ok[j].Report, "Cumulative Return")
		return a.Strategy > b.Strategy
	})
	return append(ok, failed...)
}

func formatMetric(rep *models.ComparisonReport, name string) string {
	m, ok := metricValue(rep, name)
	if !ok {
		return "-"
	}
	return display.FormatValue(m.Strategy, m.Percent)
}

// displayBatchSummary prints the ranked batch outcome.
func displayBatchSummary(progress *BatchProgress) {
	DisplayHeader(fmt.Sprintf("BATCH COMPARISON vs %s", progress.Benchmark))

	display.DisplayInfo(fmt.Sprintf("Total Symbols: %d", progress.Total))
	display.DisplaySuccess(fmt.Sprintf("Completed: %d", progress.Completed))
	if progress.Failed > 0 {
		display.DisplayError(fmt.Errorf("failed: %d", progress.Failed), "batch comparison")
	}
	display.DisplayInfo(fmt.Sprintf("Total Time: %s", progress.Elapsed.Round(time.Millisecond)))

	var rows [][]string
	for _, r := range progress.Ranked() {
		row := []string{r.Symbol, r.Status.String(),
			formatMetric(r.Report, "Cumulative Return"),
			formatMetric(r.Report, "Sharpe"),
			formatMetric(r.Report, "Max Drawdown"),
			formatMetric(r.Report, "Beta"),
		}
		note := r.Error
		if r.Report != nil {
			note = r.Report.ReportPath
		}
		rows = append(rows, append(row, note))
	}
	display.DisplayTable("Results", []string{"Symbol", "Status", "Cumulative", "Sharpe", "Max DD", "Beta", "Report / Error"}, rows)
}

// LoadSymbolsFromFile loads symbols from a text file (one symbol per line)
func LoadSymbolsFromFile(filename string) ([]string, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read symbols file: %w", err)
	}

	var symbols []string
	for _, line := range strings.Split(string(data), "\n") {
		symbol := strings.TrimSpace(line)
		if symbol != "" && !strings.HasPrefix(symbol, "#") {
			symbols = append(symbols, symbol)
		}
	}

	if len(symbols) == 0 {
		return nil, fmt.Errorf("no valid symbols found in file: %s", filename)
	}
	return symbols, nil
}

// dedupeSymbols drops blanks and repeated symbols, keeping the first
// occurrence.
func dedupeSymbols(symbols []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range symbols {
		s = strings.TrimSpace(s)
		key := strings.ToUpper(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}
