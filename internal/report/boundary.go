package report

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/dyike/StockLens/internal/models"
)

// errorMessage makes sure the caller-visible message names the symbol.
func errorMessage(symbol string, err error) string {
	msg := err.Error()
	if symbol != "" && !strings.Contains(msg, symbol) {
		msg = symbol + ": " + msg
	}
	return msg
}

func recoverInto(symbol string, errOut *string) {
	if r := recover(); r != nil {
		log.Printf("[Pipeline] panic while building report for %s: %v", symbol, r)
		*errOut = errorMessage(symbol, fmt.Errorf("internal error: %v", r))
	}
}

// CompareResult runs Compare and converts every failure, including panics,
// into the Error field of the output. It never returns a Go error.
func (p *Pipeline) CompareResult(ctx context.Context, symbol, benchmark string) (out models.CompareOutput) {
	defer recoverInto(symbol, &out.Error)

	report, err := p.Compare(ctx, symbol, benchmark)
	if err != nil {
		log.Printf("[Pipeline] compare %s vs %s failed: %v", symbol, benchmark, err)
		return models.CompareOutput{Error: errorMessage(strings.TrimSpace(symbol), err)}
	}
	return models.CompareOutput{
		HTML:          report.HTML,
		ReportPath:    report.ReportPath,
		Snapshot:      Location(report.SnapshotImage),
		YearlyReturns: Location(report.YearlyImage),
	}
}

// SnapshotResult is the boundary form of Snapshot.
func (p *Pipeline) SnapshotResult(ctx context.Context, symbol string) (out models.SnapshotOutput) {
	defer recoverInto(symbol, &out.Error)

	report, err := p.Snapshot(ctx, symbol)
	if err != nil {
		log.Printf("[Pipeline] snapshot %s failed: %v", symbol, err)
		return models.SnapshotOutput{Error: errorMessage(strings.TrimSpace(symbol), err)}
	}
	return models.SnapshotOutput{
		Image:   Location(report.Image),
		Metrics: report.Metrics,
	}
}
