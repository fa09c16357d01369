package report

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/StockLens/internal/models"
)

type panicSource struct{}

func (panicSource) DownloadReturns(context.Context, string) (*models.ReturnSeries, error) {
	panic("index out of range")
}

func TestCompareResultSuccess(t *testing.T) {
	p := newTestPipeline(t, marketFixture(t), NewFileSink(t.TempDir()))

	out := p.CompareResult(context.Background(), "AAPL", "^DJI")
	assert.Empty(t, out.Error)
	assert.Contains(t, out.HTML, "AAPL")
	assert.NotEmpty(t, out.ReportPath)
	assert.True(t, strings.HasSuffix(out.Snapshot, SnapshotFile))
	assert.True(t, strings.HasSuffix(out.YearlyReturns, YearlyFile))
}

func TestCompareResultErrorNamesSymbol(t *testing.T) {
	p := newTestPipeline(t, marketFixture(t), NewFileSink(t.TempDir()))

	out := p.CompareResult(context.Background(), "ZZZZ", "^DJI")
	assert.Empty(t, out.HTML)
	assert.Contains(t, out.Error, "ZZZZ")

	raw, err := json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Error":"`+out.Error+`"}`, string(raw))
}

func TestCompareResultRecoversPanics(t *testing.T) {
	p := NewPipeline(panicSource{}, &fakeRenderer{}, MemorySink{}, Options{})

	var out models.CompareOutput
	require.NotPanics(t, func() { out = p.CompareResult(context.Background(), "AAPL", "^DJI") })
	assert.Contains(t, out.Error, "AAPL")
	assert.Contains(t, out.Error, "internal error")
}

func TestSnapshotResult(t *testing.T) {
	p := newTestPipeline(t, marketFixture(t), MemorySink{})

	out := p.SnapshotResult(context.Background(), "MSFT")
	assert.Empty(t, out.Error)
	assert.True(t, strings.HasPrefix(out.Image, "data:image/png;base64,"))
	assert.NotEmpty(t, out.Metrics)

	out = p.SnapshotResult(context.Background(), "NOPE")
	assert.Contains(t, out.Error, "NOPE")
	assert.Empty(t, out.Image)
}

func TestErrorMessagePrefixesSymbol(t *testing.T) {
	assert.Equal(t, "AAPL: boom", errorMessage("AAPL", errors.New("boom")))
	assert.Equal(t, "fetch failed for AAPL", errorMessage("AAPL", errors.New("fetch failed for AAPL")))
}
