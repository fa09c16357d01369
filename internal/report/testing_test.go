package report

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dyike/StockLens/internal/models"
)

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

// makeSeries builds n business-day returns starting at start, following a
// deterministic wave so that every metric has something to chew on.
func makeSeries(t *testing.T, symbol, start string, n int, phase float64) *models.ReturnSeries {
	t.Helper()
	points := make([]models.Point, 0, n)
	d := day(start)
	for len(points) < n {
		if d.Weekday() != time.Saturday && d.Weekday() != time.Sunday {
			i := float64(len(points))
			points = append(points, models.Point{Date: d, Return: 0.0004 + 0.012*math.Sin(i/3+phase)})
		}
		d = d.AddDate(0, 0, 1)
	}
	s, err := models.NewReturnSeries(symbol, points)
	require.NoError(t, err)
	return s
}

type fakeSource struct {
	mu     sync.Mutex
	series map[string]*models.ReturnSeries
	errs   map[string]error
	calls  []string
}

func (f *fakeSource) DownloadReturns(_ context.Context, symbol string) (*models.ReturnSeries, error) {
	f.mu.Lock()
	f.calls = append(f.calls, symbol)
	f.mu.Unlock()

	if err, ok := f.errs[symbol]; ok {
		return nil, err
	}
	if s, ok := f.series[symbol]; ok {
		return s, nil
	}
	return nil, models.NewDataUnavailable(symbol, fmt.Errorf("no price history"))
}

// pngStub is the same for every chart so that embedded images never leak a
// symbol into the HTML.
var pngStub = []byte("\x89PNG\r\n\x1a\n")

type fakeRenderer struct {
	snapshotErr error
}

func (r *fakeRenderer) Snapshot(string, []NamedSeries) ([]byte, error) {
	if r.snapshotErr != nil {
		return nil, r.snapshotErr
	}
	return pngStub, nil
}

func (r *fakeRenderer) YearlyReturns(string, string, string, []models.YearlyReturn) ([]byte, error) {
	return pngStub, nil
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("req-%d", n)
	}
}
