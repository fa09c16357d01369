package report

import (
	"time"

	"github.com/dyike/StockLens/internal/models"
)

// AlignedPair holds two return series restricted to the dates they share.
// Primary[i] and Benchmark[i] belong to Dates[i].
type AlignedPair struct {
	Symbol    string
	Benchmark string
	Dates     []time.Time
	Primary   []float64
	Bench     []float64
}

func (a *AlignedPair) Len() int { return len(a.Dates) }

// Align inner-joins primary and benchmark on calendar date and keeps the
// primary's order. An empty intersection is a NoOverlap error.
func Align(primary, benchmark *models.ReturnSeries) (*AlignedPair, error) {
	byDate := make(map[time.Time]float64, benchmark.Len())
	for i := 0; i < benchmark.Len(); i++ {
		p := benchmark.At(i)
		byDate[p.Date] = p.Return
	}

	pair := &AlignedPair{Symbol: primary.Symbol(), Benchmark: benchmark.Symbol()}
	for i := 0; i < primary.Len(); i++ {
		p := primary.At(i)
		b, ok := byDate[p.Date]
		if !ok {
			continue
		}
		pair.Dates = append(pair.Dates, p.Date)
		pair.Primary = append(pair.Primary, p.Return)
		pair.Bench = append(pair.Bench, b)
	}

	if pair.Len() == 0 {
		return nil, models.NewNoOverlap(primary.Symbol(), benchmark.Symbol())
	}
	return pair, nil
}
