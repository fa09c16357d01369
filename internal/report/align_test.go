package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/StockLens/internal/models"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		policy SymbolPolicy
		in     string
		want   string
	}{
		{PolicyPassthrough, " TCS.NS ", "TCS.NS"},
		{PolicyPassthrough, "^DJI", "^DJI"},
		{PolicyPassthrough, "aapl", "aapl"},
		{PolicyStripSuffix, "TCS.NS", "TCS"},
		{PolicyStripSuffix, "0700.HK", "0700"},
		{PolicyStripSuffix, "AAPL", "AAPL"},
		{PolicyStripSuffix, "^NSEI", "^NSEI"},
		{PolicyStripSuffix, ".HK", ".HK"},
		{PolicyStripSuffix, "BRK.B", "BRK.B"},
		{PolicyStripSuffix, "BF.A", "BF.A"},
		{PolicyStripSuffix, "700.hk", "700"},
		{PolicyStripSuffix, "VOD.L", "VOD"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.policy, tt.in), "%s(%q)", tt.policy, tt.in)
	}
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyPassthrough, p)

	p, err = ParsePolicy("strip-suffix")
	require.NoError(t, err)
	assert.Equal(t, PolicyStripSuffix, p)

	_, err = ParsePolicy("lowercase")
	assert.Error(t, err)
}

func series3(t *testing.T, symbol string, days ...string) *models.ReturnSeries {
	t.Helper()
	points := make([]models.Point, len(days))
	for i, d := range days {
		points[i] = models.Point{Date: day(d), Return: float64(i+1) / 100}
	}
	s, err := models.NewReturnSeries(symbol, points)
	require.NoError(t, err)
	return s
}

func TestAlignPartialOverlap(t *testing.T) {
	primary := series3(t, "AAPL", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05")
	bench := series3(t, "^DJI", "2024-01-03", "2024-01-05", "2024-01-08")

	pair, err := Align(primary, bench)
	require.NoError(t, err)

	assert.Equal(t, 2, pair.Len())
	assert.Equal(t, day("2024-01-03"), pair.Dates[0])
	assert.Equal(t, day("2024-01-05"), pair.Dates[1])
	assert.Equal(t, []float64{0.02, 0.04}, pair.Primary)
	assert.Equal(t, []float64{0.01, 0.02}, pair.Bench)
	assert.Equal(t, "AAPL", pair.Symbol)
	assert.Equal(t, "^DJI", pair.Benchmark)
}

func TestAlignNoOverlap(t *testing.T) {
	primary := series3(t, "AAPL", "2024-01-02", "2024-01-03")
	bench := series3(t, "^DJI", "2023-01-02", "2023-01-03")

	_, err := Align(primary, bench)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrNoOverlap)
	assert.Contains(t, err.Error(), "AAPL")
	assert.Contains(t, err.Error(), "^DJI")
}
