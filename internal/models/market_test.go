package models

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	t, _ := time.Parse(time.DateOnly, s)
	return t
}

func TestNewReturnSeriesSortsAndTruncates(t *testing.T) {
	s, err := NewReturnSeries("AAPL", []Point{
		{Date: date("2024-01-03").Add(14 * time.Hour), Return: 0.02},
		{Date: date("2024-01-02"), Return: 0.01},
	})
	require.NoError(t, err)
	assert.Equal(t, "AAPL", s.Symbol())
	assert.Equal(t, []float64{0.01, 0.02}, s.Values())
	assert.Equal(t, date("2024-01-03"), s.At(1).Date)

	first, last := s.Range()
	assert.Equal(t, date("2024-01-02"), first)
	assert.Equal(t, date("2024-01-03"), last)
}

func TestNewReturnSeriesRejectsBadInput(t *testing.T) {
	_, err := NewReturnSeries("", nil)
	assert.Error(t, err)

	_, err = NewReturnSeries("X", []Point{{Date: date("2024-01-02")}, {Date: date("2024-01-02").Add(time.Hour)}})
	assert.ErrorContains(t, err, "duplicate date")

	_, err = NewReturnSeries("X", []Point{{Date: date("2024-01-02"), Return: math.NaN()}})
	assert.ErrorContains(t, err, "non-finite")
}

func TestReturnSeriesIsImmutable(t *testing.T) {
	in := []Point{{Date: date("2024-01-02"), Return: 0.01}}
	s, err := NewReturnSeries("X", in)
	require.NoError(t, err)

	in[0].Return = 9
	pts := s.Points()
	pts[0].Return = 7
	assert.Equal(t, 0.01, s.At(0).Return)
}

func TestReturnSeriesJSONRoundTrip(t *testing.T) {
	s, err := NewReturnSeries("^DJI", []Point{{Date: date("2024-01-02"), Return: -0.5}})
	require.NoError(t, err)

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var back ReturnSeries
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, s.Symbol(), back.Symbol())
	assert.Equal(t, s.Points(), back.Points())
}

func TestPipelineErrorMatchesKindAndCause(t *testing.T) {
	cause := errors.New("HTTP 404")
	err := NewDataUnavailable("ZZZZ", cause)

	assert.ErrorIs(t, err, ErrDataUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrNetwork)
	assert.Equal(t, "fetch: data unavailable for ZZZZ: HTTP 404", err.Error())

	assert.ErrorIs(t, NewNoOverlap("AAPL", "^DJI"), ErrNoOverlap)
	assert.Contains(t, NewLookupEmpty("Acme").Error(), "Acme")
	assert.Equal(t, "lookup: no matching symbol for Acme", NewErrorResult(NewLookupEmpty("Acme")).Error)
}
