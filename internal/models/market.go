package models

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"
)

// Point is one periodic return. Return is a fraction: 0.01 is +1%.
type Point struct {
	Date   time.Time `json:"date"`
	Return float64   `json:"return"`
}

// ReturnSeries is an immutable, date-ordered series of returns for one symbol.
type ReturnSeries struct {
	symbol string
	points []Point
}

// Day truncates t to its calendar date in UTC so that series from different
// sources align on the same key.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NewReturnSeries copies points, truncates dates to days, sorts them and
// rejects duplicated dates or non-finite returns.
func NewReturnSeries(symbol string, points []Point) (*ReturnSeries, error) {
	if symbol == "" {
		return nil, fmt.Errorf("return series needs a symbol")
	}
	out := make([]Point, len(points))
	for i, p := range points {
		if math.IsNaN(p.Return) || math.IsInf(p.Return, 0) {
			return nil, fmt.Errorf("%s: non-finite return on %s", symbol, p.Date.Format(time.DateOnly))
		}
		out[i] = Point{Date: Day(p.Date), Return: p.Return}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	for i := 1; i < len(out); i++ {
		if out[i].Date.Equal(out[i-1].Date) {
			return nil, fmt.Errorf("%s: duplicate date %s", symbol, out[i].Date.Format(time.DateOnly))
		}
	}
	return &ReturnSeries{symbol: symbol, points: out}, nil
}

func (s *ReturnSeries) Symbol() string { return s.symbol }

func (s *ReturnSeries) Len() int { return len(s.points) }

// At returns the i-th point.
func (s *ReturnSeries) At(i int) Point { return s.points[i] }

// Points returns a copy of the points.
func (s *ReturnSeries) Points() []Point {
	out := make([]Point, len(s.points))
	copy(out, s.points)
	return out
}

// Values returns the returns in date order.
func (s *ReturnSeries) Values() []float64 {
	out := make([]float64, len(s.points))
	for i, p := range s.points {
		out[i] = p.Return
	}
	return out
}

// Dates returns the dates in order.
func (s *ReturnSeries) Dates() []time.Time {
	out := make([]time.Time, len(s.points))
	for i, p := range s.points {
		out[i] = p.Date
	}
	return out
}

// Range returns the first and last date. Both are zero for an empty series.
func (s *ReturnSeries) Range() (time.Time, time.Time) {
	if len(s.points) == 0 {
		return time.Time{}, time.Time{}
	}
	return s.points[0].Date, s.points[len(s.points)-1].Date
}

type returnSeriesJSON struct {
	Symbol string  `json:"symbol"`
	Points []Point `json:"points"`
}

func (s *ReturnSeries) MarshalJSON() ([]byte, error) {
	return json.Marshal(returnSeriesJSON{Symbol: s.symbol, Points: s.points})
}

func (s *ReturnSeries) UnmarshalJSON(data []byte) error {
	var raw returnSeriesJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := NewReturnSeries(raw.Symbol, raw.Points)
	if err != nil {
		return err
	}
	*s = *parsed
	return nil
}
