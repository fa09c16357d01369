package report

import (
	"log"
	"math"
	"sort"
	"time"

	"github.com/dyike/StockLens/internal/models"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	tradingDays    = 252
	daysPerYear    = 365.0
	topDrawdowns   = 5
	minStatsPoints = 2
	// epsilon treats float noise in a dispersion as zero.
	epsilon = 1e-12
)

// Cumulative compounds returns into a running total return: out[i] is the
// growth of 1 unit up to and including day i, minus 1.
func Cumulative(returns []float64) []float64 {
	out := make([]float64, len(returns))
	if len(returns) == 0 {
		return out
	}
	growth := make([]float64, len(returns))
	copy(growth, returns)
	floats.AddConst(1, growth)
	floats.CumProd(out, growth)
	floats.AddConst(-1, out)
	return out
}

// DrawdownSeries returns, for each day, the fractional distance below the
// running peak of wealth. Values are <= 0. The peak starts at the initial 1.
func DrawdownSeries(returns []float64) []float64 {
	out := make([]float64, len(returns))
	wealth, peak := 1.0, 1.0
	for i, r := range returns {
		wealth *= 1 + r
		if wealth > peak {
			peak = wealth
		}
		out[i] = wealth/peak - 1
	}
	return out
}

// DrawdownPeriods lists underwater periods, deepest first, at most n of them.
// An unrecovered period ends on the last date.
func DrawdownPeriods(dates []time.Time, returns []float64, n int) []models.Drawdown {
	dd := DrawdownSeries(returns)

	var periods []models.Drawdown
	var cur *models.Drawdown
	for i, v := range dd {
		switch {
		case v < 0 && cur == nil:
			start := dates[i]
			if i > 0 {
				start = dates[i-1]
			}
			cur = &models.Drawdown{Start: start, Valley: dates[i], Depth: v}
		case v < 0:
			if v < cur.Depth {
				cur.Depth = v
				cur.Valley = dates[i]
			}
		case cur != nil:
			cur.End = dates[i]
			cur.Recovered = true
			cur.Days = int(cur.End.Sub(cur.Start).Hours()/24) + 1
			periods = append(periods, *cur)
			cur = nil
		}
	}
	if cur != nil && len(dates) > 0 {
		cur.End = dates[len(dates)-1]
		cur.Days = int(cur.End.Sub(cur.Start).Hours()/24) + 1
		periods = append(periods, *cur)
	}

	sort.SliceStable(periods, func(i, j int) bool { return periods[i].Depth < periods[j].Depth })
	if len(periods) > n {
		periods = periods[:n]
	}
	return periods
}

// YearlyReturns compounds returns per calendar year, oldest year first.
func YearlyReturns(dates []time.Time, returns []float64) ([]int, []float64) {
	var years []int
	var values []float64
	for i, d := range dates {
		y := d.Year()
		if len(years) == 0 || years[len(years)-1] != y {
			years = append(years, y)
			values = append(values, 1)
		}
		values[len(values)-1] *= 1 + returns[i]
	}
	for i := range values {
		values[i]--
	}
	return years, values
}

// CompareYearly pairs the yearly returns of an aligned pair.
func CompareYearly(pair *AlignedPair) []models.YearlyReturn {
	years, strat := YearlyReturns(pair.Dates, pair.Primary)
	_, bench := YearlyReturns(pair.Dates, pair.Bench)
	out := make([]models.YearlyReturn, len(years))
	for i, y := range years {
		b := bench[i]
		out[i] = models.YearlyReturn{Year: y, Strategy: strat[i], Benchmark: &b}
	}
	return out
}

// series is a dated return sequence handed to metric functions.
type series struct {
	dates   []time.Time
	returns []float64
}

type metricFunc func(s series) (float64, bool)

type metricDef struct {
	name    string
	percent bool
	fn      metricFunc
}

var singleMetrics = []metricDef{
	{"Cumulative Return", true, totalReturn},
	{"CAGR", true, cagr},
	{"Volatility (ann.)", true, volatility},
	{"Sharpe", false, sharpe},
	{"Sortino", false, sortino},
	{"Max Drawdown", true, maxDrawdown},
	{"Calmar", false, calmar},
	{"Best Day", true, bestDay},
	{"Worst Day", true, worstDay},
	{"Win Days", true, winRate},
	{"Avg. Return", true, mean},
}

// safeMetric evaluates one metric in isolation. A panic, too little data or
// a non-finite result all mean the metric is omitted.
func safeMetric(name string, fn metricFunc, s series) (v float64, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Report] metric %s failed: %v", name, r)
			v, ok = 0, false
		}
	}()
	v, ok = fn(s)
	if ok && (math.IsNaN(v) || math.IsInf(v, 0)) {
		return 0, false
	}
	return v, ok
}

// SingleMetrics computes the metrics of one series.
func SingleMetrics(dates []time.Time, returns []float64) []models.Metric {
	s := series{dates: dates, returns: returns}
	var out []models.Metric
	for _, def := range singleMetrics {
		if v, ok := safeMetric(def.name, def.fn, s); ok {
			out = append(out, models.Metric{Name: def.name, Strategy: v, Percent: def.percent})
		}
	}
	return out
}

// CompareMetrics computes every metric for both sides of pair. A metric the
// strategy cannot produce is omitted; a benchmark value that cannot be
// produced is left nil.
func CompareMetrics(pair *AlignedPair) []models.Metric {
	strat := series{dates: pair.Dates, returns: pair.Primary}
	bench := series{dates: pair.Dates, returns: pair.Bench}

	var out []models.Metric
	for _, def := range singleMetrics {
		v, ok := safeMetric(def.name, def.fn, strat)
		if !ok {
			continue
		}
		m := models.Metric{Name: def.name, Strategy: v, Percent: def.percent}
		if b, ok := safeMetric(def.name, def.fn, bench); ok {
			m.Benchmark = &b
		}
		out = append(out, m)
	}

	relative := []struct {
		name    string
		percent bool
		fn      func(s, b []float64) (float64, bool)
	}{
		{"Beta", false, beta},
		{"Alpha (ann.)", true, alpha},
		{"Correlation", false, correlation},
	}
	for _, def := range relative {
		fn := def.fn
		v, ok := safeMetric(def.name, func(series) (float64, bool) { return fn(pair.Primary, pair.Bench) }, strat)
		if ok {
			out = append(out, models.Metric{Name: def.name, Strategy: v, Percent: def.percent})
		}
	}
	return out
}

func totalReturn(s series) (float64, bool) {
	if len(s.returns) == 0 {
		return 0, false
	}
	c := Cumulative(s.returns)
	return c[len(c)-1], true
}

func cagr(s series) (float64, bool) {
	if len(s.returns) < minStatsPoints {
		return 0, false
	}
	years := s.dates[len(s.dates)-1].Sub(s.dates[0]).Hours() / 24 / daysPerYear
	if years <= 0 {
		return 0, false
	}
	total, _ := totalReturn(s)
	if total <= -1 {
		return -1, true
	}
	return math.Pow(1+total, 1/years) - 1, true
}

func mean(s series) (float64, bool) {
	if len(s.returns) == 0 {
		return 0, false
	}
	return stat.Mean(s.returns, nil), true
}

// stddev is the sample standard deviation.
func stddev(xs []float64) (float64, bool) {
	if len(xs) < minStatsPoints {
		return 0, false
	}
	return stat.StdDev(xs, nil), true
}

func volatility(s series) (float64, bool) {
	sd, ok := stddev(s.returns)
	if !ok {
		return 0, false
	}
	return sd * math.Sqrt(tradingDays), true
}

func sharpe(s series) (float64, bool) {
	sd, ok := stddev(s.returns)
	if !ok || sd < epsilon {
		return 0, false
	}
	m, _ := mean(s)
	return m / sd * math.Sqrt(tradingDays), true
}

func sortino(s series) (float64, bool) {
	if len(s.returns) < minStatsPoints {
		return 0, false
	}
	downside := 0.0
	for _, r := range s.returns {
		if r < 0 {
			downside += r * r
		}
	}
	dd := math.Sqrt(downside / float64(len(s.returns)))
	if dd < epsilon {
		return 0, false
	}
	m, _ := mean(s)
	return m / dd * math.Sqrt(tradingDays), true
}

func maxDrawdown(s series) (float64, bool) {
	if len(s.returns) == 0 {
		return 0, false
	}
	return math.Min(0, floats.Min(DrawdownSeries(s.returns))), true
}

func calmar(s series) (float64, bool) {
	c, ok := cagr(s)
	if !ok {
		return 0, false
	}
	mdd, _ := maxDrawdown(s)
	if mdd == 0 {
		return 0, false
	}
	return c / math.Abs(mdd), true
}

func bestDay(s series) (float64, bool) {
	if len(s.returns) == 0 {
		return 0, false
	}
	return floats.Max(s.returns), true
}

func worstDay(s series) (float64, bool) {
	if len(s.returns) == 0 {
		return 0, false
	}
	return floats.Min(s.returns), true
}

// winRate is the share of positive days among days that moved.
func winRate(s series) (float64, bool) {
	wins, moved := 0, 0
	for _, r := range s.returns {
		if r != 0 {
			moved++
		}
		if r > 0 {
			wins++
		}
	}
	if moved == 0 {
		return 0, false
	}
	return float64(wins) / float64(moved), true
}

func covariance(a, b []float64) (float64, bool) {
	if len(a) < minStatsPoints || len(a) != len(b) {
		return 0, false
	}
	return stat.Covariance(a, b, nil), true
}

func beta(s, b []float64) (float64, bool) {
	cov, ok := covariance(s, b)
	if !ok {
		return 0, false
	}
	vb := stat.Variance(b, nil)
	if vb < epsilon*epsilon {
		return 0, false
	}
	return cov / vb, true
}

func alpha(s, b []float64) (float64, bool) {
	bt, ok := beta(s, b)
	if !ok {
		return 0, false
	}
	ms, _ := mean(series{returns: s})
	mb, _ := mean(series{returns: b})
	return (ms - bt*mb) * tradingDays, true
}

func correlation(s, b []float64) (float64, bool) {
	if len(s) < minStatsPoints || len(s) != len(b) {
		return 0, false
	}
	sa, _ := stddev(s)
	sb, _ := stddev(b)
	if sa < epsilon || sb < epsilon {
		return 0, false
	}
	return stat.Correlation(s, b, nil), true
}
