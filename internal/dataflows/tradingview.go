package dataflows

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/dyike/StockLens/config"
	"github.com/dyike/StockLens/internal/models"
)

var screeners = map[string]bool{
	"america": true, "argentina": true, "australia": true, "brazil": true, "canada": true,
	"cfd": true, "crypto": true, "egypt": true, "forex": true, "france": true,
	"germany": true, "hongkong": true, "india": true, "indonesia": true, "israel": true,
	"italy": true, "japan": true, "korea": true, "malaysia": true, "mexico": true,
	"netherlands": true, "russia": true, "saudi": true, "singapore": true, "spain": true,
	"sweden": true, "switzerland": true, "taiwan": true, "thailand": true, "turkey": true,
	"uk": true, "vietnam": true,
}

// intervalSuffix maps an interval to the column suffix of the scanner API.
// The daily interval has no suffix.
var intervalSuffix = map[string]string{
	"1m":  "|1",
	"5m":  "|5",
	"15m": "|15",
	"30m": "|30",
	"1h":  "|60",
	"2h":  "|120",
	"4h":  "|240",
	"1d":  "",
	"1W":  "|1W",
	"1M":  "|1M",
}

var intervalOrder = []string{"1m", "5m", "15m", "30m", "1h", "2h", "4h", "1d", "1W", "1M"}

var (
	oscillatorColumns = []string{
		"RSI", "RSI[1]", "Stoch.K", "Stoch.D", "CCI20", "ADX", "AO", "Mom",
		"MACD.macd", "MACD.signal", "W.R", "BBPower", "UO",
	}
	movingAverageColumns = []string{
		"EMA10", "SMA10", "EMA20", "SMA20", "EMA30", "SMA30",
		"EMA50", "SMA50", "EMA100", "SMA100", "EMA200", "SMA200",
	}
	recommendColumns = []string{"Recommend.Other", "Recommend.All", "Recommend.MA"}
	priceColumns     = []string{"open", "high", "low", "close", "volume", "change"}
)

// TradingViewClient queries the TradingView scanner for indicator values.
type TradingViewClient struct {
	client *resty.Client
	now    func() time.Time
}

func NewTradingViewClient(cfg *config.Config) *TradingViewClient {
	client := resty.New().
		SetBaseURL(cfg.TradingViewURL).
		SetTimeout(cfg.FetchTimeout).
		SetHeader("User-Agent", userAgent).
		SetHeader("Content-Type", "application/json")
	return &TradingViewClient{client: client, now: time.Now}
}

// ValidateIndicatorRequest checks the request before any network call.
func ValidateIndicatorRequest(req IndicatorRequest) error {
	if strings.TrimSpace(req.Symbol) == "" {
		return fmt.Errorf("symbol must not be empty")
	}
	if strings.TrimSpace(req.Exchange) == "" {
		return fmt.Errorf("exchange must not be empty (for example NASDAQ or NYSE)")
	}
	if !screeners[strings.ToLower(req.Screener)] {
		return fmt.Errorf("unknown screener %q (for example america, hongkong, crypto)", req.Screener)
	}
	if _, ok := intervalSuffix[req.Interval]; !ok {
		return fmt.Errorf("invalid interval %q, expected one of %s", req.Interval, strings.Join(intervalOrder, ", "))
	}
	return nil
}

func scanColumns(interval string) []string {
	suffix := intervalSuffix[interval]
	var cols []string
	for _, group := range [][]string{recommendColumns, oscillatorColumns, movingAverageColumns, priceColumns} {
		for _, c := range group {
			cols = append(cols, c+suffix)
		}
	}
	return cols
}

type scanRequest struct {
	Symbols struct {
		Tickers []string `json:"tickers"`
		Query   struct {
			Types []string `json:"types"`
		} `json:"query"`
	} `json:"symbols"`
	Columns []string `json:"columns"`
}

type scanResponse struct {
	Data []struct {
		S string     `json:"s"`
		D []*float64 `json:"d"`
	} `json:"data"`
	TotalCount int `json:"totalCount"`
}

// Analyze fetches one indicator snapshot for req.
func (tv *TradingViewClient) Analyze(ctx context.Context, req IndicatorRequest) (*models.IndicatorSnapshot, error) {
	if err := ValidateIndicatorRequest(req); err != nil {
		return nil, err
	}

	screener := strings.ToLower(req.Screener)
	ticker := strings.ToUpper(req.Exchange) + ":" + strings.ToUpper(req.Symbol)
	columns := scanColumns(req.Interval)

	var body scanRequest
	body.Symbols.Tickers = []string{ticker}
	body.Symbols.Query.Types = []string{}
	body.Columns = columns

	resp, err := tv.client.R().
		SetContext(ctx).
		SetBody(body).
		Post("/" + screener + "/scan")
	if err != nil {
		return nil, models.NewNetworkError(ticker, err)
	}
	if resp.StatusCode() != 200 {
		return nil, models.NewNetworkError(ticker, fmt.Errorf("scanner returned HTTP %d", resp.StatusCode()))
	}

	var out scanResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, models.NewNetworkError(ticker, fmt.Errorf("decode scanner response: %w", err))
	}
	if len(out.Data) == 0 {
		return nil, models.NewDataUnavailable(ticker,
			fmt.Errorf("symbol not found; check that the exchange %q and screener %q are correct", req.Exchange, req.Screener))
	}

	suffix := intervalSuffix[req.Interval]
	values := make(map[string]float64, len(columns))
	for i, v := range out.Data[0].D {
		if i >= len(columns) || v == nil {
			continue
		}
		values[strings.TrimSuffix(columns[i], suffix)] = *v
	}

	return buildSnapshot(req, values, tv.now()), nil
}

func buildSnapshot(req IndicatorRequest, values map[string]float64, at time.Time) *models.IndicatorSnapshot {
	osc := oscillatorVotes(values)
	ma := movingAverageVotes(values)

	snap := &models.IndicatorSnapshot{
		Symbol:         strings.ToUpper(req.Symbol),
		Exchange:       strings.ToUpper(req.Exchange),
		Screener:       strings.ToLower(req.Screener),
		Interval:       req.Interval,
		Time:           at.UTC().Format(time.DateTime),
		Oscillators:    osc,
		MovingAverages: ma,
		Summary: models.Recommendation{
			Buy:     osc.Buy + ma.Buy,
			Sell:    osc.Sell + ma.Sell,
			Neutral: osc.Neutral + ma.Neutral,
		},
		Indicators: values,
	}
	snap.Oscillators.Recommendation = recommendFromValue(values, "Recommend.Other")
	snap.MovingAverages.Recommendation = recommendFromValue(values, "Recommend.MA")
	snap.Summary.Recommendation = recommendFromValue(values, "Recommend.All")
	return snap
}

const (
	voteBuy     = "BUY"
	voteSell    = "SELL"
	voteNeutral = "NEUTRAL"
)

func tally(r *models.Recommendation, vote string) {
	switch vote {
	case voteBuy:
		r.Buy++
	case voteSell:
		r.Sell++
	case voteNeutral:
		r.Neutral++
	}
}

// oscillatorVotes applies the usual overbought/oversold thresholds to every
// oscillator that has a value.
func oscillatorVotes(v map[string]float64) models.Recommendation {
	var r models.Recommendation
	threshold := func(key string, low, high float64) {
		x, ok := v[key]
		if !ok {
			return
		}
		switch {
		case x < low:
			tally(&r, voteBuy)
		case x > high:
			tally(&r, voteSell)
		default:
			tally(&r, voteNeutral)
		}
	}
	sign := func(key string) {
		x, ok := v[key]
		if !ok {
			return
		}
		switch {
		case x > 0:
			tally(&r, voteBuy)
		case x < 0:
			tally(&r, voteSell)
		default:
			tally(&r, voteNeutral)
		}
	}

	threshold("RSI", 30, 70)
	threshold("Stoch.K", 20, 80)
	threshold("CCI20", -100, 100)
	threshold("W.R", -80, -20)
	threshold("UO", 30, 70)
	sign("AO")
	sign("Mom")
	sign("BBPower")
	if m, ok := v["MACD.macd"]; ok {
		if s, ok := v["MACD.signal"]; ok {
			switch {
			case m > s:
				tally(&r, voteBuy)
			case m < s:
				tally(&r, voteSell)
			default:
				tally(&r, voteNeutral)
			}
		}
	}
	return r
}

// movingAverageVotes compares the close with each moving average.
func movingAverageVotes(v map[string]float64) models.Recommendation {
	var r models.Recommendation
	closePrice, ok := v["close"]
	if !ok {
		return r
	}
	for _, key := range movingAverageColumns {
		ma, ok := v[key]
		if !ok {
			continue
		}
		switch {
		case ma < closePrice:
			tally(&r, voteBuy)
		case ma > closePrice:
			tally(&r, voteSell)
		default:
			tally(&r, voteNeutral)
		}
	}
	return r
}

// recommendFromValue buckets a Recommend.* rating in [-1, 1].
func recommendFromValue(v map[string]float64, key string) string {
	x, ok := v[key]
	if !ok {
		return "ERROR"
	}
	switch {
	case x >= -1 && x < -0.5:
		return "STRONG_SELL"
	case x >= -0.5 && x < -0.1:
		return "SELL"
	case x >= -0.1 && x <= 0.1:
		return "NEUTRAL"
	case x > 0.1 && x <= 0.5:
		return "BUY"
	case x > 0.5 && x <= 1:
		return "STRONG_BUY"
	}
	return "ERROR"
}

// KnownScreeners lists the accepted screener names, sorted.
func KnownScreeners() []string {
	out := make([]string, 0, len(screeners))
	for s := range screeners {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// KnownIntervals lists the accepted intervals from shortest to longest.
func KnownIntervals() []string {
	return append([]string(nil), intervalOrder...)
}
