package models

// Recommendation is the vote summary of a group of indicators.
type Recommendation struct {
	Recommendation string `json:"RECOMMENDATION"`
	Buy            int    `json:"BUY"`
	Sell           int    `json:"SELL"`
	Neutral        int    `json:"NEUTRAL"`
}

// IndicatorSnapshot mirrors the dict the technical-analysis UI shows.
type IndicatorSnapshot struct {
	Symbol         string             `json:"Symbol"`
	Exchange       string             `json:"Exchange"`
	Screener       string             `json:"Screener"`
	Interval       string             `json:"Interval"`
	Time           string             `json:"Time"`
	Summary        Recommendation     `json:"Summary"`
	Oscillators    Recommendation     `json:"Oscillators"`
	MovingAverages Recommendation     `json:"Moving Averages"`
	Indicators     map[string]float64 `json:"Indicators"`
}
