package models

import "time"

// Artifact is one rendered file. Path is set for the file channel, DataURI for
// the in-memory channel.
type Artifact struct {
	Name    string `json:"name"`
	Path    string `json:"path,omitempty"`
	DataURI string `json:"data_uri,omitempty"`
}

// Metric is a named statistic. Benchmark is nil for single-symbol reports.
type Metric struct {
	Name      string   `json:"name"`
	Strategy  float64  `json:"strategy"`
	Benchmark *float64 `json:"benchmark,omitempty"`
	Percent   bool     `json:"percent"`
}

// YearlyReturn is the compounded return of one calendar year.
type YearlyReturn struct {
	Year      int      `json:"year"`
	Strategy  float64  `json:"strategy"`
	Benchmark *float64 `json:"benchmark,omitempty"`
}

// Drawdown is a peak-to-recovery period.
type Drawdown struct {
	Start     time.Time `json:"start"`
	Valley    time.Time `json:"valley"`
	End       time.Time `json:"end"`
	Depth     float64   `json:"depth"`
	Days      int       `json:"days"`
	Recovered bool      `json:"recovered"`
}

type ComparisonReport struct {
	RequestID     string         `json:"request_id"`
	Symbol        string         `json:"symbol"`
	Benchmark     string         `json:"benchmark"`
	Start         time.Time      `json:"start"`
	End           time.Time      `json:"end"`
	SnapshotImage Artifact       `json:"snapshot"`
	YearlyImage   Artifact       `json:"yearly_returns"`
	HTML          string         `json:"html"`
	ReportPath    string         `json:"report_path,omitempty"`
	Metrics       []Metric       `json:"metrics"`
	Yearly        []YearlyReturn `json:"yearly"`
}

type SnapshotReport struct {
	RequestID string    `json:"request_id"`
	Symbol    string    `json:"symbol"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Image     Artifact  `json:"image"`
	Metrics   []Metric  `json:"metrics"`
}
