package models

type SymbolLookupInput struct {
	Query string `json:"query"`
	Type  string `json:"type"`
}

type CompareInput struct {
	Symbol    string `json:"symbol"`
	Benchmark string `json:"benchmark"`
}

// CompareOutput is what the comparison tool returns. Exactly one of Error or
// HTML is set.
type CompareOutput struct {
	HTML          string `json:"html,omitempty"`
	ReportPath    string `json:"report_path,omitempty"`
	Snapshot      string `json:"snapshot,omitempty"`
	YearlyReturns string `json:"yearly_returns,omitempty"`
	Error         string `json:"Error,omitempty"`
}

type SnapshotInput struct {
	Symbol string `json:"symbol"`
}

type SnapshotOutput struct {
	Image   string   `json:"image,omitempty"`
	Metrics []Metric `json:"metrics,omitempty"`
	Error   string   `json:"Error,omitempty"`
}

type TechnicalAnalysisInput struct {
	Symbol   string `json:"symbol"`
	Exchange string `json:"exchange"`
	Screener string `json:"screener"`
	Interval string `json:"interval"`
}

type WebpageInput struct {
	URL string `json:"url"`
}

type WebpageOutput struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// TechnicalAnalysisOutput is the indicator snapshot, or just Error when the
// analysis failed.
type TechnicalAnalysisOutput struct {
	*IndicatorSnapshot
	Error string `json:"Error,omitempty"`
}
