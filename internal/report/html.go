package report

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/dyike/StockLens/internal/models"
)

// HTMLData is everything the report template renders.
type HTMLData struct {
	Title         string
	Benchmark     string
	Start         time.Time
	End           time.Time
	Generated     time.Time
	Metrics       []models.Metric
	Yearly        []models.YearlyReturn
	Drawdowns     []models.Drawdown
	SnapshotImage []byte
	YearlyImage   []byte
}

func formatValue(v float64, percent bool) string {
	if percent {
		return fmt.Sprintf("%.2f%%", v*100)
	}
	return fmt.Sprintf("%.2f", v)
}

var reportFuncs = template.FuncMap{
	"value": formatValue,
	"opt": func(v *float64, percent bool) string {
		if v == nil {
			return "-"
		}
		return formatValue(*v, percent)
	},
	"date": func(t time.Time) string { return t.Format(time.DateOnly) },
	"png": func(data []byte) template.URL {
		return template.URL(DataURI("image/png", data))
	},
}

var reportTemplate = template.Must(template.New("report").Funcs(reportFuncs).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
body { font-family: Arial, Helvetica, sans-serif; margin: 24px; color: #222; }
h1 { margin-bottom: 0; }
.meta { color: #666; font-size: 13px; margin-bottom: 24px; }
table { border-collapse: collapse; margin-bottom: 24px; min-width: 420px; }
th, td { padding: 4px 12px; border-bottom: 1px solid #eee; text-align: right; }
th:first-child, td:first-child { text-align: left; }
img { max-width: 100%; margin-bottom: 24px; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<div class="meta">
{{- if .Benchmark}}Benchmark: {{.Benchmark}} &middot; {{end -}}
{{date .Start}} - {{date .End}} &middot; generated {{.Generated.Format "2006-01-02 15:04:05 MST"}}
</div>

{{if .SnapshotImage}}<img alt="Performance snapshot" src="{{png .SnapshotImage}}">{{end}}

<h3>Key Performance Metrics</h3>
<table id="metrics">
<thead><tr><th>Metric</th><th>{{.Title}}</th>{{if .Benchmark}}<th>{{.Benchmark}}</th>{{end}}</tr></thead>
<tbody>
{{- range .Metrics}}
<tr><td>{{.Name}}</td><td>{{value .Strategy .Percent}}</td>{{if $.Benchmark}}<td>{{opt .Benchmark .Percent}}</td>{{end}}</tr>
{{- end}}
</tbody>
</table>

{{if .Yearly}}
<h3>EOY Returns</h3>
{{if .YearlyImage}}<img alt="Yearly returns" src="{{png .YearlyImage}}">{{end}}
<table id="eoy">
<thead><tr><th>Year</th><th>{{.Title}}</th>{{if .Benchmark}}<th>{{.Benchmark}}</th>{{end}}</tr></thead>
<tbody>
{{- range .Yearly}}
<tr><td>{{.Year}}</td><td>{{value .Strategy true}}</td>{{if $.Benchmark}}<td>{{opt .Benchmark true}}</td>{{end}}</tr>
{{- end}}
</tbody>
</table>
{{end}}

{{if .Drawdowns}}
<h3>Worst Drawdowns</h3>
<table id="drawdowns">
<thead><tr><th>Started</th><th>Valley</th><th>Recovered</th><th>Drawdown</th><th>Days</th></tr></thead>
<tbody>
{{- range .Drawdowns}}
<tr><td>{{date .Start}}</td><td>{{date .Valley}}</td><td>{{if .Recovered}}{{date .End}}{{else}}-{{end}}</td><td>{{value .Depth true}}</td><td>{{.Days}}</td></tr>
{{- end}}
</tbody>
</table>
{{end}}
</body>
</html>
`))

// RenderHTML executes the report template.
func RenderHTML(data HTMLData) ([]byte, error) {
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	return buf.Bytes(), nil
}
