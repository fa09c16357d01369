package display

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/dyike/StockLens/internal/models"
)

// Out receives everything this package prints.
var Out io.Writer = os.Stdout

const wrapWidth = 76

var (
	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8B5CF6"))

	headerCellStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle       = lipgloss.NewStyle().Padding(0, 1)
	numberCellStyle = cellStyle.Align(lipgloss.Right)
)

func printf(format string, args ...any) {
	fmt.Fprintf(Out, format, args...)
}

func writeln(s string) {
	fmt.Fprintln(Out, s)
}

// FormatValue renders a metric value as a percentage or a plain ratio.
func FormatValue(v float64, percent bool) string {
	if percent {
		return fmt.Sprintf("%.2f%%", v*100)
	}
	return fmt.Sprintf("%.2f", v)
}

func formatOptional(v *float64, percent bool) string {
	if v == nil {
		return "-"
	}
	return FormatValue(*v, percent)
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(labelStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerCellStyle
			case col == 0:
				return cellStyle
			default:
				return numberCellStyle
			}
		})
}

func section(title string) {
	writeln("")
	writeln(sectionStyle.Render(title))
}

// DisplayComparison prints the headline of a comparison report together with
// its metrics and calendar-year returns.
func DisplayComparison(r *models.ComparisonReport) {
	section(fmt.Sprintf("📊 %s vs %s", r.Symbol, r.Benchmark))
	printf("%s %s - %s\n", labelStyle.Render("Period:"), r.Start.Format(time.DateOnly), r.End.Format(time.DateOnly))
	if r.RequestID != "" {
		printf("%s %s\n", labelStyle.Render("Request:"), r.RequestID)
	}
	DisplayMetrics(r.Symbol, r.Benchmark, r.Metrics)

	if len(r.Yearly) > 0 {
		t := newTable("Year", r.Symbol, r.Benchmark)
		for _, y := range r.Yearly {
			t.Row(fmt.Sprint(y.Year), FormatValue(y.Strategy, true), formatOptional(y.Benchmark, true))
		}
		section("EOY Returns")
		writeln(t.String())
	}
	DisplayArtifacts(r.ReportPath, r.SnapshotImage, r.YearlyImage)
}

// DisplaySnapshot prints the single-symbol statistics.
func DisplaySnapshot(r *models.SnapshotReport) {
	section(fmt.Sprintf("📈 %s performance", r.Symbol))
	printf("%s %s - %s\n", labelStyle.Render("Period:"), r.Start.Format(time.DateOnly), r.End.Format(time.DateOnly))
	DisplayMetrics(r.Symbol, "", r.Metrics)
	DisplayArtifacts("", r.Image)
}

// DisplayMetrics prints a metrics table. The benchmark column is left out
// when benchmark is empty.
func DisplayMetrics(symbol, benchmark string, metrics []models.Metric) {
	if len(metrics) == 0 {
		DisplayWarning("no statistics available")
		return
	}
	headers := []string{"Metric", symbol}
	if benchmark != "" {
		headers = append(headers, benchmark)
	}
	t := newTable(headers...)
	for _, m := range metrics {
		row := []string{m.Name, FormatValue(m.Strategy, m.Percent)}
		if benchmark != "" {
			row = append(row, formatOptional(m.Benchmark, m.Percent))
		}
		t.Row(row...)
	}
	section("Key Performance Metrics")
	writeln(t.String())
}

// DisplayMetricRows prints rows that were already formatted, e.g. read back
// from a rendered report.
func DisplayMetricRows(headers []string, rows [][]string) {
	if len(rows) == 0 {
		DisplayWarning("no statistics available")
		return
	}
	DisplayTable("Key Performance Metrics", headers, rows)
}

// DisplayTable prints a titled table. The first column is left aligned.
func DisplayTable(title string, headers []string, rows [][]string) {
	t := newTable(headers...)
	for _, row := range rows {
		t.Row(row...)
	}
	if title != "" {
		section(title)
	}
	writeln(t.String())
}

// DisplayArtifacts lists where the rendered files went. Inline artifacts are
// summarised by size only.
func DisplayArtifacts(reportPath string, artifacts ...models.Artifact) {
	if reportPath != "" {
		printf("%s %s\n", labelStyle.Render("Report:"), reportPath)
	}
	for _, a := range artifacts {
		switch {
		case a.Path != "":
			printf("%s %s\n", labelStyle.Render(a.Name+":"), a.Path)
		case a.DataURI != "":
			printf("%s inline (%d bytes)\n", labelStyle.Render(a.Name+":"), len(a.DataURI))
		}
	}
}

// DisplayIndicators prints a technical-analysis snapshot.
func DisplayIndicators(s *models.IndicatorSnapshot) {
	section(fmt.Sprintf("🔎 %s:%s (%s, %s)", s.Exchange, s.Symbol, s.Screener, s.Interval))
	if s.Time != "" {
		printf("%s %s\n", labelStyle.Render("As of:"), s.Time)
	}

	t := newTable("Group", "Recommendation", "Buy", "Neutral", "Sell")
	for _, g := range []struct {
		name string
		rec  models.Recommendation
	}{
		{"Summary", s.Summary},
		{"Oscillators", s.Oscillators},
		{"Moving Averages", s.MovingAverages},
	} {
		t.Row(g.name,
			getRecommendationEmoji(g.rec.Recommendation)+" "+g.rec.Recommendation,
			fmt.Sprint(g.rec.Buy), fmt.Sprint(g.rec.Neutral), fmt.Sprint(g.rec.Sell))
	}
	writeln(t.String())

	if len(s.Indicators) == 0 {
		return
	}
	names := make([]string, 0, len(s.Indicators))
	for name := range s.Indicators {
		names = append(names, name)
	}
	sort.Strings(names)
	it := newTable("Indicator", "Value")
	for _, name := range names {
		it.Row(name, fmt.Sprintf("%.4f", s.Indicators[name]))
	}
	section("Indicators")
	writeln(it.String())
}

// DisplaySymbols prints lookup candidates, most relevant first.
func DisplaySymbols(query string, symbols []string) {
	if len(symbols) == 0 {
		DisplayWarning(fmt.Sprintf("no symbols found for %q", query))
		return
	}
	section(fmt.Sprintf("Symbols matching %q", query))
	for i, s := range symbols {
		printf("  %2d. %s\n", i+1, s)
	}
}

// DisplayText prints free text wrapped to the terminal width.
func DisplayText(title, text string) {
	section(title)
	displayWrappedText(text, "  ")
}

func getRecommendationEmoji(recommendation string) string {
	switch strings.ToUpper(recommendation) {
	case "STRONG_BUY":
		return "🚀"
	case "BUY":
		return "📈"
	case "SELL":
		return "📉"
	case "STRONG_SELL":
		return "🔻"
	case "NEUTRAL":
		return "⚖️"
	default:
		return "❓"
	}
}

func displayWrappedText(text, indent string) {
	for _, para := range strings.Split(strings.TrimSpace(text), "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			writeln("")
			continue
		}
		line := indent + words[0]
		for _, w := range words[1:] {
			if len(line)+1+len(w) > wrapWidth {
				writeln(line)
				line = indent + w
				continue
			}
			line += " " + w
		}
		writeln(line)
	}
}

// DisplayError shows an error message with context
func DisplayError(err error, context string) {
	msg := err.Error()
	if context != "" {
		msg = fmt.Sprintf("%s: %s", context, msg)
	}
	writeln(errorStyle.Render("❌ Error: " + msg))
}

// DisplayWarning shows a warning message
func DisplayWarning(message string) {
	writeln(warningStyle.Render("⚠️  Warning: " + message))
}

// DisplaySuccess shows a success message
func DisplaySuccess(message string) {
	writeln(successStyle.Render("✅ " + message))
}

// DisplayInfo shows an info message
func DisplayInfo(message string) {
	writeln(infoStyle.Render("ℹ️  " + message))
}

// DisplayProgress shows a single-line progress counter.
func DisplayProgress(done, total int, label string) {
	if total <= 0 {
		return
	}
	pct := float64(done) / float64(total) * 100
	printf("\r🔄 %s: %d/%d (%.0f%%)", label, done, total, pct)
	if done >= total {
		writeln("")
	}
}
