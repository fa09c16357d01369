package cli

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/lipgloss"

	"github.com/dyike/StockLens/internal/display"
)

var (
	welcomeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7C3AED")).
			Bold(true).
			Align(lipgloss.Center).
			Width(64)

	taglineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Italic(true).
			Align(lipgloss.Center).
			Width(64).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(0, 2)
)

const banner = `
 ____  _             _    _
/ ___|| |_ ___   ___| | _| |    ___ _ __  ___
\___ \| __/ _ \ / __| |/ / |   / _ \ '_ \/ __|
 ___) | || (_) | (__|   <| |__|  __/ | | \__ \
|____/ \__\___/ \___|_|\_\_____\___|_| |_|___/
`

// DisplayWelcomeBanner shows the welcome banner
func DisplayWelcomeBanner() {
	fmt.Fprintln(display.Out, welcomeStyle.Render(banner))
	fmt.Fprintln(display.Out, taglineStyle.Render("Stock performance reports, comparisons and technical analysis"))
}

// DisplayHeader prints a boxed title.
func DisplayHeader(title string) {
	fmt.Fprintln(display.Out, headerStyle.Render(title))
}

// ClearScreen clears the terminal screen
func ClearScreen() {
	fmt.Fprint(display.Out, "\033[2J\033[H")
}

// errorText returns the message of an HTML error paragraph. ok is false when
// s is anything else, such as a report.
func errorText(s string) (string, bool) {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "<p style='color: red'>") {
		return "", false
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(trimmed))
	if err != nil {
		return trimmed, true
	}
	return strings.TrimSpace(doc.Find("p").First().Text()), true
}

// metricsTable reads the key metrics table of a rendered report.
func metricsTable(doc *goquery.Document) ([]string, [][]string) {
	tbl := doc.Find("table#metrics").First()
	var headers []string
	tbl.Find("thead th").Each(func(_ int, th *goquery.Selection) {
		headers = append(headers, strings.TrimSpace(th.Text()))
	})
	var rows [][]string
	tbl.Find("tbody tr").Each(func(_ int, tr *goquery.Selection) {
		var row []string
		tr.Find("td").Each(func(_ int, td *goquery.Selection) {
			row = append(row, strings.TrimSpace(td.Text()))
		})
		if len(row) > 0 {
			rows = append(rows, row)
		}
	})
	return headers, rows
}

// reportMetrics parses report HTML and returns its metrics table.
func reportMetrics(html string) ([]string, [][]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, nil, fmt.Errorf("parse report: %w", err)
	}
	headers, rows := metricsTable(doc)
	return headers, rows, nil
}
