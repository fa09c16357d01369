package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/dyike/StockLens/config"
	"github.com/dyike/StockLens/internal/report"
)

const (
	KindComparison = "comparison"
	KindSnapshot   = "snapshot"
)

// ResultsManager lists and prunes the request directories the file artifact
// channel leaves under ResultsDir.
type ResultsManager struct {
	resultsDir string
}

// ResultSummary describes one request directory.
type ResultSummary struct {
	RequestID string    `json:"request_id"`
	Kind      string    `json:"kind"`
	Symbol    string    `json:"symbol"`
	Benchmark string    `json:"benchmark,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
}

// ResultDetail is a summary plus the metrics read back from the report.
type ResultDetail struct {
	ResultSummary
	Headers []string
	Metrics [][]string
	Files   []string
}

func NewResultsManager(cfg *config.Config) *ResultsManager {
	return &ResultsManager{resultsDir: cfg.ResultsDir}
}

// ListResults lists all request directories sorted by sortBy ("created",
// "symbol" or "size"). The default is newest first.
func (rm *ResultsManager) ListResults(sortBy string, reverse bool) ([]ResultSummary, error) {
	entries, err := os.ReadDir(rm.resultsDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan results directory: %w", err)
	}

	var results []ResultSummary
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		summary, ok := rm.summarize(e.Name())
		if ok {
			results = append(results, summary)
		}
	}

	sortResults(results, sortBy, reverse)
	return results, nil
}

// summarize reads one request directory. Directories with none of the
// pipeline's artifacts are not results.
func (rm *ResultsManager) summarize(id string) (ResultSummary, bool) {
	dir := filepath.Join(rm.resultsDir, id)
	info, err := os.Stat(dir)
	if err != nil {
		return ResultSummary{}, false
	}

	s := ResultSummary{RequestID: id, Path: dir, CreatedAt: info.ModTime()}
	files, size := listFiles(dir)
	s.Size = size

	switch {
	case contains(files, report.ReportFile):
		s.Kind = KindComparison
		if doc, err := readReport(filepath.Join(dir, report.ReportFile)); err == nil {
			headers, _ := metricsTable(doc)
			s.Symbol = strings.TrimSpace(doc.Find("title").First().Text())
			if len(headers) > 2 {
				s.Benchmark = headers[2]
			}
		}
	case contains(files, report.SnapshotFile):
		s.Kind = KindSnapshot
	default:
		return ResultSummary{}, false
	}
	return s, true
}

func listFiles(dir string) ([]string, int64) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, 0
	}
	var names []string
	var size int64
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
		if info, err := e.Info(); err == nil {
			size += info.Size()
		}
	}
	return names, size
}

func contains(items []string, item string) bool {
	for _, it := range items {
		if it == item {
			return true
		}
	}
	return false
}

func sortResults(results []ResultSummary, sortBy string, reverse bool) {
	var less func(a, b ResultSummary) bool
	switch strings.ToLower(sortBy) {
	case "symbol":
		less = func(a, b ResultSummary) bool { return a.Symbol < b.Symbol }
	case "size":
		less = func(a, b ResultSummary) bool { return a.Size < b.Size }
	case "date", "created":
		less = func(a, b ResultSummary) bool { return a.CreatedAt.Before(b.CreatedAt) }
	default:
		// newest first
		less = func(a, b ResultSummary) bool { return a.CreatedAt.After(b.CreatedAt) }
	}
	sort.SliceStable(results, func(i, j int) bool {
		if reverse {
			return less(results[j], results[i])
		}
		return less(results[i], results[j])
	})
}

// requestDir resolves id to a direct child of the results directory.
func (rm *ResultsManager) requestDir(id string) (string, error) {
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("invalid request id %q", id)
	}
	dir := filepath.Join(rm.resultsDir, id)
	if _, err := os.Stat(dir); err != nil {
		return "", fmt.Errorf("no result for request %s", id)
	}
	return dir, nil
}

// ShowResult returns the summary, file list and metrics of one request.
func (rm *ResultsManager) ShowResult(id string) (*ResultDetail, error) {
	dir, err := rm.requestDir(id)
	if err != nil {
		return nil, err
	}
	summary, ok := rm.summarize(id)
	if !ok {
		return nil, fmt.Errorf("request %s has no report artifacts", id)
	}
	detail := &ResultDetail{ResultSummary: summary}
	detail.Files, _ = listFiles(dir)
	if summary.Kind == KindComparison {
		doc, err := readReport(filepath.Join(dir, report.ReportFile))
		if err != nil {
			return nil, err
		}
		detail.Headers, detail.Metrics = metricsTable(doc)
	}
	return detail, nil
}

// DeleteResult removes one request directory.
func (rm *ResultsManager) DeleteResult(id string) error {
	dir, err := rm.requestDir(id)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to delete %s: %w", id, err)
	}
	return nil
}

// CleanupResults removes results older than maxAge and then, newest first,
// everything beyond maxCount. A zero limit is ignored. It returns the ids
// it removed.
func (rm *ResultsManager) CleanupResults(maxAge time.Duration, maxCount int, now time.Time) ([]string, error) {
	results, err := rm.ListResults("", false)
	if err != nil {
		return nil, err
	}

	var removed []string
	kept := 0
	for _, r := range results {
		expired := maxAge > 0 && now.Sub(r.CreatedAt) > maxAge
		overflow := maxCount > 0 && kept >= maxCount
		if !expired && !overflow {
			kept++
			continue
		}
		if err := os.RemoveAll(r.Path); err != nil {
			return removed, fmt.Errorf("failed to delete %s: %w", r.RequestID, err)
		}
		removed = append(removed, r.RequestID)
	}
	return removed, nil
}

func readReport(path string) (*goquery.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}
