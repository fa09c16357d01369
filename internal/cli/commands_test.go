package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/StockLens/config"
	"github.com/dyike/StockLens/internal/dataflows"
	"github.com/dyike/StockLens/internal/display"
	"github.com/dyike/StockLens/internal/models"
	"github.com/dyike/StockLens/internal/orchestrator"
	"github.com/dyike/StockLens/internal/report"
	"github.com/dyike/StockLens/internal/tools"
)

type fakeLookup struct {
	mu      sync.Mutex
	results map[string][]string
	kinds   map[string]dataflows.SymbolKind
}

func (f *fakeLookup) Lookup(_ context.Context, query string, kind dataflows.SymbolKind) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.kinds == nil {
		f.kinds = map[string]dataflows.SymbolKind{}
	}
	f.kinds[query] = kind
	return f.results[query], nil
}

type fakeReporter struct {
	mu       sync.Mutex
	compared [][2]string
	html     string
}

func (f *fakeReporter) CompareResult(_ context.Context, symbol, benchmark string) models.CompareOutput {
	f.mu.Lock()
	f.compared = append(f.compared, [2]string{symbol, benchmark})
	f.mu.Unlock()
	if symbol == "DEAD" {
		return models.CompareOutput{Error: "fetch: data unavailable for DEAD"}
	}
	return models.CompareOutput{HTML: f.html, ReportPath: "/results/req-1/" + report.ReportFile}
}

func (f *fakeReporter) SnapshotResult(_ context.Context, symbol string) models.SnapshotOutput {
	if symbol == "DEAD" {
		return models.SnapshotOutput{Error: "fetch: data unavailable for DEAD"}
	}
	return models.SnapshotOutput{
		Image:   "/results/req-2/" + report.SnapshotFile,
		Metrics: []models.Metric{{Name: "Sharpe", Strategy: 1.23}},
	}
}

type fakeIndicators struct {
	last dataflows.IndicatorRequest
}

func (f *fakeIndicators) Analyze(_ context.Context, req dataflows.IndicatorRequest) (*models.IndicatorSnapshot, error) {
	f.last = req
	if err := dataflows.ValidateIndicatorRequest(req); err != nil {
		return nil, err
	}
	return &models.IndicatorSnapshot{
		Symbol: req.Symbol, Exchange: req.Exchange, Screener: req.Screener, Interval: req.Interval,
		Summary: models.Recommendation{Recommendation: "BUY", Buy: 10, Neutral: 5, Sell: 2},
	}, nil
}

type fakeAsker struct {
	answer string
	prompt string
}

func (f *fakeAsker) Infer(_ context.Context, prompt string) string {
	f.prompt = prompt
	return f.answer
}

type testEnv struct {
	app        *app
	lookup     *fakeLookup
	reporter   *fakeReporter
	indicators *fakeIndicators
	asker      *fakeAsker
	dir        string
}

func ptr(v float64) *float64 { return &v }

func renderedReport(t *testing.T) string {
	t.Helper()
	html, err := report.RenderHTML(report.HTMLData{
		Title:     "AAPL",
		Benchmark: "^GSPC",
		Start:     time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC),
		End:       time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC),
		Generated: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		Metrics: []models.Metric{
			{Name: "Cumulative Return", Strategy: 1.5, Benchmark: ptr(0.7), Percent: true},
			{Name: "Sharpe", Strategy: 1.1, Benchmark: ptr(0.9)},
		},
	})
	require.NoError(t, err)
	return string(html)
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.ProjectDir = dir
	cfg.ResultsDir = filepath.Join(dir, "results")
	cfg.DataCacheDir = filepath.Join(dir, "cache")
	cfg.HistoryPath = filepath.Join(dir, "history.db")
	cfg.SymbolPolicy = config.SymbolPolicyPassthrough
	cfg.ArtifactChannel = config.ArtifactChannelFile
	cfg.MarketDataProvider = config.ProviderYahoo
	cfg.LLMProvider = config.LLMProviderDeepSeek
	cfg.DeepSeekAPIKey = ""

	env := &testEnv{
		lookup: &fakeLookup{results: map[string][]string{
			"apple":     {"AAPL", "APC.F"},
			"dow jones": {"^DJI"},
		}},
		reporter:   &fakeReporter{html: renderedReport(t)},
		indicators: &fakeIndicators{},
		asker:      &fakeAsker{},
		dir:        dir,
	}
	a := newApp(cfg)
	a.newTools = func(*config.Config) ([]tool.InvokableTool, error) {
		return tools.All(tools.Deps{Lookup: env.lookup, Reports: env.reporter, Indicators: env.indicators}), nil
	}
	a.newAgent = func(context.Context, *config.Config) (Asker, error) { return env.asker, nil }
	a.newRunner = func(*config.Config) (CompareRunner, error) { return &fakeRunner{}, nil }
	env.app = a
	return env
}

func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	prev := display.Out
	display.Out = buf
	t.Cleanup(func() { display.Out = prev })

	cmd := newRootCmd(e.app)
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestCommandTree(t *testing.T) {
	cmd := newRootCmd(newTestEnv(t).app)
	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"compare", "snapshot", "analyze", "lookup", "ask", "batch", "results", "serve", "mood", "config", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestLookupCommand(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.run(t, "lookup", "dow", "jones", "--type", "index")
	require.NoError(t, err)
	assert.Contains(t, out, "1. ^DJI")
	assert.Equal(t, dataflows.KindIndex, env.lookup.kinds["dow jones"])
}

func TestLookupCommandNoMatches(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.run(t, "lookup", "nothing")
	require.NoError(t, err)
	assert.Contains(t, out, `no symbols found for "nothing"`)
}

func TestCompareCommandWithTickers(t *testing.T) {
	env := newTestEnv(t)
	outFile := filepath.Join(env.dir, "out.html")

	out, err := env.run(t, "compare", "AAPL", "^GSPC", "--out", outFile)
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"AAPL", "^GSPC"}}, env.reporter.compared)
	assert.Contains(t, out, "Cumulative Return")
	assert.Contains(t, out, "150.00%")
	assert.Contains(t, out, report.ReportFile)

	written, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.Equal(t, env.reporter.html, string(written))
	assert.Empty(t, env.lookup.kinds, "tickers skip the lookup")
}

func TestCompareCommandWithLookup(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, "compare", "--lookup", "apple", "dow jones", "--benchmark-type", "index")
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"AAPL", "^DJI"}}, env.reporter.compared)
	assert.Equal(t, dataflows.KindStock, env.lookup.kinds["apple"])
	assert.Equal(t, dataflows.KindIndex, env.lookup.kinds["dow jones"])
}

func TestCompareCommandReportsFailure(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, "compare", "DEAD", "^GSPC")
	require.Error(t, err)
	assert.Equal(t, "fetch: data unavailable for DEAD", err.Error())
}

func TestCompareCommandLookupEmpty(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, "compare", "--lookup", "unknown co", "dow jones")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown co")
	assert.Empty(t, env.reporter.compared)
}

func TestSnapshotCommand(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.run(t, "snapshot", "MSFT")
	require.NoError(t, err)
	assert.Contains(t, out, "Sharpe")
	assert.Contains(t, out, "1.23")
	assert.Contains(t, out, report.SnapshotFile)

	_, err = env.run(t, "snapshot", "DEAD")
	assert.ErrorContains(t, err, "data unavailable")
}

func TestAnalyzeCommandDefaults(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.run(t, "analyze", "AAPL", "--exchange", "NASDAQ")
	require.NoError(t, err)
	assert.Equal(t, "america", env.indicators.last.Screener)
	assert.Equal(t, "1d", env.indicators.last.Interval)
	assert.Contains(t, out, "NASDAQ:AAPL")
	assert.Contains(t, out, "BUY")
}

func TestAnalyzeCommandInvalidInterval(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, "analyze", "AAPL", "--exchange", "NASDAQ", "--interval", "2d")
	assert.ErrorContains(t, err, "invalid interval")
}

func TestAskCommand(t *testing.T) {
	env := newTestEnv(t)
	env.asker.answer = env.reporter.html

	out, err := env.run(t, "ask", "Compare", "Apple", "with", "the", "S&P")
	require.NoError(t, err)
	assert.Equal(t, "Compare Apple with the S&P", env.asker.prompt)
	assert.Contains(t, out, "Sharpe")
	assert.Contains(t, out, "use --out")
}

func TestAskCommandShowsAgentError(t *testing.T) {
	env := newTestEnv(t)
	env.asker.answer = orchestrator.ErrorParagraph("Error processing request: DEEPSEEK_API_KEY is not set")

	_, err := env.run(t, "ask", "hello")
	require.Error(t, err)
	assert.Equal(t, "Error processing request: DEEPSEEK_API_KEY is not set", err.Error())
}

func TestMoodCommand(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.run(t, "mood")
	require.NoError(t, err)
	assert.Regexp(t, `\{'graph_state': "Hi, this is Lance\.I am (happy|sad)!"\}`, out)
}

func TestVersionCommand(t *testing.T) {
	out, err := newTestEnv(t).run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "StockLens v"+Version)
}

func TestConfigShowMasksSecrets(t *testing.T) {
	env := newTestEnv(t)
	env.app.cfg.DeepSeekAPIKey = "sk-very-secret"

	out, err := env.run(t, "config", "show")
	require.NoError(t, err)
	assert.NotContains(t, out, "sk-very-secret")
	assert.Contains(t, out, "deepseek_api_key")
	assert.Contains(t, out, "symbol_policy")
}

func TestConfigSetSavesFile(t *testing.T) {
	env := newTestEnv(t)
	env.app.cfg.OpenAIAPIKey = "sk-other"

	_, err := env.run(t, "config", "set", "symbol_policy", "strip-suffix")
	require.NoError(t, err)
	assert.Equal(t, config.SymbolPolicyStripSuffix, env.app.cfg.SymbolPolicy)

	data, err := os.ReadFile(filepath.Join(env.dir, configFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"symbol_policy": "strip-suffix"`)
	assert.NotContains(t, string(data), "sk-other")
}

func TestConfigSetRejectsInvalidValue(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, "config", "set", "artifact_channel", "s3")
	assert.ErrorContains(t, err, "unknown artifact channel")
	assert.Equal(t, config.ArtifactChannelFile, env.app.cfg.ArtifactChannel)
}

func TestInvalidConfigFileFailsEarly(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(env.dir, "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"symbol_policy": "guess"}`), 0o644))

	_, err := env.run(t, "--config", path, "version")
	assert.ErrorContains(t, err, "unknown symbol policy")
}

func TestValidateConfigWarnings(t *testing.T) {
	cfg := newTestEnv(t).app.cfg
	cfg.MarketDataProvider = config.ProviderLongport
	cfg.ArtifactChannel = config.ArtifactChannelMemory

	warnings := validateConfig(cfg)
	joined := strings.Join(warnings, "\n")
	assert.Contains(t, joined, "DEEPSEEK_API_KEY")
	assert.Contains(t, joined, "Longport")
	assert.Contains(t, joined, "memory")
}

func TestErrorText(t *testing.T) {
	msg, ok := errorText(orchestrator.ErrorParagraph("a < b"))
	assert.True(t, ok)
	assert.Equal(t, "a < b", msg)

	_, ok = errorText("<!DOCTYPE html><html></html>")
	assert.False(t, ok)
}
