package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/StockLens/consts"
	"github.com/dyike/StockLens/internal/dataflows"
	"github.com/dyike/StockLens/internal/models"
	"github.com/dyike/StockLens/internal/tools"
)

type stubLookup struct{ err error }

func (s stubLookup) Lookup(_ context.Context, query string, kind dataflows.SymbolKind) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	if kind == dataflows.KindIndex {
		return []string{"^DJI"}, nil
	}
	return []string{"AAPL"}, nil
}

type stubReporter struct{}

func (stubReporter) CompareResult(_ context.Context, symbol, _ string) models.CompareOutput {
	if symbol == "ZZZZ" {
		return models.CompareOutput{Error: "fetch: data unavailable for ZZZZ"}
	}
	return models.CompareOutput{HTML: "<!DOCTYPE html><title>" + symbol + "</title>"}
}

func (stubReporter) SnapshotResult(_ context.Context, symbol string) models.SnapshotOutput {
	return models.SnapshotOutput{Image: "data:image/png;base64,AA==", Metrics: []models.Metric{{Name: "CAGR", Strategy: 0.1, Percent: true}}}
}

type stubIndicators struct{}

func (stubIndicators) Analyze(_ context.Context, req dataflows.IndicatorRequest) (*models.IndicatorSnapshot, error) {
	if err := dataflows.ValidateIndicatorRequest(req); err != nil {
		return nil, err
	}
	return &models.IndicatorSnapshot{Symbol: req.Symbol, Screener: req.Screener, Interval: req.Interval}, nil
}

type stubVisitor struct{}

func (stubVisitor) Visit(context.Context, string) (*models.WebpageOutput, error) {
	return &models.WebpageOutput{}, nil
}

func connect(t *testing.T, deps tools.Deps) *sdkmcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	srv, err := New(ctx, tools.All(deps), "test")
	require.NoError(t, err)

	t1, t2 := sdkmcp.NewInMemoryTransports()
	serverSession, err := srv.MCPServer.Connect(ctx, t1, nil)
	require.NoError(t, err)
	t.Cleanup(func() { serverSession.Close() })

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, t2, nil)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })
	return session
}

func defaultDeps() tools.Deps {
	return tools.Deps{
		Lookup:     stubLookup{},
		Reports:    stubReporter{},
		Indicators: stubIndicators{},
		Web:        stubVisitor{},
	}
}

func call(t *testing.T, session *sdkmcp.ClientSession, name string, args map[string]any) string {
	t.Helper()
	res, err := session.CallTool(context.Background(), &sdkmcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	assert.False(t, res.IsError, "failures are reported in the payload")
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*sdkmcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestToolDiscovery(t *testing.T) {
	session := connect(t, defaultDeps())

	list, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tl := range list.Tools {
		names = append(names, tl.Name)
		assert.NotEmpty(t, tl.Description)
	}
	assert.ElementsMatch(t, []string{
		consts.ToolStockAnalyzer,
		consts.ToolPerformanceSnapshot,
		consts.ToolCompareStocks,
		consts.ToolSymbolLookup,
	}, names, "the web page tool stays agent-only")
}

func TestCompareOverMCP(t *testing.T) {
	session := connect(t, defaultDeps())

	var out models.CompareOutput
	require.NoError(t, json.Unmarshal([]byte(call(t, session, consts.ToolCompareStocks, map[string]any{
		"symbol": "AAPL", "benchmark": "^DJI",
	})), &out))
	assert.Equal(t, "<!DOCTYPE html><title>AAPL</title>", out.HTML)

	text := call(t, session, consts.ToolCompareStocks, map[string]any{"symbol": "ZZZZ", "benchmark": "^DJI"})
	assert.JSONEq(t, `{"Error":"fetch: data unavailable for ZZZZ"}`, text)
}

func TestAnalyzerOverMCP(t *testing.T) {
	session := connect(t, defaultDeps())

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(call(t, session, consts.ToolStockAnalyzer, map[string]any{
		"symbol": "AAPL", "exchange": "NASDAQ",
	})), &out))
	assert.Equal(t, "america", out["Screener"])
	assert.Equal(t, "1d", out["Interval"])

	text := call(t, session, consts.ToolStockAnalyzer, map[string]any{
		"symbol": "AAPL", "exchange": "NASDAQ", "screener": "atlantis",
	})
	assert.Contains(t, text, `"Error"`)
	assert.Contains(t, text, "unknown screener")
}

func TestLookupOverMCP(t *testing.T) {
	session := connect(t, defaultDeps())

	text := call(t, session, consts.ToolSymbolLookup, map[string]any{"query": "Dow Jones", "type": "index"})
	assert.JSONEq(t, `["^DJI"]`, text)
}

func TestLookupFailureIsPayload(t *testing.T) {
	deps := defaultDeps()
	deps.Lookup = stubLookup{err: errors.New("search unavailable")}
	session := connect(t, deps)

	text := call(t, session, consts.ToolSymbolLookup, map[string]any{"query": "Apple"})
	var out errorPayload
	require.NoError(t, json.Unmarshal([]byte(text), &out))
	assert.Contains(t, out.Error, "search unavailable")
}

func TestSnapshotOverMCP(t *testing.T) {
	session := connect(t, defaultDeps())

	var out models.SnapshotOutput
	require.NoError(t, json.Unmarshal([]byte(call(t, session, consts.ToolPerformanceSnapshot, map[string]any{"symbol": "AAPL"})), &out))
	assert.NotEmpty(t, out.Image)
	require.Len(t, out.Metrics, 1)
	assert.Equal(t, "CAGR", out.Metrics[0].Name)
}
