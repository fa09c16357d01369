// Package mcpserver exposes the report and analysis tools over the Model
// Context Protocol.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/cloudwego/eino/components/tool"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dyike/StockLens/consts"
	"github.com/dyike/StockLens/internal/tools"
)

type lookupArgs struct {
	Query string `json:"query" jsonschema:"company or index search term"`
	Type  string `json:"type,omitempty" jsonschema:"stock or index (default stock)"`
}

type compareArgs struct {
	Symbol    string `json:"symbol" jsonschema:"ticker of the stock to analyze, e.g. AAPL"`
	Benchmark string `json:"benchmark" jsonschema:"ticker of the benchmark, e.g. ^DJI"`
}

type snapshotArgs struct {
	Symbol string `json:"symbol" jsonschema:"ticker symbol, e.g. AAPL"`
}

type analyzerArgs struct {
	Symbol   string `json:"symbol" jsonschema:"ticker symbol to analyze, e.g. AAPL or BTCUSDT"`
	Exchange string `json:"exchange" jsonschema:"exchange the ticker trades on, e.g. NASDAQ or BINANCE"`
	Screener string `json:"screener,omitempty" jsonschema:"the exchange's country, e.g. america or india (default america)"`
	Interval string `json:"interval,omitempty" jsonschema:"analysis interval, e.g. 1d, 1h or 15m (default 1d)"`
}

type errorPayload struct {
	Error string `json:"Error"`
}

// Server serves a tool set to MCP clients.
type Server struct {
	MCPServer *sdkmcp.Server
	tools     map[string]tool.InvokableTool
}

// New registers every MCP-exposed tool found in ts.
func New(ctx context.Context, ts []tool.InvokableTool, version string) (*Server, error) {
	byName, err := tools.ByName(ctx, ts)
	if err != nil {
		return nil, err
	}
	s := &Server{
		MCPServer: sdkmcp.NewServer(&sdkmcp.Implementation{Name: "stocklens", Version: version}, nil),
		tools:     byName,
	}

	if t, ok := byName[consts.ToolStockAnalyzer]; ok {
		sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
			Name:        consts.ToolStockAnalyzer,
			Description: describe(ctx, t),
		}, bridge[analyzerArgs](t))
	}
	if t, ok := byName[consts.ToolPerformanceSnapshot]; ok {
		sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
			Name:        consts.ToolPerformanceSnapshot,
			Description: describe(ctx, t),
		}, bridge[snapshotArgs](t))
	}
	if t, ok := byName[consts.ToolCompareStocks]; ok {
		sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
			Name:        consts.ToolCompareStocks,
			Description: describe(ctx, t),
		}, bridge[compareArgs](t))
	}
	if t, ok := byName[consts.ToolSymbolLookup]; ok {
		sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
			Name:        consts.ToolSymbolLookup,
			Description: describe(ctx, t),
		}, bridge[lookupArgs](t))
	}
	return s, nil
}

// Run serves on stdin/stdout until the client disconnects or ctx is done.
func (s *Server) Run(ctx context.Context) error {
	log.Printf("[MCP] serving %d tools on stdio", len(s.tools))
	return s.MCPServer.Run(ctx, &sdkmcp.StdioTransport{})
}

func describe(ctx context.Context, t tool.InvokableTool) string {
	info, err := t.Info(ctx)
	if err != nil {
		return ""
	}
	return info.Desc
}

// bridge forwards an MCP call to t. Failures come back as an {"Error": msg}
// payload so clients never see a protocol fault.
func bridge[In any](t tool.InvokableTool) sdkmcp.ToolHandlerFor[In, any] {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input In) (res *sdkmcp.CallToolResult, out any, err error) {
		defer func() {
			if r := recover(); r != nil {
				res, out, err = textResult(errorJSON(fmt.Sprintf("internal error: %v", r))), nil, nil
			}
		}()

		args, err := json.Marshal(input)
		if err != nil {
			return textResult(errorJSON(err.Error())), nil, nil
		}
		raw, err := t.InvokableRun(ctx, string(args))
		if err != nil {
			log.Printf("[MCP] %s failed: %v", req.Params.Name, err)
			return textResult(errorJSON(err.Error())), nil, nil
		}
		return textResult(raw), nil, nil
	}
}

func errorJSON(msg string) string {
	raw, _ := json.Marshal(errorPayload{Error: msg})
	return string(raw)
}

func textResult(text string) *sdkmcp.CallToolResult {
	return &sdkmcp.CallToolResult{Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: text}}}
}
