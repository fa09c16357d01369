package tools

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	t_utils "github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/dyike/StockLens/consts"
	"github.com/dyike/StockLens/internal/dataflows"
	"github.com/dyike/StockLens/internal/models"
)

// Reporter produces comparison reports and snapshots with failures folded
// into the Error field. *report.Pipeline satisfies it.
type Reporter interface {
	CompareResult(ctx context.Context, symbol, benchmark string) models.CompareOutput
	SnapshotResult(ctx context.Context, symbol string) models.SnapshotOutput
}

// NewCompareTool compares a stock with a benchmark and returns the HTML report.
func NewCompareTool(reporter Reporter) tool.InvokableTool {
	return t_utils.NewTool(
		&schema.ToolInfo{
			Name: consts.ToolCompareStocks,
			Desc: "Compare the provided stocks and generate html report. The first symbol is the stock, the second the benchmark",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"symbol": {
					Type:     "string",
					Desc:     "Ticker symbol of the stock to analyze (e.g., 'AAPL')",
					Required: true,
				},
				"benchmark": {
					Type:     "string",
					Desc:     "Ticker symbol of the benchmark (e.g., '^DJI', 'MSFT')",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, input models.CompareInput) (*models.CompareOutput, error) {
			if strings.TrimSpace(input.Symbol) == "" || strings.TrimSpace(input.Benchmark) == "" {
				return &models.CompareOutput{Error: "symbol and benchmark are both required"}, nil
			}
			out := reporter.CompareResult(ctx, input.Symbol, input.Benchmark)
			if out.Error != "" {
				log.Printf("[Tools] %s(%s, %s) failed: %s", consts.ToolCompareStocks, input.Symbol, input.Benchmark, out.Error)
			}
			return &out, nil
		},
	)
}

// NewSnapshotTool returns the single-symbol performance snapshot.
func NewSnapshotTool(reporter Reporter) tool.InvokableTool {
	return t_utils.NewTool(
		&schema.ToolInfo{
			Name: consts.ToolPerformanceSnapshot,
			Desc: "Get a performance snapshot (cumulative returns, drawdowns, daily returns and key statistics) for one symbol",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"symbol": {
					Type:     "string",
					Desc:     "Ticker symbol (e.g., 'AAPL')",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, input models.SnapshotInput) (*models.SnapshotOutput, error) {
			if strings.TrimSpace(input.Symbol) == "" {
				return &models.SnapshotOutput{Error: "symbol parameter is required"}, nil
			}
			out := reporter.SnapshotResult(ctx, input.Symbol)
			return &out, nil
		},
	)
}

// NewAnalyzerTool returns TradingView technical analysis for a symbol.
func NewAnalyzerTool(source dataflows.IndicatorSource) tool.InvokableTool {
	return t_utils.NewTool(
		&schema.ToolInfo{
			Name: consts.ToolStockAnalyzer,
			Desc: "Get technical analysis for the given symbol for the given period. Country and exchange details are required",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"symbol": {
					Type:     "string",
					Desc:     "Ticker symbol which is to be analyzed (e.g., 'AAPL', 'TLKM', 'BTCUSDT')",
					Required: true,
				},
				"exchange": {
					Type:     "string",
					Desc:     "Exchange at which the ticker is traded (e.g., 'NASDAQ', 'IDX', 'BINANCE')",
					Required: true,
				},
				"screener": {
					Type:     "string",
					Desc:     fmt.Sprintf("The exchange's country as the screener. One of: %s. Default: 'america'", strings.Join(dataflows.KnownScreeners(), ", ")),
					Required: false,
				},
				"interval": {
					Type:     "string",
					Desc:     fmt.Sprintf("Time interval for the analysis. One of: %s. Default: '1d'", strings.Join(dataflows.KnownIntervals(), ", ")),
					Required: false,
				},
			}),
		},
		func(ctx context.Context, input models.TechnicalAnalysisInput) (out *models.TechnicalAnalysisOutput, err error) {
			defer func() {
				if r := recover(); r != nil {
					out, err = &models.TechnicalAnalysisOutput{Error: fmt.Sprintf("%s: internal error: %v", input.Symbol, r)}, nil
				}
			}()

			req := dataflows.IndicatorRequest{
				Symbol:   strings.TrimSpace(input.Symbol),
				Exchange: strings.TrimSpace(input.Exchange),
				Screener: strings.TrimSpace(input.Screener),
				Interval: strings.TrimSpace(input.Interval),
			}
			if req.Screener == "" {
				req.Screener = "america"
			}
			if req.Interval == "" {
				req.Interval = "1d"
			}

			snapshot, err := source.Analyze(ctx, req)
			if err != nil {
				return &models.TechnicalAnalysisOutput{Error: err.Error()}, nil
			}
			return &models.TechnicalAnalysisOutput{IndicatorSnapshot: snapshot}, nil
		},
	)
}
