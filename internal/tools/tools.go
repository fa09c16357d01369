package tools

import (
	"context"

	"github.com/cloudwego/eino/components/tool"

	"github.com/dyike/StockLens/config"
	"github.com/dyike/StockLens/internal/dataflows"
	"github.com/dyike/StockLens/internal/report"
)

// Deps are the services behind the tool set. A nil field leaves its tool out.
type Deps struct {
	Lookup     dataflows.SymbolLookup
	Reports    Reporter
	Indicators dataflows.IndicatorSource
	Web        PageVisitor
}

// NewDeps wires the production services from cfg.
func NewDeps(cfg *config.Config) (Deps, error) {
	pipeline, err := report.NewPipelineFromConfig(cfg)
	if err != nil {
		return Deps{}, err
	}
	return Deps{
		Lookup:     dataflows.NewYahooLookup(cfg),
		Reports:    pipeline,
		Indicators: dataflows.NewTradingViewClient(cfg),
		Web:        dataflows.NewWebPageClient(cfg.FetchTimeout),
	}, nil
}

// All returns the agent tool set.
func All(deps Deps) []tool.InvokableTool {
	var out []tool.InvokableTool
	if deps.Lookup != nil {
		out = append(out, NewSymbolLookupTool(deps.Lookup))
	}
	if deps.Reports != nil {
		out = append(out, NewCompareTool(deps.Reports), NewSnapshotTool(deps.Reports))
	}
	if deps.Indicators != nil {
		out = append(out, NewAnalyzerTool(deps.Indicators))
	}
	if deps.Web != nil {
		out = append(out, NewVisitWebpageTool(deps.Web))
	}
	return out
}

// BaseTools adapts a tool set to the slice type the agent config takes.
func BaseTools(ts []tool.InvokableTool) []tool.BaseTool {
	out := make([]tool.BaseTool, len(ts))
	for i, t := range ts {
		out[i] = t
	}
	return out
}

// ByName indexes a tool set by tool name.
func ByName(ctx context.Context, ts []tool.InvokableTool) (map[string]tool.InvokableTool, error) {
	out := make(map[string]tool.InvokableTool, len(ts))
	for _, t := range ts {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, err
		}
		out[info.Name] = t
	}
	return out, nil
}
