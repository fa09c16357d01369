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

// NewSymbolLookupTool resolves a company or index name to ticker symbols.
func NewSymbolLookupTool(lookup dataflows.SymbolLookup) tool.InvokableTool {
	return t_utils.NewTool(
		&schema.ToolInfo{
			Name: consts.ToolSymbolLookup,
			Desc: "Find the exact symbols to be used in the stock comparison tool. Returns the matching ticker symbols, most relevant first",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {
					Type:     "string",
					Desc:     "Company or index search term",
					Required: true,
				},
				"type": {
					Type:     "string",
					Desc:     "Accepts 'stock' or 'index'. Default: 'stock'",
					Enum:     []string{string(dataflows.KindStock), string(dataflows.KindIndex)},
					Required: false,
				},
			}),
		},
		func(ctx context.Context, input models.SymbolLookupInput) ([]string, error) {
			query := strings.TrimSpace(input.Query)
			if query == "" {
				return []string{}, nil
			}
			symbols, err := lookup.Lookup(ctx, query, dataflows.ParseSymbolKind(input.Type))
			if err != nil {
				return nil, fmt.Errorf("symbol lookup for %q: %w", query, err)
			}
			if symbols == nil {
				symbols = []string{}
			}
			log.Printf("[Tools] %s(%q, %s) -> %d symbols", consts.ToolSymbolLookup, query, input.Type, len(symbols))
			return symbols, nil
		},
	)
}
