package tools

import (
	"context"

	"github.com/cloudwego/eino/components/tool"
	t_utils "github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/dyike/StockLens/consts"
	"github.com/dyike/StockLens/internal/models"
)

// PageVisitor fetches a web page as readable text.
type PageVisitor interface {
	Visit(ctx context.Context, rawURL string) (*models.WebpageOutput, error)
}

// NewVisitWebpageTool lets the agent read a page it found or was given.
func NewVisitWebpageTool(visitor PageVisitor) tool.InvokableTool {
	return t_utils.NewTool(
		&schema.ToolInfo{
			Name: consts.ToolVisitWebpage,
			Desc: "Visit a webpage at the given url and read its content as text",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"url": {
					Type:     "string",
					Desc:     "The url of the webpage to visit",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, input models.WebpageInput) (*models.WebpageOutput, error) {
			return visitor.Visit(ctx, input.URL)
		},
	)
}
