package orchestrator

import (
	"context"
	"log"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
)

const maxLoggedPayload = 200

// ToolLogger logs every tool call an agent makes and, with Debug, the size
// of each tool result.
type ToolLogger struct {
	Debug bool
}

var _ callbacks.Handler = (*ToolLogger)(nil)

func clip(s string) string {
	if len(s) > maxLoggedPayload {
		return s[:maxLoggedPayload] + "..."
	}
	return s
}

func (cb *ToolLogger) OnStart(ctx context.Context, info *callbacks.RunInfo, input callbacks.CallbackInput) context.Context {
	if info == nil || info.Component != components.ComponentOfTool {
		return ctx
	}
	if in := tool.ConvCallbackInput(input); in != nil {
		log.Printf("[Agent] calling %s(%s)", info.Name, clip(in.ArgumentsInJSON))
	}
	return ctx
}

func (cb *ToolLogger) OnEnd(ctx context.Context, info *callbacks.RunInfo, output callbacks.CallbackOutput) context.Context {
	if !cb.Debug || info == nil || info.Component != components.ComponentOfTool {
		return ctx
	}
	if out := tool.ConvCallbackOutput(output); out != nil {
		log.Printf("[Agent] %s returned %d bytes", info.Name, len(out.Response))
	}
	return ctx
}

func (cb *ToolLogger) OnError(ctx context.Context, info *callbacks.RunInfo, err error) context.Context {
	name := ""
	if info != nil {
		name = info.Name
	}
	log.Printf("[Agent] %s failed: %v", name, err)
	return ctx
}

func (cb *ToolLogger) OnStartWithStreamInput(ctx context.Context, _ *callbacks.RunInfo,
	input *schema.StreamReader[callbacks.CallbackInput]) context.Context {
	input.Close()
	return ctx
}

func (cb *ToolLogger) OnEndWithStreamOutput(ctx context.Context, _ *callbacks.RunInfo,
	output *schema.StreamReader[callbacks.CallbackOutput]) context.Context {
	output.Close()
	return ctx
}
