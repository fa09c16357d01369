package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/flow/agent"
	"github.com/cloudwego/eino/flow/agent/react"
	"github.com/cloudwego/eino/schema"

	"github.com/dyike/StockLens/config"
	"github.com/dyike/StockLens/consts"
	"github.com/dyike/StockLens/internal/models"
	"github.com/dyike/StockLens/internal/tools"
)

const systemPrompt = `You are a stock performance comparison assistant.
Follow these steps:
1. Use the ` + consts.ToolSymbolLookup + ` tool to get correct symbols
2. Use the ` + consts.ToolCompareStocks + ` tool with the symbols
3. Return the HTML content from ` + consts.ToolCompareStocks + `
4. Do not modify or summarize the response`

const defaultMaxTokens = 8192

// NewChatModel builds the tool-calling chat model selected by cfg.LLMProvider.
func NewChatModel(ctx context.Context, cfg *config.Config) (model.ToolCallingChatModel, error) {
	switch cfg.LLMProvider {
	case config.LLMProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, errors.New("OPENAI_API_KEY is not set")
		}
		maxTokens := defaultMaxTokens
		cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL:   cfg.BackendURL,
			APIKey:    cfg.OpenAIAPIKey,
			Model:     cfg.Model,
			MaxTokens: &maxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create OpenAI model: %w", err)
		}
		return cm, nil
	case config.LLMProviderDeepSeek, "":
		if cfg.DeepSeekAPIKey == "" {
			return nil, errors.New("DEEPSEEK_API_KEY is not set")
		}
		cm, err := deepseek.NewChatModel(ctx, &deepseek.ChatModelConfig{
			BaseURL:   cfg.BackendURL,
			APIKey:    cfg.DeepSeekAPIKey,
			Model:     cfg.Model,
			MaxTokens: defaultMaxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create DeepSeek model: %w", err)
		}
		return cm, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
	}
}

// Agent answers free-form prompts by letting a model drive the tool set.
// The comparison tool ends the run, so its report reaches the caller as-is.
type Agent struct {
	agent   *react.Agent
	handler *ToolLogger
}

func NewAgent(ctx context.Context, chatModel model.ToolCallingChatModel, ts []tool.InvokableTool, maxSteps int) (*Agent, error) {
	ag, err := react.NewAgent(ctx, &react.AgentConfig{
		ToolCallingModel: chatModel,
		ToolsConfig: compose.ToolsNodeConfig{
			Tools: tools.BaseTools(ts),
		},
		MaxStep:               maxSteps,
		ToolReturnDirectly:    map[string]struct{}{consts.ToolCompareStocks: {}},
		StreamToolCallChecker: toolCallChecker,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create agent: %w", err)
	}
	return &Agent{agent: ag, handler: &ToolLogger{}}, nil
}

// NewAgentFromConfig wires the configured chat model and the full tool set.
func NewAgentFromConfig(ctx context.Context, cfg *config.Config) (*Agent, error) {
	cm, err := NewChatModel(ctx, cfg)
	if err != nil {
		return nil, err
	}
	deps, err := tools.NewDeps(cfg)
	if err != nil {
		return nil, err
	}
	a, err := NewAgent(ctx, cm, tools.All(deps), cfg.MaxAgentSteps)
	if err != nil {
		return nil, err
	}
	a.handler.Debug = cfg.Debug
	return a, nil
}

// Infer runs prompt through the agent and returns either the report HTML or
// a red error paragraph.
func (a *Agent) Infer(ctx context.Context, prompt string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Agent] panic: %v", r)
			out = ErrorParagraph(fmt.Sprintf("Error processing request: %v", r))
		}
	}()

	msg, err := a.agent.Generate(ctx, []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(prompt),
	}, agent.WithComposeOptions(compose.WithCallbacks(a.handler)))
	if err != nil {
		log.Printf("[Agent] run failed: %v", err)
		return ErrorParagraph(fmt.Sprintf("Error processing request: %v", err))
	}
	return renderAnswer(msg)
}

func renderAnswer(msg *schema.Message) string {
	if msg == nil {
		return ErrorParagraph("Invalid response format")
	}
	if msg.Role == schema.Tool {
		var out models.CompareOutput
		if err := json.Unmarshal([]byte(msg.Content), &out); err == nil {
			if out.Error != "" {
				return ErrorParagraph(out.Error)
			}
			if out.HTML != "" {
				return out.HTML
			}
		}
	}
	if IsHTMLDocument(msg.Content) {
		return msg.Content
	}
	return ErrorParagraph("Unexpected response format: " + msg.Content)
}

// IsHTMLDocument reports whether s is a full HTML document with some content.
func IsHTMLDocument(s string) bool {
	lower := strings.ToLower(s)
	if !strings.Contains(lower, "<!doctype html>") && !strings.Contains(lower, "<html") {
		return false
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return false
	}
	body := doc.Find("body")
	return strings.TrimSpace(body.Text()) != "" || body.Find("img, table").Length() > 0
}

func toolCallChecker(_ context.Context, sr *schema.StreamReader[*schema.Message]) (bool, error) {
	defer sr.Close()
	for {
		msg, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if len(msg.ToolCalls) > 0 {
			return true, nil
		}
	}
}
