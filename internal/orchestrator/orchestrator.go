package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/tool"

	"github.com/dyike/StockLens/config"
	"github.com/dyike/StockLens/consts"
	"github.com/dyike/StockLens/internal/dataflows"
	"github.com/dyike/StockLens/internal/graph"
	"github.com/dyike/StockLens/internal/models"
	"github.com/dyike/StockLens/internal/tools"
)

const (
	routeLookup  graph.Outcome = "lookup"
	routeCompare graph.Outcome = "compare"
)

// Subject is one side of a comparison. A subject with Ticker set is already
// resolved and skips the lookup.
type Subject struct {
	Query  string               `json:"query,omitempty"`
	Kind   dataflows.SymbolKind `json:"kind,omitempty"`
	Ticker string               `json:"ticker,omitempty"`
}

// Label is the ticker when known, otherwise the lookup query.
func (s Subject) Label() string {
	if s.Ticker != "" {
		return s.Ticker
	}
	return s.Query
}

// Plan lists the subjects of a request: the primary symbol first, then the
// benchmark.
type Plan struct {
	Subjects []Subject `json:"subjects"`
}

// ComparePlan is the plan for comparing primary against benchmark, both given
// as free text to be resolved.
func ComparePlan(primary string, primaryKind dataflows.SymbolKind, benchmark string, benchmarkKind dataflows.SymbolKind) Plan {
	return Plan{Subjects: []Subject{
		{Query: primary, Kind: primaryKind},
		{Query: benchmark, Kind: benchmarkKind},
	}}
}

func (p Plan) needsLookup() bool {
	for _, s := range p.Subjects {
		if s.Ticker == "" {
			return true
		}
	}
	return false
}

func (p Plan) validate() error {
	if len(p.Subjects) != 2 {
		return fmt.Errorf("a comparison needs a symbol and a benchmark, got %d subjects", len(p.Subjects))
	}
	for i, s := range p.Subjects {
		if strings.TrimSpace(s.Query) == "" && strings.TrimSpace(s.Ticker) == "" {
			return fmt.Errorf("subject %d has neither a query nor a ticker", i+1)
		}
	}
	return nil
}

// Response is what the caller sees: the report HTML verbatim, or a short
// HTML error paragraph.
type Response struct {
	HTML       string `json:"html,omitempty"`
	ReportPath string `json:"report_path,omitempty"`
	Error      string `json:"error,omitempty"`
}

// ErrorParagraph renders msg the way failures are shown in place of a report.
func ErrorParagraph(msg string) string {
	return fmt.Sprintf("<p style='color: red'>%s</p>", html.EscapeString(msg))
}

type Options struct {
	MaxSteps int
	Debug    bool
	// Retry applies to every tool call. Defaults to one retry of network
	// failures.
	Retry *dataflows.RetryConfig
	Trace func(step string)
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{MaxSteps: cfg.MaxGraphSteps, Debug: cfg.Debug}
}

// Orchestrator sequences lookup and comparison tool calls for a Plan.
type Orchestrator struct {
	tools map[string]tool.InvokableTool
	graph *graph.Graph
	retry *dataflows.RetryConfig
	debug bool
}

// New builds the orchestration graph over a tool set. The set must contain
// the lookup and comparison tools.
func New(ctx context.Context, ts []tool.InvokableTool, opts Options) (*Orchestrator, error) {
	byName, err := tools.ByName(ctx, ts)
	if err != nil {
		return nil, fmt.Errorf("read tool info: %w", err)
	}
	for _, name := range []string{consts.ToolSymbolLookup, consts.ToolCompareStocks} {
		if _, ok := byName[name]; !ok {
			return nil, fmt.Errorf("orchestrator requires the %s tool", name)
		}
	}
	if opts.Retry == nil {
		opts.Retry = dataflows.DefaultRetryConfig()
	}

	o := &Orchestrator{tools: byName, retry: opts.Retry, debug: opts.Debug}

	graphOpts := []graph.Option{
		graph.WithName("orchestrator"),
		graph.WithMaxSteps(opts.MaxSteps),
		graph.WithDebug(opts.Debug),
	}
	if opts.Trace != nil {
		graphOpts = append(graphOpts, graph.WithTrace(opts.Trace))
	}
	b := graph.NewBuilder(graphOpts...)

	_ = b.AddStep(consts.PlanStep, o.plan)
	_ = b.AddStep(consts.LookupStep, o.lookup)
	_ = b.AddStep(consts.CompareStep, o.compare)
	_ = b.AddStep(consts.RespondStep, o.respond)

	_ = b.AddEdge(graph.Start, consts.PlanStep)
	_ = b.AddConditionalEdge(consts.PlanStep, decideLookup, map[graph.Outcome]string{
		routeLookup:  consts.LookupStep,
		routeCompare: consts.CompareStep,
	})
	_ = b.AddEdge(consts.LookupStep, consts.CompareStep)
	_ = b.AddEdge(consts.CompareStep, consts.RespondStep)
	_ = b.AddEdge(consts.RespondStep, graph.End)

	g, err := b.Compile()
	if err != nil {
		return nil, err
	}
	o.graph = g
	return o, nil
}

// Run executes plan and never fails: errors come back in Response.Error.
func (o *Orchestrator) Run(ctx context.Context, plan Plan) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Orchestrator] panic: %v", r)
			resp = Response{Error: ErrorParagraph(fmt.Sprintf("Error processing request: %v", r))}
		}
	}()

	final, err := o.graph.Invoke(ctx, graph.State{consts.State_Plan: plan})
	if err != nil {
		log.Printf("[Orchestrator] request failed: %v", err)
		return Response{Error: ErrorParagraph(userMessage(err))}
	}
	resp, ok := graph.Get[Response](final, consts.State_Response)
	if !ok {
		return Response{Error: ErrorParagraph("Error processing request: no response was produced")}
	}
	return resp
}

// userMessage drops the step wrapper so the caller sees the cause.
func userMessage(err error) string {
	var se *graph.StepError
	if errors.As(err, &se) {
		return se.Err.Error()
	}
	return err.Error()
}

func decideLookup(_ context.Context, state graph.State) (graph.Outcome, error) {
	plan, ok := graph.Get[Plan](state, consts.State_Plan)
	if !ok {
		return "", errors.New("state has no plan")
	}
	if plan.needsLookup() {
		return routeLookup, nil
	}
	return routeCompare, nil
}

func (o *Orchestrator) plan(_ context.Context, state graph.State) (graph.State, error) {
	plan, ok := graph.Get[Plan](state, consts.State_Plan)
	if !ok {
		return nil, errors.New("state has no plan")
	}
	if err := plan.validate(); err != nil {
		return nil, err
	}

	tickers := make([]string, len(plan.Subjects))
	for i, s := range plan.Subjects {
		tickers[i] = strings.TrimSpace(s.Ticker)
	}
	if o.debug {
		log.Printf("[Orchestrator] plan: %s vs %s", plan.Subjects[0].Label(), plan.Subjects[1].Label())
	}
	return graph.State{consts.State_Tickers: tickers, consts.State_LookupUsed: false}, nil
}

func (o *Orchestrator) lookup(ctx context.Context, state graph.State) (graph.State, error) {
	plan, _ := graph.Get[Plan](state, consts.State_Plan)
	current, _ := graph.Get[[]string](state, consts.State_Tickers)
	tickers := append([]string(nil), current...)

	for i, s := range plan.Subjects {
		if tickers[i] != "" {
			continue
		}
		kind := s.Kind
		if kind == "" {
			kind = dataflows.KindStock
		}
		args, err := json.Marshal(models.SymbolLookupInput{Query: s.Query, Type: string(kind)})
		if err != nil {
			return nil, err
		}
		raw, err := o.call(ctx, consts.ToolSymbolLookup, string(args))
		if err != nil {
			return nil, err
		}
		var candidates []string
		if err := json.Unmarshal([]byte(raw), &candidates); err != nil {
			return nil, fmt.Errorf("%s returned an unexpected payload: %w", consts.ToolSymbolLookup, err)
		}
		if len(candidates) == 0 {
			return nil, models.NewLookupEmpty(s.Query)
		}
		tickers[i] = candidates[0]
		log.Printf("[Orchestrator] resolved %q (%s) to %s", s.Query, kind, tickers[i])
	}
	return graph.State{consts.State_Tickers: tickers, consts.State_LookupUsed: true}, nil
}

func (o *Orchestrator) compare(ctx context.Context, state graph.State) (graph.State, error) {
	tickers, _ := graph.Get[[]string](state, consts.State_Tickers)
	if len(tickers) != 2 || tickers[0] == "" || tickers[1] == "" {
		return nil, fmt.Errorf("unresolved symbols: %v", tickers)
	}

	args, err := json.Marshal(models.CompareInput{Symbol: tickers[0], Benchmark: tickers[1]})
	if err != nil {
		return nil, err
	}
	raw, err := o.call(ctx, consts.ToolCompareStocks, string(args))
	if err != nil {
		return nil, err
	}
	var out models.CompareOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("%s returned an unexpected payload: %w", consts.ToolCompareStocks, err)
	}
	if out.Error != "" {
		return nil, errors.New(out.Error)
	}
	if out.HTML == "" {
		return nil, fmt.Errorf("%s returned no report for %s", consts.ToolCompareStocks, tickers[0])
	}
	return graph.State{consts.State_Report: out}, nil
}

func (o *Orchestrator) respond(_ context.Context, state graph.State) (graph.State, error) {
	out, ok := graph.Get[models.CompareOutput](state, consts.State_Report)
	if !ok {
		return nil, errors.New("state has no report")
	}
	return graph.State{consts.State_Response: Response{HTML: out.HTML, ReportPath: out.ReportPath}}, nil
}

// call invokes a tool by name. Only network failures are retried.
func (o *Orchestrator) call(ctx context.Context, name, args string) (string, error) {
	t, ok := o.tools[name]
	if !ok {
		return "", fmt.Errorf("unknown tool %s", name)
	}
	var out string
	err := dataflows.WithRetry(ctx, o.retry, func(ctx context.Context) error {
		var err error
		out, err = t.InvokableRun(ctx, args)
		return err
	})
	if err != nil {
		return "", err
	}
	if o.debug {
		log.Printf("[Orchestrator] %s(%s) -> %d bytes", name, args, len(out))
	}
	return out, nil
}
