package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/spf13/cobra"

	"github.com/dyike/StockLens/config"
	"github.com/dyike/StockLens/consts"
	"github.com/dyike/StockLens/internal/dataflows"
	"github.com/dyike/StockLens/internal/debug"
	"github.com/dyike/StockLens/internal/display"
	"github.com/dyike/StockLens/internal/graph"
	"github.com/dyike/StockLens/internal/mcpserver"
	"github.com/dyike/StockLens/internal/models"
	"github.com/dyike/StockLens/internal/mood"
	"github.com/dyike/StockLens/internal/orchestrator"
	"github.com/dyike/StockLens/internal/report"
	"github.com/dyike/StockLens/internal/storage"
	"github.com/dyike/StockLens/internal/tools"
)

const Version = "0.1.0"

// Asker answers a free-form request with report HTML or an error paragraph.
type Asker interface {
	Infer(ctx context.Context, prompt string) string
}

// app holds the configuration and the constructors of every service the
// commands use.
type app struct {
	cfg        *config.Config
	configPath string
	debug      bool

	newTools  func(cfg *config.Config) ([]tool.InvokableTool, error)
	newRunner func(cfg *config.Config) (CompareRunner, error)
	newAgent  func(ctx context.Context, cfg *config.Config) (Asker, error)
	now       func() time.Time
}

func newApp(cfg *config.Config) *app {
	return &app{
		cfg: cfg,
		newTools: func(cfg *config.Config) ([]tool.InvokableTool, error) {
			deps, err := tools.NewDeps(cfg)
			if err != nil {
				return nil, err
			}
			return tools.All(deps), nil
		},
		newRunner: func(cfg *config.Config) (CompareRunner, error) {
			return report.NewPipelineFromConfig(cfg)
		},
		newAgent: func(ctx context.Context, cfg *config.Config) (Asker, error) {
			return orchestrator.NewAgentFromConfig(ctx, cfg)
		},
		now: time.Now,
	}
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	return newRootCmd(newApp(config.DefaultConfig()))
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "stocklens",
		Short: "StockLens - stock performance reports and comparisons",
		Long: `StockLens compares a stock with a benchmark, renders quantitative performance
reports, and runs TradingView technical analysis. Run without a command for the
interactive menu.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.prepare()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return NewInteractiveSession(a).Start(cmd.Context())
		},
	}

	rootCmd.AddCommand(
		newCompareCmd(a),
		newSnapshotCmd(a),
		newAnalyzeCmd(a),
		newLookupCmd(a),
		newAskCmd(a),
		newBatchCmd(a),
		newResultsCmd(a),
		newServeCmd(a),
		newMoodCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)

	rootCmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug mode")
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Configuration file path (default ./stocklens.json when present)")

	return rootCmd
}

// prepare overlays the config file and flags, then validates the result.
func (a *app) prepare() error {
	if a.configPath != "" {
		if err := a.cfg.LoadFile(a.configPath); err != nil {
			return err
		}
	} else if _, err := NewConfigManager(a.cfg, "").LoadConfig(); err != nil {
		return err
	}
	if a.debug {
		a.cfg.Debug = true
	}
	if err := a.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := a.cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}
	return nil
}

func (a *app) tool(ctx context.Context, name string) (tool.InvokableTool, error) {
	ts, err := a.newTools(a.cfg)
	if err != nil {
		return nil, err
	}
	byName, err := tools.ByName(ctx, ts)
	if err != nil {
		return nil, err
	}
	t, ok := byName[name]
	if !ok {
		return nil, fmt.Errorf("tool %s is not available", name)
	}
	return t, nil
}

// invoke calls t with in encoded as JSON and decodes the result into Out.
func invoke[Out any](ctx context.Context, t tool.InvokableTool, in any) (Out, error) {
	var out Out
	args, err := json.Marshal(in)
	if err != nil {
		return out, err
	}
	raw, err := t.InvokableRun(ctx, string(args))
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return out, fmt.Errorf("unexpected tool output: %w", err)
	}
	return out, nil
}

func artifactFrom(name, location string) models.Artifact {
	if strings.HasPrefix(location, "data:") {
		return models.Artifact{Name: name, DataURI: location}
	}
	return models.Artifact{Name: name, Path: location}
}

// track records the request described by e once the command returns. It is
// meant to be deferred with the command's named error.
func (a *app) track(ctx context.Context, e *storage.Entry, start time.Time, errp *error) {
	e.Duration = a.now().Sub(start)
	e.CreatedAt = start
	if errp != nil && *errp != nil {
		e.Error = (*errp).Error()
	}
	a.record(ctx, *e)
}

// record appends entries to the request history. Failures are logged only.
func (a *app) record(ctx context.Context, entries ...storage.Entry) {
	if strings.TrimSpace(a.cfg.HistoryPath) == "" || len(entries) == 0 {
		return
	}
	store, err := storage.NewStore(a.cfg.HistoryPath)
	if err != nil {
		log.Printf("[History] open %s: %v", a.cfg.HistoryPath, err)
		return
	}
	defer store.Close()

	ctx = context.WithoutCancel(ctx)
	for _, e := range entries {
		if _, err := store.Record(ctx, e); err != nil {
			log.Printf("[History] record %s %s: %v", e.Command, e.Symbol, err)
		}
	}
}

// argOrPrompt returns args[i] or asks for it with prompt.
func argOrPrompt(args []string, i int, prompt func() (string, error)) (string, error) {
	if i < len(args) && strings.TrimSpace(args[i]) != "" {
		return strings.TrimSpace(args[i]), nil
	}
	return prompt()
}

func newCompareCmd(a *app) *cobra.Command {
	var (
		lookup    bool
		kind      string
		benchKind string
		out       string
	)
	cmd := &cobra.Command{
		Use:   "compare [SYMBOL] [BENCHMARK]",
		Short: "Compare a stock with a benchmark and render the HTML report",
		Long: `Compare a stock with a benchmark over their common history.
With --lookup, SYMBOL and BENCHMARK are names resolved through symbol lookup.
Example: stocklens compare AAPL ^GSPC
         stocklens compare --lookup apple "dow jones" --benchmark-type index`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			askSymbol := func() (string, error) { return PromptForTicker("") }
			askBenchmark := PromptForBenchmark
			if lookup {
				askSymbol = func() (string, error) { return PromptForQuery("Which company?") }
				askBenchmark = func() (string, error) { return PromptForQuery("Compare against which company or index?") }
			}
			symbol, err := argOrPrompt(args, 0, askSymbol)
			if err != nil {
				return err
			}
			benchmark, err := argOrPrompt(args, 1, askBenchmark)
			if err != nil {
				return err
			}

			plan := orchestrator.Plan{Subjects: []orchestrator.Subject{{Ticker: symbol}, {Ticker: benchmark}}}
			if lookup {
				plan = orchestrator.ComparePlan(symbol, dataflows.ParseSymbolKind(kind), benchmark, dataflows.ParseSymbolKind(benchKind))
			}
			return a.runCompare(cmd.Context(), plan, out)
		},
	}
	cmd.Flags().BoolVar(&lookup, "lookup", false, "Resolve SYMBOL and BENCHMARK from names")
	cmd.Flags().StringVar(&kind, "type", string(dataflows.KindStock), "Lookup type of SYMBOL (stock or index)")
	cmd.Flags().StringVar(&benchKind, "benchmark-type", string(dataflows.KindStock), "Lookup type of BENCHMARK (stock or index)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Also write the HTML report to this file")
	return cmd
}

func (a *app) runCompare(ctx context.Context, plan orchestrator.Plan, out string) (err error) {
	entry := storage.Entry{Command: "compare"}
	if len(plan.Subjects) == 2 {
		entry.Symbol, entry.Benchmark = plan.Subjects[0].Label(), plan.Subjects[1].Label()
	}
	defer a.track(ctx, &entry, a.now(), &err)

	ts, err := a.newTools(a.cfg)
	if err != nil {
		return err
	}
	opts := orchestrator.OptionsFromConfig(a.cfg)
	if a.cfg.Debug {
		opts.Trace = func(step string) { log.Printf("[CLI] step %s", step) }
	}
	orch, err := orchestrator.New(ctx, ts, opts)
	if err != nil {
		return err
	}

	display.DisplayInfo("Building comparison report...")
	resp := orch.Run(ctx, plan)
	if resp.Error != "" {
		return htmlError(resp.Error)
	}
	entry.ReportPath = resp.ReportPath
	return a.showReportHTML(resp.HTML, resp.ReportPath, out)
}

// htmlError turns an error paragraph back into a Go error.
func htmlError(fragment string) error {
	if msg, ok := errorText(fragment); ok {
		return errors.New(msg)
	}
	return errors.New(fragment)
}

func (a *app) showReportHTML(html, reportPath, out string) error {
	headers, rows, err := reportMetrics(html)
	if err != nil {
		return err
	}
	display.DisplayMetricRows(headers, rows)
	display.DisplayArtifacts(reportPath)

	switch {
	case out != "":
		if err := report.WriteFileAtomic(out, []byte(html)); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		display.DisplaySuccess("Report written to " + out)
	case reportPath == "":
		display.DisplayInfo("Artifacts were kept in memory; use --out to save the report")
	default:
		display.DisplaySuccess("Report ready")
	}
	return nil
}

func newSnapshotCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot [SYMBOL]",
		Short: "Render the performance snapshot of one symbol",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol, err := argOrPrompt(args, 0, func() (string, error) { return PromptForTicker("") })
			if err != nil {
				return err
			}
			return a.runSnapshot(cmd.Context(), symbol)
		},
	}
}

func (a *app) runSnapshot(ctx context.Context, symbol string) (err error) {
	entry := storage.Entry{Command: "snapshot", Symbol: symbol}
	defer a.track(ctx, &entry, a.now(), &err)

	t, err := a.tool(ctx, consts.ToolPerformanceSnapshot)
	if err != nil {
		return err
	}
	out, err := invoke[models.SnapshotOutput](ctx, t, models.SnapshotInput{Symbol: symbol})
	if err != nil {
		return err
	}
	if out.Error != "" {
		return errors.New(out.Error)
	}
	DisplayHeader(symbol + " performance snapshot")
	display.DisplayMetrics(symbol, "", out.Metrics)
	artifact := artifactFrom(report.SnapshotFile, out.Image)
	entry.ReportPath = artifact.Path
	display.DisplayArtifacts("", artifact)
	return nil
}

func newAnalyzeCmd(a *app) *cobra.Command {
	var exchange, screener, interval string
	cmd := &cobra.Command{
		Use:   "analyze [SYMBOL]",
		Short: "Run TradingView technical analysis for a symbol",
		Long: `Fetch oscillator and moving-average recommendations for a symbol.
Example: stocklens analyze AAPL --exchange NASDAQ --interval 1h`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol, err := argOrPrompt(args, 0, func() (string, error) { return PromptForTicker("") })
			if err != nil {
				return err
			}
			if exchange == "" {
				if exchange, err = PromptForExchange(); err != nil {
					return err
				}
			}
			return a.runAnalyze(cmd.Context(), models.TechnicalAnalysisInput{
				Symbol: symbol, Exchange: exchange, Screener: screener, Interval: interval,
			})
		},
	}
	cmd.Flags().StringVar(&exchange, "exchange", "", "Exchange the symbol trades on (e.g. NASDAQ, NYSE, IDX)")
	cmd.Flags().StringVar(&screener, "screener", "america", "Screener, the exchange's country")
	cmd.Flags().StringVar(&interval, "interval", "1d", "Interval: "+strings.Join(dataflows.KnownIntervals(), ", "))
	return cmd
}

func (a *app) runAnalyze(ctx context.Context, in models.TechnicalAnalysisInput) (err error) {
	entry := storage.Entry{Command: "analyze", Symbol: in.Symbol}
	defer a.track(ctx, &entry, a.now(), &err)

	t, err := a.tool(ctx, consts.ToolStockAnalyzer)
	if err != nil {
		return err
	}
	out, err := invoke[models.TechnicalAnalysisOutput](ctx, t, in)
	if err != nil {
		return err
	}
	if out.Error != "" {
		return errors.New(out.Error)
	}
	if out.IndicatorSnapshot == nil {
		return fmt.Errorf("no analysis returned for %s", in.Symbol)
	}
	display.DisplayIndicators(out.IndicatorSnapshot)
	return nil
}

func newLookupCmd(a *app) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "lookup [QUERY]",
		Short: "Find ticker symbols for a company or index name",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			if strings.TrimSpace(query) == "" {
				var err error
				if query, err = PromptForQuery(""); err != nil {
					return err
				}
			}
			return a.runLookup(cmd.Context(), query, dataflows.ParseSymbolKind(kind))
		},
	}
	cmd.Flags().StringVar(&kind, "type", string(dataflows.KindStock), "Symbol type: stock or index")
	return cmd
}

func (a *app) runLookup(ctx context.Context, query string, kind dataflows.SymbolKind) error {
	t, err := a.tool(ctx, consts.ToolSymbolLookup)
	if err != nil {
		return err
	}
	symbols, err := invoke[[]string](ctx, t, models.SymbolLookupInput{Query: query, Type: string(kind)})
	if err != nil {
		return err
	}
	display.DisplaySymbols(query, symbols)
	return nil
}

func newAskCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "ask [PROMPT]",
		Short: "Ask the assistant for a comparison in plain language",
		Long: `Let the language model resolve the symbols and build the comparison report.
Example: stocklens ask "Compare Apple with the Dow Jones"`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := strings.Join(args, " ")
			if strings.TrimSpace(prompt) == "" {
				var err error
				if prompt, err = PromptForPrompt(); err != nil {
					return err
				}
			}
			return a.runAsk(cmd.Context(), prompt, out)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Also write the HTML report to this file")
	return cmd
}

func (a *app) runAsk(ctx context.Context, prompt, out string) (err error) {
	entry := storage.Entry{Command: "ask", Symbol: prompt}
	defer a.track(ctx, &entry, a.now(), &err)

	debugger := debug.NewEinoDebugger(a.cfg)
	if err := debugger.Initialize(ctx); err != nil {
		display.DisplayWarning(err.Error())
	}

	agent, err := a.newAgent(ctx, a.cfg)
	if err != nil {
		return err
	}
	display.DisplayInfo("Thinking...")
	html := agent.Infer(ctx, prompt)
	if _, ok := errorText(html); ok {
		return htmlError(html)
	}
	return a.showReportHTML(html, "", out)
}

func newBatchCmd(a *app) *cobra.Command {
	var (
		file        string
		concurrency int
	)
	cmd := &cobra.Command{
		Use:   "batch BENCHMARK [SYMBOL...]",
		Short: "Compare several symbols with one benchmark",
		Long: `Build a comparison report for each symbol and rank them by cumulative return.
Example: stocklens batch ^GSPC AAPL MSFT NVDA
         stocklens batch ^GSPC --file watchlist.txt`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbols := args[1:]
			if file != "" {
				fromFile, err := LoadSymbolsFromFile(file)
				if err != nil {
					return err
				}
				symbols = append(symbols, fromFile...)
			}
			return a.runBatch(cmd.Context(), args[0], dedupeSymbols(symbols), concurrency)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "File with one symbol per line")
	cmd.Flags().IntVar(&concurrency, "concurrency", defaultConcurrency, "Comparisons to run at once")
	return cmd
}

func (a *app) runBatch(ctx context.Context, benchmark string, symbols []string, concurrency int) error {
	runner, err := a.newRunner(a.cfg)
	if err != nil {
		return err
	}
	bm := NewBatchManager(runner, concurrency)
	bm.OnUpdate = func(done, total int) { display.DisplayProgress(done, total, "Comparing") }

	display.DisplayInfo(fmt.Sprintf("Comparing %d symbols with %s, %d at a time", len(symbols), benchmark, bm.concurrency))
	progress, err := bm.RunBatch(ctx, symbols, benchmark)
	if progress != nil {
		displayBatchSummary(progress)
		a.record(ctx, batchEntries(progress, a.now())...)
	}
	if err != nil {
		return err
	}
	if progress.Completed == 0 {
		return fmt.Errorf("all %d comparisons failed", progress.Total)
	}
	return nil
}

// batchEntries converts the finished items of a batch into history entries.
func batchEntries(progress *BatchProgress, now time.Time) []storage.Entry {
	var entries []storage.Entry
	for _, r := range progress.Results {
		if r.Status != BatchCompleted && r.Status != BatchFailed {
			continue
		}
		e := storage.Entry{
			Command:   "batch",
			Symbol:    r.Symbol,
			Benchmark: progress.Benchmark,
			Error:     r.Error,
			Duration:  r.Duration,
			CreatedAt: now,
		}
		if r.Status == BatchFailed && e.Error == "" {
			e.Error = "failed"
		}
		if r.Report != nil {
			e.ReportPath = r.Report.ReportPath
		}
		entries = append(entries, e)
	}
	return entries
}

func newResultsCmd(a *app) *cobra.Command {
	resultsCmd := &cobra.Command{
		Use:   "results",
		Short: "Manage saved reports",
	}

	var sortBy string
	var reverse bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List saved reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.listResults(sortBy, reverse)
		},
	}
	listCmd.Flags().StringVar(&sortBy, "sort", "created", "Sort by created, symbol or size")
	listCmd.Flags().BoolVar(&reverse, "reverse", false, "Reverse the sort order")

	showCmd := &cobra.Command{
		Use:   "show REQUEST_ID",
		Short: "Show the metrics of a saved report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.showResult(args[0])
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete REQUEST_ID",
		Short: "Delete a saved report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := NewResultsManager(a.cfg).DeleteResult(args[0]); err != nil {
				return err
			}
			display.DisplaySuccess("Deleted " + args[0])
			return nil
		},
	}

	var maxAge time.Duration
	var keep int
	cleanCmd := &cobra.Command{
		Use:   "clean",
		Short: "Delete old reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			if maxAge <= 0 && keep <= 0 {
				return errors.New("set --max-age or --keep")
			}
			removed, err := NewResultsManager(a.cfg).CleanupResults(maxAge, keep, a.now())
			display.DisplaySuccess(fmt.Sprintf("Removed %d reports", len(removed)))
			return err
		},
	}
	cleanCmd.Flags().DurationVar(&maxAge, "max-age", 0, "Delete reports older than this (e.g. 720h)")
	cleanCmd.Flags().IntVar(&keep, "keep", 0, "Keep only this many of the newest reports")

	var limit int
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show the request log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.showHistory(cmd.Context(), limit)
		},
	}
	historyCmd.Flags().IntVar(&limit, "limit", 20, "Number of requests to show")

	resultsCmd.AddCommand(listCmd, showCmd, deleteCmd, cleanCmd, historyCmd)
	return resultsCmd
}

func (a *app) listResults(sortBy string, reverse bool) error {
	results, err := NewResultsManager(a.cfg).ListResults(sortBy, reverse)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		display.DisplayInfo("No saved reports in " + a.cfg.ResultsDir)
		return nil
	}
	rows := make([][]string, len(results))
	for i, r := range results {
		rows[i] = []string{r.RequestID, r.Kind, r.Symbol, r.Benchmark,
			r.CreatedAt.Format("2006-01-02 15:04"), fmt.Sprintf("%.1f KB", float64(r.Size)/1024)}
	}
	display.DisplayTable("Saved reports", []string{"Request", "Kind", "Symbol", "Benchmark", "Created", "Size"}, rows)
	return nil
}

func (a *app) showHistory(ctx context.Context, limit int) error {
	if strings.TrimSpace(a.cfg.HistoryPath) == "" {
		return errors.New("request history is disabled (history_path is empty)")
	}
	store, err := storage.NewStore(a.cfg.HistoryPath)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(ctx, limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		display.DisplayInfo("No requests recorded yet")
		return nil
	}
	rows := make([][]string, len(entries))
	for i, e := range entries {
		status := "✅"
		if e.Status == storage.StatusError {
			status = "❌ " + e.Error
		}
		rows[i] = []string{
			e.CreatedAt.Local().Format("2006-01-02 15:04"),
			e.Command, e.Symbol, e.Benchmark,
			e.Duration.Round(time.Millisecond).String(),
			status,
		}
	}
	display.DisplayTable("Request history", []string{"Time", "Command", "Symbol", "Benchmark", "Took", "Result"}, rows)
	return nil
}

func (a *app) showResult(id string) error {
	detail, err := NewResultsManager(a.cfg).ShowResult(id)
	if err != nil {
		return err
	}
	title := detail.Symbol
	if detail.Benchmark != "" {
		title += " vs " + detail.Benchmark
	}
	if title == "" {
		title = detail.Kind
	}
	DisplayHeader(title)
	if detail.Kind == KindComparison {
		display.DisplayMetricRows(detail.Headers, detail.Metrics)
	}
	fmt.Fprintf(display.Out, "Directory: %s\n", detail.Path)
	for _, f := range detail.Files {
		fmt.Fprintf(display.Out, "  %s\n", f)
	}
	return nil
}

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the analysis tools over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := a.newTools(a.cfg)
			if err != nil {
				return err
			}
			srv, err := mcpserver.New(cmd.Context(), ts, Version)
			if err != nil {
				return err
			}
			return srv.Run(cmd.Context())
		},
	}
}

func newMoodCmd(a *app) *cobra.Command {
	var greeting string
	cmd := &cobra.Command{
		Use:   "mood",
		Short: "Run the two-branch demo graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := mood.New(nil, graph.WithDebug(a.cfg.Debug))
			if err != nil {
				return err
			}
			out, err := mood.Run(cmd.Context(), g, greeting)
			if err != nil {
				return err
			}
			fmt.Fprintf(display.Out, "{'%s': %q}\n", consts.State_GraphState, out)
			return nil
		},
	}
	cmd.Flags().StringVar(&greeting, "greeting", "Hi, this is Lance.", "Initial graph_state")
	return cmd
}

func newConfigCmd(a *app) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := NewConfigManager(a.cfg, a.configPath).Rows()
			if err != nil {
				return err
			}
			display.DisplayTable("📋 Current StockLens Configuration", []string{"Key", "Value"}, rows)
			if d := debug.NewEinoDebugger(a.cfg); d.IsEnabled() {
				display.DisplayInfo("Eino debug UI: " + d.GetDebugURL())
			}
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "get KEY",
		Short: "Print one configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := NewConfigManager(a.cfg, a.configPath).GetConfigValue(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(display.Out, v)
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Change a setting and save it to the config file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cm := NewConfigManager(a.cfg, a.configPath)
			if err := cm.SetConfigValue(args[0], args[1]); err != nil {
				return err
			}
			if err := cm.SaveConfig(); err != nil {
				return err
			}
			display.DisplaySuccess(fmt.Sprintf("%s saved to %s", args[0], cm.Path()))
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			warnings := validateConfig(a.cfg)
			for _, w := range warnings {
				display.DisplayWarning(w)
			}
			if len(warnings) == 0 {
				display.DisplaySuccess("Configuration is valid")
			} else {
				display.DisplayInfo(fmt.Sprintf("Configuration is valid with %d warnings", len(warnings)))
			}
			return nil
		},
	})

	return configCmd
}

// validateConfig lists the settings that are valid but will limit what the
// commands can do.
func validateConfig(cfg *config.Config) []string {
	var warnings []string
	switch cfg.LLMProvider {
	case config.LLMProviderDeepSeek:
		if cfg.DeepSeekAPIKey == "" {
			warnings = append(warnings, "DEEPSEEK_API_KEY is not set; 'ask' will not work")
		}
	case config.LLMProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			warnings = append(warnings, "OPENAI_API_KEY is not set; 'ask' will not work")
		}
	}
	if cfg.MarketDataProvider == config.ProviderLongport && !cfg.HasLongportCredentials() {
		warnings = append(warnings, "Longport credentials are incomplete; market data falls back to Yahoo Finance")
	}
	if cfg.ArtifactChannel == config.ArtifactChannelMemory {
		warnings = append(warnings, "artifact channel is memory; reports are not saved under "+cfg.ResultsDir)
	}
	return warnings
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(display.Out, "StockLens v%s\n", Version)
		},
	}
}
