package cli

import (
	"context"
	"errors"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"

	"github.com/dyike/StockLens/internal/dataflows"
	"github.com/dyike/StockLens/internal/display"
	"github.com/dyike/StockLens/internal/models"
	"github.com/dyike/StockLens/internal/orchestrator"
)

const (
	menuCompare  = "📊 Compare a stock with a benchmark"
	menuSnapshot = "📈 Performance snapshot"
	menuAnalyze  = "🔎 Technical analysis"
	menuLookup   = "🔤 Symbol lookup"
	menuAsk      = "💬 Ask the assistant"
	menuResults  = "🗂  Saved reports"
	menuHistory  = "🕘 Request history"
	menuExit     = "👋 Exit"
)

// InteractiveSession is the menu shown when stocklens runs without a command.
type InteractiveSession struct {
	app *app
}

func NewInteractiveSession(a *app) *InteractiveSession {
	return &InteractiveSession{app: a}
}

// Start loops over the main menu until the user exits or interrupts.
func (s *InteractiveSession) Start(ctx context.Context) error {
	DisplayWelcomeBanner()
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		var choice string
		prompt := &survey.Select{
			Message: "What would you like to do?",
			Options: []string{menuCompare, menuSnapshot, menuAnalyze, menuLookup, menuAsk, menuResults, menuHistory, menuExit},
		}
		if err := survey.AskOne(prompt, &choice); err != nil {
			if errors.Is(err, terminal.InterruptErr) {
				return nil
			}
			return err
		}
		if choice == menuExit {
			display.DisplayInfo("Thank you for using StockLens!")
			return nil
		}

		err := s.run(ctx, choice)
		if errors.Is(err, terminal.InterruptErr) {
			continue
		}
		if err != nil {
			display.DisplayError(err, "")
		}
	}
}

func (s *InteractiveSession) run(ctx context.Context, choice string) error {
	a := s.app
	switch choice {
	case menuCompare:
		symbol, err := PromptForTicker("")
		if err != nil {
			return err
		}
		benchmark, err := PromptForBenchmark()
		if err != nil {
			return err
		}
		plan := orchestrator.Plan{Subjects: []orchestrator.Subject{{Ticker: symbol}, {Ticker: benchmark}}}
		return a.runCompare(ctx, plan, "")

	case menuSnapshot:
		symbol, err := PromptForTicker("")
		if err != nil {
			return err
		}
		return a.runSnapshot(ctx, symbol)

	case menuAnalyze:
		symbol, err := PromptForTicker("")
		if err != nil {
			return err
		}
		exchange, err := PromptForExchange()
		if err != nil {
			return err
		}
		screener, err := PromptForScreener()
		if err != nil {
			return err
		}
		interval, err := PromptForInterval()
		if err != nil {
			return err
		}
		return a.runAnalyze(ctx, models.TechnicalAnalysisInput{
			Symbol: symbol, Exchange: exchange, Screener: screener, Interval: interval,
		})

	case menuLookup:
		query, err := PromptForQuery("")
		if err != nil {
			return err
		}
		kind, err := PromptForSymbolKind(dataflows.KindStock)
		if err != nil {
			return err
		}
		return a.runLookup(ctx, query, kind)

	case menuAsk:
		prompt, err := PromptForPrompt()
		if err != nil {
			return err
		}
		return a.runAsk(ctx, prompt, "")

	case menuResults:
		return a.listResults("created", false)

	case menuHistory:
		return a.showHistory(ctx, 20)
	}
	return nil
}
