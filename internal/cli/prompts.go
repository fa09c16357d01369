package cli

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/AlecAivazis/survey/v2"

	"github.com/dyike/StockLens/internal/dataflows"
)

var tickerPattern = regexp.MustCompile(`^[A-Za-z0-9.^=\-]+$`)

// validateTicker accepts Yahoo style tickers such as AAPL, BRK-B, ^GSPC,
// 0700.HK or EURUSD=X.
func validateTicker(val interface{}) error {
	str := strings.TrimSpace(fmt.Sprint(val))
	if str == "" {
		return errors.New("ticker symbol cannot be empty")
	}
	if len(str) > 20 {
		return errors.New("ticker symbol too long (max 20 characters)")
	}
	if !tickerPattern.MatchString(str) {
		return errors.New("invalid ticker format (letters, digits and . ^ = - only)")
	}
	return nil
}

func validateNotEmpty(what string) survey.Validator {
	return func(val interface{}) error {
		if strings.TrimSpace(fmt.Sprint(val)) == "" {
			return fmt.Errorf("%s cannot be empty", what)
		}
		return nil
	}
}

func askInput(message, help, def string, validator survey.Validator) (string, error) {
	var answer string
	prompt := &survey.Input{Message: message, Help: help, Default: def}
	opts := []survey.AskOpt{}
	if validator != nil {
		opts = append(opts, survey.WithValidator(validator))
	}
	if err := survey.AskOne(prompt, &answer, opts...); err != nil {
		return "", err
	}
	return strings.TrimSpace(answer), nil
}

// PromptForTicker prompts the user to enter a stock ticker symbol
func PromptForTicker(message string) (string, error) {
	if message == "" {
		message = "Enter the ticker symbol (e.g., AAPL, MSFT, ^GSPC):"
	}
	return askInput(message, "A ticker as Yahoo Finance lists it", "", validateTicker)
}

// PromptForBenchmark asks for the comparison benchmark, ^GSPC by default.
func PromptForBenchmark() (string, error) {
	return askInput("Enter the benchmark ticker:", "The index or stock to compare against", "^GSPC", validateTicker)
}

// PromptForQuery asks for a company or index name to look up.
func PromptForQuery(message string) (string, error) {
	if message == "" {
		message = "Enter a company or index name:"
	}
	return askInput(message, "Free text such as 'apple' or 'dow jones'", "", validateNotEmpty("query"))
}

// PromptForSymbolKind asks whether a lookup targets stocks or indices.
func PromptForSymbolKind(def dataflows.SymbolKind) (dataflows.SymbolKind, error) {
	if def == "" {
		def = dataflows.KindStock
	}
	var selected string
	prompt := &survey.Select{
		Message: "Symbol type:",
		Options: []string{string(dataflows.KindStock), string(dataflows.KindIndex)},
		Default: string(def),
	}
	if err := survey.AskOne(prompt, &selected); err != nil {
		return "", err
	}
	return dataflows.ParseSymbolKind(selected), nil
}

// PromptForExchange asks for the exchange a ticker trades on.
func PromptForExchange() (string, error) {
	return askInput("Enter the exchange (e.g., NASDAQ, NYSE, IDX, BINANCE):", "Exchange at which the ticker is traded", "NASDAQ", validateNotEmpty("exchange"))
}

// PromptForScreener asks for the TradingView screener.
func PromptForScreener() (string, error) {
	var selected string
	prompt := &survey.Select{
		Message: "Select the screener (the exchange's country):",
		Options: dataflows.KnownScreeners(),
		Default: "america",
	}
	if err := survey.AskOne(prompt, &selected); err != nil {
		return "", err
	}
	return selected, nil
}

// PromptForInterval asks for the analysis interval.
func PromptForInterval() (string, error) {
	var selected string
	prompt := &survey.Select{
		Message: "Select the interval:",
		Options: dataflows.KnownIntervals(),
		Default: "1d",
	}
	if err := survey.AskOne(prompt, &selected); err != nil {
		return "", err
	}
	return selected, nil
}

// PromptForPrompt asks for a free-form question for the agent.
func PromptForPrompt() (string, error) {
	return askInput("What would you like to compare?", "e.g. 'Compare Apple with the Dow Jones'", "", validateNotEmpty("prompt"))
}

// PromptForConfirmation asks a yes/no question.
func PromptForConfirmation(message string, def bool) (bool, error) {
	var confirmed bool
	prompt := &survey.Confirm{Message: message, Default: def}
	if err := survey.AskOne(prompt, &confirmed); err != nil {
		return false, err
	}
	return confirmed, nil
}

// PromptForRestartOrExit asks whether to go back to the main menu.
func PromptForRestartOrExit() (bool, error) {
	return PromptForConfirmation("Back to the main menu?", true)
}
