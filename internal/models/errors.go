package models

import (
	"errors"
	"fmt"
)

var (
	// ErrLookupEmpty means no ticker matched a lookup query.
	ErrLookupEmpty = errors.New("no matching symbol")
	// ErrDataUnavailable means a symbol has no return history.
	ErrDataUnavailable = errors.New("data unavailable")
	// ErrNetwork means a fetch could not complete.
	ErrNetwork = errors.New("network error")
	// ErrNoOverlap means primary and benchmark share no dates.
	ErrNoOverlap = errors.New("no overlapping dates")
)

// PipelineError carries the kind of failure together with the symbol and
// pipeline stage it happened in. errors.Is matches both Kind and Err.
type PipelineError struct {
	Kind   error
	Stage  string
	Symbol string
	Err    error
}

func (e *PipelineError) Error() string {
	msg := e.Kind.Error()
	if e.Symbol != "" {
		msg = fmt.Sprintf("%s for %s", msg, e.Symbol)
	}
	if e.Stage != "" {
		msg = fmt.Sprintf("%s: %s", e.Stage, msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *PipelineError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func NewLookupEmpty(query string) error {
	return &PipelineError{Kind: ErrLookupEmpty, Stage: "lookup", Symbol: query}
}

func NewDataUnavailable(symbol string, err error) error {
	return &PipelineError{Kind: ErrDataUnavailable, Stage: "fetch", Symbol: symbol, Err: err}
}

func NewNetworkError(symbol string, err error) error {
	return &PipelineError{Kind: ErrNetwork, Stage: "fetch", Symbol: symbol, Err: err}
}

func NewNoOverlap(symbol, benchmark string) error {
	return &PipelineError{Kind: ErrNoOverlap, Stage: "align", Symbol: symbol + " vs " + benchmark}
}

// ErrorResult is the payload returned to presentation layers in place of an
// artifact. The capitalised key matches what UI callers already expect.
type ErrorResult struct {
	Error string `json:"Error"`
}

func NewErrorResult(err error) ErrorResult {
	return ErrorResult{Error: err.Error()}
}
