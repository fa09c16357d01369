package graph

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDuplicateStep is reported when a step name is registered twice.
	ErrDuplicateStep = errors.New("duplicate step")
	// ErrRouting is matched by every *RoutingError.
	ErrRouting = errors.New("routing error")
	// ErrRunawayGraph is matched by every *RunawayError.
	ErrRunawayGraph = errors.New("runaway graph")
	// ErrInvalidGraph is matched by every *ValidationError.
	ErrInvalidGraph = errors.New("invalid graph")
)

// RoutingError means a decision returned an outcome its edge does not map.
type RoutingError struct {
	Step    string
	Outcome Outcome
	Known   []Outcome
}

func (e *RoutingError) Error() string {
	known := make([]string, len(e.Known))
	for i, o := range e.Known {
		known[i] = string(o)
	}
	return fmt.Sprintf("routing error: step %q produced outcome %q, expected one of [%s]",
		e.Step, e.Outcome, strings.Join(known, ", "))
}

func (e *RoutingError) Unwrap() error { return ErrRouting }

// RunawayError means an invocation visited more steps than the graph allows.
type RunawayError struct {
	Graph string
	Limit int
	Step  string
}

func (e *RunawayError) Error() string {
	return fmt.Sprintf("runaway graph %s: step limit %d exceeded before %q", e.Graph, e.Limit, e.Step)
}

func (e *RunawayError) Unwrap() error { return ErrRunawayGraph }

// StepError wraps the failure of a single step.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %q failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// ValidationError lists every problem found by Compile.
type ValidationError struct {
	// MissingEdges names the steps without an outgoing edge.
	MissingEdges []string
	Problems     []string
	causes       []error
}

func (e *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("invalid graph")
	if len(e.MissingEdges) > 0 {
		fmt.Fprintf(&sb, ": missing outgoing edge for steps [%s]", strings.Join(e.MissingEdges, ", "))
	}
	for _, p := range e.Problems {
		sb.WriteString("; ")
		sb.WriteString(p)
	}
	return sb.String()
}

func (e *ValidationError) Unwrap() []error {
	return append([]error{ErrInvalidGraph}, e.causes...)
}
