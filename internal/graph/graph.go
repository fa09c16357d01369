package graph

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/cloudwego/eino/compose"
)

const (
	// Start is the virtual entry point of every graph.
	Start = "__start__"
	// End is the terminal marker. Reaching it finishes an invocation.
	End = "__end__"

	defaultMaxSteps = 25
)

// State is the data threaded through every step of a graph.
// Steps return partial updates which are merged into the running state.
type State map[string]any

// Clone returns a shallow copy of the state. A nil state clones to an empty one.
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Merge adds or overwrites every key of update. Keys are never removed.
func (s State) Merge(update State) {
	for k, v := range update {
		s[k] = v
	}
}

// Get returns the value stored under key when it has type T.
func Get[T any](s State, key string) (T, bool) {
	v, ok := s[key].(T)
	return v, ok
}

// StepFunc is the unit of work of a step. The returned state is the step's
// partial update, not the full state.
type StepFunc func(ctx context.Context, state State) (State, error)

// Outcome is the label a Decision picks.
type Outcome string

// Decision maps the current state to one of a finite set of outcomes.
type Decision func(ctx context.Context, state State) (Outcome, error)

type step struct {
	name string
	fn   StepFunc
}

type branch struct {
	decide Decision
	routes map[Outcome]string
}

func (b *branch) outcomes() []Outcome {
	out := make([]Outcome, 0, len(b.routes))
	for o := range b.routes {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Graph is a compiled, immutable execution graph lowered onto an eino
// compose graph. It is safe for concurrent Invoke calls as long as the step
// functions are.
type Graph struct {
	name     string
	order    []string
	runnable compose.Runnable[State, State]
	maxSteps int
	debug    bool
	trace    func(step string)
}

// invocation is the local state of one Invoke run.
type invocation struct {
	visits int
	last   string
	err    error
}

type invocationKey struct{}

func (inv *invocation) fail(err error) error {
	if inv.err == nil {
		inv.err = err
	}
	return err
}

// Name returns the graph name given with WithName.
func (g *Graph) Name() string {
	return g.name
}

// Steps returns the registered step names in registration order.
func (g *Graph) Steps() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Invoke walks the graph from Start until End and returns the final state.
// A failing step, an unmapped outcome or exceeding the step bound aborts the
// walk; in that case no state is returned.
func (g *Graph) Invoke(ctx context.Context, initial State) (State, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("graph %s: not started: %w", g.name, err)
	}
	if g.runnable == nil {
		return initial.Clone(), nil
	}

	inv := &invocation{last: Start}
	final, err := g.runnable.Invoke(context.WithValue(ctx, invocationKey{}, inv), initial.Clone())
	switch {
	case inv.err != nil:
		return nil, inv.err
	case errors.Is(err, compose.ErrExceedMaxSteps):
		return nil, &RunawayError{Graph: g.name, Limit: g.maxSteps, Step: inv.last}
	case err != nil:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("graph %s: stopped after %q: %w", g.name, inv.last, ctxErr)
		}
		return nil, fmt.Errorf("graph %s: %w", g.name, err)
	}

	if g.debug {
		log.Printf("[Graph] %s: %s -> %s", g.name, inv.last, End)
	}
	return final, nil
}

func nodeKey(name string) string {
	switch name {
	case Start:
		return compose.START
	case End:
		return compose.END
	}
	return "step:" + name
}

// lower builds the eino graph: one lambda node per step, an edge per
// unconditional transition and a branch per conditional edge.
func (g *Graph) lower(steps map[string]*step, next map[string]string, branches map[string]*branch) error {
	if len(g.order) == 0 {
		return nil
	}

	eg := compose.NewGraph[State, State](compose.WithGenLocalState(func(ctx context.Context) *invocation {
		if inv, ok := ctx.Value(invocationKey{}).(*invocation); ok {
			return inv
		}
		return &invocation{last: Start}
	}))

	for _, name := range g.order {
		if err := eg.AddLambdaNode(nodeKey(name), compose.InvokableLambda(g.runStep(steps[name])),
			compose.WithNodeName(name)); err != nil {
			return err
		}
	}
	for from, to := range next {
		if err := eg.AddEdge(nodeKey(from), nodeKey(to)); err != nil {
			return err
		}
	}
	for from, br := range branches {
		endNodes := make(map[string]bool, len(br.routes))
		for _, to := range br.routes {
			endNodes[nodeKey(to)] = true
		}
		if err := eg.AddBranch(nodeKey(from), compose.NewGraphBranch(g.route(from, br), endNodes)); err != nil {
			return err
		}
	}

	r, err := eg.Compile(context.Background(),
		compose.WithGraphName(g.name),
		compose.WithNodeTriggerMode(compose.AnyPredecessor),
		compose.WithMaxRunSteps(g.maxSteps+2),
	)
	if err != nil {
		return err
	}
	g.runnable = r
	return nil
}

// record stores err as the failure of the current invocation.
func record(ctx context.Context, err error) error {
	_ = compose.ProcessState[*invocation](ctx, func(_ context.Context, inv *invocation) error {
		inv.fail(err)
		return nil
	})
	return err
}

// runStep wraps a step as an eino lambda. The lambda receives the running
// state and returns it with the step's update merged in.
func (g *Graph) runStep(s *step) func(ctx context.Context, in State) (State, error) {
	return func(ctx context.Context, in State) (State, error) {
		err := compose.ProcessState[*invocation](ctx, func(ctx context.Context, inv *invocation) error {
			if inv.visits >= g.maxSteps {
				return inv.fail(&RunawayError{Graph: g.name, Limit: g.maxSteps, Step: s.name})
			}
			if err := ctx.Err(); err != nil {
				return inv.fail(fmt.Errorf("graph %s: stopped before %q: %w", g.name, s.name, err))
			}
			inv.visits++
			if g.debug {
				log.Printf("[Graph] %s: %s -> %s", g.name, inv.last, s.name)
			}
			inv.last = s.name
			return nil
		})
		if err != nil {
			return nil, err
		}

		if g.trace != nil {
			g.trace(s.name)
		}
		update, err := s.fn(ctx, in.Clone())
		if err != nil {
			return nil, record(ctx, &StepError{Step: s.name, Err: err})
		}
		out := in.Clone()
		out.Merge(update)
		return out, nil
	}
}

// route resolves the successor of from, evaluating its decision once per visit.
func (g *Graph) route(from string, b *branch) func(ctx context.Context, in State) (string, error) {
	return func(ctx context.Context, in State) (string, error) {
		outcome, err := b.decide(ctx, in.Clone())
		if err != nil {
			return "", record(ctx, &StepError{Step: from, Err: fmt.Errorf("decide next step: %w", err)})
		}
		to, ok := b.routes[outcome]
		if !ok {
			return "", record(ctx, &RoutingError{Step: from, Outcome: outcome, Known: b.outcomes()})
		}
		return nodeKey(to), nil
	}
}
