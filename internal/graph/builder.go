package graph

import (
	"errors"
	"fmt"
	"sort"
)

// Builder collects steps and edges and validates them in Compile.
//
//	b := graph.NewBuilder(graph.WithName("mood"))
//	_ = b.AddStep("node_1", node1)
//	_ = b.AddEdge(graph.Start, "node_1")
//	_ = b.AddConditionalEdge("node_1", decideMood, map[graph.Outcome]string{
//		"happy": "node_2",
//		"sad":   "node_3",
//	})
//	g, err := b.Compile()
type Builder struct {
	opts     options
	steps    map[string]*step
	order    []string
	edges    map[string][]string
	branches map[string][]*branch
	errs     []error
}

// NewBuilder returns an empty builder.
func NewBuilder(opts ...Option) *Builder {
	o := options{name: "graph", maxSteps: defaultMaxSteps}
	for _, opt := range opts {
		opt(&o)
	}
	return &Builder{
		opts:     o,
		steps:    make(map[string]*step),
		edges:    make(map[string][]string),
		branches: make(map[string][]*branch),
	}
}

func (b *Builder) fail(err error) error {
	b.errs = append(b.errs, err)
	return err
}

// AddStep registers a named step. Names must be unique.
func (b *Builder) AddStep(name string, fn StepFunc) error {
	switch {
	case name == "":
		return b.fail(errors.New("step name must not be empty"))
	case name == Start || name == End:
		return b.fail(fmt.Errorf("step name %q is reserved", name))
	case fn == nil:
		return b.fail(fmt.Errorf("step %q has no function", name))
	}
	if _, exists := b.steps[name]; exists {
		return b.fail(fmt.Errorf("%w: %q", ErrDuplicateStep, name))
	}

	b.steps[name] = &step{name: name, fn: fn}
	b.order = append(b.order, name)
	return nil
}

// AddEdge registers an unconditional transition. from may be Start and to may be End.
func (b *Builder) AddEdge(from, to string) error {
	if from == "" || to == "" {
		return b.fail(fmt.Errorf("edge endpoints must not be empty (from=%q, to=%q)", from, to))
	}
	if from == End {
		return b.fail(errors.New("edge cannot leave End"))
	}
	if to == Start {
		return b.fail(errors.New("edge cannot enter Start"))
	}
	b.edges[from] = append(b.edges[from], to)
	return nil
}

// AddConditionalEdge registers a branch leaving from. decide is evaluated after
// from's update has been merged, and its outcome picks the next step in routes.
func (b *Builder) AddConditionalEdge(from string, decide Decision, routes map[Outcome]string) error {
	if from == "" || from == End {
		return b.fail(fmt.Errorf("invalid branch source %q", from))
	}
	if decide == nil {
		return b.fail(fmt.Errorf("branch from %q has no decision", from))
	}
	if len(routes) == 0 {
		return b.fail(fmt.Errorf("branch from %q has no routes", from))
	}

	copied := make(map[Outcome]string, len(routes))
	for outcome, to := range routes {
		if to == "" || to == Start {
			return b.fail(fmt.Errorf("branch from %q routes outcome %q to invalid step %q", from, outcome, to))
		}
		copied[outcome] = to
	}
	b.branches[from] = append(b.branches[from], &branch{decide: decide, routes: copied})
	return nil
}

// Compile validates the graph and returns an executable Graph. All problems
// are reported together in a *ValidationError.
func (b *Builder) Compile() (*Graph, error) {
	verr := &ValidationError{causes: append([]error(nil), b.errs...)}
	for _, err := range b.errs {
		verr.Problems = append(verr.Problems, err.Error())
	}
	problem := func(format string, args ...any) {
		verr.Problems = append(verr.Problems, fmt.Sprintf(format, args...))
	}

	known := func(name string) bool {
		_, ok := b.steps[name]
		return ok || name == End
	}

	next := make(map[string]string)
	branches := make(map[string]*branch)

	sources := append([]string{Start}, b.order...)
	for from := range b.edges {
		if from != Start && b.steps[from] == nil {
			problem("edge leaves unknown step %q", from)
		}
	}
	for from := range b.branches {
		if from != Start && b.steps[from] == nil {
			problem("branch leaves unknown step %q", from)
		}
	}

	for _, from := range sources {
		edges, brs := b.edges[from], b.branches[from]
		switch rules := len(edges) + len(brs); {
		case rules == 0 && from == Start:
			problem("no edge leaves Start")
		case rules == 0:
			verr.MissingEdges = append(verr.MissingEdges, from)
		case rules > 1 && from == Start:
			problem("Start must have exactly one outgoing edge, found %d", rules)
		case rules > 1:
			problem("step %q has %d outgoing edges, expected exactly one", from, rules)
		case len(edges) == 1:
			if !known(edges[0]) {
				problem("edge %q -> %q targets unknown step", from, edges[0])
			}
			next[from] = edges[0]
		default:
			br := brs[0]
			for _, outcome := range br.outcomes() {
				if to := br.routes[outcome]; !known(to) {
					problem("branch %q outcome %q targets unknown step %q", from, outcome, to)
				}
			}
			branches[from] = br
		}
	}

	if len(verr.Problems) == 0 && len(verr.MissingEdges) == 0 {
		reached := b.reachable(next, branches)
		var unreachable []string
		for _, name := range b.order {
			if !reached[name] {
				unreachable = append(unreachable, name)
			}
		}
		if len(unreachable) > 0 {
			sort.Strings(unreachable)
			problem("steps unreachable from Start: %v", unreachable)
		}
		if !reached[End] {
			problem("no path reaches End")
		}
	}

	if len(verr.Problems) > 0 || len(verr.MissingEdges) > 0 {
		return nil, verr
	}

	steps := make(map[string]*step, len(b.steps))
	for k, v := range b.steps {
		steps[k] = v
	}
	g := &Graph{
		name:     b.opts.name,
		order:    append([]string(nil), b.order...),
		maxSteps: b.opts.maxSteps,
		debug:    b.opts.debug,
		trace:    b.opts.trace,
	}
	if err := g.lower(steps, next, branches); err != nil {
		return nil, &ValidationError{Problems: []string{err.Error()}, causes: []error{err}}
	}
	return g, nil
}

func (b *Builder) reachable(next map[string]string, branches map[string]*branch) map[string]bool {
	seen := map[string]bool{Start: true}
	queue := []string{Start}
	visit := func(name string) {
		if !seen[name] {
			seen[name] = true
			queue = append(queue, name)
		}
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if to, ok := next[cur]; ok {
			visit(to)
		}
		if br, ok := branches[cur]; ok {
			for _, to := range br.routes {
				visit(to)
			}
		}
	}
	return seen
}
