// Package mood is the smallest useful execution graph: one step that starts a
// sentence and a random branch that finishes it.
package mood

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"

	"github.com/dyike/StockLens/consts"
	"github.com/dyike/StockLens/internal/graph"
)

const (
	Happy graph.Outcome = "happy"
	Sad   graph.Outcome = "sad"
)

// DecideMood returns a decision that picks Happy when rnd() < 0.5.
// A nil rnd uses math/rand/v2.
func DecideMood(rnd func() float64) graph.Decision {
	if rnd == nil {
		rnd = rand.Float64
	}
	return func(_ context.Context, _ graph.State) (graph.Outcome, error) {
		if rnd() < 0.5 {
			return Happy, nil
		}
		return Sad, nil
	}
}

func appendText(node, text string) graph.StepFunc {
	return func(_ context.Context, state graph.State) (graph.State, error) {
		log.Printf("---%s---", node)
		current, _ := graph.Get[string](state, consts.State_GraphState)
		return graph.State{consts.State_GraphState: current + text}, nil
	}
}

// New builds the mood graph: node_1 appends "I am", then node_2 (" happy!")
// or node_3 (" sad!") depending on the decision.
func New(rnd func() float64, opts ...graph.Option) (*graph.Graph, error) {
	b := graph.NewBuilder(append([]graph.Option{graph.WithName("mood")}, opts...)...)

	_ = b.AddStep(consts.MoodNode1, appendText("Node 1", "I am"))
	_ = b.AddStep(consts.MoodNode2, appendText("Node 2", " happy!"))
	_ = b.AddStep(consts.MoodNode3, appendText("Node 3", " sad!"))

	_ = b.AddEdge(graph.Start, consts.MoodNode1)
	_ = b.AddConditionalEdge(consts.MoodNode1, DecideMood(rnd), map[graph.Outcome]string{
		Happy: consts.MoodNode2,
		Sad:   consts.MoodNode3,
	})
	_ = b.AddEdge(consts.MoodNode2, graph.End)
	_ = b.AddEdge(consts.MoodNode3, graph.End)

	return b.Compile()
}

// Run invokes g with greeting as the initial graph_state and returns the final text.
func Run(ctx context.Context, g *graph.Graph, greeting string) (string, error) {
	final, err := g.Invoke(ctx, graph.State{consts.State_GraphState: greeting})
	if err != nil {
		return "", err
	}
	text, ok := graph.Get[string](final, consts.State_GraphState)
	if !ok {
		return "", fmt.Errorf("mood graph produced no %s", consts.State_GraphState)
	}
	return text, nil
}
