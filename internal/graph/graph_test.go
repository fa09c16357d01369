package graph

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appendStep(key, suffix string) StepFunc {
	return func(_ context.Context, s State) (State, error) {
		v, _ := Get[string](s, key)
		return State{key: v + suffix}, nil
	}
}

func fixed(o Outcome) Decision {
	return func(context.Context, State) (Outcome, error) { return o, nil }
}

func TestInvokeLinear(t *testing.T) {
	var visited []string
	b := NewBuilder(WithTrace(func(s string) { visited = append(visited, s) }))
	require.NoError(t, b.AddStep("a", appendStep("out", "a")))
	require.NoError(t, b.AddStep("b", appendStep("out", "b")))
	require.NoError(t, b.AddEdge(Start, "a"))
	require.NoError(t, b.AddEdge("a", "b"))
	require.NoError(t, b.AddEdge("b", End))

	g, err := b.Compile()
	require.NoError(t, err)

	initial := State{"out": ">", "keep": 1}
	final, err := g.Invoke(context.Background(), initial)
	require.NoError(t, err)
	assert.Equal(t, ">ab", final["out"])
	assert.Equal(t, 1, final["keep"])
	assert.Equal(t, []string{"a", "b"}, visited)
	assert.Equal(t, ">", initial["out"], "initial state must not be mutated")
}

func TestConditionalEdgeSeesMergedState(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddStep("set", func(context.Context, State) (State, error) {
		return State{"flag": true}, nil
	}))
	require.NoError(t, b.AddStep("yes", appendStep("out", "yes")))
	require.NoError(t, b.AddStep("no", appendStep("out", "no")))
	require.NoError(t, b.AddEdge(Start, "set"))

	calls := 0
	require.NoError(t, b.AddConditionalEdge("set", func(_ context.Context, s State) (Outcome, error) {
		calls++
		if flag, _ := Get[bool](s, "flag"); flag {
			return "yes", nil
		}
		return "no", nil
	}, map[Outcome]string{"yes": "yes", "no": "no"}))
	require.NoError(t, b.AddEdge("yes", End))
	require.NoError(t, b.AddEdge("no", End))

	g, err := b.Compile()
	require.NoError(t, err)

	final, err := g.Invoke(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "yes", final["out"])
	assert.Equal(t, 1, calls, "decision must run exactly once per visit")
}

func TestUnmappedOutcomeIsRoutingError(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddStep("a", appendStep("out", "a")))
	require.NoError(t, b.AddStep("b", appendStep("out", "b")))
	require.NoError(t, b.AddEdge(Start, "a"))
	require.NoError(t, b.AddConditionalEdge("a", fixed("maybe"), map[Outcome]string{"b": "b", "end": End}))
	require.NoError(t, b.AddEdge("b", End))

	g, err := b.Compile()
	require.NoError(t, err)

	final, err := g.Invoke(context.Background(), State{})
	require.Error(t, err)
	assert.Nil(t, final)
	assert.ErrorIs(t, err, ErrRouting)

	var rerr *RoutingError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "a", rerr.Step)
	assert.Equal(t, Outcome("maybe"), rerr.Outcome)
	assert.Equal(t, []Outcome{"b", "end"}, rerr.Known)
}

func TestStepFailureDiscardsState(t *testing.T) {
	boom := errors.New("boom")
	b := NewBuilder()
	require.NoError(t, b.AddStep("a", appendStep("out", "a")))
	require.NoError(t, b.AddStep("b", func(context.Context, State) (State, error) { return nil, boom }))
	require.NoError(t, b.AddEdge(Start, "a"))
	require.NoError(t, b.AddEdge("a", "b"))
	require.NoError(t, b.AddEdge("b", End))

	g, err := b.Compile()
	require.NoError(t, err)

	final, err := g.Invoke(context.Background(), State{})
	assert.Nil(t, final)
	assert.ErrorIs(t, err, boom)

	var serr *StepError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, "b", serr.Step)
}

func TestStepCannotMutateRunningState(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddStep("a", func(_ context.Context, s State) (State, error) {
		s["leak"] = true
		return nil, errors.New("fail after mutation")
	}))
	require.NoError(t, b.AddEdge(Start, "a"))
	require.NoError(t, b.AddEdge("a", End))
	g, err := b.Compile()
	require.NoError(t, err)

	initial := State{}
	_, err = g.Invoke(context.Background(), initial)
	require.Error(t, err)
	assert.NotContains(t, initial, "leak")
}

func TestLoopBackHitsCycleGuard(t *testing.T) {
	b := NewBuilder(WithName("loop"), WithMaxSteps(5))
	require.NoError(t, b.AddStep("spin", appendStep("out", ".")))
	require.NoError(t, b.AddEdge(Start, "spin"))
	require.NoError(t, b.AddConditionalEdge("spin", fixed("again"), map[Outcome]string{"again": "spin", "done": End}))

	g, err := b.Compile()
	require.NoError(t, err)

	_, err = g.Invoke(context.Background(), State{})
	assert.ErrorIs(t, err, ErrRunawayGraph)

	var rerr *RunawayError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, 5, rerr.Limit)
}

func TestSelfTerminatingLoop(t *testing.T) {
	b := NewBuilder(WithMaxSteps(10))
	require.NoError(t, b.AddStep("count", func(_ context.Context, s State) (State, error) {
		n, _ := Get[int](s, "n")
		return State{"n": n + 1}, nil
	}))
	require.NoError(t, b.AddEdge(Start, "count"))
	require.NoError(t, b.AddConditionalEdge("count", func(_ context.Context, s State) (Outcome, error) {
		if n, _ := Get[int](s, "n"); n < 3 {
			return "again", nil
		}
		return "done", nil
	}, map[Outcome]string{"again": "count", "done": End}))

	g, err := b.Compile()
	require.NoError(t, err)

	final, err := g.Invoke(context.Background(), State{})
	require.NoError(t, err)
	assert.Equal(t, 3, final["n"])
}

func TestCancelledContextStopsWalk(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddStep("a", appendStep("out", "a")))
	require.NoError(t, b.AddEdge(Start, "a"))
	require.NoError(t, b.AddEdge("a", End))
	g, err := b.Compile()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = g.Invoke(ctx, State{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDecisionErrorAbortsWalk(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddStep("a", appendStep("out", "a")))
	require.NoError(t, b.AddEdge(Start, "a"))
	require.NoError(t, b.AddConditionalEdge("a", func(context.Context, State) (Outcome, error) {
		return "", errors.New("no opinion")
	}, map[Outcome]string{"x": End}))
	g, err := b.Compile()
	require.NoError(t, err)

	_, err = g.Invoke(context.Background(), State{})
	var serr *StepError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, "a", serr.Step)
}

func TestConcurrentInvokesCountStepsSeparately(t *testing.T) {
	b := NewBuilder(WithMaxSteps(4))
	require.NoError(t, b.AddStep("count", func(_ context.Context, s State) (State, error) {
		n, _ := Get[int](s, "n")
		return State{"n": n + 1}, nil
	}))
	require.NoError(t, b.AddEdge(Start, "count"))
	require.NoError(t, b.AddConditionalEdge("count", func(_ context.Context, s State) (Outcome, error) {
		if n, _ := Get[int](s, "n"); n < 3 {
			return "again", nil
		}
		return "done", nil
	}, map[Outcome]string{"again": "count", "done": End}))

	g, err := b.Compile()
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			final, err := g.Invoke(context.Background(), State{})
			if err == nil && final["n"] != 3 {
				err = fmt.Errorf("got n=%v", final["n"])
			}
			errs[i] = err
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		assert.NoError(t, err)
	}
}

func TestBranchFromStart(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddStep("left", appendStep("out", "L")))
	require.NoError(t, b.AddStep("right", appendStep("out", "R")))
	require.NoError(t, b.AddConditionalEdge(Start, func(_ context.Context, s State) (Outcome, error) {
		if side, _ := Get[string](s, "side"); side == "right" {
			return "right", nil
		}
		return "left", nil
	}, map[Outcome]string{"left": "left", "right": "right"}))
	require.NoError(t, b.AddEdge("left", End))
	require.NoError(t, b.AddEdge("right", End))

	g, err := b.Compile()
	require.NoError(t, err)

	final, err := g.Invoke(context.Background(), State{"side": "right"})
	require.NoError(t, err)
	assert.Equal(t, "R", final["out"])
}
