package mood

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/StockLens/consts"
	"github.com/dyike/StockLens/internal/graph"
)

func constant(v float64) func() float64 {
	return func() float64 { return v }
}

func TestMoodGraphBranches(t *testing.T) {
	tests := []struct {
		name  string
		roll  float64
		want  string
		steps []string
	}{
		{name: "happy", roll: 0.1, want: "Hi, this is Lance.I am happy!", steps: []string{consts.MoodNode1, consts.MoodNode2}},
		{name: "sad", roll: 0.5, want: "Hi, this is Lance.I am sad!", steps: []string{consts.MoodNode1, consts.MoodNode3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var visited []string
			g, err := New(constant(tt.roll), graph.WithTrace(func(s string) { visited = append(visited, s) }))
			require.NoError(t, err)

			got, err := Run(context.Background(), g, "Hi, this is Lance.")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.steps, visited)
		})
	}
}

func TestMoodGraphRandomIsOneOfTwoStates(t *testing.T) {
	g, err := New(nil)
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		got, err := Run(context.Background(), g, "Hi, this is Lance.")
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(got, " happy!") || strings.HasSuffix(got, " sad!"), got)
		assert.Equal(t, 1, strings.Count(got, "I am"))
	}
}
