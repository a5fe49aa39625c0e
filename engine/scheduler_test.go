package engine_test

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zlnvch/placebot/canvas"
	"github.com/zlnvch/placebot/canvas/mocks"
	"github.com/zlnvch/placebot/engine"
	"github.com/zlnvch/placebot/settings"
)

func px(x, y, color int, edge bool) engine.MismatchPixel {
	return engine.MismatchPixel{
		Tile: canvas.TileKey{}, Px: x, Py: y, LocalX: x, LocalY: y,
		Color: color, IsEdge: edge,
	}
}

func TestPlan_BudgetTruncation(t *testing.T) {
	pixels := []engine.MismatchPixel{px(0, 0, 1, false), px(1, 1, 1, false), px(2, 2, 1, false)}

	assert.Len(t, engine.Plan(pixels, engine.PlanOptions{Budget: 2}), 2)
	assert.Len(t, engine.Plan(pixels, engine.PlanOptions{Budget: 10}), 3)
	assert.Empty(t, engine.Plan(pixels, engine.PlanOptions{Budget: 0}))
}

func TestPlan_OutlineFiltersToEdges(t *testing.T) {
	pixels := []engine.MismatchPixel{px(0, 0, 1, false), px(1, 1, 1, true), px(2, 2, 1, false)}

	got := engine.Plan(pixels, engine.PlanOptions{OutlineOnly: true, Budget: 10})
	require.Len(t, got, 1)
	assert.True(t, got[0].IsEdge)
}

func TestPlan_OutlineFallsBackWhenNoEdges(t *testing.T) {
	pixels := []engine.MismatchPixel{px(0, 0, 1, false), px(1, 1, 1, false)}

	got := engine.Plan(pixels, engine.PlanOptions{OutlineOnly: true, Budget: 10})
	assert.Len(t, got, 2)
}

func TestPlan_Directions(t *testing.T) {
	pixels := []engine.MismatchPixel{px(0, 2, 1, false), px(2, 0, 1, false), px(1, 1, 1, false)}
	opts := func(dir string) engine.PlanOptions {
		return engine.PlanOptions{Direction: dir, Budget: 10, ImageWidth: 3, ImageHeight: 3}
	}

	ys := func(planned []engine.MismatchPixel) []int {
		out := make([]int, len(planned))
		for i, p := range planned {
			out[i] = p.LocalY
		}
		return out
	}
	xs := func(planned []engine.MismatchPixel) []int {
		out := make([]int, len(planned))
		for i, p := range planned {
			out[i] = p.LocalX
		}
		return out
	}

	assert.Equal(t, []int{0, 1, 2}, ys(engine.Plan(pixels, opts(settings.DirectionTopDown))))
	assert.Equal(t, []int{2, 1, 0}, ys(engine.Plan(pixels, opts(settings.DirectionBottomUp))))
	assert.Equal(t, []int{0, 1, 2}, xs(engine.Plan(pixels, opts(settings.DirectionLeftRight))))
	assert.Equal(t, []int{2, 1, 0}, xs(engine.Plan(pixels, opts(settings.DirectionRightLeft))))
}

func TestPlan_CenterOut(t *testing.T) {
	pixels := []engine.MismatchPixel{px(0, 0, 1, false), px(4, 4, 1, false), px(5, 5, 1, false)}

	got := engine.Plan(pixels, engine.PlanOptions{
		Direction: settings.DirectionCenterOut, Budget: 10, ImageWidth: 10, ImageHeight: 10,
	})

	require.Len(t, got, 3)
	assert.Equal(t, 5, got[0].LocalX, "exact center first")
	assert.Equal(t, 4, got[1].LocalX)
	assert.Equal(t, 0, got[2].LocalX, "corner last")
}

func TestPlan_RandomIsAPermutation(t *testing.T) {
	var pixels []engine.MismatchPixel
	for i := 0; i < 50; i++ {
		pixels = append(pixels, px(i, i, 1, false))
	}

	got := engine.Plan(pixels, engine.PlanOptions{
		Direction: settings.DirectionRandom, Budget: 100,
		Rand: rand.New(rand.NewSource(42)),
	})

	require.Len(t, got, 50)
	assert.ElementsMatch(t, pixels, got)
}

func TestPlan_ColorOrderBucketsByFirstEncounter(t *testing.T) {
	// Top-down order encounters color 9 before color 3.
	pixels := []engine.MismatchPixel{px(0, 0, 9, false), px(0, 1, 3, false), px(0, 2, 9, false), px(0, 3, 3, false)}

	got := engine.Plan(pixels, engine.PlanOptions{Order: settings.OrderColor, Budget: 10})

	colors := make([]int, len(got))
	for i, p := range got {
		colors[i] = p.Color
	}
	assert.Equal(t, []int{9, 9, 3, 3}, colors)
}

func TestGroupByTile(t *testing.T) {
	a := canvas.TileKey{X: 1, Y: 1}
	b := canvas.TileKey{X: 2, Y: 1}
	pixels := []engine.MismatchPixel{
		{Tile: a, Px: 1, Py: 2, Color: 5},
		{Tile: b, Px: 3, Py: 4, Color: 6},
		{Tile: a, Px: 5, Py: 6, Color: 7},
	}

	got := engine.GroupByTile(pixels)

	require.Len(t, got, 2)
	assert.Equal(t, a, got[0].Tile)
	assert.Equal(t, []int{5, 7}, got[0].Colors)
	assert.Equal(t, []int{1, 2, 5, 6}, got[0].Coords)
	assert.Equal(t, b, got[1].Tile)
	assert.Equal(t, []int{6}, got[1].Colors)
	assert.Equal(t, []int{3, 4}, got[1].Coords)
}

type stubTokens struct {
	value       string
	invalidated int
}

func (s *stubTokens) Get(ctx context.Context, label string) (string, error) { return s.value, nil }
func (s *stubTokens) Invalidate()                                           { s.invalidated++ }

func TestScheduler_SubmitsAtMostBudgetPixels(t *testing.T) {
	var pixels []engine.MismatchPixel
	for i := 0; i < 10; i++ {
		pixels = append(pixels, px(i, i, 1, false))
	}

	client := new(mocks.MockClient)
	client.On("PaintBatch", mock.Anything, canvas.TileKey{}, mock.Anything, mock.Anything, "tok").
		Return(3, nil)

	s := &engine.Scheduler{Tokens: &stubTokens{value: "tok"}}
	painted, err := s.PlanAndExecute(context.Background(), client, "test", pixels, engine.PlanOptions{Budget: 3})

	require.NoError(t, err)
	assert.Equal(t, 3, painted)
	client.AssertNumberOfCalls(t, "PaintBatch", 1)
	colors := client.Calls[0].Arguments.Get(2).([]int)
	assert.Len(t, colors, 3)
}

func TestScheduler_RefreshTokenInvalidatesAndPropagates(t *testing.T) {
	pixels := []engine.MismatchPixel{px(0, 0, 1, false)}

	client := new(mocks.MockClient)
	client.On("PaintBatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(0, canvas.ErrRefreshToken)

	tokens := &stubTokens{value: "stale"}
	s := &engine.Scheduler{Tokens: tokens}
	painted, err := s.PlanAndExecute(context.Background(), client, "test", pixels, engine.PlanOptions{Budget: 5})

	assert.ErrorIs(t, err, canvas.ErrRefreshToken)
	assert.Equal(t, 0, painted)
	assert.Equal(t, 1, tokens.invalidated)
}

func TestScheduler_SequentialAcrossTiles(t *testing.T) {
	a := canvas.TileKey{X: 1, Y: 0}
	b := canvas.TileKey{X: 2, Y: 0}
	pixels := []engine.MismatchPixel{
		{Tile: a, Px: 0, Py: 0, Color: 1},
		{Tile: b, Px: 0, Py: 0, Color: 2},
	}

	client := new(mocks.MockClient)
	client.On("PaintBatch", mock.Anything, a, []int{1}, []int{0, 0}, "tok").Return(1, nil)
	client.On("PaintBatch", mock.Anything, b, []int{2}, []int{0, 0}, "tok").Return(1, nil)

	s := &engine.Scheduler{Tokens: &stubTokens{value: "tok"}}
	painted, err := s.PlanAndExecute(context.Background(), client, "test", pixels, engine.PlanOptions{Budget: 10})

	require.NoError(t, err)
	assert.Equal(t, 2, painted)
	require.Len(t, client.Calls, 2)
	assert.Equal(t, a, client.Calls[0].Arguments.Get(1))
	assert.Equal(t, b, client.Calls[1].Arguments.Get(1))
}
