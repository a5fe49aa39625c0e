package charge_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zlnvch/placebot/charge"
	"github.com/zlnvch/placebot/models"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestPredict_UnknownAccount(t *testing.T) {
	p := charge.NewPredictor()
	_, ok := p.Predict("nobody", t0)
	assert.False(t, ok)
	assert.True(t, p.IsStale("nobody", t0))
}

func TestPredict_LinearRegen(t *testing.T) {
	p := charge.NewPredictor()
	p.Mark("u1", models.Charges{Count: 10, Max: 100}, t0)

	for n := 0; n <= 120; n++ {
		got, ok := p.Predict("u1", t0.Add(time.Duration(n)*charge.RegenInterval))
		require.True(t, ok)
		assert.Equal(t, min(100, 10+n), got.Count, "after %d regen intervals", n)
		assert.Equal(t, 100, got.Max)
	}
}

func TestPredict_PartialIntervalDoesNotCount(t *testing.T) {
	p := charge.NewPredictor()
	p.Mark("u1", models.Charges{Count: 5, Max: 50}, t0)

	got, _ := p.Predict("u1", t0.Add(charge.RegenInterval-time.Second))
	assert.Equal(t, 5, got.Count)

	got, _ = p.Predict("u1", t0.Add(charge.RegenInterval))
	assert.Equal(t, 6, got.Count)
}

func TestConsume_FloorsAtZero(t *testing.T) {
	p := charge.NewPredictor()
	p.Mark("u1", models.Charges{Count: 3, Max: 50}, t0)

	p.Consume("u1", 10, t0)
	got, _ := p.Predict("u1", t0)
	assert.Equal(t, 0, got.Count)
}

func TestConsume_ImmediatePredictReflectsSpend(t *testing.T) {
	p := charge.NewPredictor()
	p.Mark("u1", models.Charges{Count: 20, Max: 50}, t0)

	now := t0.Add(2*charge.RegenInterval + 10*time.Second) // 22 available
	p.Consume("u1", 7, now)
	got, _ := p.Predict("u1", now)
	assert.Equal(t, 15, got.Count)
}

func TestConsume_ReanchorsToRegenTick(t *testing.T) {
	p := charge.NewPredictor()
	p.Mark("u1", models.Charges{Count: 10, Max: 50}, t0)

	// Consume 25s into a regen tick: the in-progress tick must still
	// complete 5s later rather than restarting.
	now := t0.Add(2*charge.RegenInterval + 25*time.Second)
	p.Consume("u1", 1, now)

	got, _ := p.Predict("u1", now.Add(5*time.Second))
	assert.Equal(t, 12, got.Count) // 12 avail - 1 consumed + 1 regen
}

func TestConsume_UnknownAccountIsNoop(t *testing.T) {
	p := charge.NewPredictor()
	p.Consume("ghost", 5, t0)
	_, ok := p.Predict("ghost", t0)
	assert.False(t, ok)
}

func TestIsStale(t *testing.T) {
	p := charge.NewPredictor()
	p.Mark("u1", models.Charges{Count: 1, Max: 10}, t0)

	assert.False(t, p.IsStale("u1", t0.Add(charge.SyncInterval)))
	assert.True(t, p.IsStale("u1", t0.Add(charge.SyncInterval+time.Second)))
}

func TestForget(t *testing.T) {
	p := charge.NewPredictor()
	p.Mark("u1", models.Charges{Count: 1, Max: 10}, t0)
	p.Forget("u1")
	_, ok := p.Predict("u1", t0)
	assert.False(t, ok)
}
