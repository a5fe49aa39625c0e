package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zlnvch/placebot/engine"
)

func TestRoster_ClaimAndRelease(t *testing.T) {
	r := engine.NewRoster()

	require.NoError(t, r.Claim("tpl-1", []string{"a", "b"}))

	owner, busy := r.Owner("a")
	assert.True(t, busy)
	assert.Equal(t, "tpl-1", owner)

	r.Release("tpl-1")
	_, busy = r.Owner("a")
	assert.False(t, busy)
	_, busy = r.Owner("b")
	assert.False(t, busy)
}

func TestRoster_ConflictingClaimIsAtomic(t *testing.T) {
	r := engine.NewRoster()
	require.NoError(t, r.Claim("tpl-1", []string{"b"}))

	err := r.Claim("tpl-2", []string{"a", "b"})
	require.Error(t, err)

	// The failed claim must not have grabbed the free account either.
	_, busy := r.Owner("a")
	assert.False(t, busy)
}

func TestRoster_SameTemplateMayReclaim(t *testing.T) {
	r := engine.NewRoster()
	require.NoError(t, r.Claim("tpl-1", []string{"a"}))
	assert.NoError(t, r.Claim("tpl-1", []string{"a", "b"}))
}

func TestRoster_ReclaimSwapsTheSet(t *testing.T) {
	r := engine.NewRoster()
	require.NoError(t, r.Claim("tpl-1", []string{"a", "b"}))

	require.NoError(t, r.Reclaim("tpl-1", []string{"b", "c"}))

	_, busy := r.Owner("a")
	assert.False(t, busy, "dropped account should be free")
	owner, busy := r.Owner("c")
	assert.True(t, busy)
	assert.Equal(t, "tpl-1", owner)
}

func TestRoster_ReclaimRespectsOtherOwners(t *testing.T) {
	r := engine.NewRoster()
	require.NoError(t, r.Claim("tpl-1", []string{"a"}))
	require.NoError(t, r.Claim("tpl-2", []string{"b"}))

	err := r.Reclaim("tpl-1", []string{"a", "b"})
	require.Error(t, err)

	// The failed swap must leave the original claim intact.
	owner, busy := r.Owner("a")
	assert.True(t, busy)
	assert.Equal(t, "tpl-1", owner)
}
