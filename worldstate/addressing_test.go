package worldstate_test

import (
	"testing"

	"github.com/cairn-engine/cairn/assert"
	"github.com/cairn-engine/cairn/types"
	"github.com/cairn-engine/cairn/worldstate"
)

func TestEntityIDFromKeysIsDeterministic(t *testing.T) {
	keys := types.Words(1, 2, 3)
	assert.Equal(t, worldstate.EntityIDFromKeys(keys), worldstate.EntityIDFromKeys(types.Words(1, 2, 3)))
}

func TestEntityIDFromKeysSeparatesTuples(t *testing.T) {
	// Same concatenated digits, different tuple shapes.
	a := worldstate.EntityIDFromKeys(types.Words(1, 2))
	b := worldstate.EntityIDFromKeys(types.Words(2, 1))
	c := worldstate.EntityIDFromKeys(types.Words(1))
	assert.Assert(t, a != b)
	assert.Assert(t, a != c)
	assert.Assert(t, b != c)
}

func TestChildKeyDiffersPerField(t *testing.T) {
	parent := worldstate.EntityIDFromKeys(types.Words(42))
	health := worldstate.ChildKey(parent, types.FieldSelector("health"))
	mana := worldstate.ChildKey(parent, types.FieldSelector("mana"))
	assert.Assert(t, health != mana)
	assert.Assert(t, health != parent)
}

func TestIndexKeyDiffersPerIndex(t *testing.T) {
	parent := worldstate.EntityIDFromKeys(types.Words(42))
	i0 := worldstate.IndexKey(parent, 0)
	i1 := worldstate.IndexKey(parent, 1)
	assert.Assert(t, i0 != i1)
	assert.Assert(t, i0 != parent)
}

func TestNestedKeysDoNotCollideAcrossEntities(t *testing.T) {
	a := worldstate.EntityIDFromKeys(types.Words(1))
	b := worldstate.EntityIDFromKeys(types.Words(2))
	field := types.FieldSelector("items")
	assert.Assert(t, worldstate.ChildKey(a, field) != worldstate.ChildKey(b, field))
}
