package types_test

import (
	"testing"

	"github.com/goccy/go-json"

	"github.com/cairn-engine/cairn/assert"
	"github.com/cairn-engine/cairn/types"
)

func TestSelectorFromNames(t *testing.T) {
	selector := types.SelectorFromNames("arena", "Position")
	assert.Equal(t, selector, types.SelectorFromHashes(
		types.NamespaceSelector("arena"), types.NameHash("Position"),
	))
	assert.Assert(t, selector != types.SelectorFromNames("arena", "position"))
	assert.Assert(t, selector != types.SelectorFromNames("combat", "Position"))
	assert.False(t, selector.IsZero())
}

func TestIsValidName(t *testing.T) {
	for _, name := range []string{"Position", "snake_case", "CamelCase99", "_x"} {
		assert.True(t, types.IsValidName(name), name)
	}
	for _, name := range []string{"", "has space", "dash-ed", "dot.ted", "ns:name", "héllo"} {
		assert.False(t, types.IsValidName(name), name)
	}
}

func TestSelectorTextRoundTrip(t *testing.T) {
	original := types.SelectorFromNames("arena", "Position")
	bz, err := json.Marshal(original)
	assert.NilError(t, err)

	var decoded types.Selector
	assert.NilError(t, json.Unmarshal(bz, &decoded))
	assert.Equal(t, decoded, original)
}

func TestSelectorUnmarshalRejectsBadHex(t *testing.T) {
	var decoded types.Selector
	assert.Assert(t, json.Unmarshal([]byte(`"zz"`), &decoded) != nil)
	assert.Assert(t, json.Unmarshal([]byte(`"abcd"`), &decoded) != nil)
}

func TestWordsHelper(t *testing.T) {
	ws := types.Words(1, 2, 3)
	assert.Len(t, ws, 3)
	assert.Equal(t, ws[1], types.NewWord(2))
	assert.DeepEqual(t, types.ZeroWords(2), []types.Word{{}, {}})
}
