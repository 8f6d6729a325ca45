package types_test

import (
	"testing"

	"github.com/goccy/go-json"

	"github.com/cairn-engine/cairn/assert"
	"github.com/cairn-engine/cairn/types"
)

func sampleLayout() types.Layout {
	return types.StructLayout{Fields: []types.FieldLayout{
		{Selector: types.FieldSelector("stats"), Layout: types.FixedLayout{Sizes: []uint8{32, 64}}},
		{Selector: types.FieldSelector("items"), Layout: types.ArrayLayout{Item: types.FixedLayout{Sizes: []uint8{128}}}},
		{Selector: types.FieldSelector("name"), Layout: types.ByteArrayLayout{}},
		{Selector: types.FieldSelector("pos"), Layout: types.TupleLayout{Items: []types.Layout{
			types.FixedLayout{Sizes: []uint8{32}},
			types.FixedLayout{Sizes: []uint8{32}},
		}}},
		{Selector: types.FieldSelector("state"), Layout: types.EnumLayout{Variants: []types.VariantLayout{
			{Tag: 0, Layout: types.FixedLayout{Sizes: []uint8{8}}},
			{Tag: 1, Layout: types.ByteArrayLayout{}},
		}}},
	}}
}

func TestSchemaJSONRoundTrip(t *testing.T) {
	original := types.Schema{Layout: sampleLayout()}
	bz, err := json.Marshal(original)
	assert.NilError(t, err)

	var decoded types.Schema
	assert.NilError(t, json.Unmarshal(bz, &decoded))
	assert.True(t, decoded.Layout.Equal(original.Layout))
}

func TestSchemaJSONRejectsUnknownKind(t *testing.T) {
	var decoded types.Schema
	err := json.Unmarshal([]byte(`{"kind":"matrix"}`), &decoded)
	assert.ErrorIs(t, err, types.ErrUnknownLayoutKind)
}

func TestSchemaJSONRejectsWideFixedSize(t *testing.T) {
	var decoded types.Schema
	err := json.Unmarshal([]byte(`{"kind":"fixed","fixed":{"sizes":[300]}}`), &decoded)
	assert.ErrorIs(t, err, types.ErrSlotTooWide)
}

func TestLayoutEqual(t *testing.T) {
	assert.True(t, sampleLayout().Equal(sampleLayout()))
	assert.False(t, sampleLayout().Equal(types.FixedLayout{Sizes: []uint8{32}}))

	a := types.FixedLayout{Sizes: []uint8{32, 64}}
	assert.True(t, a.Equal(types.FixedLayout{Sizes: []uint8{32, 64}}))
	assert.False(t, a.Equal(types.FixedLayout{Sizes: []uint8{64, 32}}))
}

func TestValidateLayout(t *testing.T) {
	assert.NilError(t, types.ValidateLayout(sampleLayout()))
}

func TestValidateLayoutRejectsWideSlot(t *testing.T) {
	err := types.ValidateLayout(types.FixedLayout{Sizes: []uint8{252}})
	assert.ErrorIs(t, err, types.ErrSlotTooWide)
}

func TestValidateLayoutRejectsDuplicateField(t *testing.T) {
	err := types.ValidateLayout(types.StructLayout{Fields: []types.FieldLayout{
		{Selector: types.FieldSelector("x"), Layout: types.FixedLayout{Sizes: []uint8{8}}},
		{Selector: types.FieldSelector("x"), Layout: types.FixedLayout{Sizes: []uint8{8}}},
	}})
	assert.ErrorIs(t, err, types.ErrDuplicateField)
}

func TestValidateLayoutRejectsDuplicateVariant(t *testing.T) {
	err := types.ValidateLayout(types.EnumLayout{Variants: []types.VariantLayout{
		{Tag: 3, Layout: types.FixedLayout{Sizes: []uint8{8}}},
		{Tag: 3, Layout: types.FixedLayout{Sizes: []uint8{16}}},
	}})
	assert.ErrorIs(t, err, types.ErrDuplicateVariant)
}

func TestValidateLayoutRecursesIntoNestedLayouts(t *testing.T) {
	err := types.ValidateLayout(types.StructLayout{Fields: []types.FieldLayout{
		{Selector: types.FieldSelector("inner"), Layout: types.ArrayLayout{
			Item: types.FixedLayout{Sizes: []uint8{252}},
		}},
	}})
	assert.ErrorIs(t, err, types.ErrSlotTooWide)
}

func TestFixedSizesFlattening(t *testing.T) {
	sizes, ok := types.StructLayout{Fields: []types.FieldLayout{
		{Selector: types.FieldSelector("a"), Layout: types.FixedLayout{Sizes: []uint8{8, 16}}},
		{Selector: types.FieldSelector("b"), Layout: types.TupleLayout{Items: []types.Layout{
			types.FixedLayout{Sizes: []uint8{32}},
		}}},
	}}.FixedSizes()
	assert.True(t, ok)
	assert.DeepEqual(t, sizes, []uint8{8, 16, 32})

	_, ok = sampleLayout().FixedSizes()
	assert.False(t, ok)
}
