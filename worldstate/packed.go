package worldstate

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/cairn-engine/cairn/types"
)

// packedSizes flattens a layout into its per-field bit widths. Only layouts
// whose shape is fully static can pack.
func packedSizes(layout types.Layout) ([]uint8, error) {
	sizes, ok := layout.FixedSizes()
	if !ok {
		return nil, eris.Wrapf(ErrNotPackable, "%s layout has dynamic shape", layout.Kind())
	}
	return sizes, nil
}

func (m *StateManager) writePacked(
	ctx context.Context,
	model types.Selector,
	id types.Key,
	values []types.Word,
	layout types.Layout,
) error {
	sizes, err := packedSizes(layout)
	if err != nil {
		return err
	}
	words, err := Pack(values, sizes)
	if err != nil {
		return err
	}
	for i, w := range words {
		if err := m.dbStorage.SetWord(ctx, storageSlotKey(model, id, i), w); err != nil {
			return err
		}
	}
	return nil
}

func (m *StateManager) readPacked(
	ctx context.Context,
	model types.Selector,
	id types.Key,
	layout types.Layout,
) ([]types.Word, error) {
	sizes, err := packedSizes(layout)
	if err != nil {
		return nil, err
	}
	n := PackedWordCount(sizes)
	words := make([]types.Word, n)
	for i := 0; i < n; i++ {
		w, err := m.dbStorage.GetWord(ctx, storageSlotKey(model, id, i))
		if err != nil {
			return nil, err
		}
		words[i] = w
	}
	return Unpack(words, sizes)
}

func (m *StateManager) deletePacked(
	ctx context.Context,
	model types.Selector,
	id types.Key,
	layout types.Layout,
) error {
	sizes, err := packedSizes(layout)
	if err != nil {
		return err
	}
	zero := types.Word{}
	for i, n := 0, PackedWordCount(sizes); i < n; i++ {
		if err := m.dbStorage.SetWord(ctx, storageSlotKey(model, id, i), zero); err != nil {
			return err
		}
	}
	return nil
}
