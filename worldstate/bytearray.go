package worldstate

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/cairn-engine/cairn/types"
)

// Byte array records serialize as [count, data..., pending, pendingLen] and
// store with the three header words first: slot 0 holds the full-word count,
// slot 1 the pending word, slot 2 the pending byte length, and the data words
// follow from slot 3. Keeping the header contiguous lets delete zero a fixed
// block and leave the data words orphaned.
const (
	byteArrayHeaderSlots = 3

	byteArrayCountSlot      = 0
	byteArrayPendingSlot    = 1
	byteArrayPendingLenSlot = 2
	byteArrayDataSlot       = 3
)

func (m *StateManager) writeByteArray(
	ctx context.Context,
	model types.Selector,
	key types.Key,
	slot int,
	values []types.Word,
	cursor *int,
) (int, error) {
	if *cursor >= len(values) {
		return 0, eris.Wrap(ErrInvalidValuesLength, "missing byte array count")
	}
	count := values[*cursor]
	if !count.IsUint64() || count.Uint64() >= types.MaxArrayLength {
		return 0, eris.Wrapf(ErrInvalidArrayLength, "%s", count.Dec())
	}
	n := int(count.Uint64())
	if *cursor+n+byteArrayHeaderSlots > len(values) {
		return 0, eris.Wrapf(ErrInvalidValuesLength,
			"byte array of %d data words needs %d more values", n, *cursor+n+byteArrayHeaderSlots-len(values))
	}
	pending := values[*cursor+1+n]
	pendingLen := values[*cursor+2+n]
	if err := m.dbStorage.SetWord(ctx, storageSlotKey(model, key, slot+byteArrayCountSlot), count); err != nil {
		return 0, err
	}
	if err := m.dbStorage.SetWord(ctx, storageSlotKey(model, key, slot+byteArrayPendingSlot), pending); err != nil {
		return 0, err
	}
	if err := m.dbStorage.SetWord(ctx, storageSlotKey(model, key, slot+byteArrayPendingLenSlot), pendingLen); err != nil {
		return 0, err
	}
	for i := 0; i < n; i++ {
		if err := m.dbStorage.SetWord(ctx, storageSlotKey(model, key, slot+byteArrayDataSlot+i), values[*cursor+1+i]); err != nil {
			return 0, err
		}
	}
	*cursor += n + byteArrayHeaderSlots
	return slot + byteArrayDataSlot + n, nil
}

func (m *StateManager) readByteArray(
	ctx context.Context,
	model types.Selector,
	key types.Key,
	slot int,
	out *[]types.Word,
) (int, error) {
	count, err := m.dbStorage.GetWord(ctx, storageSlotKey(model, key, slot+byteArrayCountSlot))
	if err != nil {
		return 0, err
	}
	if !count.IsUint64() || count.Uint64() >= types.MaxArrayLength {
		return 0, eris.Wrapf(ErrInvalidArrayLength, "stored count %s", count.Dec())
	}
	n := int(count.Uint64())
	*out = append(*out, count)
	for i := 0; i < n; i++ {
		w, err := m.dbStorage.GetWord(ctx, storageSlotKey(model, key, slot+byteArrayDataSlot+i))
		if err != nil {
			return 0, err
		}
		*out = append(*out, w)
	}
	pending, err := m.dbStorage.GetWord(ctx, storageSlotKey(model, key, slot+byteArrayPendingSlot))
	if err != nil {
		return 0, err
	}
	pendingLen, err := m.dbStorage.GetWord(ctx, storageSlotKey(model, key, slot+byteArrayPendingLenSlot))
	if err != nil {
		return 0, err
	}
	*out = append(*out, pending, pendingLen)
	return slot + byteArrayDataSlot + n, nil
}
