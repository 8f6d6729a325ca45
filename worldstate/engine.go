package worldstate

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"

	"github.com/cairn-engine/cairn/storage"
	"github.com/cairn-engine/cairn/types"
)

// StateManager is the layout-driven storage engine. Given a model, a key
// tuple, and a layout, it maps every leaf value of a record to a hash-derived
// substrate address and persists, retrieves, or zeroes it. All recursion is
// synchronous and bounded by the layout depth and the enforced array maxima;
// the execution model runs one operation at a time, so the manager holds no
// locks.
type StateManager struct {
	dbStorage storage.WordStorage
	registry  *Registry
	access    AccessControl
}

func NewStateManager(dbStorage storage.WordStorage, registry *Registry, access AccessControl) *StateManager {
	return &StateManager{
		dbStorage: dbStorage,
		registry:  registry,
		access:    access,
	}
}

// Registry exposes the model registry backing this manager.
func (m *StateManager) Registry() *Registry { return m.registry }

func (m *StateManager) authorize(ctx context.Context, caller types.Address, resource types.Selector) error {
	ok, err := m.access.CanWrite(ctx, caller, resource)
	if err != nil {
		return err
	}
	if !ok {
		return eris.Wrapf(ErrUnauthorized, "caller %s on resource %s", caller.Hex(), resource.Hex())
	}
	return nil
}

// resolveLayout picks the layout to operate with: the inline layout when one
// is supplied, the registered schema otherwise. It also reports whether the
// model stores packed.
func (m *StateManager) resolveLayout(
	ctx context.Context, model types.Selector, layout types.Layout,
) (types.Layout, bool, error) {
	metadata, err := m.registry.Model(ctx, model)
	switch {
	case err == nil:
		if layout == nil {
			layout = metadata.Schema.Layout
		}
		return layout, metadata.Packed, nil
	case eris.Is(eris.Cause(err), ErrModelNotFound):
		if layout == nil {
			return nil, false, err
		}
		// Ad hoc layout against an unregistered selector: legal for reads and
		// for callers that manage their own schemas.
		return layout, false, nil
	default:
		return nil, false, err
	}
}

func checkRootLayout(layout types.Layout) error {
	switch layout.Kind() {
	case types.LayoutKindFixed, types.LayoutKindStruct:
		return nil
	}
	return eris.Wrapf(ErrUnexpectedLayoutType, "%s", layout.Kind())
}

// SetEntity writes one record. The value buffer must match the layout
// exactly: too few values at any point of descent, or unconsumed trailing
// values, fail with ErrInvalidValuesLength. The permission gate runs before
// any substrate write.
func (m *StateManager) SetEntity(
	ctx context.Context,
	caller types.Address,
	model types.Selector,
	keys []types.Word,
	values []types.Word,
	layout types.Layout,
) error {
	if err := m.authorize(ctx, caller, model); err != nil {
		return err
	}
	layout, packed, err := m.resolveLayout(ctx, model, layout)
	if err != nil {
		return err
	}
	if err := checkRootLayout(layout); err != nil {
		return err
	}
	id := EntityIDFromKeys(keys)
	log.Debug().
		Str("model", model.Hex()).
		Str("entity", id.Hex()).
		Int("values", len(values)).
		Msg("set entity")
	return m.writeRecord(ctx, model, id, values, layout, packed)
}

// Entity reads one record. Never-written leaves read as zero; arrays and
// byte arrays size themselves from their stored length slots, so the result
// length is dynamic.
func (m *StateManager) Entity(
	ctx context.Context,
	model types.Selector,
	keys []types.Word,
	layout types.Layout,
) ([]types.Word, error) {
	layout, packed, err := m.resolveLayout(ctx, model, layout)
	if err != nil {
		return nil, err
	}
	if err := checkRootLayout(layout); err != nil {
		return nil, err
	}
	return m.readRecord(ctx, model, EntityIDFromKeys(keys), layout, packed)
}

// DeleteEntity zeroes all leaf slots of a record. Array and byte array
// element slots are orphaned rather than cleared: once the length/header
// slots are zero the elements are unreachable through the addressing scheme.
// Deleting twice is a no-op.
func (m *StateManager) DeleteEntity(
	ctx context.Context,
	caller types.Address,
	model types.Selector,
	keys []types.Word,
	layout types.Layout,
) error {
	if err := m.authorize(ctx, caller, model); err != nil {
		return err
	}
	layout, packed, err := m.resolveLayout(ctx, model, layout)
	if err != nil {
		return err
	}
	if err := checkRootLayout(layout); err != nil {
		return err
	}
	id := EntityIDFromKeys(keys)
	log.Debug().
		Str("model", model.Hex()).
		Str("entity", id.Hex()).
		Msg("delete entity")
	return m.deleteRecord(ctx, model, id, layout, packed)
}

// SetEntities writes many records of one model in a single authorized call.
func (m *StateManager) SetEntities(
	ctx context.Context,
	caller types.Address,
	model types.Selector,
	keys [][]types.Word,
	values [][]types.Word,
	layout types.Layout,
) error {
	if len(keys) != len(values) {
		return eris.Wrapf(ErrInvalidValuesLength, "%d key tuples for %d value buffers", len(keys), len(values))
	}
	if err := m.authorize(ctx, caller, model); err != nil {
		return err
	}
	layout, packed, err := m.resolveLayout(ctx, model, layout)
	if err != nil {
		return err
	}
	if err := checkRootLayout(layout); err != nil {
		return err
	}
	for i := range keys {
		if err := m.writeRecord(ctx, model, EntityIDFromKeys(keys[i]), values[i], layout, packed); err != nil {
			return err
		}
	}
	return nil
}

// Entities reads many records of one model.
func (m *StateManager) Entities(
	ctx context.Context,
	model types.Selector,
	keys [][]types.Word,
	layout types.Layout,
) ([][]types.Word, error) {
	layout, packed, err := m.resolveLayout(ctx, model, layout)
	if err != nil {
		return nil, err
	}
	if err := checkRootLayout(layout); err != nil {
		return nil, err
	}
	out := make([][]types.Word, len(keys))
	for i := range keys {
		values, err := m.readRecord(ctx, model, EntityIDFromKeys(keys[i]), layout, packed)
		if err != nil {
			return nil, err
		}
		out[i] = values
	}
	return out, nil
}

// DeleteEntities deletes many records of one model.
func (m *StateManager) DeleteEntities(
	ctx context.Context,
	caller types.Address,
	model types.Selector,
	keys [][]types.Word,
	layout types.Layout,
) error {
	if err := m.authorize(ctx, caller, model); err != nil {
		return err
	}
	layout, packed, err := m.resolveLayout(ctx, model, layout)
	if err != nil {
		return err
	}
	if err := checkRootLayout(layout); err != nil {
		return err
	}
	for i := range keys {
		if err := m.deleteRecord(ctx, model, EntityIDFromKeys(keys[i]), layout, packed); err != nil {
			return err
		}
	}
	return nil
}

// memberLayout resolves a member selector against the model's registered
// struct schema.
func (m *StateManager) memberLayout(
	ctx context.Context, model types.Selector, member types.Selector,
) (types.Layout, error) {
	metadata, err := m.registry.Model(ctx, model)
	if err != nil {
		return nil, err
	}
	if metadata.Packed {
		return nil, eris.Wrapf(ErrPackedMemberAccess, "model %s", metadata.Tag())
	}
	root, ok := metadata.Schema.Layout.(types.StructLayout)
	if !ok {
		return nil, eris.Wrapf(ErrBadMemberID, "model %s has no named members", metadata.Tag())
	}
	for _, field := range root.Fields {
		if field.Selector == member {
			return field.Layout, nil
		}
	}
	return nil, eris.Wrapf(ErrBadMemberID, "member %s of model %s", member.Hex(), metadata.Tag())
}

// SetMember writes a single member of a record, addressed by the entity id
// and the member's field selector.
func (m *StateManager) SetMember(
	ctx context.Context,
	caller types.Address,
	model types.Selector,
	id types.Key,
	member types.Selector,
	values []types.Word,
) error {
	if err := m.authorize(ctx, caller, model); err != nil {
		return err
	}
	layout, err := m.memberLayout(ctx, model, member)
	if err != nil {
		return err
	}
	cursor := 0
	if _, err := m.writeLayout(ctx, model, ChildKey(id, member), 0, layout, values, &cursor); err != nil {
		return err
	}
	if cursor != len(values) {
		return eris.Wrapf(ErrInvalidValuesLength, "%d trailing values", len(values)-cursor)
	}
	return nil
}

// Member reads a single member of a record.
func (m *StateManager) Member(
	ctx context.Context,
	model types.Selector,
	id types.Key,
	member types.Selector,
) ([]types.Word, error) {
	layout, err := m.memberLayout(ctx, model, member)
	if err != nil {
		return nil, err
	}
	var out []types.Word
	if _, err := m.readLayout(ctx, model, ChildKey(id, member), 0, layout, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *StateManager) writeRecord(
	ctx context.Context,
	model types.Selector,
	id types.Key,
	values []types.Word,
	layout types.Layout,
	packed bool,
) error {
	if packed {
		return m.writePacked(ctx, model, id, values, layout)
	}
	cursor := 0
	if _, err := m.writeLayout(ctx, model, id, 0, layout, values, &cursor); err != nil {
		return err
	}
	if cursor != len(values) {
		return eris.Wrapf(ErrInvalidValuesLength, "%d trailing values", len(values)-cursor)
	}
	return nil
}

func (m *StateManager) readRecord(
	ctx context.Context,
	model types.Selector,
	id types.Key,
	layout types.Layout,
	packed bool,
) ([]types.Word, error) {
	if packed {
		return m.readPacked(ctx, model, id, layout)
	}
	var out []types.Word
	if _, err := m.readLayout(ctx, model, id, 0, layout, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *StateManager) deleteRecord(
	ctx context.Context,
	model types.Selector,
	id types.Key,
	layout types.Layout,
	packed bool,
) error {
	if packed {
		return m.deletePacked(ctx, model, id, layout)
	}
	_, err := m.deleteLayout(ctx, model, id, 0, layout)
	return err
}

// writeLayout is the recursive write dispatch. It returns the next free slot
// offset at the current key; the cursor tracks consumption of the flat value
// buffer across the whole descent, since the buffer's serialization order
// matches the layout's field order.
func (m *StateManager) writeLayout(
	ctx context.Context,
	model types.Selector,
	key types.Key,
	slot int,
	layout types.Layout,
	values []types.Word,
	cursor *int,
) (int, error) {
	switch l := layout.(type) {
	case types.FixedLayout:
		n := len(l.Sizes)
		if *cursor+n > len(values) {
			return 0, eris.Wrapf(ErrInvalidValuesLength, "need %d more values", *cursor+n-len(values))
		}
		for i := 0; i < n; i++ {
			if err := m.dbStorage.SetWord(ctx, storageSlotKey(model, key, slot+i), values[*cursor+i]); err != nil {
				return 0, err
			}
		}
		*cursor += n
		return slot + n, nil

	case types.StructLayout:
		for _, field := range l.Fields {
			if _, err := m.writeLayout(ctx, model, ChildKey(key, field.Selector), 0, field.Layout, values, cursor); err != nil {
				return 0, err
			}
		}
		return slot, nil

	case types.TupleLayout:
		for i, item := range l.Items {
			if _, err := m.writeLayout(ctx, model, IndexKey(key, uint64(i)), 0, item, values, cursor); err != nil {
				return 0, err
			}
		}
		return slot, nil

	case types.ArrayLayout:
		if *cursor >= len(values) {
			return 0, eris.Wrap(ErrInvalidValuesLength, "missing array length")
		}
		length := values[*cursor]
		if !length.IsUint64() || length.Uint64() >= types.MaxArrayLength {
			return 0, eris.Wrapf(ErrInvalidArrayLength, "%s", length.Dec())
		}
		if err := m.dbStorage.SetWord(ctx, storageSlotKey(model, key, slot), length); err != nil {
			return 0, err
		}
		*cursor++
		n := length.Uint64()
		for i := uint64(0); i < n; i++ {
			if _, err := m.writeLayout(ctx, model, IndexKey(key, i), 0, l.Item, values, cursor); err != nil {
				return 0, err
			}
		}
		return slot + 1, nil

	case types.ByteArrayLayout:
		return m.writeByteArray(ctx, model, key, slot, values, cursor)

	case types.EnumLayout:
		if *cursor >= len(values) {
			return 0, eris.Wrap(ErrInvalidValuesLength, "missing enum discriminant")
		}
		tag := values[*cursor]
		if !tag.IsUint64() || tag.Uint64() >= types.MaxEnumTag {
			return 0, eris.Wrapf(ErrInvalidVariantValue, "%s", tag.Dec())
		}
		variant, err := findVariant(l, uint8(tag.Uint64()))
		if err != nil {
			return 0, err
		}
		if err := m.dbStorage.SetWord(ctx, storageSlotKey(model, key, slot), tag); err != nil {
			return 0, err
		}
		*cursor++
		// The payload shares the tag's key: only one variant is live at a
		// time, so the slots cannot collide across variants.
		return m.writeLayout(ctx, model, key, slot+1, variant.Layout, values, cursor)
	}
	return 0, eris.Wrapf(types.ErrUnknownLayoutKind, "%T", layout)
}

// readLayout is the recursive read dispatch, mirroring writeLayout. It
// appends to out and returns the next slot offset at the current key.
func (m *StateManager) readLayout(
	ctx context.Context,
	model types.Selector,
	key types.Key,
	slot int,
	layout types.Layout,
	out *[]types.Word,
) (int, error) {
	switch l := layout.(type) {
	case types.FixedLayout:
		n := len(l.Sizes)
		for i := 0; i < n; i++ {
			w, err := m.dbStorage.GetWord(ctx, storageSlotKey(model, key, slot+i))
			if err != nil {
				return 0, err
			}
			*out = append(*out, w)
		}
		return slot + n, nil

	case types.StructLayout:
		for _, field := range l.Fields {
			if _, err := m.readLayout(ctx, model, ChildKey(key, field.Selector), 0, field.Layout, out); err != nil {
				return 0, err
			}
		}
		return slot, nil

	case types.TupleLayout:
		for i, item := range l.Items {
			if _, err := m.readLayout(ctx, model, IndexKey(key, uint64(i)), 0, item, out); err != nil {
				return 0, err
			}
		}
		return slot, nil

	case types.ArrayLayout:
		length, err := m.dbStorage.GetWord(ctx, storageSlotKey(model, key, slot))
		if err != nil {
			return 0, err
		}
		if !length.IsUint64() || length.Uint64() >= types.MaxArrayLength {
			return 0, eris.Wrapf(ErrInvalidArrayLength, "stored length %s", length.Dec())
		}
		*out = append(*out, length)
		n := length.Uint64()
		for i := uint64(0); i < n; i++ {
			if _, err := m.readLayout(ctx, model, IndexKey(key, i), 0, l.Item, out); err != nil {
				return 0, err
			}
		}
		return slot + 1, nil

	case types.ByteArrayLayout:
		return m.readByteArray(ctx, model, key, slot, out)

	case types.EnumLayout:
		tag, err := m.dbStorage.GetWord(ctx, storageSlotKey(model, key, slot))
		if err != nil {
			return 0, err
		}
		if !tag.IsUint64() || tag.Uint64() >= types.MaxEnumTag {
			return 0, eris.Wrapf(ErrInvalidVariantValue, "stored tag %s", tag.Dec())
		}
		variant, err := findVariant(l, uint8(tag.Uint64()))
		if err != nil {
			return 0, err
		}
		*out = append(*out, tag)
		return m.readLayout(ctx, model, key, slot+1, variant.Layout, out)
	}
	return 0, eris.Wrapf(types.ErrUnknownLayoutKind, "%T", layout)
}

// deleteLayout zeroes leaf slots recursively. Array and byte array element
// slots are left orphaned: zeroing the length/header makes them unreachable,
// and skipping them bounds delete cost by the layout, not the stored data.
func (m *StateManager) deleteLayout(
	ctx context.Context,
	model types.Selector,
	key types.Key,
	slot int,
	layout types.Layout,
) (int, error) {
	zero := types.Word{}
	switch l := layout.(type) {
	case types.FixedLayout:
		n := len(l.Sizes)
		for i := 0; i < n; i++ {
			if err := m.dbStorage.SetWord(ctx, storageSlotKey(model, key, slot+i), zero); err != nil {
				return 0, err
			}
		}
		return slot + n, nil

	case types.StructLayout:
		for _, field := range l.Fields {
			if _, err := m.deleteLayout(ctx, model, ChildKey(key, field.Selector), 0, field.Layout); err != nil {
				return 0, err
			}
		}
		return slot, nil

	case types.TupleLayout:
		for i, item := range l.Items {
			if _, err := m.deleteLayout(ctx, model, IndexKey(key, uint64(i)), 0, item); err != nil {
				return 0, err
			}
		}
		return slot, nil

	case types.ArrayLayout:
		if err := m.dbStorage.SetWord(ctx, storageSlotKey(model, key, slot), zero); err != nil {
			return 0, err
		}
		return slot + 1, nil

	case types.ByteArrayLayout:
		for i := 0; i < byteArrayHeaderSlots; i++ {
			if err := m.dbStorage.SetWord(ctx, storageSlotKey(model, key, slot+i), zero); err != nil {
				return 0, err
			}
		}
		return slot + byteArrayHeaderSlots, nil

	case types.EnumLayout:
		// The stored tag decides which variant's slots to zero.
		tag, err := m.dbStorage.GetWord(ctx, storageSlotKey(model, key, slot))
		if err != nil {
			return 0, err
		}
		if !tag.IsUint64() || tag.Uint64() >= types.MaxEnumTag {
			return 0, eris.Wrapf(ErrInvalidVariantValue, "stored tag %s", tag.Dec())
		}
		variant, err := findVariant(l, uint8(tag.Uint64()))
		if err != nil {
			return 0, err
		}
		if err := m.dbStorage.SetWord(ctx, storageSlotKey(model, key, slot), zero); err != nil {
			return 0, err
		}
		return m.deleteLayout(ctx, model, key, slot+1, variant.Layout)
	}
	return 0, eris.Wrapf(types.ErrUnknownLayoutKind, "%T", layout)
}

func findVariant(l types.EnumLayout, tag uint8) (types.VariantLayout, error) {
	for _, variant := range l.Variants {
		if variant.Tag == tag {
			return variant, nil
		}
	}
	return types.VariantLayout{}, eris.Wrapf(ErrVariantNotFound, "tag %d", tag)
}
