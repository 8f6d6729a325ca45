package worldstate_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/cairn-engine/cairn/assert"
	"github.com/cairn-engine/cairn/storage"
	"github.com/cairn-engine/cairn/types"
	"github.com/cairn-engine/cairn/worldstate"
)

type engineFixture struct {
	db       storage.WordStorage
	perms    *worldstate.PermissionStore
	registry *worldstate.Registry
	manager  *worldstate.StateManager
}

func newEngineFixture(db storage.WordStorage) *engineFixture {
	perms := worldstate.NewPermissionStore(db)
	registry := worldstate.NewRegistry(db, perms, nil)
	return &engineFixture{
		db:       db,
		perms:    perms,
		registry: registry,
		manager:  worldstate.NewStateManager(db, registry, perms),
	}
}

// inventoryLayout exercises every layout variant below a struct root:
//
//	stats:  Fixed[32, 64]
//	items:  Array(Fixed[128])
//	name:   ByteArray
//	state:  Enum{0: Fixed[8], 1: Tuple(Fixed[32], Fixed[32])}
func inventoryLayout() types.StructLayout {
	return types.StructLayout{Fields: []types.FieldLayout{
		{Selector: types.FieldSelector("stats"), Layout: types.FixedLayout{Sizes: []uint8{32, 64}}},
		{Selector: types.FieldSelector("items"), Layout: types.ArrayLayout{Item: types.FixedLayout{Sizes: []uint8{128}}}},
		{Selector: types.FieldSelector("name"), Layout: types.ByteArrayLayout{}},
		{Selector: types.FieldSelector("state"), Layout: types.EnumLayout{Variants: []types.VariantLayout{
			{Tag: 0, Layout: types.FixedLayout{Sizes: []uint8{8}}},
			{Tag: 1, Layout: types.TupleLayout{Items: []types.Layout{
				types.FixedLayout{Sizes: []uint8{32}},
				types.FixedLayout{Sizes: []uint8{32}},
			}}},
		}}},
	}}
}

// inventoryValues is a full record for inventoryLayout: stats, a two element
// array, a one word byte array, and the tuple variant of the enum.
func inventoryValues() []types.Word {
	return types.Words(
		100, 200, // stats
		2, 11, 22, // items: length, elements
		1, 0x6361697268, 0, 0, // name: count, data word, pending, pending len
		1, 7, 8, // state: tag 1, tuple payload
	)
}

func (f *engineFixture) registerInventory(t *testing.T, caller types.Address) types.Selector {
	t.Helper()
	ctx := context.Background()
	_, err := f.registry.RegisterNamespace(ctx, caller, "arena")
	assert.NilError(t, err)
	selector, err := f.registry.RegisterModel(ctx, caller, worldstate.ModelDefinition{
		Namespace: "arena",
		Name:      "Inventory",
		KeyFields: []types.Selector{types.FieldSelector("id")},
		Schema:    types.Schema{Layout: inventoryLayout()},
	})
	assert.NilError(t, err)
	return selector
}

func TestEntityRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(storage.NewMapStorage())
	alice := types.AddressFromName("alice")
	model := f.registerInventory(t, alice)
	keys := types.Words(42)

	assert.NilError(t, f.manager.SetEntity(ctx, alice, model, keys, inventoryValues(), nil))

	got, err := f.manager.Entity(ctx, model, keys, nil)
	assert.NilError(t, err)
	assert.DeepEqual(t, got, inventoryValues())
}

func TestEntityRoundTripOnRedis(t *testing.T) {
	ctx := context.Background()
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	f := newEngineFixture(storage.NewRedisStorage(client))
	alice := types.AddressFromName("alice")
	model := f.registerInventory(t, alice)
	keys := types.Words(42)

	assert.NilError(t, f.manager.SetEntity(ctx, alice, model, keys, inventoryValues(), nil))

	got, err := f.manager.Entity(ctx, model, keys, nil)
	assert.NilError(t, err)
	assert.DeepEqual(t, got, inventoryValues())
}

func TestEntityReadBeforeWriteIsZero(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(storage.NewMapStorage())
	model := f.registerInventory(t, types.AddressFromName("alice"))

	got, err := f.manager.Entity(ctx, model, types.Words(99), nil)
	assert.NilError(t, err)
	// stats [0 0], empty array [0], empty byte array [0 0 0], enum tag 0
	// with its one byte payload [0 0].
	assert.DeepEqual(t, got, types.ZeroWords(8))
}

func TestDeleteEntityZeroesRecord(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(storage.NewMapStorage())
	alice := types.AddressFromName("alice")
	model := f.registerInventory(t, alice)
	keys := types.Words(42)

	assert.NilError(t, f.manager.SetEntity(ctx, alice, model, keys, inventoryValues(), nil))
	assert.NilError(t, f.manager.DeleteEntity(ctx, alice, model, keys, nil))

	got, err := f.manager.Entity(ctx, model, keys, nil)
	assert.NilError(t, err)
	assert.DeepEqual(t, got, types.ZeroWords(8))

	// Deleting an already deleted record is a no-op.
	assert.NilError(t, f.manager.DeleteEntity(ctx, alice, model, keys, nil))
	got, err = f.manager.Entity(ctx, model, keys, nil)
	assert.NilError(t, err)
	assert.DeepEqual(t, got, types.ZeroWords(8))
}

func TestDeleteOrphansArrayElements(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(storage.NewMapStorage())
	alice := types.AddressFromName("alice")
	model := f.registerInventory(t, alice)
	keys := types.Words(42)

	assert.NilError(t, f.manager.SetEntity(ctx, alice, model, keys, inventoryValues(), nil))
	assert.NilError(t, f.manager.DeleteEntity(ctx, alice, model, keys, nil))

	// Rewriting with a shorter array exposes only the new elements, even
	// though the old element slots were never cleared.
	values := inventoryValues()
	values[2] = types.NewWord(1) // array length
	shorter := append(values[:4:4], values[5:]...)
	assert.NilError(t, f.manager.SetEntity(ctx, alice, model, keys, shorter, nil))

	got, err := f.manager.Entity(ctx, model, keys, nil)
	assert.NilError(t, err)
	assert.DeepEqual(t, got, shorter)
}

func TestSetEntityOverwritesEnumVariant(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(storage.NewMapStorage())
	alice := types.AddressFromName("alice")
	model := f.registerInventory(t, alice)
	keys := types.Words(42)

	assert.NilError(t, f.manager.SetEntity(ctx, alice, model, keys, inventoryValues(), nil))

	// Switch the enum to variant 0, whose payload is a single byte.
	values := inventoryValues()
	switched := append(values[:9:9], types.Words(0, 255)...)
	assert.NilError(t, f.manager.SetEntity(ctx, alice, model, keys, switched, nil))

	got, err := f.manager.Entity(ctx, model, keys, nil)
	assert.NilError(t, err)
	assert.DeepEqual(t, got, switched)
}

func TestSetEntityRejectsUnknownVariant(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(storage.NewMapStorage())
	alice := types.AddressFromName("alice")
	model := f.registerInventory(t, alice)

	values := inventoryValues()
	values[9] = types.NewWord(5) // no variant with tag 5
	err := f.manager.SetEntity(ctx, alice, model, types.Words(42), values, nil)
	assert.ErrorIs(t, err, worldstate.ErrVariantNotFound)
}

func TestSetEntityRejectsHugeVariantValue(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(storage.NewMapStorage())
	alice := types.AddressFromName("alice")
	model := f.registerInventory(t, alice)

	values := inventoryValues()
	values[9] = types.NewWord(types.MaxEnumTag)
	err := f.manager.SetEntity(ctx, alice, model, types.Words(42), values, nil)
	assert.ErrorIs(t, err, worldstate.ErrInvalidVariantValue)
}

func TestSetEntityRejectsOversizedArray(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(storage.NewMapStorage())
	alice := types.AddressFromName("alice")
	model := f.registerInventory(t, alice)
	keys := types.Words(42)

	values := inventoryValues()
	values[2] = types.NewWord(types.MaxArrayLength)
	err := f.manager.SetEntity(ctx, alice, model, keys, values, nil)
	assert.ErrorIs(t, err, worldstate.ErrInvalidArrayLength)
}

func TestSetEntityRejectsShortBuffer(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(storage.NewMapStorage())
	alice := types.AddressFromName("alice")
	model := f.registerInventory(t, alice)

	values := inventoryValues()
	err := f.manager.SetEntity(ctx, alice, model, types.Words(42), values[:len(values)-1], nil)
	assert.ErrorIs(t, err, worldstate.ErrInvalidValuesLength)
}

func TestSetEntityRejectsTrailingValues(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(storage.NewMapStorage())
	alice := types.AddressFromName("alice")
	model := f.registerInventory(t, alice)

	values := append(inventoryValues(), types.NewWord(999))
	err := f.manager.SetEntity(ctx, alice, model, types.Words(42), values, nil)
	assert.ErrorIs(t, err, worldstate.ErrInvalidValuesLength)
}

func TestSetEntityUnauthorized(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(storage.NewMapStorage())
	alice := types.AddressFromName("alice")
	bob := types.AddressFromName("bob")
	model := f.registerInventory(t, alice)
	keys := types.Words(42)

	err := f.manager.SetEntity(ctx, bob, model, keys, inventoryValues(), nil)
	assert.ErrorIs(t, err, worldstate.ErrUnauthorized)

	// The denied write must not have touched the substrate.
	got, err := f.manager.Entity(ctx, model, keys, nil)
	assert.NilError(t, err)
	assert.DeepEqual(t, got, types.ZeroWords(8))

	err = f.manager.DeleteEntity(ctx, bob, model, keys, nil)
	assert.ErrorIs(t, err, worldstate.ErrUnauthorized)
}

func TestGrantedWriterCanSetEntity(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(storage.NewMapStorage())
	alice := types.AddressFromName("alice")
	bob := types.AddressFromName("bob")
	model := f.registerInventory(t, alice)

	assert.NilError(t, f.perms.GrantWriter(ctx, model, bob))
	assert.NilError(t, f.manager.SetEntity(ctx, bob, model, types.Words(42), inventoryValues(), nil))
}

func TestSetEntityRejectsUnregisteredModelWithoutLayout(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(storage.NewMapStorage())
	err := f.manager.SetEntity(
		ctx, types.AddressFromName("alice"),
		types.SelectorFromNames("arena", "Missing"), types.Words(1), types.Words(1), nil,
	)
	assert.ErrorIs(t, err, worldstate.ErrModelNotFound)
}

func TestSetEntityWithInlineLayout(t *testing.T) {
	ctx := context.Background()
	db := storage.NewMapStorage()
	manager := worldstate.NewStateManager(
		db, worldstate.NewRegistry(db, worldstate.NewPermissionStore(db), nil), worldstate.AllowAll{},
	)
	model := types.SelectorFromNames("arena", "Scratch")
	layout := types.FixedLayout{Sizes: []uint8{8, 8}}
	keys := types.Words(1)

	assert.NilError(t, manager.SetEntity(ctx, types.Address{}, model, keys, types.Words(3, 4), layout))
	got, err := manager.Entity(ctx, model, keys, layout)
	assert.NilError(t, err)
	assert.DeepEqual(t, got, types.Words(3, 4))
}

func TestSetEntityRejectsDynamicRootLayout(t *testing.T) {
	ctx := context.Background()
	db := storage.NewMapStorage()
	manager := worldstate.NewStateManager(
		db, worldstate.NewRegistry(db, worldstate.NewPermissionStore(db), nil), worldstate.AllowAll{},
	)
	layout := types.ArrayLayout{Item: types.FixedLayout{Sizes: []uint8{8}}}
	err := manager.SetEntity(
		ctx, types.Address{}, types.SelectorFromNames("arena", "Scratch"),
		types.Words(1), types.Words(0), layout,
	)
	assert.ErrorIs(t, err, worldstate.ErrUnexpectedLayoutType)
}

func TestEntitiesDoNotCollide(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(storage.NewMapStorage())
	alice := types.AddressFromName("alice")
	model := f.registerInventory(t, alice)

	first := inventoryValues()
	second := inventoryValues()
	second[0] = types.NewWord(999)

	assert.NilError(t, f.manager.SetEntity(ctx, alice, model, types.Words(1), first, nil))
	assert.NilError(t, f.manager.SetEntity(ctx, alice, model, types.Words(2), second, nil))

	got, err := f.manager.Entity(ctx, model, types.Words(1), nil)
	assert.NilError(t, err)
	assert.DeepEqual(t, got, first)
	got, err = f.manager.Entity(ctx, model, types.Words(2), nil)
	assert.NilError(t, err)
	assert.DeepEqual(t, got, second)
}

func TestBulkEntityOperations(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(storage.NewMapStorage())
	alice := types.AddressFromName("alice")
	model := f.registerInventory(t, alice)

	keys := [][]types.Word{types.Words(1), types.Words(2)}
	second := inventoryValues()
	second[0] = types.NewWord(999)
	values := [][]types.Word{inventoryValues(), second}

	assert.NilError(t, f.manager.SetEntities(ctx, alice, model, keys, values, nil))

	got, err := f.manager.Entities(ctx, model, keys, nil)
	assert.NilError(t, err)
	assert.DeepEqual(t, got, values)

	assert.NilError(t, f.manager.DeleteEntities(ctx, alice, model, keys, nil))
	got, err = f.manager.Entities(ctx, model, keys, nil)
	assert.NilError(t, err)
	assert.DeepEqual(t, got, [][]types.Word{types.ZeroWords(8), types.ZeroWords(8)})
}

func TestSetEntitiesRejectsMismatchedInputs(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(storage.NewMapStorage())
	alice := types.AddressFromName("alice")
	model := f.registerInventory(t, alice)

	err := f.manager.SetEntities(ctx, alice, model, [][]types.Word{types.Words(1)}, nil, nil)
	assert.ErrorIs(t, err, worldstate.ErrInvalidValuesLength)
}

func TestMemberReadAndWrite(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(storage.NewMapStorage())
	alice := types.AddressFromName("alice")
	model := f.registerInventory(t, alice)
	keys := types.Words(42)

	assert.NilError(t, f.manager.SetEntity(ctx, alice, model, keys, inventoryValues(), nil))

	id := worldstate.EntityIDFromKeys(keys)
	stats := types.FieldSelector("stats")

	got, err := f.manager.Member(ctx, model, id, stats)
	assert.NilError(t, err)
	assert.DeepEqual(t, got, types.Words(100, 200))

	assert.NilError(t, f.manager.SetMember(ctx, alice, model, id, stats, types.Words(7, 9)))

	// The member write lands inside the full record.
	record, err := f.manager.Entity(ctx, model, keys, nil)
	assert.NilError(t, err)
	expected := inventoryValues()
	expected[0] = types.NewWord(7)
	expected[1] = types.NewWord(9)
	assert.DeepEqual(t, record, expected)
}

func TestMemberRejectsUnknownSelector(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(storage.NewMapStorage())
	alice := types.AddressFromName("alice")
	model := f.registerInventory(t, alice)

	id := worldstate.EntityIDFromKeys(types.Words(42))
	_, err := f.manager.Member(ctx, model, id, types.FieldSelector("nonexistent"))
	assert.ErrorIs(t, err, worldstate.ErrBadMemberID)
}

func TestSetMemberUnauthorized(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(storage.NewMapStorage())
	alice := types.AddressFromName("alice")
	bob := types.AddressFromName("bob")
	model := f.registerInventory(t, alice)

	id := worldstate.EntityIDFromKeys(types.Words(42))
	err := f.manager.SetMember(ctx, bob, model, id, types.FieldSelector("stats"), types.Words(1, 2))
	assert.ErrorIs(t, err, worldstate.ErrUnauthorized)
}

func TestPackedModelRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(storage.NewMapStorage())
	alice := types.AddressFromName("alice")
	_, err := f.registry.RegisterNamespace(ctx, alice, "arena")
	assert.NilError(t, err)

	model, err := f.registry.RegisterModel(ctx, alice, worldstate.ModelDefinition{
		Namespace: "arena",
		Name:      "Compact",
		Packed:    true,
		KeyFields: []types.Selector{types.FieldSelector("id")},
		Schema: types.Schema{Layout: types.StructLayout{Fields: []types.FieldLayout{
			{Selector: types.FieldSelector("a"), Layout: types.FixedLayout{Sizes: []uint8{128}}},
			{Selector: types.FieldSelector("b"), Layout: types.FixedLayout{Sizes: []uint8{128, 64}}},
		}}},
	})
	assert.NilError(t, err)
	keys := types.Words(7)
	values := types.Words(111, 222, 333)

	assert.NilError(t, f.manager.SetEntity(ctx, alice, model, keys, values, nil))
	got, err := f.manager.Entity(ctx, model, keys, nil)
	assert.NilError(t, err)
	assert.DeepEqual(t, got, values)

	// Members of packed models are not individually addressable.
	id := worldstate.EntityIDFromKeys(keys)
	_, err = f.manager.Member(ctx, model, id, types.FieldSelector("a"))
	assert.ErrorIs(t, err, worldstate.ErrPackedMemberAccess)

	assert.NilError(t, f.manager.DeleteEntity(ctx, alice, model, keys, nil))
	got, err = f.manager.Entity(ctx, model, keys, nil)
	assert.NilError(t, err)
	assert.DeepEqual(t, got, types.ZeroWords(3))
}
