package worldstate

import (
	"fmt"

	"github.com/cairn-engine/cairn/types"
)

// storageSlotKey addresses one storage word: a (model, key, intra-key slot
// offset) triple. Contiguous slots of a Fixed block, an enum tag and its
// payload, and a byte array header all share the same key and differ only in
// the offset.
func storageSlotKey(model types.Selector, key types.Key, slot int) string {
	return fmt.Sprintf("WORLD:SLOT:MODEL-%s:KEY-%s:OFF-%d", model.Hex(), key.Hex(), slot)
}

// storageModelMetadataKey holds the JSON-encoded metadata of a registered
// model.
func storageModelMetadataKey(selector types.Selector) string {
	return fmt.Sprintf("WORLD:MODEL:SELECTOR-%s", selector.Hex())
}

// storageResourceKey holds the resource kind word for a registered resource
// (namespace or model).
func storageResourceKey(selector types.Selector) string {
	return fmt.Sprintf("WORLD:RESOURCE:SELECTOR-%s", selector.Hex())
}

// storagePermissionKey holds the owner/writer grant bits of one caller on one
// resource.
func storagePermissionKey(resource types.Selector, caller types.Address) string {
	return fmt.Sprintf("WORLD:PERM:RESOURCE-%s:CALLER-%s", resource.Hex(), caller.Hex())
}

// storageModelIndexKey holds the JSON-encoded list of all registered model
// selectors, so the registry can be rehydrated after a restart.
func storageModelIndexKey() string {
	return "WORLD:MODEL-INDEX"
}

// storageNamespaceIndexKey holds the JSON-encoded list of all registered
// namespace names.
func storageNamespaceIndexKey() string {
	return "WORLD:NAMESPACE-INDEX"
}
