package worldstate

import (
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/cairn-engine/cairn/types"
)

// Addressing is hash chaining: every leaf value, however deeply nested, has a
// unique storage key that is a pure function of the record's key tuple and
// the path of selectors and indices down the layout tree. Reads, writes, and
// deletes independently recompute identical addresses; no storage is
// consulted.

// EntityIDFromKeys derives the root addressing key of a record from its
// ordered key tuple.
func EntityIDFromKeys(keys []types.Word) types.Key {
	buf := make([]byte, 0, len(keys)*32)
	for i := range keys {
		b := keys[i].Bytes32()
		buf = append(buf, b[:]...)
	}
	return types.Key(crypto.Keccak256Hash(buf))
}

// ChildKey derives the addressing key of a named struct field from its
// parent's key and the field selector.
func ChildKey(parent types.Key, selector types.Selector) types.Key {
	return types.Key(crypto.Keccak256Hash(parent[:], selector[:]))
}

// IndexKey derives the addressing key of a positional child (a tuple item or
// an array element) from its parent's key and the position, hashed as a word.
func IndexKey(parent types.Key, index uint64) types.Key {
	idx := types.NewWord(index)
	b := idx.Bytes32()
	return types.Key(crypto.Keccak256Hash(parent[:], b[:]))
}
