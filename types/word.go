package types

import (
	"github.com/holiman/uint256"
)

// Word is a single addressable storage slot value. Slots are 256-bit, but
// only the low MaxSlotBits bits are usable by the packed codec, mirroring the
// field-element width of the execution environments this engine targets.
type Word = uint256.Int

const (
	// MaxSlotBits is the usable bit width of a storage word for packed layouts.
	MaxSlotBits = 251

	// MaxEnumTag is the exclusive upper bound for enum discriminant values,
	// chosen so a tag always fits comfortably in a single slot.
	MaxEnumTag = 256

	// MaxArrayLength is the exclusive upper bound for dynamic array and byte
	// array lengths. It stops malformed or adversarial calldata from turning a
	// single write into an unbounded number of storage mutations.
	MaxArrayLength = 1 << 31
)

// NewWord returns a word holding the given small value.
func NewWord(v uint64) Word {
	return *uint256.NewInt(v)
}

// Words builds a value buffer from small values. Mostly useful in tests and
// examples; real callers usually already hold a []Word.
func Words(vs ...uint64) []Word {
	out := make([]Word, len(vs))
	for i, v := range vs {
		out[i] = NewWord(v)
	}
	return out
}

// ZeroWords returns an all-zero value buffer of length n.
func ZeroWords(n int) []Word {
	return make([]Word, n)
}
