package worldstate

import (
	"github.com/holiman/uint256"
	"github.com/rotisserie/eris"

	"github.com/cairn-engine/cairn/types"
)

// The packed codec bin-packs sequences of fixed-width sub-word values into
// minimal-width storage words. A running accumulator word fills up to
// types.MaxSlotBits; a field that does not fit the remaining bits is split
// across the word boundary, so the packed word count is always
// ceil(sum(widths) / MaxSlotBits). Only models whose layout is statically
// fixed-size are eligible; once packed, members are not individually
// addressable.

func bitMask(size uint8) *uint256.Int {
	one := uint256.NewInt(1)
	m := new(uint256.Int).Lsh(one, uint(size))
	return m.Sub(m, one)
}

// Pack packs values into storage words according to the per-field bit widths.
// values and sizes must be the same length; a field wider than a word's
// usable bits is rejected.
func Pack(values []types.Word, sizes []uint8) ([]types.Word, error) {
	if len(values) != len(sizes) {
		return nil, eris.Wrapf(ErrInvalidValuesLength, "got %d values for %d fields", len(values), len(sizes))
	}

	var packed []types.Word
	var acc uint256.Int
	offset := uint(0)

	for i, size := range sizes {
		if size > types.MaxSlotBits {
			return nil, eris.Wrapf(ErrFieldTooWide, "size %d", size)
		}
		if size == 0 {
			continue
		}

		v := new(uint256.Int).And(&values[i], bitMask(size))
		remaining := uint(types.MaxSlotBits) - offset
		if uint(size) <= remaining {
			acc.Or(&acc, new(uint256.Int).Lsh(v, offset))
			offset += uint(size)
		} else {
			// Low bits fill the current word; the overflow carries into a
			// fresh accumulator.
			low := new(uint256.Int).And(v, bitMask(uint8(remaining)))
			acc.Or(&acc, low.Lsh(low, offset))
			packed = append(packed, acc)
			acc.Rsh(v, remaining)
			offset = uint(size) - remaining
		}
		if offset == types.MaxSlotBits {
			packed = append(packed, acc)
			acc.Clear()
			offset = 0
		}
	}

	if offset > 0 {
		packed = append(packed, acc)
	}
	return packed, nil
}

// Unpack extracts the original field values from packed storage words. It is
// the mirror image of Pack.
func Unpack(packed []types.Word, sizes []uint8) ([]types.Word, error) {
	values := make([]types.Word, 0, len(sizes))
	idx := 0
	offset := uint(0)
	loaded := false
	var cur uint256.Int

	for _, size := range sizes {
		if size > types.MaxSlotBits {
			return nil, eris.Wrapf(ErrFieldTooWide, "size %d", size)
		}
		if size == 0 {
			values = append(values, types.Word{})
			continue
		}

		if !loaded {
			if idx >= len(packed) {
				return nil, eris.Wrap(ErrInvalidValuesLength, "ran out of packed words")
			}
			cur = packed[idx]
			idx++
			offset = 0
			loaded = true
		}

		remaining := uint(types.MaxSlotBits) - offset
		var v *uint256.Int
		if uint(size) <= remaining {
			v = new(uint256.Int).Rsh(&cur, offset)
			v.And(v, bitMask(size))
			offset += uint(size)
		} else {
			low := new(uint256.Int).Rsh(&cur, offset)
			low.And(low, bitMask(uint8(remaining)))
			if idx >= len(packed) {
				return nil, eris.Wrap(ErrInvalidValuesLength, "ran out of packed words")
			}
			cur = packed[idx]
			idx++
			high := new(uint256.Int).And(&cur, bitMask(uint8(uint(size)-remaining)))
			v = low.Or(low, high.Lsh(high, remaining))
			offset = uint(size) - remaining
		}
		if offset == types.MaxSlotBits {
			loaded = false
		}
		values = append(values, *v)
	}
	return values, nil
}

// PackedWordCount returns the number of storage words the packed form of the
// given field widths occupies.
func PackedWordCount(sizes []uint8) int {
	total := 0
	for _, size := range sizes {
		total += int(size)
	}
	return (total + types.MaxSlotBits - 1) / types.MaxSlotBits
}
