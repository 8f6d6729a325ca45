package types

import (
	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
)

// LayoutKind discriminates the closed set of layout variants.
type LayoutKind uint8

const (
	LayoutKindFixed LayoutKind = iota
	LayoutKindStruct
	LayoutKindTuple
	LayoutKindArray
	LayoutKindByteArray
	LayoutKindEnum
)

func (k LayoutKind) String() string {
	switch k {
	case LayoutKindFixed:
		return "fixed"
	case LayoutKindStruct:
		return "struct"
	case LayoutKindTuple:
		return "tuple"
	case LayoutKindArray:
		return "array"
	case LayoutKindByteArray:
		return "bytearray"
	case LayoutKindEnum:
		return "enum"
	}
	return "unknown"
}

// Layout describes how a value is represented as a sequence of storage slots.
// It is a finite, non-cyclic tree: struct, tuple, and enum children may be any
// layout variant, and every branch bottoms out in Fixed or ByteArray leaves.
// The set of implementations is closed.
type Layout interface {
	Kind() LayoutKind

	// Equal reports structural equality. Two structurally equal layouts
	// describe the same storage shape and are interchangeable.
	Equal(other Layout) bool

	// FixedSizes flattens the layout into its constituent bit widths. The
	// second return is false when the layout contains any dynamically sized
	// part (array, byte array, or enum), in which case the layout is not
	// eligible for bit packing.
	FixedSizes() ([]uint8, bool)

	isLayout()
}

// FixedLayout is a flat, statically sized list of sub-word fields. Each entry
// is the field's bit width, at most MaxSlotBits.
type FixedLayout struct {
	Sizes []uint8
}

// FieldLayout pairs a struct field's selector with the field's layout.
type FieldLayout struct {
	Selector Selector
	Layout   Layout
}

// StructLayout holds named fields in declaration order.
type StructLayout struct {
	Fields []FieldLayout
}

// TupleLayout holds positional, unnamed fields.
type TupleLayout struct {
	Items []Layout
}

// ArrayLayout describes a dynamic array. Every element shares the single item
// layout; the actual length lives in a length-prefix slot.
type ArrayLayout struct {
	Item Layout
}

// ByteArrayLayout describes a length-prefixed byte blob. Its serialized form
// is [data word count, data words..., pending word, pending length].
type ByteArrayLayout struct{}

// VariantLayout pairs an enum discriminant value with that variant's layout.
type VariantLayout struct {
	Tag    uint8
	Layout Layout
}

// EnumLayout is a tagged union: one tag slot selects exactly one variant
// layout to follow.
type EnumLayout struct {
	Variants []VariantLayout
}

func (FixedLayout) Kind() LayoutKind     { return LayoutKindFixed }
func (StructLayout) Kind() LayoutKind    { return LayoutKindStruct }
func (TupleLayout) Kind() LayoutKind     { return LayoutKindTuple }
func (ArrayLayout) Kind() LayoutKind     { return LayoutKindArray }
func (ByteArrayLayout) Kind() LayoutKind { return LayoutKindByteArray }
func (EnumLayout) Kind() LayoutKind      { return LayoutKindEnum }

func (FixedLayout) isLayout()     {}
func (StructLayout) isLayout()    {}
func (TupleLayout) isLayout()     {}
func (ArrayLayout) isLayout()     {}
func (ByteArrayLayout) isLayout() {}
func (EnumLayout) isLayout()      {}

func (l FixedLayout) Equal(other Layout) bool {
	o, ok := other.(FixedLayout)
	if !ok || len(l.Sizes) != len(o.Sizes) {
		return false
	}
	for i, s := range l.Sizes {
		if s != o.Sizes[i] {
			return false
		}
	}
	return true
}

func (l StructLayout) Equal(other Layout) bool {
	o, ok := other.(StructLayout)
	if !ok || len(l.Fields) != len(o.Fields) {
		return false
	}
	for i, f := range l.Fields {
		if f.Selector != o.Fields[i].Selector || !f.Layout.Equal(o.Fields[i].Layout) {
			return false
		}
	}
	return true
}

func (l TupleLayout) Equal(other Layout) bool {
	o, ok := other.(TupleLayout)
	if !ok || len(l.Items) != len(o.Items) {
		return false
	}
	for i, item := range l.Items {
		if !item.Equal(o.Items[i]) {
			return false
		}
	}
	return true
}

func (l ArrayLayout) Equal(other Layout) bool {
	o, ok := other.(ArrayLayout)
	return ok && l.Item.Equal(o.Item)
}

func (ByteArrayLayout) Equal(other Layout) bool {
	_, ok := other.(ByteArrayLayout)
	return ok
}

func (l EnumLayout) Equal(other Layout) bool {
	o, ok := other.(EnumLayout)
	if !ok || len(l.Variants) != len(o.Variants) {
		return false
	}
	for i, v := range l.Variants {
		if v.Tag != o.Variants[i].Tag || !v.Layout.Equal(o.Variants[i].Layout) {
			return false
		}
	}
	return true
}

func (l FixedLayout) FixedSizes() ([]uint8, bool) {
	return l.Sizes, true
}

func (l StructLayout) FixedSizes() ([]uint8, bool) {
	var sizes []uint8
	for _, f := range l.Fields {
		child, ok := f.Layout.FixedSizes()
		if !ok {
			return nil, false
		}
		sizes = append(sizes, child...)
	}
	return sizes, true
}

func (l TupleLayout) FixedSizes() ([]uint8, bool) {
	var sizes []uint8
	for _, item := range l.Items {
		child, ok := item.FixedSizes()
		if !ok {
			return nil, false
		}
		sizes = append(sizes, child...)
	}
	return sizes, true
}

// Arrays, byte arrays, and enums are dynamically shaped: even an enum whose
// variants are all fixed still needs its tag resolved at runtime.
func (ArrayLayout) FixedSizes() ([]uint8, bool)     { return nil, false }
func (ByteArrayLayout) FixedSizes() ([]uint8, bool) { return nil, false }
func (EnumLayout) FixedSizes() ([]uint8, bool)      { return nil, false }

var (
	ErrSlotTooWide          = eris.New("fixed layout size exceeds the slot bit width")
	ErrDuplicateField       = eris.New("duplicate field selector in struct layout")
	ErrDuplicateVariant     = eris.New("duplicate variant tag in enum layout")
	ErrUnknownLayoutKind    = eris.New("unknown layout kind")
	ErrMissingLayoutVariant = eris.New("layout envelope is missing its variant payload")
	ErrNilLayout            = eris.New("nil layout")
)

// ValidateLayout checks the structural invariants of a layout tree: fixed
// sizes fit a slot, struct field selectors are unique, and enum tags are
// unique. It recurses through the whole tree.
func ValidateLayout(l Layout) error {
	if l == nil {
		return ErrNilLayout
	}
	switch v := l.(type) {
	case FixedLayout:
		for _, size := range v.Sizes {
			if size > MaxSlotBits {
				return eris.Wrapf(ErrSlotTooWide, "size %d", size)
			}
		}
	case StructLayout:
		seen := make(map[Selector]struct{}, len(v.Fields))
		for _, f := range v.Fields {
			if _, ok := seen[f.Selector]; ok {
				return eris.Wrapf(ErrDuplicateField, "selector %s", f.Selector.Hex())
			}
			seen[f.Selector] = struct{}{}
			if err := ValidateLayout(f.Layout); err != nil {
				return err
			}
		}
	case TupleLayout:
		for _, item := range v.Items {
			if err := ValidateLayout(item); err != nil {
				return err
			}
		}
	case ArrayLayout:
		return ValidateLayout(v.Item)
	case ByteArrayLayout:
	case EnumLayout:
		seen := make(map[uint8]struct{}, len(v.Variants))
		for _, variant := range v.Variants {
			if _, ok := seen[variant.Tag]; ok {
				return eris.Wrapf(ErrDuplicateVariant, "tag %d", variant.Tag)
			}
			seen[variant.Tag] = struct{}{}
			if err := ValidateLayout(variant.Layout); err != nil {
				return err
			}
		}
	default:
		return eris.Wrapf(ErrUnknownLayoutKind, "%T", l)
	}
	return nil
}

// Schema wraps a Layout so it can travel through JSON: registry persistence
// and the HTTP payloads both carry layouts inside a tagged envelope keyed by
// the layout kind.
type Schema struct {
	Layout Layout
}

type layoutEnvelope struct {
	Kind      string           `json:"kind"`
	Fixed     *fixedEnvelope   `json:"fixed,omitempty"`
	Struct    *structEnvelope  `json:"struct,omitempty"`
	Tuple     *tupleEnvelope   `json:"tuple,omitempty"`
	Array     *arrayEnvelope   `json:"array,omitempty"`
	ByteArray *ByteArrayLayout `json:"bytearray,omitempty"`
	Enum      *enumEnvelope    `json:"enum,omitempty"`
}

// fixedEnvelope widens the bit sizes to ints so the JSON form is a plain
// number array instead of base64 bytes.
type fixedEnvelope struct {
	Sizes []uint16 `json:"sizes"`
}

type fieldEnvelope struct {
	Selector Selector `json:"selector"`
	Layout   Schema   `json:"layout"`
}

type structEnvelope struct {
	Fields []fieldEnvelope `json:"fields"`
}

type tupleEnvelope struct {
	Items []Schema `json:"items"`
}

type arrayEnvelope struct {
	Item Schema `json:"item"`
}

type variantEnvelope struct {
	Tag    uint8  `json:"tag"`
	Layout Schema `json:"layout"`
}

type enumEnvelope struct {
	Variants []variantEnvelope `json:"variants"`
}

func (s Schema) MarshalJSON() ([]byte, error) {
	env, err := toEnvelope(s.Layout)
	if err != nil {
		return nil, err
	}
	bz, err := json.Marshal(env)
	if err != nil {
		return nil, eris.Wrap(err, "")
	}
	return bz, nil
}

func (s *Schema) UnmarshalJSON(bz []byte) error {
	var env layoutEnvelope
	if err := json.Unmarshal(bz, &env); err != nil {
		return eris.Wrap(err, "")
	}
	l, err := fromEnvelope(&env)
	if err != nil {
		return err
	}
	s.Layout = l
	return nil
}

func toEnvelope(l Layout) (*layoutEnvelope, error) {
	if l == nil {
		return nil, ErrNilLayout
	}
	env := &layoutEnvelope{Kind: l.Kind().String()}
	switch v := l.(type) {
	case FixedLayout:
		sizes := make([]uint16, len(v.Sizes))
		for i, s := range v.Sizes {
			sizes[i] = uint16(s)
		}
		env.Fixed = &fixedEnvelope{Sizes: sizes}
	case StructLayout:
		fields := make([]fieldEnvelope, len(v.Fields))
		for i, f := range v.Fields {
			fields[i] = fieldEnvelope{Selector: f.Selector, Layout: Schema{f.Layout}}
		}
		env.Struct = &structEnvelope{Fields: fields}
	case TupleLayout:
		items := make([]Schema, len(v.Items))
		for i, item := range v.Items {
			items[i] = Schema{item}
		}
		env.Tuple = &tupleEnvelope{Items: items}
	case ArrayLayout:
		env.Array = &arrayEnvelope{Item: Schema{v.Item}}
	case ByteArrayLayout:
		env.ByteArray = &v
	case EnumLayout:
		variants := make([]variantEnvelope, len(v.Variants))
		for i, variant := range v.Variants {
			variants[i] = variantEnvelope{Tag: variant.Tag, Layout: Schema{variant.Layout}}
		}
		env.Enum = &enumEnvelope{Variants: variants}
	default:
		return nil, eris.Wrapf(ErrUnknownLayoutKind, "%T", l)
	}
	return env, nil
}

func fromEnvelope(env *layoutEnvelope) (Layout, error) {
	switch env.Kind {
	case LayoutKindFixed.String():
		if env.Fixed == nil {
			return nil, ErrMissingLayoutVariant
		}
		sizes := make([]uint8, len(env.Fixed.Sizes))
		for i, s := range env.Fixed.Sizes {
			if s > MaxSlotBits {
				return nil, eris.Wrapf(ErrSlotTooWide, "size %d", s)
			}
			sizes[i] = uint8(s)
		}
		return FixedLayout{Sizes: sizes}, nil
	case LayoutKindStruct.String():
		if env.Struct == nil {
			return nil, ErrMissingLayoutVariant
		}
		fields := make([]FieldLayout, len(env.Struct.Fields))
		for i, f := range env.Struct.Fields {
			fields[i] = FieldLayout{Selector: f.Selector, Layout: f.Layout.Layout}
		}
		return StructLayout{Fields: fields}, nil
	case LayoutKindTuple.String():
		if env.Tuple == nil {
			return nil, ErrMissingLayoutVariant
		}
		items := make([]Layout, len(env.Tuple.Items))
		for i, item := range env.Tuple.Items {
			items[i] = item.Layout
		}
		return TupleLayout{Items: items}, nil
	case LayoutKindArray.String():
		if env.Array == nil {
			return nil, ErrMissingLayoutVariant
		}
		return ArrayLayout{Item: env.Array.Item.Layout}, nil
	case LayoutKindByteArray.String():
		return ByteArrayLayout{}, nil
	case LayoutKindEnum.String():
		if env.Enum == nil {
			return nil, ErrMissingLayoutVariant
		}
		variants := make([]VariantLayout, len(env.Enum.Variants))
		for i, v := range env.Enum.Variants {
			variants[i] = VariantLayout{Tag: v.Tag, Layout: v.Layout.Layout}
		}
		return EnumLayout{Variants: variants}, nil
	}
	return nil, eris.Wrapf(ErrUnknownLayoutKind, "%q", env.Kind)
}
