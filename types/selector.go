package types

import (
	"encoding/hex"
	"regexp"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rotisserie/eris"
)

// Selector is the stable 32-byte hash identifying a model, namespace, or
// struct field. Selectors never change as long as the underlying name (and,
// for models, the namespace) is unchanged, which is what makes schema
// upgrades addressable at all.
type Selector [32]byte

// Key is a 32-byte storage addressing root: either the entity id derived from
// a record's key tuple, or a child key derived by hash chaining selectors and
// array indices down the layout tree.
type Key [32]byte

// Address identifies a caller (a contract or account) for permission checks.
type Address [32]byte

var nameRegexp = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

var ErrInvalidName = eris.New("invalid resource name")

// IsValidName reports whether a namespace or model name follows the naming
// rules: non-empty, alphanumeric and underscores only.
func IsValidName(name string) bool {
	return nameRegexp.MatchString(name)
}

// NameHash hashes a raw name string. It is the building block for both
// namespace selectors and model selectors.
func NameHash(name string) Selector {
	return Selector(crypto.Keccak256Hash([]byte(name)))
}

// NamespaceSelector returns the selector of a namespace resource.
func NamespaceSelector(namespace string) Selector {
	return NameHash(namespace)
}

// SelectorFromNames computes a model selector from its namespace and name.
// The two names are hashed independently and then combined, so the selector
// is stable across upgrades as long as neither name changes.
func SelectorFromNames(namespace, name string) Selector {
	return SelectorFromHashes(NameHash(namespace), NameHash(name))
}

// SelectorFromHashes combines a namespace hash and a name hash into a model
// selector.
func SelectorFromHashes(namespaceHash, nameHash Selector) Selector {
	return Selector(crypto.Keccak256Hash(namespaceHash[:], nameHash[:]))
}

// FieldSelector returns the selector of a struct field from its declared name.
func FieldSelector(name string) Selector {
	return NameHash(name)
}

func decodeHex32(dst *[32]byte, text []byte) error {
	if len(text) != 64 {
		return eris.Errorf("expected 64 hex characters, got %d", len(text))
	}
	if _, err := hex.Decode(dst[:], text); err != nil {
		return eris.Wrap(err, "")
	}
	return nil
}

func (s Selector) IsZero() bool { return s == Selector{} }

// MarshalText renders the selector as lowercase hex so selectors read well in
// JSON payloads and as map keys.
func (s Selector) MarshalText() ([]byte, error) { return []byte(s.Hex()), nil }

func (s *Selector) UnmarshalText(text []byte) error { return decodeHex32((*[32]byte)(s), text) }

func (s Selector) Bytes() []byte { return s[:] }

func (s Selector) Hex() string { return hex.EncodeToString(s[:]) }

func (s Selector) String() string { return s.Hex() }

func (k Key) IsZero() bool { return k == Key{} }

func (k Key) MarshalText() ([]byte, error) { return []byte(k.Hex()), nil }

func (k *Key) UnmarshalText(text []byte) error { return decodeHex32((*[32]byte)(k), text) }

func (k Key) Bytes() []byte { return k[:] }

func (k Key) Hex() string { return hex.EncodeToString(k[:]) }

func (k Key) String() string { return k.Hex() }

func (a Address) IsZero() bool { return a == Address{} }

func (a Address) MarshalText() ([]byte, error) { return []byte(a.Hex()), nil }

func (a *Address) UnmarshalText(text []byte) error { return decodeHex32((*[32]byte)(a), text) }

func (a Address) Bytes() []byte { return a[:] }

func (a Address) Hex() string { return hex.EncodeToString(a[:]) }

func (a Address) String() string { return a.Hex() }

// AddressFromName derives a deterministic address from a human-readable name.
// Handy for tests and for single-operator deployments that do not carry real
// account addresses.
func AddressFromName(name string) Address {
	return Address(crypto.Keccak256Hash([]byte(name)))
}
