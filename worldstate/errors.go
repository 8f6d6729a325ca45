package worldstate

import (
	"github.com/rotisserie/eris"
)

var (
	// ErrUnauthorized is returned when the caller holds neither an owner nor
	// a writer grant for the resource it is trying to mutate. It is raised
	// before any substrate write is issued.
	ErrUnauthorized = eris.New("unauthorized caller")

	// ErrInvalidValuesLength is returned when a value buffer is shorter than
	// the layout demands at some point of descent, or carries unconsumed
	// trailing words. The length contract is strict in both directions.
	ErrInvalidValuesLength = eris.New("invalid values length")

	// ErrInvalidArrayLength is returned when an array or byte array length
	// exceeds the configured maximum. Nothing is written when it is raised.
	ErrInvalidArrayLength = eris.New("invalid array length")

	// ErrUnexpectedLayoutType is returned when a model root layout is neither
	// Fixed nor Struct, the only legal whole-record shapes.
	ErrUnexpectedLayoutType = eris.New("unexpected layout type for a model")

	// ErrVariantNotFound is returned when an enum discriminant does not match
	// any of the declared variants.
	ErrVariantNotFound = eris.New("unable to find variant layout")

	// ErrInvalidVariantValue is returned when an enum discriminant does not
	// fit the single-slot tag bound.
	ErrInvalidVariantValue = eris.New("invalid variant value")

	// ErrBadMemberID is returned by member-level access when the member
	// selector is absent from the model's struct layout.
	ErrBadMemberID = eris.New("bad member id")

	// ErrPackedMemberAccess is returned when member-level access is attempted
	// on a packed model; members are not individually addressable once packed.
	ErrPackedMemberAccess = eris.New("packed models do not support member access")

	// ErrFieldTooWide is returned by the packed codec when a single field's
	// bit width exceeds the usable bits of a storage word.
	ErrFieldTooWide = eris.New("field width exceeds usable word bits")

	// ErrModelNotFound is returned when a model selector has no registered
	// metadata.
	ErrModelNotFound = eris.New("model is not registered")

	// ErrNamespaceNotFound is returned when registering a model under a
	// namespace that has not been registered.
	ErrNamespaceNotFound = eris.New("namespace is not registered")

	// ErrResourceAlreadyRegistered is returned when a namespace registration
	// collides with an existing resource.
	ErrResourceAlreadyRegistered = eris.New("resource already registered")

	// ErrIncompatibleUpgrade is returned when a model re-registration fails
	// the upgrade policy.
	ErrIncompatibleUpgrade = eris.New("incompatible model upgrade")

	// ErrNotPackable is returned when a model is registered packed but its
	// layout is not statically fixed-size.
	ErrNotPackable = eris.New("layout is not statically fixed-size")
)
