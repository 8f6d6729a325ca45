package worldstate

import (
	"github.com/rs/zerolog"
)

func logModelEvent(e *zerolog.Event, metadata ModelMetadata) *zerolog.Event {
	return e.
		Str("model", metadata.Tag()).
		Str("selector", metadata.Selector.Hex()).
		Uint32("version", metadata.Version).
		Bool("packed", metadata.Packed)
}
