package codec_test

import (
	"testing"

	"github.com/cairn-engine/cairn/assert"
	"github.com/cairn-engine/cairn/codec"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestRoundTrip(t *testing.T) {
	bz, err := codec.Encode(payload{Name: "arena", Count: 3})
	assert.NilError(t, err)
	got, err := codec.Decode[payload](bz)
	assert.NilError(t, err)
	assert.Equal(t, got, payload{Name: "arena", Count: 3})
}

func TestDecodeRejectsMalformedInput(t *testing.T) {
	_, err := codec.Decode[payload]([]byte("{not json"))
	assert.Assert(t, err != nil)
}
