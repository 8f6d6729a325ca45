package log_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/cairn-engine/cairn/log"
)

type fakeWorld struct {
	namespaces []string
	models     []log.ModelInfo
}

func (f fakeWorld) RegisteredNamespaces() []string    { return f.namespaces }
func (f fakeWorld) RegisteredModels() []log.ModelInfo { return f.models }

func TestWorldLogger(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	var buf bytes.Buffer
	bufLogger := zerolog.New(&buf)

	target := fakeWorld{
		namespaces: []string{"combat", "arena"},
		models: []log.ModelInfo{
			{Selector: "0x02", Namespace: "combat", Name: "Health", Version: 2, Packed: false},
			{Selector: "0x01", Namespace: "arena", Name: "Position", Version: 1, Packed: true},
		},
	}

	log.World(&bufLogger, target, zerolog.InfoLevel)
	require.JSONEq(t, `
		{
			"level":"info",
			"total_namespaces":2,
			"namespaces":["arena","combat"],
			"total_models":2,
			"models":[
				{"selector":"0x01","namespace":"arena","name":"Position","version":1,"packed":true},
				{"selector":"0x02","namespace":"combat","name":"Health","version":2,"packed":false}
			]
		}`, buf.String())

	buf.Reset()
	log.Model(&bufLogger, zerolog.DebugLevel, target.models[0])
	require.JSONEq(t, `
		{
			"level":"debug",
			"models":[
				{"selector":"0x02","namespace":"combat","name":"Health","version":2,"packed":false}
			]
		}`, buf.String())
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	bufLogger := zerolog.New(&buf)
	reqLogger := log.CreateRequestLogger(&bufLogger, "req-123")
	reqLogger.Info().Msg("handled")
	require.True(t, strings.Contains(buf.String(), `"request_id":"req-123"`))
}
