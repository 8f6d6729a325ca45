package main

import (
	"context"

	"github.com/rs/zerolog/log"

	cairn "github.com/cairn-engine/cairn"
)

func main() {
	world, err := cairn.NewWorld()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create world")
	}
	if err := world.Serve(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("world stopped with error")
	}
}
