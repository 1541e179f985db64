package main

import (
	"github.com/rs/zerolog/log"

	"pagekv/bootstrap"
)

func main() {
	if _, err := bootstrap.Run(); err != nil {
		log.Fatal().Err(err).Msg("bootstrap: failed to start")
	}
}
