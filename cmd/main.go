package main

import (
	"os"

	"escape-trail/internal/cli"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Error().Err(err).Msg("escape-trail exited")
		os.Exit(1)
	}
}
