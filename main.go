package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/tanpawarit/Chative-Support-Router/cmd"
	_ "github.com/tanpawarit/Chative-Support-Router/pkg/logger/autoload"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
