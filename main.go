package main

import (
	"errors"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/williamokano/dump_dbs/pkg/app"
	"github.com/williamokano/dump_dbs/pkg/logger"
)

func main() {
	err := app.New().Run(os.Args)
	if err == nil {
		return
	}

	var exitErr cli.ExitCoder
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.ExitCode())
	}

	// Flag parsing errors and the like
	logger.Get().Error().Err(err).Msg("dump_dbs failed")
	os.Exit(app.ExitConfig)
}
