package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/williamokano/dump_dbs/pkg/backup"
	"github.com/williamokano/dump_dbs/pkg/config"
	"github.com/williamokano/dump_dbs/pkg/dump"
	"github.com/williamokano/dump_dbs/pkg/logger"
	"github.com/williamokano/dump_dbs/pkg/storage"
)

const (
	// ExitFailure is returned when at least one entry failed
	ExitFailure = 1
	// ExitConfig is returned when the configuration cannot be loaded
	ExitConfig = 2
)

const (
	flagConfig    = "config"
	flagTargetDir = "target-dir"
	flagLogLevel  = "log-level"
	flagLogFormat = "log-format"
	flagEntry     = "entry"
)

// New builds the dump_dbs command line application
func New() *cli.App {
	return &cli.App{
		Name:     "dump_dbs",
		HelpName: "dump_dbs",
		Usage:    "dump the databases listed in a configuration file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "configuration file",
				Value:   config.DefaultConfigFile,
				EnvVars: []string{"DUMP_DBS_CONFIG"},
			},
			&cli.StringFlag{
				Name:    flagTargetDir,
				Aliases: []string{"d"},
				Usage:   "directory receiving the artifacts (overrides target_dir)",
			},
			&cli.StringFlag{
				Name:  flagLogLevel,
				Usage: "debug, info, warn or error (overrides log_level)",
			},
			&cli.StringFlag{
				Name:  flagLogFormat,
				Usage: "console or json (overrides log_format)",
			},
			&cli.StringSliceFlag{
				Name:    flagEntry,
				Aliases: []string{"e"},
				Usage:   "only dump the named entry (repeatable)",
			},
		},
		Action: runAction,
		Commands: []*cli.Command{
			{
				Name:  "validate",
				Usage: "check the configuration without dumping anything",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "check-storage",
						Usage: "also connect to every enabled storage destination",
					},
				},
				Action: validateAction,
			},
			{
				Name:   "strategies",
				Usage:  "list the available dump strategies",
				Action: strategiesAction,
			},
		},
		// Exit codes are handled by the caller
		ExitErrHandler: func(*cli.Context, error) {},
	}
}

// load initializes logging from the flags, reads the configuration and
// reinitializes logging with the configured values
func load(c *cli.Context) (*config.Config, zerolog.Logger, error) {
	log := logger.Init(c.App.ErrWriter, pick(c.String(flagLogLevel), "info"), pick(c.String(flagLogFormat), "console"))

	configFile := c.String(flagConfig)
	cfg, err := config.ParseConfig(configFile)
	if err != nil {
		log.Error().Err(err).Str("config_file", configFile).Msg("failed to load configuration")
		return nil, log, cli.Exit("", ExitConfig)
	}

	log = logger.Init(c.App.ErrWriter,
		pick(c.String(flagLogLevel), cfg.GetLogLevel()),
		pick(c.String(flagLogFormat), cfg.GetLogFormat()))

	if dir := c.String(flagTargetDir); dir != "" {
		cfg.TargetDir = dir
	}

	if err := cfg.Only(c.StringSlice(flagEntry)); err != nil {
		log.Error().Err(err).Str("config_file", configFile).Msg("invalid entry selection")
		return nil, log, cli.Exit("", ExitConfig)
	}

	log.Debug().Str("config_file", configFile).Int("entries", len(cfg.Entries)).Msg("configuration loaded")
	return cfg, log, nil
}

func runAction(c *cli.Context) error {
	cfg, log, err := load(c)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	report := backup.NewDispatcher(cfg, log).Run(ctx)
	if report.HasFailures() {
		return cli.Exit("", ExitFailure)
	}
	return nil
}

func validateAction(c *cli.Context) error {
	cfg, log, err := load(c)
	if err != nil {
		return err
	}

	problems := 0
	for _, entry := range cfg.Entries {
		entryLog := log.With().Str("entry", entry.Name).Logger()

		if entry.Scalar {
			entryLog.Info().Msg("scalar entry, will be skipped")
			continue
		}
		if entry.Err != nil {
			entryLog.Error().Err(entry.Err).Msg("invalid entry")
			problems++
			continue
		}

		strategy, err := dump.Resolve(entry.Name, entry.Settings)
		if err != nil {
			entryLog.Error().Err(err).Msg("invalid entry")
			problems++
			continue
		}

		for _, name := range entry.Settings.Upload {
			if _, ok := cfg.Destination(name); !ok {
				entryLog.Error().Str("destination", name).Msg("unknown or disabled upload destination")
				problems++
			}
		}

		entryLog.Info().
			Str("strategy", strategy.Name()).
			Str("format", entry.Settings.Format).
			Strs("upload", entry.Settings.Upload).
			Msg("entry ok")
	}

	if c.Bool("check-storage") {
		problems += checkStorage(c.Context, cfg, log)
	}

	if problems > 0 {
		log.Error().Int("problems", problems).Msg("configuration has problems")
		return cli.Exit("", ExitFailure)
	}
	log.Info().Int("entries", len(cfg.Entries)).Msg("configuration is valid")
	return nil
}

// checkStorage opens and closes every enabled destination, returning the
// number that could not be reached
func checkStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) int {
	factory := storage.NewFactory()
	failed := 0

	for _, dest := range cfg.Storage.Destinations {
		if !dest.IsEnabled() {
			continue
		}
		backend, err := factory.Create(ctx, storage.FromDestination(dest))
		if err != nil {
			log.Error().Err(err).Str("destination", dest.Name).Str("type", dest.Type).Msg("storage destination unreachable")
			failed++
			continue
		}
		backend.Close()
		log.Info().Str("destination", dest.Name).Str("type", dest.Type).Msg("storage destination ok")
	}

	return failed
}

func strategiesAction(c *cli.Context) error {
	for _, name := range dump.Names() {
		fmt.Fprintln(c.App.Writer, name)
	}
	return nil
}

func pick(flag, fallback string) string {
	if flag != "" {
		return flag
	}
	return fallback
}
