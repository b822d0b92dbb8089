package pgdump

import (
	"context"

	"github.com/williamokano/dump_dbs/pkg/config"
	"github.com/williamokano/dump_dbs/pkg/dump"
	"github.com/williamokano/dump_dbs/pkg/dumperr"
	"github.com/williamokano/dump_dbs/pkg/runner"
)

// Name is the "use" value selecting this strategy
const Name = "pgdump"

const (
	defaultHost = "localhost"
	defaultPort = "5432"
)

func init() {
	dump.Register(Name, func() dump.Strategy { return New(PgpassCandidates()) })
}

// Strategy dumps a PostgreSQL database into a plain SQL file
type Strategy struct {
	pgpassCandidates []string
}

// New creates a pg_dump strategy looking for a password file among candidates
func New(pgpassCandidates []string) *Strategy {
	return &Strategy{pgpassCandidates: pgpassCandidates}
}

func (s *Strategy) Name() string { return Name }

// Args builds the pg_dump argument list for the given target file
func Args(entry string, settings *config.Settings, target string) []string {
	var args []string
	args = dump.AppendOption(args, settings, config.OptHost, "-h")
	args = dump.AppendOption(args, settings, config.OptPort, "-p")
	args = dump.AppendOption(args, settings, config.OptUser, "-U")
	args = append(args, settings.ExtraArgs...)
	args = append(args, "-f", target)
	return append(args, settings.GetOr(config.OptDB, entry))
}

// Dump runs pg_dump writing into the target file
func (s *Strategy) Dump(ctx context.Context, req dump.Request) (string, error) {
	target, err := req.TargetPath()
	if err != nil {
		return "", err
	}

	env, err := s.credentials(req)
	if err != nil {
		return "", err
	}

	if err := dump.PrepareTarget(target); err != nil {
		return "", err
	}

	req.Logger.Info().
		Str("entry", req.Entry).
		Str("database", req.Settings.GetOr(config.OptDB, req.Entry)).
		Str("target", target).
		Msg("dumping postgres database")

	err = req.Runner.Run(ctx, runner.Command{
		Name:    "pg_dump",
		Args:    Args(req.Entry, req.Settings, target),
		Env:     env,
		Secrets: []string{req.Settings.Get(config.OptPassword)},
	})
	return target, err
}

// credentials returns the environment authenticating pg_dump. An explicit
// password wins over a password file.
func (s *Strategy) credentials(req dump.Request) ([]string, error) {
	settings := req.Settings
	if password := settings.Get(config.OptPassword); password != "" {
		return []string{"PGPASSWORD=" + password}, nil
	}

	path, err := FindPgpass(s.pgpassCandidates)
	if err != nil {
		req.Logger.Debug().Str("entry", req.Entry).Err(err).Msg("no password file, relying on server authentication")
		return nil, nil
	}

	if err := ValidatePgpassPermissions(path); err != nil {
		return nil, &dumperr.ConfigurationError{Entry: req.Entry, Reason: "unusable .pgpass file " + path, Err: err}
	}

	found, err := HasPgpassEntry(path,
		settings.GetOr(config.OptHost, defaultHost),
		settings.GetOr(config.OptPort, defaultPort),
		settings.GetOr(config.OptDB, req.Entry),
		settings.Get(config.OptUser))
	if err != nil {
		req.Logger.Warn().Str("entry", req.Entry).Err(err).Msg("cannot read .pgpass file")
	} else if !found {
		req.Logger.Warn().
			Str("entry", req.Entry).
			Str("pgpass_path", path).
			Msg("no matching .pgpass entry, pg_dump may fail to authenticate")
	}

	return []string{"PGPASSFILE=" + path}, nil
}
