package mysqldump

import (
	"context"
	"errors"
	"os"

	"github.com/williamokano/dump_dbs/pkg/config"
	"github.com/williamokano/dump_dbs/pkg/dump"
	"github.com/williamokano/dump_dbs/pkg/dumperr"
	"github.com/williamokano/dump_dbs/pkg/runner"
)

// Name is the "use" value selecting this strategy
const Name = "mysqldump"

func init() {
	dump.Register(Name, func() dump.Strategy { return New() })
}

// Strategy dumps a MySQL database into a single SQL file
type Strategy struct{}

// New creates a mysqldump strategy
func New() *Strategy {
	return &Strategy{}
}

func (s *Strategy) Name() string { return Name }

// Args builds the mysqldump argument list. The password is always passed as
// a single -p<password> token, so an empty password yields a bare -p.
func Args(entry string, settings *config.Settings) []string {
	var args []string
	args = dump.AppendOption(args, settings, config.OptHost, "-h")
	args = dump.AppendOption(args, settings, config.OptPort, "-P")
	args = dump.AppendOption(args, settings, config.OptUser, "-u")
	args = append(args, settings.ExtraArgs...)
	args = append(args, "--lock-tables=false")
	args = append(args, "-p"+settings.Get(config.OptPassword))
	return append(args, settings.GetOr(config.OptDB, entry))
}

// Dump runs mysqldump with standard output redirected into the target file
func (s *Strategy) Dump(ctx context.Context, req dump.Request) (string, error) {
	target, err := req.TargetPath()
	if err != nil {
		return "", err
	}
	if err := dump.PrepareTarget(target); err != nil {
		return "", err
	}

	out, err := os.Create(target)
	if err != nil {
		return "", &dumperr.FilesystemError{Op: "create", Path: target, Err: err}
	}

	req.Logger.Info().
		Str("entry", req.Entry).
		Str("database", req.Settings.GetOr(config.OptDB, req.Entry)).
		Str("target", target).
		Msg("dumping mysql database")

	runErr := req.Runner.Run(ctx, runner.Command{
		Name:    "mysqldump",
		Args:    Args(req.Entry, req.Settings),
		Stdout:  out,
		Secrets: []string{req.Settings.Get(config.OptPassword)},
	})
	if err := out.Close(); err != nil && runErr == nil {
		return target, &dumperr.FilesystemError{Op: "close", Path: target, Err: err}
	}
	// Nothing was ever written when the tool could not be started
	if errors.Is(runErr, dumperr.ErrToolNotFound) {
		os.Remove(target)
		return "", runErr
	}
	return target, runErr
}
