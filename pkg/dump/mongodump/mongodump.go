package mongodump

import (
	"context"

	"github.com/williamokano/dump_dbs/pkg/config"
	"github.com/williamokano/dump_dbs/pkg/dump"
	"github.com/williamokano/dump_dbs/pkg/runner"
)

// Name is the "use" value selecting this strategy
const Name = "mongodump"

func init() {
	dump.Register(Name, func() dump.Strategy { return New() })
}

// Strategy dumps a MongoDB database into a directory
type Strategy struct{}

// New creates a mongodump strategy
func New() *Strategy {
	return &Strategy{}
}

func (s *Strategy) Name() string { return Name }

// Args builds the mongodump argument list for the given target directory
func Args(settings *config.Settings, target string) []string {
	var args []string
	args = dump.AppendOption(args, settings, config.OptHost, "-h")
	args = dump.AppendOption(args, settings, config.OptPort, "--port")
	args = dump.AppendOption(args, settings, config.OptDB, "-d")
	args = dump.AppendOption(args, settings, config.OptCollection, "-c")
	args = dump.AppendOption(args, settings, config.OptUser, "-u")
	args = dump.AppendOption(args, settings, config.OptPassword, "-p")
	args = append(args, settings.ExtraArgs...)
	return append(args, "-o", target)
}

// Dump runs mongodump with its output directory set to the target path
func (s *Strategy) Dump(ctx context.Context, req dump.Request) (string, error) {
	target, err := req.TargetPath()
	if err != nil {
		return "", err
	}
	if err := dump.PrepareTarget(target); err != nil {
		return "", err
	}

	req.Logger.Info().
		Str("entry", req.Entry).
		Str("target", target).
		Msg("dumping mongo database")

	err = req.Runner.Run(ctx, runner.Command{
		Name:    "mongodump",
		Args:    Args(req.Settings, target),
		Secrets: []string{req.Settings.Get(config.OptPassword)},
	})
	return target, err
}
