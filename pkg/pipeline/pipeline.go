package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/williamokano/dump_dbs/pkg/config"
	"github.com/williamokano/dump_dbs/pkg/dumperr"
	"github.com/williamokano/dump_dbs/pkg/runner"
)

// Format is a compression directive
type Format int

const (
	FormatInvalid Format = iota
	FormatTarball
	FormatGzip
)

const (
	TarballSuffix = ".tar.gz"
	GzipSuffix    = ".gz"
)

var formatAliases = map[string]Format{
	"tarball":    FormatTarball,
	".tar.gz":    FormatTarball,
	"tar.gz":     FormatTarball,
	"gz":         FormatGzip,
	".gz":        FormatGzip,
	"compress":   FormatGzip,
	"compressed": FormatGzip,
	"gzip":       FormatGzip,
	"gzipped":    FormatGzip,
}

// ParseFormat maps a "format" setting to a compression directive
func ParseFormat(s string) (Format, bool) {
	f, ok := formatAliases[s]
	return f, ok
}

func (f Format) String() string {
	switch f {
	case FormatTarball:
		return "tarball"
	case FormatGzip:
		return "gzip"
	default:
		return "invalid"
	}
}

// Processor filters and compresses raw artifacts using external tools
type Processor struct {
	runner runner.Runner
	logger zerolog.Logger
}

// NewProcessor creates a post-processor running tools through r
func NewProcessor(r runner.Runner, logger zerolog.Logger) *Processor {
	return &Processor{runner: r, logger: logger}
}

// Process runs the filter stage and then the compress stage, returning the
// final artifact path. Any error means there is no final artifact to link.
func (p *Processor) Process(ctx context.Context, entry, path string, settings *config.Settings) (string, error) {
	if err := p.Filter(ctx, entry, path, settings.Sed); err != nil {
		return "", err
	}
	return p.Compress(ctx, entry, path, settings.Format)
}

// Filter applies each substitution command, in order, to the file in place.
// Filtering only makes sense for single-file artifacts.
func (p *Processor) Filter(ctx context.Context, entry, path string, commands []string) error {
	if len(commands) == 0 {
		return nil
	}

	fi, err := os.Stat(path)
	if err != nil {
		return &dumperr.FilesystemError{Op: "stat", Path: path, Err: err}
	}
	if fi.IsDir() {
		return dumperr.Configf(entry, "sed filters cannot be applied to directory artifact %s", path)
	}

	for _, expr := range commands {
		p.logger.Info().
			Str("entry", entry).
			Str("file", path).
			Str("expression", expr).
			Msg("cleaning")

		if err := p.runner.Run(ctx, runner.Command{
			Name: "sed",
			Args: []string{"-i", "-e", expr, path},
		}); err != nil {
			return err
		}
	}

	return nil
}

// Compress compresses the artifact according to format and returns the final
// artifact path. The raw artifact is only deleted after the archive has been
// verified.
func (p *Processor) Compress(ctx context.Context, entry, path, format string) (string, error) {
	f, ok := ParseFormat(format)
	if !ok {
		return "", dumperr.Configf(entry, "invalid \"format\" setting %q, should be tarball or compress", format)
	}

	fi, err := os.Stat(path)
	if err != nil {
		return "", &dumperr.FilesystemError{Op: "stat", Path: path, Err: err}
	}

	switch f {
	case FormatTarball:
		return p.tarball(ctx, entry, path)
	default:
		return p.gzip(ctx, entry, path, fi.IsDir())
	}
}

func (p *Processor) tarball(ctx context.Context, entry, path string) (string, error) {
	output := path + TarballSuffix
	p.logger.Info().Str("entry", entry).Str("file", path).Str("archive", output).Msg("zipping and compressing")

	err := p.runner.Run(ctx, runner.Command{
		Name: "tar",
		Args: []string{"-czf", output, "-C", filepath.Dir(path), filepath.Base(path)},
	})
	if err != nil {
		os.Remove(output)
		return "", err
	}

	if err := verifyNonEmpty(output); err != nil {
		return "", err
	}

	p.logger.Info().Str("entry", entry).Str("file", path).Msg("removing")
	if err := os.RemoveAll(path); err != nil {
		return "", &dumperr.FilesystemError{Op: "remove", Path: path, Err: err}
	}

	return output, nil
}

func (p *Processor) gzip(ctx context.Context, entry, path string, isDir bool) (string, error) {
	p.logger.Info().Str("entry", entry).Str("file", path).Msg("compressing")

	if err := p.runner.Run(ctx, runner.Command{
		Name: "gzip",
		Args: []string{"-r", "-q", "-f", path},
	}); err != nil {
		return "", err
	}

	// Directories are compressed file by file and keep their name
	if isDir {
		return path, nil
	}

	output := path + GzipSuffix
	if err := verifyNonEmpty(output); err != nil {
		return "", err
	}
	return output, nil
}

func verifyNonEmpty(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return &dumperr.FilesystemError{Op: "verify", Path: path, Err: err}
	}
	if fi.Size() == 0 {
		return &dumperr.FilesystemError{Op: "verify", Path: path, Err: errors.New("archive is empty")}
	}
	return nil
}
