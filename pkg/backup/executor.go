package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/williamokano/dump_dbs/pkg/config"
	"github.com/williamokano/dump_dbs/pkg/dump"
	"github.com/williamokano/dump_dbs/pkg/dumperr"
	"github.com/williamokano/dump_dbs/pkg/pipeline"
	"github.com/williamokano/dump_dbs/pkg/rotation"
	"github.com/williamokano/dump_dbs/pkg/runner"
	"github.com/williamokano/dump_dbs/pkg/storage"

	// Import strategies and backends to register them
	_ "github.com/williamokano/dump_dbs/pkg/dump/mongodump"
	_ "github.com/williamokano/dump_dbs/pkg/dump/mysqldump"
	_ "github.com/williamokano/dump_dbs/pkg/dump/pgdump"
	_ "github.com/williamokano/dump_dbs/pkg/storage/backblaze"
	_ "github.com/williamokano/dump_dbs/pkg/storage/local"
	_ "github.com/williamokano/dump_dbs/pkg/storage/s3"
	_ "github.com/williamokano/dump_dbs/pkg/storage/ssh"
)

// Result represents the outcome of one entry
type Result struct {
	Entry     string
	Strategy  string
	Success   bool
	Skipped   bool   // scalar entries are never dumped
	RawPath   string // artifact produced by the dump tool
	FinalPath string // artifact after filtering and compression
	LinkPath  string // "latest" alias, empty when disabled
	Uploads   []storage.Result
	Error     error
	Duration  time.Duration
}

// Report collects the results of a run in configuration order
type Report struct {
	Results  []Result
	Duration time.Duration
}

// Failed returns the results of entries that failed
func (r Report) Failed() []Result {
	var failed []Result
	for _, res := range r.Results {
		if !res.Success && !res.Skipped {
			failed = append(failed, res)
		}
	}
	return failed
}

// HasFailures reports whether any entry failed
func (r Report) HasFailures() bool {
	return len(r.Failed()) > 0
}

// Succeeded returns the number of entries that completed without error
func (r Report) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.Success {
			n++
		}
	}
	return n
}

// Resolver selects the strategy for an entry
type Resolver func(entry string, settings *config.Settings) (dump.Strategy, error)

// Dispatcher runs every configured entry through dump, post-processing,
// latest alias maintenance and optional upload
type Dispatcher struct {
	cfg       *config.Config
	runner    runner.Runner
	resolve   Resolver
	processor *pipeline.Processor
	rotator   *rotation.Rotator
	uploader  *storage.MultiUploader
	pool      *storage.Pool
	clock     func() time.Time
	logger    zerolog.Logger
}

// Option customizes a Dispatcher
type Option func(*Dispatcher)

// WithRunner replaces the runner used for every external tool
func WithRunner(r runner.Runner) Option {
	return func(d *Dispatcher) { d.runner = r }
}

// WithClock replaces the clock used to date artifacts
func WithClock(clock func() time.Time) Option {
	return func(d *Dispatcher) { d.clock = clock }
}

// WithResolver replaces the strategy registry lookup
func WithResolver(resolve Resolver) Option {
	return func(d *Dispatcher) { d.resolve = resolve }
}

// NewDispatcher creates a dispatcher for the given configuration
func NewDispatcher(cfg *config.Config, logger zerolog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		cfg:     cfg,
		resolve: dump.Resolve,
		clock:   time.Now,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.runner == nil {
		d.runner = runner.NewSystemRunner(logger)
	}

	storageConfigs := make([]storage.Config, 0, len(cfg.Storage.Destinations))
	for _, dest := range cfg.Storage.Destinations {
		storageConfigs = append(storageConfigs, storage.FromDestination(dest))
	}

	d.processor = pipeline.NewProcessor(d.runner, logger)
	d.rotator = rotation.NewRotator(logger)
	d.uploader = storage.NewMultiUploader(logger)
	d.pool = storage.NewPool(storageConfigs, logger)
	return d
}

// Run processes every entry and returns their results in configuration
// order. One entry's failure never prevents the others from running.
func (d *Dispatcher) Run(ctx context.Context) Report {
	start := time.Now()
	now := d.clock()
	defer d.pool.Close()

	entries := d.cfg.Entries
	results := make([]Result, len(entries))
	maxConcurrent := d.cfg.GetMaxConcurrent()

	d.logger.Info().
		Int("entries", len(entries)).
		Int("max_concurrent", maxConcurrent).
		Str("target_dir", d.cfg.GetTargetDir()).
		Msg("starting dump run")

	if maxConcurrent > 1 {
		d.runParallel(ctx, entries, now, results, maxConcurrent)
	} else {
		for i, entry := range entries {
			results[i] = d.runEntry(ctx, entry, now)
		}
	}

	report := Report{Results: results, Duration: time.Since(start)}

	skipped := 0
	for _, res := range results {
		if res.Skipped {
			skipped++
		}
	}
	d.logger.Info().
		Int("succeeded", report.Succeeded()).
		Int("failed", len(report.Failed())).
		Int("skipped", skipped).
		Dur("duration", report.Duration).
		Msg("dump run completed")

	return report
}

func (d *Dispatcher) runEntry(ctx context.Context, entry config.Entry, now time.Time) Result {
	start := time.Now()
	result := Result{Entry: entry.Name}
	log := d.logger.With().Str("entry", entry.Name).Logger()

	fail := func(stage string, err error) Result {
		result.Error = err
		result.Duration = time.Since(start)
		log.Error().Err(err).Str("stage", stage).Msg("entry failed")
		return result
	}

	if entry.Scalar {
		log.Debug().Msg("skipping scalar entry")
		result.Skipped = true
		return result
	}
	if entry.Err != nil {
		return fail("config", entry.Err)
	}
	if err := ctx.Err(); err != nil {
		return fail("dispatch", err)
	}

	settings := entry.Settings
	strategy, err := d.resolve(entry.Name, settings)
	if err != nil {
		return fail("config", err)
	}
	result.Strategy = strategy.Name()

	if err := d.checkDestinations(entry.Name, settings.Upload); err != nil {
		return fail("config", err)
	}

	if timeout := settings.GetTimeout(d.cfg.Timeout); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	log.Info().Str("strategy", strategy.Name()).Msg("dumping")

	raw, dumpErr := strategy.Dump(ctx, dump.Request{
		Entry:    entry.Name,
		Settings: settings,
		BaseDir:  d.cfg.GetTargetDir(),
		Now:      now,
		Runner:   d.runner,
		Logger:   log,
	})
	result.RawPath = raw
	if dumpErr != nil {
		if !d.keepPartial(raw, dumpErr, settings) {
			return fail("dump", dumpErr)
		}
		// Best effort: the entry is failed but whatever was dumped is still
		// post-processed and linked
		log.Error().Err(dumpErr).Str("stage", "dump").Str("file", raw).Msg("dump failed, keeping partial artifact")
	}

	final, err := d.processor.Process(ctx, entry.Name, raw, settings)
	if err != nil {
		return fail("process", errors.Join(dumpErr, err))
	}
	result.FinalPath = final

	link, err := d.rotator.Link(entry.Name, final, now, settings.LatestEnabled())
	if err != nil {
		return fail("link", errors.Join(dumpErr, err))
	}
	result.LinkPath = link

	if len(settings.Upload) > 0 && dumpErr != nil {
		log.Warn().Str("file", final).Strs("upload", settings.Upload).Msg("not uploading partial artifact")
	} else if len(settings.Upload) > 0 {
		uploads, err := d.upload(ctx, entry.Name, final, settings.Upload, log)
		result.Uploads = uploads
		if err != nil {
			return fail("upload", errors.Join(dumpErr, err))
		}
	}

	result.Duration = time.Since(start)
	if dumpErr != nil {
		result.Error = dumpErr
		return result
	}

	result.Success = true
	log.Info().
		Str("file", final).
		Str("link", link).
		Dur("duration", result.Duration).
		Msg("entry completed")
	return result
}

// keepPartial decides whether a failed dump still goes through the pipeline
func (d *Dispatcher) keepPartial(raw string, dumpErr error, settings *config.Settings) bool {
	if raw == "" || !dumperr.IsExternalTool(dumpErr) || errors.Is(dumpErr, dumperr.ErrToolNotFound) {
		return false
	}
	if settings.IsStrict(d.cfg.Strict) {
		return false
	}
	_, err := os.Stat(raw)
	return err == nil
}

func (d *Dispatcher) checkDestinations(entry string, names []string) error {
	for _, name := range names {
		if _, ok := d.cfg.Destination(name); !ok {
			return dumperr.Configf(entry, "unknown or disabled upload destination %q", name)
		}
	}
	return nil
}

func (d *Dispatcher) upload(ctx context.Context, entry, final string, names []string, log zerolog.Logger) ([]storage.Result, error) {
	fi, err := os.Stat(final)
	if err != nil {
		return nil, &dumperr.FilesystemError{Op: "stat", Path: final, Err: err}
	}
	if !fi.Mode().IsRegular() {
		return nil, dumperr.Configf(entry, "cannot upload %s: only single-file artifacts can be shipped, use format: tarball", final)
	}

	var (
		backends []storage.Backend
		errs     []error
	)
	for _, name := range names {
		b, err := d.pool.Get(ctx, name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		backends = append(backends, b)
	}

	results := d.uploader.Upload(ctx, backends, final, filepath.Base(final))

	for _, r := range storage.Failed(results) {
		errs = append(errs, fmt.Errorf("upload to %s: %w", r.BackendName, r.Error))
	}
	if len(errs) > 0 {
		return results, errors.Join(errs...)
	}

	log.Info().Int("destinations", len(results)).Msg("artifact shipped")
	return results, nil
}
