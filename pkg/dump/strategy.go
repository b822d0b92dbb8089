package dump

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/williamokano/dump_dbs/pkg/config"
	"github.com/williamokano/dump_dbs/pkg/dumperr"
	"github.com/williamokano/dump_dbs/pkg/rotation"
	"github.com/williamokano/dump_dbs/pkg/runner"
)

// Request carries everything a strategy needs to produce one raw artifact
type Request struct {
	Entry    string
	Settings *config.Settings
	BaseDir  string
	Now      time.Time
	Runner   runner.Runner
	Logger   zerolog.Logger
}

// TargetPath resolves where the raw artifact of this request goes
func (r Request) TargetPath() (string, error) {
	return rotation.TargetPath(r.BaseDir, r.Settings, r.Entry, r.Now)
}

// Strategy produces a raw dump artifact for one entry
type Strategy interface {
	// Name returns the value of "use" selecting this strategy
	Name() string

	// Dump runs the dump tool and returns the absolute raw artifact path.
	// On a tool failure the path is still returned along with the error so
	// the caller can decide whether a partial artifact is worth keeping.
	Dump(ctx context.Context, req Request) (string, error)
}

// Constructor creates a strategy instance
type Constructor func() Strategy

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Constructor)
)

// Register registers a strategy constructor under the given "use" name
func Register(name string, constructor Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = constructor
}

// Lookup returns a new strategy registered under name
func Lookup(name string) (Strategy, bool) {
	registryMu.RLock()
	constructor, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, false
	}
	return constructor(), true
}

// Names returns the registered strategy names, sorted
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve looks up the strategy selected by the entry's "use" setting
func Resolve(entry string, settings *config.Settings) (Strategy, error) {
	if settings == nil || settings.Use == "" {
		return nil, dumperr.Configf(entry, "missing \"use\" setting")
	}
	s, ok := Lookup(settings.Use)
	if !ok {
		return nil, dumperr.Configf(entry, "invalid \"use\" setting %q, known strategies: %v", settings.Use, Names())
	}
	return s, nil
}

// AppendOption appends flag and value when the option is present and non-empty
func AppendOption(args []string, settings *config.Settings, key, flag string) []string {
	if v := settings.Get(key); v != "" {
		return append(args, flag, v)
	}
	return args
}

// PrepareTarget creates the directory that will hold the raw artifact
func PrepareTarget(target string) error {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &dumperr.FilesystemError{Op: "mkdir", Path: dir, Err: err}
	}
	return nil
}
