package storage

import (
	"context"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/williamokano/dump_dbs/pkg/config"
)

// Backend is a destination final artifacts can be shipped to
type Backend interface {
	// Name returns the destination name from the configuration (e.g. "offsite")
	Name() string

	// Type returns the backend type (local, s3, backblaze, ssh)
	Type() string

	// Write uploads a local file to the backend
	// sourcePath: absolute path to the final artifact
	// destPath: slash-separated path inside the backend (e.g. "mysql/accounts-20240301.tar.gz")
	Write(ctx context.Context, sourcePath string, destPath string) error

	// Stat returns metadata about a stored file, ErrNotFound if it is absent
	Stat(ctx context.Context, path string) (*FileInfo, error)

	// Close releases resources (connections, sessions)
	Close() error
}

// FileInfo represents metadata about a stored file
type FileInfo struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Config represents storage backend configuration
type Config struct {
	Name    string
	Type    string
	Enabled bool
	BaseDir string // prefix under which artifacts are stored
	Options map[string]interface{}
}

// Prefix joins root with the destination's base_dir as a slash-separated path
func (c Config) Prefix(root string) string {
	return strings.Trim(path.Join(root, filepath.ToSlash(c.BaseDir)), "/")
}

// FromDestination builds a backend configuration from a configured destination
func FromDestination(d config.StorageDestination) Config {
	return Config{
		Name:    d.Name,
		Type:    d.Type,
		Enabled: d.IsEnabled(),
		BaseDir: d.BaseDir,
		Options: d.Options,
	}
}

// Result represents the outcome of shipping one artifact to one backend
type Result struct {
	BackendName string
	BackendType string
	Path        string
	Size        int64
	Success     bool
	Error       error
	Duration    time.Duration
}
