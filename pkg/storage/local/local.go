package local

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/williamokano/dump_dbs/pkg/storage"
)

// Type is the destination type handled by this backend
const Type = "local"

// Backend copies artifacts into a directory, typically a mounted volume
type Backend struct {
	name     string
	basePath string
}

func init() {
	storage.RegisterBackend(Type, func(ctx context.Context, cfg storage.Config) (storage.Backend, error) {
		return New(cfg)
	})
}

// New creates a local filesystem backend rooted at the "path" option joined
// with base_dir
func New(cfg storage.Config) (*Backend, error) {
	path, err := storage.Options(cfg.Options).RequiredString("path")
	if err != nil {
		return nil, storage.WrapError(cfg.Name, "init", err)
	}

	if err := os.MkdirAll(filepath.Join(path, filepath.FromSlash(cfg.BaseDir)), 0755); err != nil {
		return nil, storage.WrapError(cfg.Name, "init", err)
	}

	return &Backend{
		name:     cfg.Name,
		basePath: filepath.Join(path, filepath.FromSlash(cfg.BaseDir)),
	}, nil
}

func (b *Backend) Name() string { return b.name }
func (b *Backend) Type() string { return Type }

// Write copies the file next to its destination and renames it into place,
// so a reader never sees a half-written artifact
func (b *Backend) Write(ctx context.Context, sourcePath, destPath string) error {
	if err := ctx.Err(); err != nil {
		return storage.WrapError(b.name, "write", err)
	}

	destFullPath := filepath.Join(b.basePath, filepath.FromSlash(destPath))
	if err := os.MkdirAll(filepath.Dir(destFullPath), 0755); err != nil {
		return storage.WrapError(b.name, "write", err)
	}

	source, err := os.Open(sourcePath)
	if err != nil {
		return storage.WrapError(b.name, "write", err)
	}
	defer source.Close()

	tmpPath := filepath.Join(filepath.Dir(destFullPath), "."+filepath.Base(destFullPath)+".part-"+uuid.NewString())
	dest, err := os.Create(tmpPath)
	if err != nil {
		return storage.WrapError(b.name, "write", err)
	}

	if _, err := io.Copy(dest, source); err != nil {
		dest.Close()
		os.Remove(tmpPath)
		return storage.WrapError(b.name, "write", err)
	}
	if err := dest.Sync(); err != nil {
		dest.Close()
		os.Remove(tmpPath)
		return storage.WrapError(b.name, "write", err)
	}
	if err := dest.Close(); err != nil {
		os.Remove(tmpPath)
		return storage.WrapError(b.name, "write", err)
	}

	if err := os.Rename(tmpPath, destFullPath); err != nil {
		os.Remove(tmpPath)
		return storage.WrapError(b.name, "write", err)
	}
	return nil
}

// Stat returns metadata about a stored file
func (b *Backend) Stat(ctx context.Context, path string) (*storage.FileInfo, error) {
	info, err := os.Stat(filepath.Join(b.basePath, filepath.FromSlash(path)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.WrapError(b.name, "stat", storage.ErrNotFound)
		}
		return nil, storage.WrapError(b.name, "stat", err)
	}

	return &storage.FileInfo{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// Close is a no-op for local backend
func (b *Backend) Close() error {
	return nil
}
