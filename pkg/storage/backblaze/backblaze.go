package backblaze

import (
	"context"
	"errors"
	"io"
	"os"
	"path"

	"github.com/kurin/blazer/b2"

	"github.com/williamokano/dump_dbs/pkg/storage"
)

// Type is the destination type handled by this backend
const Type = "backblaze"

// Backend uploads artifacts to a Backblaze B2 bucket
type Backend struct {
	name   string
	bucket *b2.Bucket
	prefix string
}

func init() {
	storage.RegisterBackend(Type, func(ctx context.Context, cfg storage.Config) (storage.Backend, error) {
		return New(ctx, cfg)
	})
}

// New creates a new Backblaze B2 backend
func New(ctx context.Context, cfg storage.Config) (*Backend, error) {
	b2Cfg, err := parseConfig(cfg.Options)
	if err != nil {
		return nil, storage.WrapError(cfg.Name, "init", err)
	}

	client, err := b2.NewClient(ctx, b2Cfg.AccountID, b2Cfg.ApplicationKey)
	if err != nil {
		return nil, storage.WrapError(cfg.Name, "init", errors.Join(storage.ErrAuthFailed, err))
	}

	bucket, err := client.Bucket(ctx, b2Cfg.BucketName)
	if err != nil {
		return nil, storage.WrapError(cfg.Name, "get bucket", err)
	}

	return &Backend{
		name:   cfg.Name,
		bucket: bucket,
		prefix: cfg.Prefix(b2Cfg.Prefix),
	}, nil
}

func (b *Backend) Name() string { return b.name }
func (b *Backend) Type() string { return Type }

// Write uploads a file to B2
func (b *Backend) Write(ctx context.Context, sourcePath, destPath string) error {
	file, err := os.Open(sourcePath)
	if err != nil {
		return storage.WrapError(b.name, "upload", err)
	}
	defer file.Close()

	writer := b.bucket.Object(path.Join(b.prefix, destPath)).NewWriter(ctx)
	if _, err := io.Copy(writer, file); err != nil {
		writer.Close()
		return storage.WrapError(b.name, "upload", err)
	}
	if err := writer.Close(); err != nil {
		return storage.WrapError(b.name, "upload", err)
	}

	return nil
}

// Stat returns file metadata
func (b *Backend) Stat(ctx context.Context, objectPath string) (*storage.FileInfo, error) {
	attrs, err := b.bucket.Object(path.Join(b.prefix, objectPath)).Attrs(ctx)
	if err != nil {
		if b2.IsNotExist(err) {
			return nil, storage.WrapError(b.name, "stat", storage.ErrNotFound)
		}
		return nil, storage.WrapError(b.name, "stat", err)
	}

	return &storage.FileInfo{
		Path:    objectPath,
		Size:    attrs.Size,
		ModTime: attrs.UploadTimestamp,
	}, nil
}

// Close releases resources
func (b *Backend) Close() error {
	return nil
}
