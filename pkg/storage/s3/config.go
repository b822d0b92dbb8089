package s3

import (
	"strings"

	"github.com/williamokano/dump_dbs/pkg/storage"
)

// Config holds S3 configuration
type Config struct {
	Endpoint        string // Optional: for MinIO or LocalStack
	Region          string
	Bucket          string
	Prefix          string // Object key prefix, joined before the destination base_dir
	AccessKeyID     string // Optional: falls back to the default credential chain
	SecretAccessKey string
	ForcePathStyle  bool
}

func parseConfig(options map[string]interface{}) (*Config, error) {
	opts := storage.Options(options)
	cfg := &Config{}

	var err error
	if cfg.Region, err = opts.RequiredString("region"); err != nil {
		return nil, err
	}
	if cfg.Bucket, err = opts.RequiredString("bucket"); err != nil {
		return nil, err
	}
	if cfg.Endpoint, _, err = opts.String("endpoint"); err != nil {
		return nil, err
	}
	if cfg.Prefix, _, err = opts.String("prefix"); err != nil {
		return nil, err
	}
	cfg.Prefix = strings.Trim(cfg.Prefix, "/")
	if cfg.AccessKeyID, _, err = opts.String("access_key_id"); err != nil {
		return nil, err
	}
	if cfg.SecretAccessKey, _, err = opts.String("secret_access_key"); err != nil {
		return nil, err
	}
	if (cfg.AccessKeyID == "") != (cfg.SecretAccessKey == "") {
		return nil, storage.WrapError("s3", "config", storage.ErrInvalidConfig)
	}
	if cfg.ForcePathStyle, err = opts.Bool("force_path_style", false); err != nil {
		return nil, err
	}

	return cfg, nil
}
