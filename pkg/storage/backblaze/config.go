package backblaze

import (
	"strings"

	"github.com/williamokano/dump_dbs/pkg/storage"
)

// Config holds Backblaze B2 configuration
type Config struct {
	AccountID      string
	ApplicationKey string
	BucketName     string
	Prefix         string
}

func parseConfig(options map[string]interface{}) (*Config, error) {
	opts := storage.Options(options)
	cfg := &Config{}

	var err error
	if cfg.AccountID, err = opts.RequiredString("account_id"); err != nil {
		return nil, err
	}
	if cfg.ApplicationKey, err = opts.RequiredString("application_key"); err != nil {
		return nil, err
	}
	if cfg.BucketName, err = opts.RequiredString("bucket_name"); err != nil {
		return nil, err
	}
	if cfg.Prefix, _, err = opts.String("prefix"); err != nil {
		return nil, err
	}
	cfg.Prefix = strings.Trim(cfg.Prefix, "/")

	return cfg, nil
}
