package ssh

import (
	"github.com/williamokano/dump_dbs/pkg/storage"
)

const defaultPort = 22

// Config holds SSH/SFTP configuration
type Config struct {
	Host           string
	Port           int
	User           string
	Password       string // Optional
	KeyPath        string // Optional: path to private key
	KeyPassphrase  string // Optional
	KnownHostsPath string // Optional: host keys are not verified without it
	RemotePath     string // Base directory on remote server
}

func parseConfig(options map[string]interface{}) (*Config, error) {
	opts := storage.Options(options)
	cfg := &Config{}

	var err error
	if cfg.Host, err = opts.RequiredString("host"); err != nil {
		return nil, err
	}
	if cfg.User, err = opts.RequiredString("user"); err != nil {
		return nil, err
	}
	if cfg.RemotePath, err = opts.RequiredString("remote_path"); err != nil {
		return nil, err
	}
	if cfg.Password, _, err = opts.String("password"); err != nil {
		return nil, err
	}
	if cfg.KeyPath, _, err = opts.String("key_path"); err != nil {
		return nil, err
	}
	if cfg.KeyPassphrase, _, err = opts.String("key_passphrase"); err != nil {
		return nil, err
	}
	if cfg.KnownHostsPath, _, err = opts.String("known_hosts"); err != nil {
		return nil, err
	}
	if cfg.Port, err = opts.Int("port", defaultPort); err != nil {
		return nil, err
	}
	if cfg.Password == "" && cfg.KeyPath == "" {
		return nil, storage.WrapError("ssh", "config", storage.ErrInvalidConfig)
	}

	return cfg, nil
}
