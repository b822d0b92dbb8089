package ssh

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/williamokano/dump_dbs/pkg/storage"
)

// Type is the destination type handled by this backend
const Type = "ssh"

const dialTimeout = 30 * time.Second

// Backend uploads artifacts over SFTP
type Backend struct {
	name       string
	sshClient  *ssh.Client
	sftpClient *sftp.Client
	remotePath string
}

func init() {
	storage.RegisterBackend(Type, func(ctx context.Context, cfg storage.Config) (storage.Backend, error) {
		return New(cfg)
	})
}

// New creates a new SSH/SFTP backend
func New(cfg storage.Config) (*Backend, error) {
	sshCfg, err := parseConfig(cfg.Options)
	if err != nil {
		return nil, storage.WrapError(cfg.Name, "init", err)
	}

	clientConfig, err := clientConfig(sshCfg)
	if err != nil {
		return nil, storage.WrapError(cfg.Name, "init", err)
	}

	addr := net.JoinHostPort(sshCfg.Host, strconv.Itoa(sshCfg.Port))
	sshClient, err := ssh.Dial("tcp", addr, clientConfig)
	if err != nil {
		return nil, storage.WrapError(cfg.Name, "connect", fmt.Errorf("%w: %v", storage.ErrConnFailed, err))
	}

	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, storage.WrapError(cfg.Name, "sftp init", err)
	}

	remotePath := path.Join(sshCfg.RemotePath, filepath.ToSlash(cfg.BaseDir))
	if err := sftpClient.MkdirAll(remotePath); err != nil {
		sftpClient.Close()
		sshClient.Close()
		return nil, storage.WrapError(cfg.Name, "mkdir", err)
	}

	return &Backend{
		name:       cfg.Name,
		sshClient:  sshClient,
		sftpClient: sftpClient,
		remotePath: remotePath,
	}, nil
}

func clientConfig(cfg *Config) (*ssh.ClientConfig, error) {
	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if cfg.KnownHostsPath != "" {
		cb, err := knownhosts.New(cfg.KnownHostsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load known hosts: %w", err)
		}
		hostKeyCallback = cb
	}

	clientConfig := &ssh.ClientConfig{
		User:            cfg.User,
		HostKeyCallback: hostKeyCallback,
		Timeout:         dialTimeout,
	}

	if cfg.Password != "" {
		clientConfig.Auth = append(clientConfig.Auth, ssh.Password(cfg.Password))
	}

	if cfg.KeyPath != "" {
		key, err := os.ReadFile(cfg.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read SSH key: %w", err)
		}

		var signer ssh.Signer
		if cfg.KeyPassphrase != "" {
			signer, err = ssh.ParsePrivateKeyWithPassphrase(key, []byte(cfg.KeyPassphrase))
		} else {
			signer, err = ssh.ParsePrivateKey(key)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse SSH key: %w", err)
		}

		clientConfig.Auth = append(clientConfig.Auth, ssh.PublicKeys(signer))
	}

	return clientConfig, nil
}

func (b *Backend) Name() string { return b.name }
func (b *Backend) Type() string { return Type }

// Write uploads a file via SFTP, writing to a temporary name first
func (b *Backend) Write(ctx context.Context, sourcePath, destPath string) error {
	localFile, err := os.Open(sourcePath)
	if err != nil {
		return storage.WrapError(b.name, "upload", err)
	}
	defer localFile.Close()

	remotePath := path.Join(b.remotePath, destPath)
	if err := b.sftpClient.MkdirAll(path.Dir(remotePath)); err != nil {
		return storage.WrapError(b.name, "mkdir", err)
	}

	partPath := remotePath + ".part"
	remoteFile, err := b.sftpClient.Create(partPath)
	if err != nil {
		return storage.WrapError(b.name, "create", err)
	}

	// SFTP calls are not context aware; close the file to abort a cancelled copy
	stop := context.AfterFunc(ctx, func() { remoteFile.Close() })
	_, copyErr := io.Copy(remoteFile, localFile)
	stop()
	closeErr := remoteFile.Close()

	if copyErr == nil {
		copyErr = ctx.Err()
	}
	if copyErr != nil {
		b.sftpClient.Remove(partPath)
		return storage.WrapError(b.name, "upload", copyErr)
	}
	if closeErr != nil {
		b.sftpClient.Remove(partPath)
		return storage.WrapError(b.name, "upload", closeErr)
	}

	if err := b.sftpClient.PosixRename(partPath, remotePath); err != nil {
		b.sftpClient.Remove(partPath)
		return storage.WrapError(b.name, "rename", err)
	}
	return nil
}

// Stat returns file metadata
func (b *Backend) Stat(ctx context.Context, filePath string) (*storage.FileInfo, error) {
	info, err := b.sftpClient.Stat(path.Join(b.remotePath, filePath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.WrapError(b.name, "stat", storage.ErrNotFound)
		}
		return nil, storage.WrapError(b.name, "stat", err)
	}

	return &storage.FileInfo{
		Path:    filePath,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// Close releases resources
func (b *Backend) Close() error {
	if b.sftpClient != nil {
		b.sftpClient.Close()
	}
	if b.sshClient != nil {
		return b.sshClient.Close()
	}
	return nil
}
