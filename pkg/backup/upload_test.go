package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/williamokano/dump_dbs/pkg/dumperr"
)

func storageYAML(nasDir string) string {
	return fmt.Sprintf(`
storage:
  destinations:
    - name: nas
      type: local
      base_dir: mysql
      options:
        path: %s
    - name: retired
      type: local
      enabled: false
      options:
        path: %s
`, nasDir, nasDir)
}

func TestDispatcher_Upload(t *testing.T) {
	t.Run("ships_final_artifact", func(t *testing.T) {
		nas := t.TempDir()
		cfg, dir := loadConfig(t, storageYAML(nas)+`
accounts:
  use: mysqldump
  format: tarball
  upload: [nas]
`)
		res := newTestDispatcher(cfg, newFakeRunner()).Run(context.Background()).Results[0]

		require.True(t, res.Success, "%v", res.Error)
		require.Len(t, res.Uploads, 1)
		assert.True(t, res.Uploads[0].Success)
		assert.Equal(t, "nas", res.Uploads[0].BackendName)

		shipped, err := os.ReadFile(filepath.Join(nas, "mysql", "accounts-20240301.tar.gz"))
		require.NoError(t, err)
		local, err := os.ReadFile(filepath.Join(dir, "accounts-20240301.tar.gz"))
		require.NoError(t, err)
		assert.Equal(t, local, shipped)
	})

	t.Run("unknown_destination_fails_before_dumping", func(t *testing.T) {
		cfg, _ := loadConfig(t, storageYAML(t.TempDir())+`
accounts:
  use: mysqldump
  format: gzip
  upload: [nowhere]
`)
		r := newFakeRunner()
		res := newTestDispatcher(cfg, r).Run(context.Background()).Results[0]

		assert.True(t, dumperr.IsConfiguration(res.Error))
		assert.Empty(t, r.names())
	})

	t.Run("partial_dump_is_not_shipped", func(t *testing.T) {
		nas := t.TempDir()
		cfg, dir := loadConfig(t, storageYAML(nas)+`
accounts:
  use: mysqldump
  format: tarball
  upload: [nas]
`)
		r := newFakeRunner()
		r.failures["mysqldump"] = 2

		res := newTestDispatcher(cfg, r).Run(context.Background()).Results[0]

		assert.False(t, res.Success)
		assert.True(t, dumperr.IsExternalTool(res.Error))
		assert.FileExists(t, filepath.Join(dir, "accounts-20240301.tar.gz"))
		assert.Empty(t, res.Uploads)
		assert.NoFileExists(t, filepath.Join(nas, "mysql", "accounts-20240301.tar.gz"))
	})

	t.Run("disabled_destination", func(t *testing.T) {
		cfg, _ := loadConfig(t, storageYAML(t.TempDir())+`
accounts:
  use: mysqldump
  format: gzip
  upload: [retired]
`)
		res := newTestDispatcher(cfg, newFakeRunner()).Run(context.Background()).Results[0]
		assert.True(t, dumperr.IsConfiguration(res.Error))
	})

	t.Run("directory_artifact_cannot_be_shipped", func(t *testing.T) {
		cfg, dir := loadConfig(t, storageYAML(t.TempDir())+`
users:
  use: mongodump
  format: gzip
  upload: [nas]
`)
		res := newTestDispatcher(cfg, newFakeRunner()).Run(context.Background()).Results[0]

		assert.True(t, dumperr.IsConfiguration(res.Error))
		assert.Equal(t, filepath.Join(dir, "users-20240301"), res.FinalPath)
		assert.Equal(t, filepath.Join(dir, "users-latest"), res.LinkPath, "the local alias is still maintained")
	})

	t.Run("upload_failure_keeps_local_artifact", func(t *testing.T) {
		// a regular file where the destination directory should be
		blocker := filepath.Join(t.TempDir(), "blocked")
		require.NoError(t, os.WriteFile(blocker, nil, 0644))

		cfg, dir := loadConfig(t, fmt.Sprintf(`
storage:
  destinations:
    - name: nas
      type: local
      options:
        path: %s
accounts:
  use: mysqldump
  format: gzip
  upload: [nas]
`, blocker))
		res := newTestDispatcher(cfg, newFakeRunner()).Run(context.Background()).Results[0]

		assert.False(t, res.Success)
		require.Error(t, res.Error)
		assert.Contains(t, res.Error.Error(), "failed to create backend nas")
		assert.FileExists(t, filepath.Join(dir, "accounts-20240301.gz"))
	})
}
