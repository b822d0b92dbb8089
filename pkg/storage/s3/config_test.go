package s3

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/williamokano/dump_dbs/pkg/storage"
)

func TestParseConfig(t *testing.T) {
	t.Run("full", func(t *testing.T) {
		t.Setenv("DUMP_DBS_TEST_S3_SECRET", "s3cret")
		cfg, err := parseConfig(map[string]interface{}{
			"endpoint":          "http://localhost:4566",
			"region":            "us-east-1",
			"bucket":            "backups",
			"prefix":            "/dumps/",
			"access_key_id":     "AKIA",
			"secret_access_key": "${DUMP_DBS_TEST_S3_SECRET}",
			"force_path_style":  true,
		})
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:4566", cfg.Endpoint)
		assert.Equal(t, "dumps", cfg.Prefix)
		assert.Equal(t, "s3cret", cfg.SecretAccessKey)
		assert.True(t, cfg.ForcePathStyle)
	})

	t.Run("default_credentials", func(t *testing.T) {
		cfg, err := parseConfig(map[string]interface{}{"region": "eu-west-1", "bucket": "b"})
		require.NoError(t, err)
		assert.Empty(t, cfg.AccessKeyID)
	})

	t.Run("half_credentials", func(t *testing.T) {
		_, err := parseConfig(map[string]interface{}{"region": "eu-west-1", "bucket": "b", "access_key_id": "AKIA"})
		assert.ErrorIs(t, err, storage.ErrInvalidConfig)
	})

	t.Run("missing_required", func(t *testing.T) {
		for _, opts := range []map[string]interface{}{
			{"bucket": "b"},
			{"region": "eu-west-1"},
		} {
			_, err := parseConfig(opts)
			assert.ErrorIs(t, err, storage.ErrInvalidConfig)
		}
	})
}
