package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions(t *testing.T) {
	t.Setenv("DUMP_DBS_TEST_SECRET", "hunter2")

	opts := Options{
		"bucket":  "backups",
		"secret":  "${DUMP_DBS_TEST_SECRET}",
		"port":    2222,
		"portstr": "2200",
		"float":   float64(22),
		"flag":    true,
		"list":    []interface{}{"a"},
		"empty":   "",
	}

	t.Run("string", func(t *testing.T) {
		v, ok, err := opts.String("bucket")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "backups", v)

		_, ok, err = opts.String("absent")
		require.NoError(t, err)
		assert.False(t, ok)

		_, _, err = opts.String("list")
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("environment_expansion", func(t *testing.T) {
		v, err := opts.RequiredString("secret")
		require.NoError(t, err)
		assert.Equal(t, "hunter2", v)
	})

	t.Run("required", func(t *testing.T) {
		_, err := opts.RequiredString("absent")
		assert.ErrorIs(t, err, ErrInvalidConfig)
		assert.Contains(t, err.Error(), "missing required option: absent")

		_, err = opts.RequiredString("empty")
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("int", func(t *testing.T) {
		for key, want := range map[string]int{"port": 2222, "portstr": 2200, "float": 22, "absent": 22} {
			v, err := opts.Int(key, 22)
			require.NoError(t, err, key)
			assert.Equal(t, want, v, key)
		}
		_, err := opts.Int("bucket", 22)
		assert.ErrorIs(t, err, ErrInvalidConfig)
		_, err = opts.Int("flag", 22)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("bool", func(t *testing.T) {
		v, err := opts.Bool("flag", false)
		require.NoError(t, err)
		assert.True(t, v)

		v, err = opts.Bool("absent", true)
		require.NoError(t, err)
		assert.True(t, v)

		_, err = opts.Bool("bucket", false)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}
