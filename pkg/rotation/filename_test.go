package rotation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/williamokano/dump_dbs/pkg/config"
	"github.com/williamokano/dump_dbs/pkg/dumperr"
)

func settingsWithName(t *testing.T, template string) *config.Settings {
	t.Helper()
	raw := map[string]interface{}{"use": "mysqldump"}
	if template != "" {
		raw["name"] = template
	}
	s, err := config.SettingsFromMap("test", raw)
	require.NoError(t, err)
	return s
}

func TestExpandTemplate(t *testing.T) {
	date := time.Date(2024, 3, 1, 23, 59, 0, 0, time.UTC)

	tests := []struct {
		name     string
		template string
		want     string
		wantErr  bool
	}{
		{name: "default template", template: config.DefaultNameTemplate, want: "accounts-20240301"},
		{name: "dbname alias", template: "{dbname}_{today}.sql", want: "accounts_20240301.sql"},
		{name: "legacy printf form", template: "%(dbname)s-%(today)s", want: "accounts-20240301"},
		{name: "legacy name key", template: "backup-%(name)s-%(today)s", want: "backup-accounts-20240301"},
		{name: "literal percent", template: "{name}-100%%-{date}", want: "accounts-100%-20240301"},
		{name: "lone percent kept", template: "{name}%{date}", want: "accounts%20240301"},
		{name: "no placeholders", template: "static", want: "static"},
		{name: "subdirectory", template: "{name}/{name}-{date}", want: "accounts/accounts-20240301"},
		{name: "unknown placeholder", template: "{name}-{time}", wantErr: true},
		{name: "unknown legacy placeholder", template: "%(host)s-%(today)s", wantErr: true},
		{name: "unterminated brace", template: "{name-{date}", wantErr: true},
		{name: "unterminated legacy", template: "%(name-x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandTemplate(tt.template, "accounts", date)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dumperr.IsConfiguration(err), "expected a configuration error, got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpandTemplate_Pure(t *testing.T) {
	date := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	first, err := ExpandTemplate("{name}-{date}", "users", date)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := ExpandTemplate("{name}-{date}", "users", date)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestTargetPath(t *testing.T) {
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	t.Run("default_template", func(t *testing.T) {
		got, err := TargetPath("/data/dump", settingsWithName(t, ""), "accounts", date)
		require.NoError(t, err)
		assert.Equal(t, "/data/dump/accounts-20240301", got)
	})

	t.Run("rejects_escaping_names", func(t *testing.T) {
		for _, tmpl := range []string{"../{name}-{date}", "/etc/{name}", "{name}/../../x"} {
			_, err := TargetPath("/data/dump", settingsWithName(t, tmpl), "accounts", date)
			assert.True(t, dumperr.IsConfiguration(err), "template %q should be rejected", tmpl)
		}
	})

	t.Run("rejects_empty_names", func(t *testing.T) {
		_, err := TargetPath("/data/dump", settingsWithName(t, "  "), "accounts", date)
		assert.True(t, dumperr.IsConfiguration(err))
	})
}

func TestLatestName(t *testing.T) {
	tests := []struct {
		artifact string
		stamp    string
		want     string
		wantErr  bool
	}{
		{artifact: "accounts-20240301.tar.gz", stamp: "20240301", want: "accounts-latest.tar.gz"},
		{artifact: "accounts-20240301.gz", stamp: "20240301", want: "accounts-latest.gz"},
		{artifact: "db2-20240301.tar.gz", stamp: "20240301", want: "db2-latest.tar.gz"},
		{artifact: "mysql57-20240301-full.tar.gz", stamp: "20240301", want: "mysql57-latest-full.tar.gz"},
		{artifact: "db12345678-20240301.gz", stamp: "20240301", want: "db12345678-latest.gz"},
		{artifact: "20240301-db12345678.gz", stamp: "20240301", want: "latest-db12345678.gz"},
		{artifact: "db12345678-20240301.gz", stamp: "20240229", want: "dblatest-latest.gz"},
		{artifact: "accounts-20240301.gz", stamp: "", want: "accounts-latest.gz"},
		{artifact: "users_2024_03_01.gz", stamp: "20240301", want: "users_latest_latest_latest.gz"},
		{artifact: "static.tar.gz", stamp: "20240301", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.artifact+"@"+tt.stamp, func(t *testing.T) {
			got, err := LatestName(tt.artifact, tt.stamp)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
