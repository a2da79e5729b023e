package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookops/sierramarc"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		v, ok := vars[name]
		return v, ok
	}
}

const sample = `
library: nypl
subject_vocabularies: [lcsh, fast]
log_level: debug
metrics_file: /tmp/sierramarc.prom
store:
  driver: postgres
  dsn: postgres://localhost/catalog
s3:
  region: eu-west-1
  endpoint: http://localhost:9000
  path_style: true
`

func TestParse(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := Parse(nil, nil)
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})
	t.Run("empty file", func(t *testing.T) {
		cfg, err := Parse(strings.NewReader(""), env(nil))
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})
	t.Run("file", func(t *testing.T) {
		cfg, err := Parse(strings.NewReader(sample), env(nil))
		require.NoError(t, err)
		assert.Equal(t, "nypl", cfg.Library)
		assert.Equal(t, []string{"lcsh", "fast"}, cfg.SubjectVocabularies)
		assert.Equal(t, Store{Driver: DriverPostgres, DSN: "postgres://localhost/catalog"}, cfg.Store)
		assert.Equal(t, S3{Region: "eu-west-1", Endpoint: "http://localhost:9000", PathStyle: true}, cfg.S3)
		assert.Equal(t, "/tmp/sierramarc.prom", cfg.MetricsFile)

		lvl, err := cfg.SlogLevel()
		require.NoError(t, err)
		assert.Equal(t, slog.LevelDebug, lvl)
	})
	t.Run("environment overrides file", func(t *testing.T) {
		cfg, err := Parse(strings.NewReader(sample), env(map[string]string{
			"SIERRAMARC_LIBRARY":              "BPL",
			"SIERRAMARC_STORE_DRIVER":         "sqlite",
			"SIERRAMARC_STORE_DSN":            ":memory:",
			"SIERRAMARC_SUBJECT_VOCABULARIES": "gsafd, ,lcgft",
			"SIERRAMARC_S3_PATH_STYLE":        "false",
			"SIERRAMARC_S3_ACCESS_KEY_ID":     "key",
		}))
		require.NoError(t, err)
		assert.Equal(t, "BPL", cfg.Library)
		assert.Equal(t, Store{Driver: DriverSQLite, DSN: ":memory:"}, cfg.Store)
		assert.Equal(t, []string{"gsafd", "lcgft"}, cfg.SubjectVocabularies)
		assert.False(t, cfg.S3.PathStyle)
		assert.Equal(t, "key", cfg.S3.AccessKeyID)
		assert.Equal(t, "eu-west-1", cfg.S3.Region)
	})
}

func TestParseInvalid(t *testing.T) {
	cases := map[string]struct {
		yaml string
		env  map[string]string
	}{
		"malformed yaml":  {yaml: "library: [", env: nil},
		"unknown library": {yaml: "library: qpl"},
		"unknown driver":  {yaml: "store: {driver: mysql}"},
		"bad log level":   {yaml: "log_level: loud"},
		"bad path style":  {env: map[string]string{"SIERRAMARC_S3_PATH_STYLE": "maybe"}},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(c.yaml), env(c.env))
			assert.True(t, errors.Is(err, ErrInvalidConfig), "got %v", err)
		})
	}

	_, err := Parse(strings.NewReader("library: qpl"), nil)
	assert.True(t, errors.Is(err, sierramarc.ErrInvalidLibrary))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sierramarc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestBibOptions(t *testing.T) {
	assert.Nil(t, Default().BibOptions())

	cfg := Default()
	cfg.SubjectVocabularies = []string{"aat"}
	assert.Len(t, cfg.BibOptions(), 1)
}
