package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitcoin-writer/go-document-chain/pkg/storage"
)

const testKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func envMap(values map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		v, ok := values[name]
		return v, ok
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "writer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, ChainMain, cfg.Chain)
	assert.Equal(t, storage.BackendMemory, cfg.Store.Backend)
	assert.Equal(t, 2*time.Minute, cfg.SealTimeout)
	assert.False(t, cfg.SealingEnabled())
	assert.Equal(t, slog.LevelInfo, cfg.Level())
}

func TestLoad(t *testing.T) {
	t.Run("empty path yields defaults", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, Default().Store, cfg.Store)
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := writeConfig(t, `
chain: test
private_key: `+testKey+`
seal_timeout: 45s
log_level: debug
store:
  backend: leveldb
  leveldb_path: /var/lib/writer
`)
		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, ChainTest, cfg.Chain)
		assert.True(t, cfg.SealingEnabled())
		assert.Equal(t, 45*time.Second, cfg.SealTimeout)
		assert.Equal(t, slog.LevelDebug, cfg.Level())
		assert.Equal(t, storage.BackendLevelDB, cfg.Store.Backend)
		assert.Equal(t, "/var/lib/writer", cfg.Store.LevelDBPath)
		assert.Equal(t, "bitcoin_writer", cfg.MetricsNamespace)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "store: [unterminated"))
		require.Error(t, err)
	})

	t.Run("invalid values are rejected", func(t *testing.T) {
		_, err := Load(writeConfig(t, "chain: regtest\n"))
		require.ErrorIs(t, err, ErrInvalidChain)
	})
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(envMap(map[string]string{
		"BWRITER_CHAIN":          "test",
		"BWRITER_PRIVATE_KEY":    testKey,
		"BWRITER_STORE_BACKEND":  "s3",
		"BWRITER_S3_BUCKET":      "writer-backups",
		"BWRITER_S3_REGION":      "eu-west-1",
		"BWRITER_SEAL_TIMEOUT":   "30s",
		"BWRITER_LOG_LEVEL":      "warn",
		"BWRITER_MONGO_DATABASE": "ignored_but_set",
	}))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ChainTest, cfg.Chain)
	assert.Equal(t, testKey, cfg.PrivateKey)
	assert.Equal(t, 30*time.Second, cfg.SealTimeout)
	assert.Equal(t, slog.LevelWarn, cfg.Level())

	opts := cfg.StorageOptions()
	assert.Equal(t, storage.BackendS3, opts.Backend)
	assert.Equal(t, "writer-backups", opts.S3Bucket)
	assert.Equal(t, "eu-west-1", opts.S3Region)
	assert.Equal(t, storage.DefaultS3Prefix, opts.S3Prefix)
	assert.Equal(t, "ignored_but_set", opts.MongoDatabase)
}

func TestApplyEnvInvalidDuration(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(envMap(map[string]string{"BWRITER_SEAL_TIMEOUT": "soon"}))
	require.Error(t, err)
	assert.Equal(t, 2*time.Minute, cfg.SealTimeout)
}

func TestLoadEnvWinsOverFile(t *testing.T) {
	t.Setenv("BWRITER_LOG_LEVEL", "error")
	cfg, err := Load(writeConfig(t, "log_level: debug\n"))
	require.NoError(t, err)
	assert.Equal(t, slog.LevelError, cfg.Level())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"defaults", func(*Config) {}, nil},
		{"bad chain", func(c *Config) { c.Chain = "regtest" }, ErrInvalidChain},
		{"short key", func(c *Config) { c.PrivateKey = "abc" }, ErrInvalidPrivateKey},
		{"non hex key", func(c *Config) { c.PrivateKey = strings.Repeat("z", 64) }, ErrInvalidPrivateKey},
		{"zero timeout", func(c *Config) { c.SealTimeout = 0 }, ErrInvalidSealTimeout},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, ErrInvalidLogLevel},
		{"unknown backend", func(c *Config) { c.Store.Backend = "redis" }, ErrInvalidBackend},
		{"leveldb without path", func(c *Config) {
			c.Store.Backend = storage.BackendLevelDB
			c.Store.LevelDBPath = ""
		}, ErrMissingStoreOption},
		{"mongo without uri", func(c *Config) { c.Store.Backend = storage.BackendMongo }, ErrMissingStoreOption},
		{"mongo complete", func(c *Config) {
			c.Store.Backend = storage.BackendMongo
			c.Store.MongoURI = "mongodb://localhost:27017"
		}, nil},
		{"s3 without bucket", func(c *Config) { c.Store.Backend = storage.BackendS3 }, ErrMissingStoreOption},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":        slog.LevelInfo,
		"debug":   slog.LevelDebug,
		" INFO ":  slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for name, want := range tests {
		got, err := ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseLevel("trace")
	assert.ErrorIs(t, err, ErrInvalidLogLevel)
}

func FuzzLoadYAML(f *testing.F) {
	f.Add("chain: test\n")
	f.Add("store:\n  backend: mongo\n")
	f.Add("seal_timeout: -1s\n")
	f.Add("{")

	f.Fuzz(func(t *testing.T, body string) {
		path := filepath.Join(t.TempDir(), "fuzz.yaml")
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			t.Skip()
		}
		cfg, err := Load(path)
		if err != nil {
			return
		}
		if cfg.Validate() != nil {
			t.Errorf("Load returned a config that fails validation")
		}
	})
}
