// Package config loads the runtime configuration for a document chain
// service from a YAML file, with BWRITER_* environment variables applied on
// top.
//
// A missing path yields the defaults. Values from the environment always win
// over the file so deployments can inject secrets such as the private key
// without writing them to disk.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bitcoin-writer/go-document-chain/pkg/storage"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "BWRITER_"

// Chain names a BSV network.
type Chain string

const (
	ChainMain Chain = "main"
	ChainTest Chain = "test"
)

// Static errors for err113 compliance
var (
	ErrInvalidChain       = errors.New("chain must be \"main\" or \"test\"")
	ErrInvalidBackend     = errors.New("unsupported store backend")
	ErrInvalidSealTimeout = errors.New("seal timeout must be positive")
	ErrInvalidLogLevel    = errors.New("unknown log level")
	ErrInvalidPrivateKey  = errors.New("private key must be 64 hex characters")
	ErrMissingStoreOption = errors.New("missing store option")
)

// Config is the top-level configuration.
type Config struct {
	// Chain is the BSV network inscriptions are sealed on.
	Chain Chain `yaml:"chain"`

	// PrivateKey is the hex-encoded wallet key. Sealing is disabled when empty.
	PrivateKey string `yaml:"private_key"`

	Store StoreConfig `yaml:"store"`

	// SealTimeout bounds a single sealing attempt.
	SealTimeout time.Duration `yaml:"seal_timeout"`

	// LogLevel is one of debug, info, warn or error.
	LogLevel string `yaml:"log_level"`

	// MetricsNamespace prefixes every exported Prometheus metric.
	MetricsNamespace string `yaml:"metrics_namespace"`
}

// StoreConfig selects the chain store backend.
type StoreConfig struct {
	Backend storage.Backend `yaml:"backend"`

	LevelDBPath string `yaml:"leveldb_path"`

	MongoURI      string `yaml:"mongo_uri"`
	MongoDatabase string `yaml:"mongo_database"`

	S3Bucket string `yaml:"s3_bucket"`
	S3Region string `yaml:"s3_region"`
	S3Prefix string `yaml:"s3_prefix"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Chain: ChainMain,
		Store: StoreConfig{
			Backend:       storage.BackendMemory,
			LevelDBPath:   "data/chains",
			MongoDatabase: "bitcoin_writer",
			S3Prefix:      storage.DefaultS3Prefix,
		},
		SealTimeout:      2 * time.Minute,
		LogLevel:         "info",
		MetricsNamespace: "bitcoin_writer",
	}
}

// Load reads path (when non-empty) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from BWRITER_* variables resolved through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}

	if v, ok := lookup(EnvPrefix + "CHAIN"); ok {
		c.Chain = Chain(v)
	}
	str("PRIVATE_KEY", &c.PrivateKey)
	str("LOG_LEVEL", &c.LogLevel)
	str("METRICS_NAMESPACE", &c.MetricsNamespace)

	if v, ok := lookup(EnvPrefix + "STORE_BACKEND"); ok {
		c.Store.Backend = storage.Backend(v)
	}
	str("LEVELDB_PATH", &c.Store.LevelDBPath)
	str("MONGO_URI", &c.Store.MongoURI)
	str("MONGO_DATABASE", &c.Store.MongoDatabase)
	str("S3_BUCKET", &c.Store.S3Bucket)
	str("S3_REGION", &c.Store.S3Region)
	str("S3_PREFIX", &c.Store.S3Prefix)

	if v, ok := lookup(EnvPrefix + "SEAL_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %sSEAL_TIMEOUT: %w", EnvPrefix, err)
		}
		c.SealTimeout = d
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Chain {
	case ChainMain, ChainTest:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidChain, c.Chain)
	}

	if c.PrivateKey != "" && !isHexKey(c.PrivateKey) {
		return ErrInvalidPrivateKey
	}

	if c.SealTimeout <= 0 {
		return ErrInvalidSealTimeout
	}

	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}

	switch c.Store.Backend {
	case storage.BackendMemory:
	case storage.BackendLevelDB:
		if c.Store.LevelDBPath == "" {
			return fmt.Errorf("%w: leveldb_path", ErrMissingStoreOption)
		}
	case storage.BackendMongo:
		if c.Store.MongoURI == "" || c.Store.MongoDatabase == "" {
			return fmt.Errorf("%w: mongo_uri and mongo_database", ErrMissingStoreOption)
		}
	case storage.BackendS3:
		if c.Store.S3Bucket == "" {
			return fmt.Errorf("%w: s3_bucket", ErrMissingStoreOption)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidBackend, c.Store.Backend)
	}
	return nil
}

// SealingEnabled reports whether a wallet key is configured.
func (c *Config) SealingEnabled() bool {
	return c.PrivateKey != ""
}

// StorageOptions converts the store section for storage.Open.
func (c *Config) StorageOptions() storage.Options {
	return storage.Options{
		Backend:       c.Store.Backend,
		LevelDBPath:   c.Store.LevelDBPath,
		MongoURI:      c.Store.MongoURI,
		MongoDatabase: c.Store.MongoDatabase,
		S3Bucket:      c.Store.S3Bucket,
		S3Region:      c.Store.S3Region,
		S3Prefix:      c.Store.S3Prefix,
	}
}

// Level returns the configured slog level. Validate guarantees it parses.
func (c *Config) Level() slog.Level {
	level, _ := ParseLevel(c.LogLevel)
	return level
}

// ParseLevel maps a level name to slog. The empty string means info.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, name)
	}
}

func isHexKey(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
