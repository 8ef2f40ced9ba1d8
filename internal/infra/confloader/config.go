package confloader

import (
	"fmt"

	"github.com/confmesh/confstore-go/internal/core/domain"
	"github.com/confmesh/confstore-go/internal/storage"
	"github.com/confmesh/confstore-go/internal/telemetry/logger"
)

// Backend names accepted in StorageConfig.Backend.
const (
	BackendRAM    = "ram"
	BackendFile   = "file"
	BackendBadger = "badger"
)

// Config is the full application configuration.
type Config struct {
	Store      domain.Limits    `koanf:"store"`
	Log        logger.Config    `koanf:"log"`
	Storage    StorageConfig    `koanf:"storage"`
	Encryption EncryptionConfig `koanf:"encryption"`
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	// Backend is one of "ram", "file", or "badger".
	Backend string `koanf:"backend"`

	// Path is the snapshot file for the file backend.
	Path string `koanf:"path"`

	Badger storage.BadgerConfig `koanf:"badger"`
}

// EncryptionConfig configures the optional value encryption.
type EncryptionConfig struct {
	// Algorithm is "aes-128-cbc" or "aes-256-cbc".
	Algorithm string `koanf:"algorithm"`

	// KeyHex is the raw key, hex encoded. Mutually exclusive with
	// Passphrase.
	KeyHex string `koanf:"key_hex"`

	// Passphrase derives the key with argon2id. SaltHex must be set
	// alongside it to reproduce a previous derivation.
	Passphrase string `koanf:"passphrase"`
	SaltHex    string `koanf:"salt_hex"`
}

// DefaultConfig returns the configuration used when no source sets a
// value.
func DefaultConfig() Config {
	return Config{
		Store: domain.DefaultLimits(),
		Log:   logger.DefaultConfig(),
		Storage: StorageConfig{
			Backend: BackendRAM,
		},
		Encryption: EncryptionConfig{
			Algorithm: "aes-256-cbc",
		},
	}
}

// Validate checks cross-field constraints that koanf cannot express.
func (c *Config) Validate() error {
	if err := c.Store.Verify(); err != nil {
		return err
	}

	switch c.Storage.Backend {
	case BackendRAM:
	case BackendFile:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage: file backend requires a path")
		}
	case BackendBadger:
		if c.Storage.Badger.Dir == "" && !c.Storage.Badger.InMemory {
			return fmt.Errorf("storage: badger backend requires a dir")
		}
	default:
		return fmt.Errorf("storage: unknown backend %q", c.Storage.Backend)
	}

	if c.Encryption.KeyHex != "" && c.Encryption.Passphrase != "" {
		return fmt.Errorf("encryption: key_hex and passphrase are mutually exclusive")
	}
	return nil
}

// LoadConfig loads the full application configuration with defaults
// applied.
func LoadConfig(filePath string) (Config, error) {
	cfg := DefaultConfig()
	l := NewLoader(WithConfigFile(filePath))
	if err := l.Load(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}
