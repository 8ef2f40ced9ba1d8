// Package command provides CLI command definitions for confstore-cli.
//
// It uses urfave/cli/v2 for command parsing. Every command operates on
// a snapshot held by one of the persistence backends; the backend is
// selected by the config file or the global flags.
package command

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/confmesh/confstore-go/internal/core/domain"
	"github.com/confmesh/confstore-go/internal/core/service"
	"github.com/confmesh/confstore-go/internal/infra/buildinfo"
	"github.com/confmesh/confstore-go/internal/infra/confloader"
	"github.com/confmesh/confstore-go/internal/storage"
	"github.com/confmesh/confstore-go/internal/telemetry/logger"
	"github.com/confmesh/confstore-go/pkg/crypto/aescbc"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "confstore-cli",
		Usage:   "inspect and convert confstore snapshots",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			ExportCommand(),
			ImportCommand(),
			InspectCommand(),
			KeygenCommand(),
		},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "config file (YAML)",
			EnvVars: []string{"CONFSTORE_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "snapshot",
			Aliases: []string{"s"},
			Usage:   "snapshot file (shorthand for the file backend)",
			EnvVars: []string{"CONFSTORE_SNAPSHOT"},
		},
		&cli.StringFlag{
			Name:    "key-hex",
			Usage:   "encryption key, hex encoded",
			EnvVars: []string{"CONFSTORE_KEY_HEX"},
		},
		&cli.StringFlag{
			Name:    "passphrase",
			Usage:   "encryption passphrase (requires --salt-hex to reproduce a key)",
			EnvVars: []string{"CONFSTORE_PASSPHRASE"},
		},
		&cli.StringFlag{
			Name:    "salt-hex",
			Usage:   "salt for passphrase key derivation, hex encoded",
			EnvVars: []string{"CONFSTORE_SALT_HEX"},
		},
		&cli.StringFlag{
			Name:  "algorithm",
			Usage: "encryption algorithm: aes-128-cbc or aes-256-cbc",
			Value: "aes-256-cbc",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format: table, json, yaml",
			Value:   "table",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "enable debug logging",
		},
	}
}

// loadCLIConfig merges the config file with the global flag overrides.
func loadCLIConfig(c *cli.Context) (confloader.Config, error) {
	cfg := confloader.DefaultConfig()
	if path := c.String("config"); path != "" {
		loaded, err := confloader.LoadConfig(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if snap := c.String("snapshot"); snap != "" {
		cfg.Storage.Backend = confloader.BackendFile
		cfg.Storage.Path = snap
	}
	if c.Bool("verbose") {
		cfg.Log.Level = "debug"
	}
	if v := c.String("key-hex"); v != "" {
		cfg.Encryption.KeyHex = v
	}
	if v := c.String("passphrase"); v != "" {
		cfg.Encryption.Passphrase = v
	}
	if v := c.String("salt-hex"); v != "" {
		cfg.Encryption.SaltHex = v
	}
	cfg.Encryption.Algorithm = c.String("algorithm")
	return cfg, cfg.Validate()
}

// newBackend builds the configured persistence backend.
func newBackend(cfg confloader.Config, log logger.Logger) (service.Backend, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Storage.Backend {
	case confloader.BackendRAM:
		return storage.NewRAM(), noop, nil
	case confloader.BackendFile:
		b, err := storage.NewFile(cfg.Storage.Path, log)
		if err != nil {
			return nil, nil, err
		}
		return b, noop, nil
	case confloader.BackendBadger:
		b, err := storage.NewBadger(cfg.Storage.Badger, log)
		if err != nil {
			return nil, nil, err
		}
		return b, b.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown backend %q", cfg.Storage.Backend)
}

// openManager builds an initialized Manager from the CLI configuration,
// installs the encryption key if one is configured, and loads the
// snapshot. The returned close function releases the backend.
func openManager(c *cli.Context, loadSnapshot bool) (*service.Manager, func() error, error) {
	cfg, err := loadCLIConfig(c)
	if err != nil {
		return nil, nil, err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}

	backend, closeBackend, err := newBackend(cfg, log)
	if err != nil {
		return nil, nil, err
	}

	m := service.New(
		service.WithLimits(cfg.Store),
		service.WithLogger(log),
		service.WithBackend(backend),
	)
	if err := m.Init(); err != nil {
		closeBackend()
		return nil, nil, err
	}

	if err := installKey(m, cfg.Encryption); err != nil {
		closeBackend()
		return nil, nil, err
	}

	if loadSnapshot {
		if err := m.Load(); err != nil && !errors.Is(err, domain.ErrNotFound) {
			closeBackend()
			return nil, nil, err
		}
	}
	return m, closeBackend, nil
}

// installKey applies the encryption section of the config.
func installKey(m *service.Manager, cfg confloader.EncryptionConfig) error {
	if cfg.KeyHex == "" && cfg.Passphrase == "" {
		return nil
	}
	algorithm, err := aescbc.ParseAlgorithm(cfg.Algorithm)
	if err != nil {
		return err
	}

	if cfg.KeyHex != "" {
		key, err := hex.DecodeString(cfg.KeyHex)
		if err != nil {
			return fmt.Errorf("decode key-hex: %w", err)
		}
		defer aescbc.ZeroKey(key)
		return m.SetEncryptionKey(key, algorithm)
	}

	var salt []byte
	if cfg.SaltHex != "" {
		salt, err = hex.DecodeString(cfg.SaltHex)
		if err != nil {
			return fmt.Errorf("decode salt-hex: %w", err)
		}
	}
	usedSalt, err := m.SetEncryptionPassphrase(cfg.Passphrase, salt, algorithm)
	if err != nil {
		return err
	}
	if cfg.SaltHex == "" {
		// A generated salt must be saved or the key is unrecoverable.
		fmt.Fprintf(os.Stderr, "derived new salt: %s\n", hex.EncodeToString(usedSalt))
	}
	return nil
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
