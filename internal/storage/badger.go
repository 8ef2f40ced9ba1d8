package storage

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v3"

	"github.com/confmesh/confstore-go/internal/core/domain"
	"github.com/confmesh/confstore-go/internal/telemetry/logger"
)

// snapshotKey is the single key the Badger backend writes.
var snapshotKey = []byte("confstore/snapshot")

// Badger persists snapshots in an embedded Badger database. The whole
// configuration set is one value under a fixed key, so Commit is one
// transaction and readers always see a complete snapshot.
type Badger struct {
	db  *badger.DB
	log logger.Logger
}

// BadgerConfig configures the embedded database.
type BadgerConfig struct {
	Dir        string `koanf:"dir"`
	SyncWrites bool   `koanf:"sync_writes"`
	InMemory   bool   `koanf:"in_memory"`
}

// NewBadger opens (or creates) the database at cfg.Dir.
func NewBadger(cfg BadgerConfig, log logger.Logger) (*Badger, error) {
	if cfg.Dir == "" && !cfg.InMemory {
		return nil, domain.ErrInvalidParameter.WithDetails("badger dir is required")
	}
	if log == nil {
		log = logger.Default()
	}

	opts := badger.DefaultOptions(cfg.Dir)
	opts.SyncWrites = cfg.SyncWrites
	opts.InMemory = cfg.InMemory
	if cfg.InMemory {
		opts.Dir = ""
		opts.ValueDir = ""
	}
	opts.Logger = &badgerLogger{log: log.With("component", "badger")}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}
	log.Info("badger backend opened", "dir", cfg.Dir, "in_memory", cfg.InMemory)
	return &Badger{db: db, log: log}, nil
}

// Commit replaces the stored snapshot in one transaction.
func (b *Badger) Commit(data []byte) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(snapshotKey, data)
	})
	if err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

// Load returns the stored snapshot.
func (b *Badger) Load() ([]byte, error) {
	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(snapshotKey)
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return domain.ErrNotFound.WithDetails("no snapshot committed")
			}
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return data, nil
}

// Close closes the database.
func (b *Badger) Close() error {
	return b.db.Close()
}

// badgerLogger adapts logger.Logger to Badger's Logger interface.
type badgerLogger struct {
	log logger.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, args...))
}
