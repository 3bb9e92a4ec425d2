// Package sqlitestorage implements the storage.Backend interface using a local SQLite file.
// It wraps the GORM backend via composition; the only SQLite-specific concerns are
// opening the file with the right pragmas and taking VACUUM INTO backups.
package sqlitestorage

import (
	"fmt"
	"time"

	"github.com/littleexplorer/atlas/internal/database"
	"github.com/littleexplorer/atlas/internal/logging"
	gormstorage "github.com/littleexplorer/atlas/internal/storage/gorm"

	"gorm.io/gorm"
)

// Config holds configuration for the SQLite storage backend.
type Config struct {
	Path string // empty opens a shared in-memory database
	Key  string
}

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	db  *gorm.DB
	cfg Config
	log *logging.SlogManager
}

// New opens the SQLite database and creates the backend.
func New(cfg Config, logManager *logging.SlogManager) (*Backend, error) {
	db, err := database.OpenSQLite(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite DB: %w", err)
	}

	gormBackend := gormstorage.New(gormstorage.Dependencies{
		DB:         db,
		Key:        cfg.Key,
		LogManager: logManager,
	})

	return &Backend{
		Backend: gormBackend,
		db:      db,
		cfg:     cfg,
		log:     logManager,
	}, nil
}

// Close closes the embedded GORM backend and the database file.
func (b *Backend) Close() error {
	if err := b.Backend.Close(); err != nil {
		return err
	}
	sqlDB, err := b.db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	return sqlDB.Close()
}

// Backup writes a point-in-time copy of the database to path via VACUUM INTO.
func (b *Backend) Backup(path string) error {
	start := time.Now()
	if err := database.Backup(b.db, path); err != nil {
		if b.log != nil {
			b.log.Log("error", "sqlite", "backup failed", "path", path, "error", err)
		}
		return err
	}
	if b.log != nil {
		b.log.Log("debug", "sqlite", "backup written", "path", path, "took", time.Since(start))
	}
	return nil
}
