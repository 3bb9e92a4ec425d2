package main

import (
	"fmt"
	"os"

	"github.com/littleexplorer/atlas/internal/config"
	"github.com/littleexplorer/atlas/internal/database"
	"github.com/littleexplorer/atlas/internal/logging"
	"github.com/littleexplorer/atlas/internal/storage"
	gormstorage "github.com/littleexplorer/atlas/internal/storage/gorm"
	"github.com/littleexplorer/atlas/internal/storage/memory"
	pgstorage "github.com/littleexplorer/atlas/internal/storage/postgres"
	sqlitestorage "github.com/littleexplorer/atlas/internal/storage/sqlite"
)

// createStorageBackend returns the configured backend and the name of the store actually in use.
// Postgres falls back to the local SQLite file when the server cannot be reached.
func createStorageBackend(storageCfg config.StorageConfig, dbCfg config.DBConfig) (storage.Backend, string, error) {
	switch storageCfg.Type {
	case "postgres":
		mgr := database.NewManager(logging.NewZerolog(os.Stderr, logLevel()), storageCfg.SQLite.Path)
		if err := mgr.Connect(dbCfg); err != nil {
			return nil, "", fmt.Errorf("failed to connect to database: %w", err)
		}
		if mgr.Local {
			Logger.Warn("Postgres unavailable, using local SQLite", "path", storageCfg.SQLite.Path)
			return &managedBackend{
				Backend: gormstorage.New(gormstorage.Dependencies{
					DB:         mgr.DB,
					Key:        storageCfg.Key,
					LogManager: SlogManager,
				}),
				mgr: mgr,
			}, "sqlite", nil
		}
		return &managedBackend{
			Backend: pgstorage.New(pgstorage.Dependencies{
				DB:         mgr.DB,
				DBConfig:   dbCfg,
				Key:        storageCfg.Key,
				LogManager: SlogManager,
			}),
			mgr: mgr,
		}, "postgres", nil

	case "sqlite":
		backend, err := sqlitestorage.New(sqlitestorage.Config{
			Path: storageCfg.SQLite.Path,
			Key:  storageCfg.Key,
		}, SlogManager)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		return backend, "sqlite", nil

	case "memory", "":
		return memory.New(storageCfg.Memory, storageCfg.Key), "memory", nil

	default:
		return nil, "", fmt.Errorf("unknown storage type %q", storageCfg.Type)
	}
}

// managedBackend closes the connection pool opened by database.Manager along with the backend.
type managedBackend struct {
	storage.Backend
	mgr *database.Manager
}

func (b *managedBackend) Close() error {
	if err := b.Backend.Close(); err != nil {
		_ = b.mgr.Close()
		return err
	}
	return b.mgr.Close()
}

// Backup forwards to the database dump when the backend is file or memory SQLite.
func (b *managedBackend) Backup(path string) error {
	if !b.mgr.Local {
		return fmt.Errorf("backup is only supported for SQLite journals")
	}
	return b.mgr.Backup(path)
}
