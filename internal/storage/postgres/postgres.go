// Package postgres implements the storage.Backend interface on PostgreSQL.
// It owns its connection when none is injected and otherwise behaves exactly like the GORM backend.
package postgres

import (
	"fmt"

	"github.com/littleexplorer/atlas/internal/config"
	"github.com/littleexplorer/atlas/internal/database"
	"github.com/littleexplorer/atlas/internal/logging"
	gormstorage "github.com/littleexplorer/atlas/internal/storage/gorm"

	"gorm.io/gorm"
)

// Dependencies holds all dependencies for the Postgres storage backend.
type Dependencies struct {
	DB         *gorm.DB // optional; opened from DBConfig when nil
	DBConfig   config.DBConfig
	Key        string
	LogManager *logging.SlogManager
}

// Backend implements storage.Backend using GORM/PostgreSQL.
type Backend struct {
	*gormstorage.Backend
	deps  Dependencies
	owned bool
}

// New creates a new Postgres storage backend. No connection is made until Init.
func New(deps Dependencies) *Backend {
	return &Backend{deps: deps}
}

// Init connects if needed, then runs schema migration.
// If no DB was injected via Dependencies, it creates its own postgres connection.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		db, err := database.OpenPostgres(b.deps.DBConfig)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to access sql interface: %w", err)
		}
		if err = sqlDB.Ping(); err != nil {
			return fmt.Errorf("failed to validate connection: %w", err)
		}
		sqlDB.SetMaxOpenConns(10)
		b.deps.DB = db
		b.owned = true
	}

	b.Backend = gormstorage.New(gormstorage.Dependencies{
		DB:         b.deps.DB,
		Key:        b.deps.Key,
		LogManager: b.deps.LogManager,
	})
	return b.Backend.Init()
}

// Close closes the connection if this backend opened it.
func (b *Backend) Close() error {
	if b.Backend != nil {
		if err := b.Backend.Close(); err != nil {
			return err
		}
	}
	if !b.owned {
		return nil
	}
	sqlDB, err := b.deps.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	return sqlDB.Close()
}
