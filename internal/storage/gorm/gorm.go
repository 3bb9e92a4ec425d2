// Package gormstorage implements the storage.Backend interface on any GORM dialect.
// The snapshot row is the source of truth; memory_points is rewritten alongside it
// in the same transaction so the collection can be queried spatially.
package gormstorage

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/littleexplorer/atlas/internal/database"
	"github.com/littleexplorer/atlas/internal/logging"
	"github.com/littleexplorer/atlas/internal/model"
	"github.com/littleexplorer/atlas/internal/model/convert"
	"github.com/littleexplorer/atlas/internal/storage"
	"github.com/littleexplorer/atlas/pkg/core"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB         *gorm.DB
	Key        string
	LogManager *logging.SlogManager
}

// Backend implements storage.Backend on a GORM connection.
type Backend struct {
	deps    Dependencies
	dbReady atomic.Bool
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Key == "" {
		deps.Key = storage.DefaultKey
	}
	return &Backend{
		deps: deps,
	}
}

// Init runs schema migration.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return fmt.Errorf("gorm backend: no database")
	}

	b.log("info", "migrating schema")
	if err := database.Migrate(b.deps.DB); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}
	b.dbReady.Store(true)
	b.log("info", "database setup complete")
	return nil
}

// Close marks the backend unusable. The connection is owned by whoever opened it.
func (b *Backend) Close() error {
	b.dbReady.Store(false)
	return nil
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Key returns the snapshot key.
func (b *Backend) Key() string {
	return b.deps.Key
}

// Load reads the snapshot row.
func (b *Backend) Load(ctx context.Context) ([]core.Memory, error) {
	if !b.dbReady.Load() {
		return nil, fmt.Errorf("gorm backend not initialized")
	}

	var snap model.Snapshot
	err := b.deps.DB.WithContext(ctx).
		Where("snapshot_key = ?", b.deps.Key).
		First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return storage.Decode(snap.Data)
}

// Save upserts the snapshot and replaces its memory_points in one transaction.
func (b *Backend) Save(ctx context.Context, memories []core.Memory) error {
	if !b.dbReady.Load() {
		return fmt.Errorf("gorm backend not initialized")
	}

	data, err := storage.Encode(memories)
	if err != nil {
		return err
	}
	points, err := convert.MemoriesToPoints(b.deps.Key, memories)
	if err != nil {
		return fmt.Errorf("failed to convert memories: %w", err)
	}

	snap := model.Snapshot{
		Key:   b.deps.Key,
		Data:  datatypes.JSON(data),
		Count: len(memories),
	}

	err = b.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "snapshot_key"}},
			UpdateAll: true,
		}).Create(&snap).Error; err != nil {
			return fmt.Errorf("error upserting snapshot: %w", err)
		}
		if err := tx.Where("snapshot_key = ?", b.deps.Key).Delete(&model.MemoryPoint{}).Error; err != nil {
			return fmt.Errorf("error clearing memory points: %w", err)
		}
		if len(points) == 0 {
			return nil
		}
		if err := tx.Create(&points).Error; err != nil {
			return fmt.Errorf("error creating memory points: %w", err)
		}
		return nil
	})
	if err != nil {
		b.log("error", "saving snapshot failed", "key", b.deps.Key, "error", err)
		return err
	}

	b.log("debug", "snapshot saved", "key", b.deps.Key, "memories", len(memories))
	return nil
}

// Points returns the memory_points rows of the snapshot in collection order.
func (b *Backend) Points(ctx context.Context) ([]model.MemoryPoint, error) {
	if !b.dbReady.Load() {
		return nil, fmt.Errorf("gorm backend not initialized")
	}

	var points []model.MemoryPoint
	err := b.deps.DB.WithContext(ctx).
		Where("snapshot_key = ?", b.deps.Key).
		Order("ordinal").
		Find(&points).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load memory points: %w", err)
	}
	return points, nil
}

func (b *Backend) log(level, msg string, args ...any) {
	if b.deps.LogManager == nil {
		return
	}
	b.deps.LogManager.Log(level, "gorm", msg, args...)
}
