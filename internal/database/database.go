package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/littleexplorer/atlas/internal/config"
	"github.com/littleexplorer/atlas/internal/model"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// PingTimeout bounds how long Connect waits for Postgres before falling back.
var PingTimeout = 5 * time.Second

// ErrNoBackupPath is returned by Backup when no destination is given.
var ErrNoBackupPath = errors.New("backup path not set")

// Manager owns the journal database connection. It prefers Postgres and falls back
// to a local SQLite file so the journal stays writable offline.
type Manager struct {
	DB        *gorm.DB
	SQL       *sql.DB
	Ready     bool
	Local     bool // true once the SQLite fallback is in use
	LocalPath string
	Logger    zerolog.Logger
}

// NewManager creates a manager. localPath is the SQLite fallback file; empty means in memory.
func NewManager(log zerolog.Logger, localPath string) *Manager {
	return &Manager{LocalPath: localPath, Logger: log}
}

// Connect opens Postgres, or the local SQLite file if Postgres cannot be opened or pinged.
func (m *Manager) Connect(cfg config.DBConfig) error {
	m.Logger.Debug().
		Str("host", cfg.Host).
		Str("port", cfg.Port).
		Str("database", cfg.Database).
		Msg("connecting to postgres")

	db, err := OpenPostgres(cfg)
	if err != nil {
		m.Logger.Warn().Err(err).Msg("postgres unavailable, using local sqlite")
		return m.useLocal()
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), PingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		m.Logger.Warn().Err(err).Msg("postgres did not answer, using local sqlite")
		return m.useLocal()
	}

	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	m.DB, m.SQL, m.Ready = db, sqlDB, true
	m.Logger.Info().Msg("connected to postgres")
	return nil
}

func (m *Manager) useLocal() error {
	m.Local = true
	db, err := OpenSQLite(m.LocalPath)
	if err != nil {
		return fmt.Errorf("failed to open local sqlite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	m.DB, m.SQL, m.Ready = db, sqlDB, true

	if m.LocalPath == "" {
		m.Logger.Info().Msg("using in-memory sqlite")
	} else {
		m.Logger.Info().Str("path", m.LocalPath).Msg("using local sqlite")
	}
	return nil
}

// Migrate creates or updates the journal tables on the open connection.
func (m *Manager) Migrate() error {
	if err := Migrate(m.DB); err != nil {
		m.Ready = false
		return err
	}
	m.Logger.Debug().Msg("schema migrated")
	return nil
}

// Backup copies the local SQLite database to path.
func (m *Manager) Backup(path string) error {
	start := time.Now()
	if err := Backup(m.DB, path); err != nil {
		return err
	}
	m.Logger.Debug().Str("path", path).Dur("took", time.Since(start)).Msg("database backed up")
	return nil
}

func (m *Manager) Close() error {
	if m.SQL == nil {
		return nil
	}
	m.Ready = false
	return m.SQL.Close()
}

// DSN builds the Postgres connection string for cfg.
func DSN(cfg config.DBConfig) string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable connect_timeout=%d",
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database,
		int(PingTimeout/time.Second))
}

// OpenPostgres opens a pool to the journal database. It does not ping.
func OpenPostgres(cfg config.DBConfig) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  DSN(cfg),
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
}

// OpenSQLite opens the journal file at path, or a shared in-memory database when path is empty.
func OpenSQLite(path string) (*gorm.DB, error) {
	dsn := path
	if dsn == "" {
		dsn = "file::memory:?cache=shared"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	pragmas := []string{"PRAGMA foreign_keys = ON;", "PRAGMA temp_store = MEMORY;"}
	if path == "" {
		pragmas = append(pragmas, "PRAGMA journal_mode = MEMORY;")
	} else {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL;", "PRAGMA synchronous = NORMAL;")
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("setting %q: %w", pragma, err)
		}
	}

	return db, nil
}

// Migrate creates or updates all journal tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Backup writes a consistent copy of a SQLite database to path with VACUUM INTO,
// replacing any file already there.
func Backup(db *gorm.DB, path string) error {
	if path == "" {
		return ErrNoBackupPath
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing old backup: %w", err)
	}
	target := strings.ReplaceAll(path, "'", "''")
	if err := db.Exec("VACUUM INTO 'file:" + target + "';").Error; err != nil {
		return fmt.Errorf("writing backup: %w", err)
	}
	return nil
}
