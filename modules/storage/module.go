package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/collab-template-demo/domain/room"
)

// StorageModule is the persistence adapter backed by GORM + SQLite.
type StorageModule struct {
	db     *gorm.DB
	repo   *Repository
	dbPath string
	debug  bool
	logger types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*StorageModule)(nil)
var _ mono.ServiceProviderModule = (*StorageModule)(nil)
var _ mono.HealthCheckableModule = (*StorageModule)(nil)

// NewModule creates a new StorageModule.
func NewModule(dbPath string, debug bool, logger types.Logger) *StorageModule {
	return &StorageModule{
		dbPath: dbPath,
		debug:  debug,
		logger: logger,
	}
}

// Name returns the module name.
func (m *StorageModule) Name() string {
	return "storage"
}

// Open connects to the sqlite file at path and migrates the schema.
func Open(path string, debug bool) (*gorm.DB, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	logLevel := logger.Silent
	if debug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	// One connection: sqlite has a single writer and :memory: databases are per connection.
	sqlDB.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if err := db.AutoMigrate(&RoomRow{}, &MessageRow{}, &UserLogRow{}); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// Start opens the database. Failure aborts application start.
func (m *StorageModule) Start(_ context.Context) error {
	m.logger.Info("Connecting to SQLite database", "path", m.dbPath)

	db, err := Open(m.dbPath, m.debug)
	if err != nil {
		return err
	}
	m.db = db
	m.repo = NewRepository(db)

	m.logger.Info("Storage module started")
	return nil
}

// Stop closes the database connection.
func (m *StorageModule) Stop(_ context.Context) error {
	if m.db == nil {
		return nil
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	m.logger.Info("Database connection closed")
	return nil
}

// Health pings the database.
func (m *StorageModule) Health(ctx context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "database not initialized",
		}
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("failed to get sql.DB: %v", err),
		}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"driver": "sqlite",
			"path":   m.dbPath,
		},
	}
}

// Repository returns the underlying repository. Nil before Start.
func (m *StorageModule) Repository() *Repository {
	return m.repo
}

// The methods below let the session engine use the module directly as its store.

// GetOrCreateRoom implements the room lookup/creation operation.
func (m *StorageModule) GetOrCreateRoom(ctx context.Context, id, defaultDocument string) (room.Record, bool, error) {
	return m.repo.GetOrCreateRoom(ctx, id, defaultDocument)
}

// UpdateDocument stores a room's document.
func (m *StorageModule) UpdateDocument(ctx context.Context, id, document string) error {
	return m.repo.UpdateDocument(ctx, id, document)
}

// DeleteRoom removes a room and its history.
func (m *StorageModule) DeleteRoom(ctx context.Context, id string) error {
	return m.repo.DeleteRoom(ctx, id)
}

// SaveMessage appends a message.
func (m *StorageModule) SaveMessage(ctx context.Context, msg room.Message) (room.Message, error) {
	return m.repo.SaveMessage(ctx, msg)
}

// RecentMessages returns a room's newest messages oldest-first.
func (m *StorageModule) RecentMessages(ctx context.Context, roomID string, limit int) ([]room.Message, error) {
	return m.repo.RecentMessages(ctx, roomID, limit)
}

// LogPresence appends a presence row.
func (m *StorageModule) LogPresence(ctx context.Context, ev room.PresenceEvent) error {
	return m.repo.LogPresence(ctx, ev)
}

// PurgeMessages deletes messages older than days.
func (m *StorageModule) PurgeMessages(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, fmt.Errorf("retention days must be positive, got %d", days)
	}
	cutoff := time.Now().Add(-time.Duration(days) * 24 * time.Hour)
	return m.repo.DeleteMessagesBefore(ctx, cutoff)
}

// Optimize runs sqlite maintenance.
func (m *StorageModule) Optimize(ctx context.Context) error {
	return m.repo.Optimize(ctx)
}

// Stats returns table counts and the database path.
func (m *StorageModule) Stats(ctx context.Context) (Stats, error) {
	s, err := m.repo.Counts(ctx)
	if err != nil {
		return Stats{}, err
	}
	s.DBPath = m.dbPath
	return s, nil
}
