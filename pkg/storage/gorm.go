package storage

import (
	"context"
	"fmt"
	"sync"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jdziat/simple-durable-jobstore/pkg/core"
)

// Supported dialects for Open.
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

// GormStorage implements core.Storage using GORM.
type GormStorage struct {
	db    *gorm.DB
	retry RetryConfig

	// writeMu serializes write units; the database is treated as single-writer.
	writeMu sync.Mutex
}

// StorageOption configures a GormStorage.
type StorageOption interface {
	applyStorage(*GormStorage)
}

type storageOptionFunc func(*GormStorage)

func (f storageOptionFunc) applyStorage(s *GormStorage) { f(s) }

// WithRetry sets the busy-database retry policy for write units.
func WithRetry(c RetryConfig) StorageOption {
	return storageOptionFunc(func(s *GormStorage) {
		s.retry = c
	})
}

// NewGormStorage creates a new GORM-backed storage.
func NewGormStorage(db *gorm.DB, opts ...StorageOption) *GormStorage {
	s := &GormStorage{db: db, retry: DefaultRetryConfig()}
	for _, opt := range opts {
		opt.applyStorage(s)
	}
	return s
}

// Open connects to a database with the given dialect and DSN and sizes its
// pool with PoolConfigFor the dialect, adjusted by opts. A nil cfg silences
// gorm logging.
func Open(dialect, dsn string, cfg *gorm.Config, opts ...PoolOption) (*gorm.DB, error) {
	if cfg == nil {
		cfg = &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	}

	var dialector gorm.Dialector
	switch dialect {
	case DialectSQLite, "":
		dialector = sqlite.Open(dsn)
	case DialectPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("storage: unsupported dialect %q", dialect)
	}

	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", dialect, err)
	}
	if err := ConfigurePool(db, opts...); err != nil {
		return nil, err
	}
	return db, nil
}

// DB returns the underlying connection.
func (s *GormStorage) DB() *gorm.DB {
	return s.db
}

// IsSQLite reports whether the storage runs on SQLite.
func (s *GormStorage) IsSQLite() bool {
	return s.db.Dialector.Name() == DialectSQLite
}

// Migrate creates the necessary tables.
func (s *GormStorage) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&JobRecord{}, &TriggerRecord{}, &SchedulerRecord{})
}

// Read runs fn without taking the write lock. Readers may observe the state
// before or after a concurrent write unit, never a partial one.
func (s *GormStorage) Read(ctx context.Context, instance string, fn func(tx core.Tx) error) error {
	return fn(&gormTx{db: s.db.WithContext(ctx), scheduler: instance})
}

// Write runs fn in a transaction under the write lock, retrying the whole
// unit while the database reports it is busy.
func (s *GormStorage) Write(ctx context.Context, instance string, fn func(tx core.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return retryWithBackoff(ctx, s.retry, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(&gormTx{db: tx, scheduler: instance})
		})
	}, IsBusyError)
}

// Instances lists the scheduler instance names that have a record.
func (s *GormStorage) Instances(ctx context.Context) ([]string, error) {
	var names []string
	err := s.db.WithContext(ctx).
		Model(&SchedulerRecord{}).
		Order("instance_name").
		Pluck("instance_name", &names).Error
	return names, err
}

var _ core.Storage = (*GormStorage)(nil)
