package storage

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// PoolConfig holds connection pool settings for a store database.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// SingleWriterPoolConfig returns pool settings for SQLite: one connection
// that is never recycled. Required for ":memory:" databases, where every new
// connection would see an empty database.
func SingleWriterPoolConfig() PoolConfig {
	return PoolConfig{MaxOpenConns: 1, MaxIdleConns: 1}
}

// ServerPoolConfig returns pool settings for a database server. Writes are
// serialized by GormStorage, so the extra connections serve readers only.
func ServerPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConns:    8,
		MaxIdleConns:    4,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
	}
}

// PoolConfigFor returns the preset for a gorm dialector name.
func PoolConfigFor(dialect string) PoolConfig {
	if dialect == DialectSQLite {
		return SingleWriterPoolConfig()
	}
	return ServerPoolConfig()
}

// PoolOption adjusts the preset chosen for a connection.
type PoolOption interface {
	applyPool(*PoolConfig)
}

type poolOptionFunc func(*PoolConfig)

func (f poolOptionFunc) applyPool(c *PoolConfig) { f(c) }

// MaxOpenConns sets the maximum number of open connections.
func MaxOpenConns(n int) PoolOption {
	return poolOptionFunc(func(c *PoolConfig) { c.MaxOpenConns = n })
}

// MaxIdleConns sets the maximum number of idle connections.
func MaxIdleConns(n int) PoolOption {
	return poolOptionFunc(func(c *PoolConfig) { c.MaxIdleConns = n })
}

// ConnMaxLifetime sets how long a connection may be reused. Zero keeps
// connections forever.
func ConnMaxLifetime(d time.Duration) PoolOption {
	return poolOptionFunc(func(c *PoolConfig) { c.ConnMaxLifetime = d })
}

// ConnMaxIdleTime sets how long a connection may sit idle.
func ConnMaxIdleTime(d time.Duration) PoolOption {
	return poolOptionFunc(func(c *PoolConfig) { c.ConnMaxIdleTime = d })
}

// WithPoolConfig replaces the preset. Options after it still apply on top.
func WithPoolConfig(preset PoolConfig) PoolOption {
	return poolOptionFunc(func(c *PoolConfig) { *c = preset })
}

// ConfigurePool applies the preset for db's dialect, then opts, to the
// underlying *sql.DB.
func ConfigurePool(db *gorm.DB, opts ...PoolOption) error {
	config := PoolConfigFor(db.Dialector.Name())
	for _, opt := range opts {
		opt.applyPool(&config)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("storage: get *sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(config.MaxOpenConns)
	sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(config.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(config.ConnMaxIdleTime)
	return nil
}
