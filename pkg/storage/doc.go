// Package storage provides the persistence layer for the trigger store.
//
// This package includes:
//   - GormStorage: a GORM-based implementation of core.Storage for SQLite and PostgreSQL
//   - Record types for jobs, triggers and scheduler instances
//   - Connection pool and busy-retry configuration
//
// Writes are serialized by GormStorage itself and commit in one transaction,
// so a single process may share one GormStorage between many goroutines.
//
// Most users should import the root package github.com/jdziat/simple-durable-jobstore
// which provides NewGormStorage() to create storage instances.
package storage
