// Package storage defines the persistence interfaces the service relies on.
// It abstracts row storage and transaction management so different backends
// (PostgreSQL in this repo) can provide implementations.
//
//go:generate mockgen -package mockstorage -source=interface.go -destination=mock/mockstorage.go *
package storage

import "context"

// AllStorage composes every domain-specific storage capability the service
// needs. Implementations typically embed the narrower interfaces.
type AllStorage interface {
	ResearchStorage
	JobStorage
}

// TxStorage is a storage handle bound to a database transaction. It becomes
// unusable after Commit or Rollback.
type TxStorage interface {
	AllStorage

	// Commit finalizes the transaction.
	Commit() error
	// Rollback aborts the transaction.
	Rollback() error
}

// Storage is a non-transactional storage handle that can start transactions
// and manages the lifecycle of the underlying pool.
type Storage interface {
	AllStorage

	// Close releases the underlying connection pool. The instance must not be
	// used afterwards.
	Close() error

	// Begin starts a transaction and returns a handle scoped to it.
	Begin(ctx context.Context) (TxStorage, error)
	// WithTx begins a transaction, runs cb against it and commits on success
	// or rolls back when cb returns an error.
	WithTx(ctx context.Context, cb func(storage AllStorage) error) error
}
