package persistence

import (
	"context"
)

// UnitOfWork coordinates repository operations inside one database
// transaction. Begin returns a derived context carrying the transaction;
// repositories obtained with that context are bound to it.
type UnitOfWork interface {
	// Begin starts a new database transaction and returns a transactional context
	Begin(ctx context.Context) (context.Context, error)

	// Commit commits the transaction in the given context
	Commit(ctx context.Context) error

	// Rollback rolls back the transaction in the given context. Rolling back
	// an already-committed transaction is a no-op.
	Rollback(ctx context.Context) error

	// GetValueRepository returns a Value repository bound to the context's transaction
	GetValueRepository(ctx context.Context) ValueRepository

	// GetTransactionRepository returns a Transaction repository bound to the context's transaction
	GetTransactionRepository(ctx context.Context) TransactionRepository
}
