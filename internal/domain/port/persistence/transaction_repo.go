package persistence

import (
	"context"

	"github.com/Giftbit/internal-rothschild-sub003/internal/domain/entity"
)

// TransactionRepository defines the persistence operations for Transactions
// and their steps. Transactions are append-only: there is no update or
// delete, only the chain pointer set by reverse/capture/void.
type TransactionRepository interface {
	// Create inserts the Transaction row (without steps). The primary key on
	// the client-supplied id is what gives the engine exactly-once semantics.
	//
	// Possible errors:
	// - ErrTransactionExists: a transaction with the same id already exists
	// - ErrDatabaseConnection: if the database is unreachable
	Create(ctx context.Context, transaction *entity.Transaction) error

	// InsertStep appends one step row to a transaction. Index preserves the
	// order of economic application.
	InsertStep(ctx context.Context, transactionID string, index int, step entity.Step) error

	// GetByID retrieves a transaction with its steps in insertion order.
	//
	// Possible errors:
	// - ErrTransactionNotFound: if no transaction with the id exists
	GetByID(ctx context.Context, id string) (*entity.Transaction, error)

	// Exists checks for a transaction id without loading it. Used for the
	// cheap idempotency pre-check before any locks are taken.
	Exists(ctx context.Context, id string) (bool, error)

	// SetNextTransaction records the chain pointer from a transaction to the
	// reverse/capture/void transaction that supersedes it.
	//
	// Possible errors:
	// - ErrTransactionNotFound: if the transaction doesn't exist
	// - ErrConflict: if a next transaction is already recorded
	SetNextTransaction(ctx context.Context, id, nextID string) error
}
