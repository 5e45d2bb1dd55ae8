package persistence

import (
	"context"

	"github.com/Giftbit/internal-rothschild-sub003/internal/domain/entity"
)

// ValueRepository defines the persistence operations for Values.
type ValueRepository interface {
	// GetByID retrieves a Value by id.
	//
	// Possible errors:
	// - ErrValueNotFound: if no Value with the id exists
	// - ErrDatabaseConnection: if the database is unreachable
	GetByID(ctx context.Context, id string) (*entity.Value, error)

	// GetForUpdate retrieves a Value by id under a row-level exclusive lock.
	// Only meaningful inside a unit-of-work transaction; concurrent executors
	// touching the same Value serialize here.
	GetForUpdate(ctx context.Context, id string) (*entity.Value, error)

	// GetByCode retrieves a Value by its hashed redeemable code.
	GetByCode(ctx context.Context, codeHashed string) (*entity.Value, error)

	// ListByCurrencyAndContact retrieves all of a contact's Values for a
	// currency, most recently created first.
	ListByCurrencyAndContact(ctx context.Context, currency, contactID string) ([]*entity.Value, error)

	// Create inserts a new Value.
	//
	// Possible errors:
	// - ErrValueAlreadyAttached: unique id collision on an attach-derived id
	// - ErrValueCodeExists: unique code collision
	// - ErrConflict: any other unique collision
	Create(ctx context.Context, value *entity.Value) error

	// Update persists the Value's mutable columns (balance, uses, flags,
	// rules, dates). Balance changes must only be written while the row is
	// held by GetForUpdate in the same transaction.
	Update(ctx context.Context, value *entity.Value) error
}
