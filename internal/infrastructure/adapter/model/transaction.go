package model

import (
	"time"
)

// Transaction represents the database model for transactions. Rows are
// append-only; the only column ever updated after insert is
// next_transaction_id, set exactly once by reverse/capture/void.
type Transaction struct {
	ID              string `gorm:"primaryKey;size:64"`
	TransactionType string `gorm:"not null;size:32"`
	Currency        string `gorm:"not null;size:16"`

	Totals    *string `gorm:"type:text"`
	LineItems *string `gorm:"type:text"`
	Metadata  *string `gorm:"type:text"`

	RootTransactionID     string  `gorm:"size:64;index"`
	PreviousTransactionID string  `gorm:"size:64"`
	NextTransactionID     *string `gorm:"size:64"`
	PendingVoidDate       *time.Time

	CreatedAt time.Time `gorm:"not null"`
	CreatedBy string    `gorm:"size:64"`
}

// TableName specifies the table name for Transaction
func (Transaction) TableName() string {
	return "transactions"
}

// TransactionStep represents one step row of a transaction. Step payloads are
// rail-specific and stored as JSON text; step_index preserves the order of
// economic application.
type TransactionStep struct {
	ID            uint64 `gorm:"primaryKey;autoIncrement"`
	TransactionID string `gorm:"not null;size:64;uniqueIndex:idx_steps_tx_order,priority:1"`
	StepIndex     int    `gorm:"not null;uniqueIndex:idx_steps_tx_order,priority:2"`
	Rail          string `gorm:"not null;size:16"`
	ValueID       string `gorm:"size:64;index"`
	Payload       string `gorm:"type:text;not null"`
}

// TableName specifies the table name for TransactionStep
func (TransactionStep) TableName() string {
	return "transaction_steps"
}
