package model

import (
	"time"
)

// Value represents the database model for Values. Rule and option documents
// are stored as JSON text; the unique index on code_hashed is what makes
// redeemable codes unique, and the primary key on id is what makes attach
// idempotent for derived ids.
type Value struct {
	ID            string `gorm:"primaryKey;size:64"`
	Currency      string `gorm:"not null;size:16;index:idx_values_contact_currency,priority:2"`
	Balance       *int64
	UsesRemaining *int64

	ProgramID  string `gorm:"size:64;index"`
	IssuanceID string `gorm:"size:64"`
	ContactID  string `gorm:"size:64;index:idx_values_contact_currency,priority:1"`

	Active                  bool `gorm:"not null"`
	Frozen                  bool `gorm:"not null"`
	Canceled                bool `gorm:"not null"`
	Discount                bool `gorm:"not null"`
	Pretax                  bool `gorm:"not null"`
	DiscountSellerLiability *float64

	RedemptionRule *string `gorm:"type:text"`
	BalanceRule    *string `gorm:"type:text"`

	StartDate *time.Time
	EndDate   *time.Time

	CodeHashed          *string `gorm:"uniqueIndex;size:64"`
	CodeLast4           string  `gorm:"size:4"`
	IsGenericCode       bool    `gorm:"not null"`
	GenericCodeOptions  *string `gorm:"type:text"`
	AttachedFromValueID string  `gorm:"size:64;index"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
	CreatedBy string    `gorm:"size:64"`
}

// TableName specifies the table name for Value
func (Value) TableName() string {
	return "values"
}
