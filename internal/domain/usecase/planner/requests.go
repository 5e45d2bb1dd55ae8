package planner

import (
	"fmt"

	"github.com/Giftbit/internal-rothschild-sub003/internal/domain/entity"
	errs "github.com/Giftbit/internal-rothschild-sub003/internal/domain/error"
)

// PaymentSource is one caller-supplied party of a transaction. Exactly one
// identity field per rail is used: ValueID/Code/ContactID for lightrail,
// Source/CustomerID for stripe, InternalID for internal.
type PaymentSource struct {
	Rail entity.Rail

	// lightrail
	ValueID   string
	Code      string
	ContactID string

	// stripe
	Source     string
	CustomerID string

	// internal
	InternalID      string
	Balance         int64
	Pretax          bool
	BeforeLightrail bool
}

func (p PaymentSource) validate() error {
	switch p.Rail {
	case entity.RailLightrail:
		if p.ValueID == "" && p.Code == "" && p.ContactID == "" {
			return fmt.Errorf("%w: lightrail source requires valueId, code or contactId", errs.ErrInvalidValueState)
		}
	case entity.RailStripe:
		if p.Source == "" && p.CustomerID == "" {
			return fmt.Errorf("%w: stripe source requires source or customerId", errs.ErrInvalidValueState)
		}
	case entity.RailInternal:
		if p.InternalID == "" {
			return fmt.Errorf("%w: internal source requires internalId", errs.ErrInvalidValueState)
		}
		if p.Balance < 0 {
			return fmt.Errorf("%w: internal balance cannot be negative", errs.ErrInvalidValueState)
		}
	default:
		return fmt.Errorf("%w: unknown rail %q", errs.ErrInvalidValueState, p.Rail)
	}
	return nil
}

// CheckoutRequest is the inbound intent for a priced cart checkout.
type CheckoutRequest struct {
	ID              string
	Currency        string
	LineItems       []*entity.LineItem
	Sources         []PaymentSource
	AllowRemainder  bool
	Simulate        bool
	Pending         bool
	TaxRoundingMode RoundingMode
	Metadata        map[string]any
	CreatedBy       string
}

// CreditRequest is the inbound intent for increasing a single Value.
type CreditRequest struct {
	ID          string
	Currency    string
	Destination PaymentSource
	Amount      int64
	Uses        int64
	Simulate    bool
	Metadata    map[string]any
	CreatedBy   string
}

// DebitRequest is the inbound intent for drawing down a single Value.
type DebitRequest struct {
	ID             string
	Currency       string
	Source         PaymentSource
	Amount         int64
	Uses           int64
	AllowRemainder bool
	Simulate       bool
	Metadata       map[string]any
	CreatedBy      string
}

// TransferRequest is the inbound intent for moving balance between parties.
type TransferRequest struct {
	ID             string
	Currency       string
	Source         PaymentSource
	Destination    PaymentSource
	Amount         int64
	AllowRemainder bool
	Simulate       bool
	Metadata       map[string]any
	CreatedBy      string
}

// AttachRequest is the inbound intent for attaching a generic code to a contact.
type AttachRequest struct {
	ContactID string
	ValueID   string
	Code      string
	CreatedBy string
}

// ReverseRequest is the inbound intent for negating a committed transaction.
type ReverseRequest struct {
	ID                   string
	TransactionToReverse string
	Metadata             map[string]any
	CreatedBy            string
}

// CaptureRequest is the inbound intent for capturing a pending transaction.
type CaptureRequest struct {
	ID                   string
	PendingTransactionID string
	Metadata             map[string]any
	CreatedBy            string
}

// VoidRequest is the inbound intent for voiding a pending transaction.
type VoidRequest struct {
	ID                   string
	PendingTransactionID string
	Metadata             map[string]any
	CreatedBy            string
}
