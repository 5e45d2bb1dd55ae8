package entity

import (
	"fmt"
	"time"

	errs "github.com/Giftbit/internal-rothschild-sub003/internal/domain/error"
)

// TransactionType identifies the intent a Transaction records.
type TransactionType string

// Transaction types
const (
	TypeCheckout       TransactionType = "checkout"
	TypeDebit          TransactionType = "debit"
	TypeCredit         TransactionType = "credit"
	TypeTransfer       TransactionType = "transfer"
	TypeAttach         TransactionType = "attach"
	TypeReverse        TransactionType = "reverse"
	TypeCapture        TransactionType = "capture"
	TypeVoid           TransactionType = "void"
	TypeInitialBalance TransactionType = "initialBalance"
)

// MaxTransactionIDLength bounds client-supplied transaction ids.
const MaxTransactionIDLength = 64

// Totals is the economic breakdown of a priced transaction. All amounts are
// integer minor currency units. Present only for checkout; nil for simple
// credit/debit/transfer.
type Totals struct {
	Subtotal      int64 `json:"subtotal"`
	Tax           int64 `json:"tax"`
	Discount      int64 `json:"discount"`
	Payable       int64 `json:"payable"`
	PaidLightrail int64 `json:"paidLightrail"`
	PaidStripe    int64 `json:"paidStripe"`
	PaidInternal  int64 `json:"paidInternal"`
	Remainder     int64 `json:"remainder"`
}

// LineTotal is the per-line breakdown computed by the checkout builder.
type LineTotal struct {
	Subtotal  int64 `json:"subtotal"`
	Taxable   int64 `json:"taxable"`
	Tax       int64 `json:"tax"`
	Discount  int64 `json:"discount"`
	Payable   int64 `json:"payable"`
	Remainder int64 `json:"remainder"`
}

// LineItemType categorizes a cart line.
type LineItemType string

// Line item types
const (
	LineItemProduct  LineItemType = "product"
	LineItemShipping LineItemType = "shipping"
	LineItemFee      LineItemType = "fee"
)

// LineItem is one priced cart line of a checkout.
type LineItem struct {
	Type      LineItemType   `json:"type"`
	ProductID string         `json:"productId,omitempty"`
	UnitPrice int64          `json:"unitPrice"`
	Quantity  int64          `json:"quantity"`
	TaxRate   float64        `json:"taxRate"`
	Tags      []string       `json:"tags,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	LineTotal *LineTotal     `json:"lineTotal,omitempty"`
}

// Subtotal is the line's price before discounts and tax.
func (li *LineItem) Subtotal() int64 {
	q := li.Quantity
	if q == 0 {
		q = 1
	}
	return li.UnitPrice * q
}

// Transaction is an immutable record of one ledger operation. Its id is
// client-supplied and doubles as the idempotency key; reversal appends a new
// Transaction rather than editing this one.
type Transaction struct {
	ID              string
	TransactionType TransactionType
	Currency        string
	Steps           []Step
	Totals          *Totals
	LineItems       []*LineItem
	Simulated       bool
	Metadata        map[string]any

	// Chain pointers for the pending/capture/void/reverse flows.
	RootTransactionID     string
	PreviousTransactionID string
	NextTransactionID     string
	PendingVoidDate       *time.Time

	CreatedAt time.Time
	CreatedBy string
}

// ValidateTransactionID checks the client-supplied idempotency key.
func ValidateTransactionID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: id is required", errs.ErrInvalidTransactionID)
	}
	if len(id) > MaxTransactionIDLength {
		return fmt.Errorf("%w: id exceeds %d characters", errs.ErrInvalidTransactionID, MaxTransactionIDLength)
	}
	return nil
}

// IsPending reports whether the transaction still awaits capture or void.
func (t *Transaction) IsPending() bool {
	return t.PendingVoidDate != nil && t.NextTransactionID == ""
}

// IsReversed reports whether a later transaction already negates this one.
func (t *Transaction) IsReversed() bool {
	return t.NextTransactionID != ""
}
