package dto

import (
	"time"

	"github.com/Giftbit/internal-rothschild-sub003/internal/domain/entity"
	"github.com/Giftbit/internal-rothschild-sub003/internal/domain/usecase/planner"
)

// PaymentSourceDTO is the wire form of one payment source
type PaymentSourceDTO struct {
	Rail string `json:"rail" binding:"required"`

	// lightrail
	ValueID   string `json:"valueId,omitempty"`
	Code      string `json:"code,omitempty"`
	ContactID string `json:"contactId,omitempty"`

	// stripe
	Source     string `json:"source,omitempty"`
	CustomerID string `json:"customer,omitempty"`

	// internal
	InternalID      string `json:"internalId,omitempty"`
	Balance         int64  `json:"balance,omitempty"`
	Pretax          bool   `json:"pretax,omitempty"`
	BeforeLightrail bool   `json:"beforeLightrail,omitempty"`
}

// ToPaymentSource converts the wire source to the domain form
func (p PaymentSourceDTO) ToPaymentSource() planner.PaymentSource {
	return planner.PaymentSource{
		Rail:            entity.Rail(p.Rail),
		ValueID:         p.ValueID,
		Code:            p.Code,
		ContactID:       p.ContactID,
		Source:          p.Source,
		CustomerID:      p.CustomerID,
		InternalID:      p.InternalID,
		Balance:         p.Balance,
		Pretax:          p.Pretax,
		BeforeLightrail: p.BeforeLightrail,
	}
}

// LineItemDTO is the wire form of a cart line
type LineItemDTO struct {
	Type      string         `json:"type,omitempty"`
	ProductID string         `json:"productId,omitempty"`
	UnitPrice int64          `json:"unitPrice" binding:"required"`
	Quantity  int64          `json:"quantity,omitempty"`
	TaxRate   float64        `json:"taxRate,omitempty"`
	Tags      []string       `json:"tags,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// ToLineItem converts the wire line to the domain form
func (l LineItemDTO) ToLineItem() *entity.LineItem {
	itemType := entity.LineItemType(l.Type)
	if l.Type == "" {
		itemType = entity.LineItemProduct
	}
	return &entity.LineItem{
		Type:      itemType,
		ProductID: l.ProductID,
		UnitPrice: l.UnitPrice,
		Quantity:  l.Quantity,
		TaxRate:   l.TaxRate,
		Tags:      l.Tags,
		Metadata:  l.Metadata,
	}
}

// CheckoutRequest is the inbound payload for a checkout transaction
type CheckoutRequest struct {
	ID              string             `json:"id" binding:"required"`
	Currency        string             `json:"currency" binding:"required"`
	LineItems       []LineItemDTO      `json:"lineItems" binding:"required"`
	Sources         []PaymentSourceDTO `json:"sources" binding:"required"`
	AllowRemainder  bool               `json:"allowRemainder,omitempty"`
	Simulate        bool               `json:"simulate,omitempty"`
	Pending         bool               `json:"pending,omitempty"`
	TaxRoundingMode string             `json:"taxRoundingMode,omitempty"`
	Metadata        map[string]any     `json:"metadata,omitempty"`
}

// CreditRequest is the inbound payload for a credit transaction
type CreditRequest struct {
	ID          string           `json:"id" binding:"required"`
	Currency    string           `json:"currency" binding:"required"`
	Destination PaymentSourceDTO `json:"destination" binding:"required"`
	Amount      int64            `json:"amount,omitempty"`
	Uses        int64            `json:"uses,omitempty"`
	Simulate    bool             `json:"simulate,omitempty"`
	Metadata    map[string]any   `json:"metadata,omitempty"`
}

// DebitRequest is the inbound payload for a debit transaction
type DebitRequest struct {
	ID             string           `json:"id" binding:"required"`
	Currency       string           `json:"currency" binding:"required"`
	Source         PaymentSourceDTO `json:"source" binding:"required"`
	Amount         int64            `json:"amount,omitempty"`
	Uses           int64            `json:"uses,omitempty"`
	AllowRemainder bool             `json:"allowRemainder,omitempty"`
	Simulate       bool             `json:"simulate,omitempty"`
	Metadata       map[string]any   `json:"metadata,omitempty"`
}

// TransferRequest is the inbound payload for a transfer transaction
type TransferRequest struct {
	ID             string           `json:"id" binding:"required"`
	Currency       string           `json:"currency" binding:"required"`
	Source         PaymentSourceDTO `json:"source" binding:"required"`
	Destination    PaymentSourceDTO `json:"destination" binding:"required"`
	Amount         int64            `json:"amount" binding:"required"`
	AllowRemainder bool             `json:"allowRemainder,omitempty"`
	Simulate       bool             `json:"simulate,omitempty"`
	Metadata       map[string]any   `json:"metadata,omitempty"`
}

// ReverseRequest is the inbound payload for reversing a transaction
type ReverseRequest struct {
	ID       string         `json:"id" binding:"required"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// CaptureRequest is the inbound payload for capturing a pending transaction
type CaptureRequest struct {
	ID       string         `json:"id" binding:"required"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// VoidRequest is the inbound payload for voiding a pending transaction
type VoidRequest struct {
	ID       string         `json:"id" binding:"required"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// AttachRequest is the inbound payload for attaching a Value to a contact
type AttachRequest struct {
	ValueID string `json:"valueId,omitempty"`
	Code    string `json:"code,omitempty"`
}

// StepDTO is the outbound representation of one transaction step. Fields are
// rail-specific; Rail discriminates.
type StepDTO struct {
	Rail string `json:"rail"`

	// lightrail
	ValueID       string `json:"valueId,omitempty"`
	Action        string `json:"action,omitempty"`
	BalanceBefore *int64 `json:"balanceBefore,omitempty"`
	BalanceAfter  *int64 `json:"balanceAfter,omitempty"`
	BalanceChange *int64 `json:"balanceChange,omitempty"`
	UsesBefore    *int64 `json:"usesRemainingBefore,omitempty"`
	UsesAfter     *int64 `json:"usesRemainingAfter,omitempty"`

	// stripe
	Type     string `json:"type,omitempty"`
	ChargeID string `json:"chargeId,omitempty"`
	RefundID string `json:"refundId,omitempty"`
	Amount   int64  `json:"amount,omitempty"`

	// internal
	InternalID string `json:"internalId,omitempty"`
	Balance    *int64 `json:"internalBalance,omitempty"`
}

// TotalsDTO is the outbound economic breakdown
type TotalsDTO struct {
	Subtotal      int64 `json:"subtotal"`
	Tax           int64 `json:"tax"`
	Discount      int64 `json:"discount"`
	Payable       int64 `json:"payable"`
	PaidLightrail int64 `json:"paidLightrail"`
	PaidStripe    int64 `json:"paidStripe"`
	PaidInternal  int64 `json:"paidInternal"`
	Remainder     int64 `json:"remainder"`
}

// TransactionResponse is the outbound representation of a transaction
type TransactionResponse struct {
	ID                    string             `json:"id"`
	TransactionType       string             `json:"transactionType"`
	Currency              string             `json:"currency"`
	Steps                 []StepDTO          `json:"steps"`
	Totals                *TotalsDTO         `json:"totals,omitempty"`
	LineItems             []*entity.LineItem `json:"lineItems,omitempty"`
	Simulated             bool               `json:"simulated,omitempty"`
	Pending               bool               `json:"pending,omitempty"`
	PendingVoidDate       *time.Time         `json:"pendingVoidDate,omitempty"`
	RootTransactionID     string             `json:"rootTransactionId,omitempty"`
	PreviousTransactionID string             `json:"previousTransactionId,omitempty"`
	NextTransactionID     string             `json:"nextTransactionId,omitempty"`
	Metadata              map[string]any     `json:"metadata,omitempty"`
	CreatedAt             time.Time          `json:"createdDate"`
	CreatedBy             string             `json:"createdBy,omitempty"`
}

// NewTransactionResponse builds the wire representation of a transaction
func NewTransactionResponse(t *entity.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:                    t.ID,
		TransactionType:       string(t.TransactionType),
		Currency:              t.Currency,
		Steps:                 make([]StepDTO, 0, len(t.Steps)),
		LineItems:             t.LineItems,
		Simulated:             t.Simulated,
		Pending:               t.IsPending(),
		PendingVoidDate:       t.PendingVoidDate,
		RootTransactionID:     t.RootTransactionID,
		PreviousTransactionID: t.PreviousTransactionID,
		NextTransactionID:     t.NextTransactionID,
		Metadata:              t.Metadata,
		CreatedAt:             t.CreatedAt,
		CreatedBy:             t.CreatedBy,
	}
	if t.Totals != nil {
		resp.Totals = &TotalsDTO{
			Subtotal:      t.Totals.Subtotal,
			Tax:           t.Totals.Tax,
			Discount:      t.Totals.Discount,
			Payable:       t.Totals.Payable,
			PaidLightrail: t.Totals.PaidLightrail,
			PaidStripe:    t.Totals.PaidStripe,
			PaidInternal:  t.Totals.PaidInternal,
			Remainder:     t.Totals.Remainder,
		}
	}
	for _, step := range t.Steps {
		resp.Steps = append(resp.Steps, stepToDTO(step))
	}
	return resp
}

func stepToDTO(step entity.Step) StepDTO {
	switch s := step.(type) {
	case *entity.LightrailStep:
		change := s.Amount
		return StepDTO{
			Rail:          string(entity.RailLightrail),
			ValueID:       s.ValueID,
			Action:        string(s.Action),
			BalanceBefore: s.BalanceBefore,
			BalanceAfter:  s.BalanceAfter,
			BalanceChange: &change,
			UsesBefore:    s.UsesBefore,
			UsesAfter:     s.UsesAfter,
		}
	case *entity.StripeStep:
		return StepDTO{
			Rail:     string(entity.RailStripe),
			Type:     string(s.Type),
			ChargeID: s.ChargeID,
			RefundID: s.RefundID,
			Amount:   s.Amount,
		}
	case *entity.InternalStep:
		balance := s.Balance
		return StepDTO{
			Rail:       string(entity.RailInternal),
			InternalID: s.InternalID,
			Balance:    &balance,
			Amount:     s.Amount,
		}
	}
	return StepDTO{}
}
