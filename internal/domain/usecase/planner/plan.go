package planner

import (
	"time"

	"github.com/Giftbit/internal-rothschild-sub003/internal/domain/entity"
)

// TransactionPlan is the computed, not-yet-persisted set of steps for one
// intent. A plan is local to the request that builds it: it is consumed once
// by the executor and discarded (or rebuilt) on conflict.
type TransactionPlan struct {
	ID              string
	TransactionType entity.TransactionType
	Currency        string
	Steps           []entity.Step
	Totals          *entity.Totals
	LineItems       []*entity.LineItem
	Metadata        map[string]any
	CreatedBy       string

	RootTransactionID     string
	PreviousTransactionID string
	PendingVoidDate       *time.Time
}

// Transaction materializes the plan into the immutable record handed back to
// the caller. The executor calls this after the steps have been applied (or,
// for simulations, instead of applying them).
func (p *TransactionPlan) Transaction(now time.Time, simulated bool) *entity.Transaction {
	return &entity.Transaction{
		ID:                    p.ID,
		TransactionType:       p.TransactionType,
		Currency:              p.Currency,
		Steps:                 p.Steps,
		Totals:                p.Totals,
		LineItems:             p.LineItems,
		Metadata:              p.Metadata,
		Simulated:             simulated,
		RootTransactionID:     p.RootTransactionID,
		PreviousTransactionID: p.PreviousTransactionID,
		PendingVoidDate:       p.PendingVoidDate,
		CreatedAt:             now,
		CreatedBy:             p.CreatedBy,
	}
}

// computeTotals derives checkout totals bottom-up from the line items and the
// committed steps, so totals and steps can never disagree.
func computeTotals(lineItems []*entity.LineItem, steps []entity.Step) *entity.Totals {
	t := &entity.Totals{}
	for _, li := range lineItems {
		if li.LineTotal == nil {
			continue
		}
		t.Subtotal += li.LineTotal.Subtotal
		t.Tax += li.LineTotal.Tax
		t.Discount += li.LineTotal.Discount
		t.Remainder += li.LineTotal.Remainder
	}
	t.Payable = t.Subtotal + t.Tax - t.Discount

	for _, step := range steps {
		switch s := step.(type) {
		case *entity.LightrailStep:
			if s.DiscountStep {
				continue
			}
			t.PaidLightrail += -s.Amount
		case *entity.StripeStep:
			t.PaidStripe += s.Amount
		case *entity.InternalStep:
			t.PaidInternal += -s.Amount
		}
	}
	return t
}
