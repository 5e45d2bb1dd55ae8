package planner

import (
	"context"
	"fmt"

	"github.com/Giftbit/internal-rothschild-sub003/internal/domain/entity"
	errs "github.com/Giftbit/internal-rothschild-sub003/internal/domain/error"
)

// BuildReverse plans the exact negation of a committed transaction's steps.
// The reversed steps are new rows; the target transaction is untouched (the
// ledger is append-only, the chain pointer records the relationship).
func (b *Builder) BuildReverse(ctx context.Context, req ReverseRequest) (*TransactionPlan, error) {
	if err := entity.ValidateTransactionID(req.ID); err != nil {
		return nil, err
	}

	txRepo := b.uow.GetTransactionRepository(ctx)
	target, err := txRepo.GetByID(ctx, req.TransactionToReverse)
	if err != nil {
		return nil, err
	}
	if target.IsReversed() {
		return nil, fmt.Errorf("%w: transaction %s was already reversed", errs.ErrTransactionNotReversible, target.ID)
	}
	if target.IsPending() {
		return nil, fmt.Errorf("%w: transaction %s is pending, void it instead", errs.ErrTransactionNotReversible, target.ID)
	}
	if target.TransactionType == entity.TypeAttach {
		return nil, fmt.Errorf("%w: attach transactions cannot be reversed", errs.ErrTransactionNotReversible)
	}

	steps, err := negateSteps(target.Steps)
	if err != nil {
		return nil, err
	}

	plan := &TransactionPlan{
		ID:                    req.ID,
		TransactionType:       entity.TypeReverse,
		Currency:              target.Currency,
		Steps:                 steps,
		Metadata:              req.Metadata,
		CreatedBy:             req.CreatedBy,
		PreviousTransactionID: target.ID,
		RootTransactionID:     rootOf(target),
	}
	if target.Totals != nil {
		plan.Totals = negateTotals(target.Totals)
	}
	return plan, nil
}

// negateSteps builds equal-magnitude opposite-sign steps, preserving the
// per-step Value association. Charges become refunds.
func negateSteps(steps []entity.Step) ([]entity.Step, error) {
	out := make([]entity.Step, 0, len(steps))
	for _, step := range steps {
		switch s := step.(type) {
		case *entity.LightrailStep:
			if s.Action == entity.ActionInsert {
				return nil, fmt.Errorf("%w: inserted values cannot be negated", errs.ErrTransactionNotReversible)
			}
			out = append(out, &entity.LightrailStep{
				ValueID:      s.ValueID,
				Action:       entity.ActionUpdate,
				Amount:       -s.Amount,
				Uses:         -s.Uses,
				DiscountStep: s.DiscountStep,
				// Reversals must apply to canceled or frozen Values too;
				// funds go back regardless of the Value's state.
				AllowCanceled: true,
				AllowFrozen:   true,
			})
		case *entity.StripeStep:
			switch s.Type {
			case entity.ChargeTypeCharge, entity.ChargeTypeCapture:
				out = append(out, &entity.StripeStep{
					Type:     entity.ChargeTypeRefund,
					ChargeID: s.ChargeID,
					Amount:   s.Amount,
				})
			default:
				return nil, fmt.Errorf("%w: refund steps cannot be negated", errs.ErrTransactionNotReversible)
			}
		case *entity.InternalStep:
			out = append(out, &entity.InternalStep{
				InternalID: s.InternalID,
				Balance:    s.Balance,
				Amount:     -s.Amount,
			})
		}
	}
	return out, nil
}

func negateTotals(t *entity.Totals) *entity.Totals {
	return &entity.Totals{
		Subtotal:      -t.Subtotal,
		Tax:           -t.Tax,
		Discount:      -t.Discount,
		Payable:       -t.Payable,
		PaidLightrail: -t.PaidLightrail,
		PaidStripe:    -t.PaidStripe,
		PaidInternal:  -t.PaidInternal,
		Remainder:     -t.Remainder,
	}
}

func rootOf(t *entity.Transaction) string {
	if t.RootTransactionID != "" {
		return t.RootTransactionID
	}
	return t.ID
}
