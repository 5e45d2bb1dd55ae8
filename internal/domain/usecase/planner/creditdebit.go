package planner

import (
	"context"
	"fmt"

	"github.com/Giftbit/internal-rothschild-sub003/internal/domain/entity"
	errs "github.com/Giftbit/internal-rothschild-sub003/internal/domain/error"
)

// BuildCredit plans a single-step balance/uses increase. Credits always pass
// sufficiency checks; the Value must still be usable.
func (b *Builder) BuildCredit(ctx context.Context, req CreditRequest) (*TransactionPlan, error) {
	if err := validateCommon(req.ID, req.Currency); err != nil {
		return nil, err
	}
	if req.Amount < 0 || req.Uses < 0 {
		return nil, fmt.Errorf("%w: credit amounts cannot be negative", errs.ErrInvalidValueState)
	}
	if req.Amount == 0 && req.Uses == 0 {
		return nil, fmt.Errorf("%w: credit requires an amount or uses", errs.ErrInvalidValueState)
	}

	v, err := b.resolveSingleValue(ctx, req.Currency, req.Destination)
	if err != nil {
		return nil, err
	}
	if err := v.Usable(b.timeProvider.Now()); err != nil {
		return nil, err
	}
	if req.Amount > 0 && v.Balance == nil {
		return nil, fmt.Errorf("%w: value %s does not track a balance", errs.ErrInvalidValueState, v.ID)
	}
	if req.Uses > 0 && v.UsesRemaining == nil {
		return nil, fmt.Errorf("%w: value %s does not track uses", errs.ErrInvalidValueState, v.ID)
	}

	return &TransactionPlan{
		ID:              req.ID,
		TransactionType: entity.TypeCredit,
		Currency:        req.Currency,
		Steps:           []entity.Step{creditStep(v, req.Amount, req.Uses)},
		Metadata:        req.Metadata,
		CreatedBy:       req.CreatedBy,
	}, nil
}

// BuildDebit plans a single-step draw-down. With allowRemainder the draw is
// capped at the available balance/uses instead of failing.
func (b *Builder) BuildDebit(ctx context.Context, req DebitRequest) (*TransactionPlan, error) {
	if err := validateCommon(req.ID, req.Currency); err != nil {
		return nil, err
	}
	if req.Amount < 0 || req.Uses < 0 {
		return nil, fmt.Errorf("%w: debit amounts cannot be negative", errs.ErrInvalidValueState)
	}
	if req.Amount == 0 && req.Uses == 0 {
		return nil, fmt.Errorf("%w: debit requires an amount or uses", errs.ErrInvalidValueState)
	}

	v, err := b.resolveSingleValue(ctx, req.Currency, req.Source)
	if err != nil {
		return nil, err
	}
	if err := v.Usable(b.timeProvider.Now()); err != nil {
		return nil, err
	}

	amount, uses, err := debitDeltas(v, req.Amount, req.Uses, req.AllowRemainder)
	if err != nil {
		return nil, err
	}

	return &TransactionPlan{
		ID:              req.ID,
		TransactionType: entity.TypeDebit,
		Currency:        req.Currency,
		Steps:           []entity.Step{debitStep(v, amount, uses)},
		Metadata:        req.Metadata,
		CreatedBy:       req.CreatedBy,
	}, nil
}

// BuildTransfer plans a two-step move: a draw from the source and a credit
// to the destination. A stripe source becomes a processor charge instead of
// a ledger draw.
func (b *Builder) BuildTransfer(ctx context.Context, req TransferRequest) (*TransactionPlan, error) {
	if err := validateCommon(req.ID, req.Currency); err != nil {
		return nil, err
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: transfer requires a positive amount", errs.ErrInvalidValueState)
	}

	dest, err := b.resolveSingleValue(ctx, req.Currency, req.Destination)
	if err != nil {
		return nil, err
	}
	if err := dest.Usable(b.timeProvider.Now()); err != nil {
		return nil, err
	}
	if dest.Balance == nil {
		return nil, fmt.Errorf("%w: value %s does not track a balance", errs.ErrInvalidValueState, dest.ID)
	}

	var steps []entity.Step
	transferred := req.Amount

	if req.Source.Rail == entity.RailStripe {
		steps = append(steps, &entity.StripeStep{
			Type:       entity.ChargeTypeCharge,
			Source:     req.Source.Source,
			CustomerID: req.Source.CustomerID,
			Amount:     req.Amount,
		})
	} else {
		src, err := b.resolveSingleValue(ctx, req.Currency, req.Source)
		if err != nil {
			return nil, err
		}
		if err := src.Usable(b.timeProvider.Now()); err != nil {
			return nil, err
		}
		transferred, _, err = debitDeltas(src, req.Amount, 0, req.AllowRemainder)
		if err != nil {
			return nil, err
		}
		steps = append(steps, debitStep(src, transferred, 0))
	}

	steps = append(steps, creditStep(dest, transferred, 0))

	return &TransactionPlan{
		ID:              req.ID,
		TransactionType: entity.TypeTransfer,
		Currency:        req.Currency,
		Steps:           steps,
		Metadata:        req.Metadata,
		CreatedBy:       req.CreatedBy,
	}, nil
}

// debitDeltas computes the signed draw against a Value, capping at the
// available balance/uses when a remainder is allowed.
func debitDeltas(v *entity.Value, amount, uses int64, allowRemainder bool) (int64, int64, error) {
	if amount > 0 && v.Balance == nil {
		return 0, 0, fmt.Errorf("%w: value %s does not track a balance", errs.ErrInvalidValueState, v.ID)
	}
	if uses > 0 && v.UsesRemaining == nil {
		return 0, 0, fmt.Errorf("%w: value %s does not track uses", errs.ErrInvalidValueState, v.ID)
	}
	if amount > 0 && *v.Balance < amount {
		if !allowRemainder {
			return 0, 0, &errs.InsufficientBalanceError{
				ValueID:        v.ID,
				RequestedDelta: -amount,
				CurrentBalance: *v.Balance,
			}
		}
		amount = *v.Balance
	}
	if uses > 0 && *v.UsesRemaining < uses {
		if !allowRemainder {
			return 0, 0, &errs.InsufficientUsesError{
				ValueID:        v.ID,
				RequestedDelta: -uses,
				UsesRemaining:  *v.UsesRemaining,
			}
		}
		uses = *v.UsesRemaining
	}
	return amount, uses, nil
}

func creditStep(v *entity.Value, amount, uses int64) *entity.LightrailStep {
	s := &entity.LightrailStep{
		ValueID: v.ID,
		Action:  entity.ActionUpdate,
		Amount:  amount,
		Uses:    uses,
	}
	fillBeforeAfter(s, v)
	return s
}

func debitStep(v *entity.Value, amount, uses int64) *entity.LightrailStep {
	s := &entity.LightrailStep{
		ValueID: v.ID,
		Action:  entity.ActionUpdate,
		Amount:  -amount,
		Uses:    -uses,
	}
	fillBeforeAfter(s, v)
	return s
}

func fillBeforeAfter(s *entity.LightrailStep, v *entity.Value) {
	if v.Balance != nil {
		before := *v.Balance
		after := before + s.Amount
		s.BalanceBefore = &before
		s.BalanceAfter = &after
	}
	if v.UsesRemaining != nil {
		before := *v.UsesRemaining
		after := before + s.Uses
		s.UsesBefore = &before
		s.UsesAfter = &after
	}
}
