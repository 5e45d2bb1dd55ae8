package planner

import (
	"context"
	"fmt"

	"github.com/Giftbit/internal-rothschild-sub003/internal/domain/entity"
	errs "github.com/Giftbit/internal-rothschild-sub003/internal/domain/error"
)

// BuildCapture plans the capture of a pending transaction. Ledger funds were
// already drawn when the pending checkout committed, so the plan maps each
// processor authorization to a capture step and nothing else.
func (b *Builder) BuildCapture(ctx context.Context, req CaptureRequest) (*TransactionPlan, error) {
	if err := entity.ValidateTransactionID(req.ID); err != nil {
		return nil, err
	}

	target, err := b.loadPending(ctx, req.PendingTransactionID)
	if err != nil {
		return nil, err
	}
	if b.timeProvider.Now().After(*target.PendingVoidDate) {
		return nil, fmt.Errorf("%w: transaction %s", errs.ErrPendingExpired, target.ID)
	}

	var steps []entity.Step
	for _, s := range entity.StripeSteps(target.Steps) {
		if s.PendingAmount > 0 {
			steps = append(steps, &entity.StripeStep{
				Type:     entity.ChargeTypeCapture,
				ChargeID: s.ChargeID,
				Amount:   s.PendingAmount,
			})
		}
	}

	return &TransactionPlan{
		ID:                    req.ID,
		TransactionType:       entity.TypeCapture,
		Currency:              target.Currency,
		Steps:                 steps,
		Totals:                target.Totals,
		Metadata:              req.Metadata,
		CreatedBy:             req.CreatedBy,
		PreviousTransactionID: target.ID,
		RootTransactionID:     rootOf(target),
	}, nil
}

// BuildVoid plans the release of a pending transaction: ledger and internal
// steps are negated and processor authorizations are refunded. Voiding is
// allowed past the void date.
func (b *Builder) BuildVoid(ctx context.Context, req VoidRequest) (*TransactionPlan, error) {
	if err := entity.ValidateTransactionID(req.ID); err != nil {
		return nil, err
	}

	target, err := b.loadPending(ctx, req.PendingTransactionID)
	if err != nil {
		return nil, err
	}

	steps, err := negateSteps(target.Steps)
	if err != nil {
		return nil, err
	}

	plan := &TransactionPlan{
		ID:                    req.ID,
		TransactionType:       entity.TypeVoid,
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

func (b *Builder) loadPending(ctx context.Context, id string) (*entity.Transaction, error) {
	txRepo := b.uow.GetTransactionRepository(ctx)
	target, err := txRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if target.PendingVoidDate == nil {
		return nil, fmt.Errorf("%w: transaction %s", errs.ErrTransactionNotPending, target.ID)
	}
	if target.NextTransactionID != "" {
		return nil, fmt.Errorf("%w: transaction %s was already captured or voided", errs.ErrTransactionNotPending, target.ID)
	}
	return target, nil
}
