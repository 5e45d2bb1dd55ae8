package planner

import (
	"context"
	"fmt"

	"github.com/Giftbit/internal-rothschild-sub003/internal/domain/entity"
	errs "github.com/Giftbit/internal-rothschild-sub003/internal/domain/error"
)

// BuildAttach plans attaching a shared generic code to a contact. The new
// per-contact Value's id is deterministically derived from the generic Value
// and the contact, so a duplicate attach collides on the Value id unique
// constraint instead of double-granting. No lock is held on the generic
// Value across the whole operation; the unique key is the idempotency guard.
func (b *Builder) BuildAttach(ctx context.Context, req AttachRequest) (*TransactionPlan, error) {
	if req.ContactID == "" {
		return nil, fmt.Errorf("%w: attach requires a contactId", errs.ErrInvalidValueState)
	}

	valueRepo := b.uow.GetValueRepository(ctx)
	var generic *entity.Value
	var err error
	switch {
	case req.ValueID != "":
		generic, err = valueRepo.GetByID(ctx, req.ValueID)
	case req.Code != "":
		generic, err = valueRepo.GetByCode(ctx, entity.HashCode(req.Code))
	default:
		return nil, fmt.Errorf("%w: attach requires a valueId or code", errs.ErrInvalidValueState)
	}
	if err != nil {
		return nil, err
	}
	return b.buildAttachPlan(generic, req.ContactID, req.CreatedBy)
}

func (b *Builder) buildAttachPlan(generic *entity.Value, contactID, createdBy string) (*TransactionPlan, error) {
	if !generic.IsGenericCode {
		return nil, fmt.Errorf("%w: value %s is not a generic code", errs.ErrInvalidValueState, generic.ID)
	}
	now := b.timeProvider.Now()
	if err := generic.Usable(now); err != nil {
		return nil, err
	}

	attachedID := entity.AttachedValueID(generic.ID, contactID)

	attached := &entity.Value{
		ID:                      attachedID,
		Currency:                generic.Currency,
		ContactID:               contactID,
		ProgramID:               generic.ProgramID,
		IssuanceID:              generic.IssuanceID,
		Active:                  true,
		Discount:                generic.Discount,
		Pretax:                  generic.Pretax,
		DiscountSellerLiability: generic.DiscountSellerLiability,
		RedemptionRule:          generic.RedemptionRule,
		BalanceRule:             generic.BalanceRule,
		StartDate:               generic.StartDate,
		EndDate:                 generic.EndDate,
		AttachedFromValueID:     generic.ID,
		CreatedAt:               now,
		UpdatedAt:               now,
		CreatedBy:               createdBy,
	}

	var steps []entity.Step

	// With per-contact options the grant is carved out of the generic
	// Value's pooled balance/uses where those are tracked.
	var grantBalance, grantUses int64
	if opts := generic.GenericCodeOptions; opts != nil {
		if opts.PerContactBalance != nil {
			attached.Balance = cloneInt64(opts.PerContactBalance)
			grantBalance = *opts.PerContactBalance
		}
		if opts.PerContactUses != nil {
			attached.UsesRemaining = cloneInt64(opts.PerContactUses)
			grantUses = *opts.PerContactUses
		}
	}

	debitAmount := int64(0)
	debitUses := int64(0)
	if generic.Balance != nil {
		debitAmount = grantBalance
	}
	if generic.UsesRemaining != nil {
		debitUses = grantUses
	}
	if debitAmount > 0 || debitUses > 0 {
		if generic.Balance != nil && *generic.Balance < debitAmount {
			return nil, &errs.InsufficientBalanceError{
				ValueID:        generic.ID,
				RequestedDelta: -debitAmount,
				CurrentBalance: *generic.Balance,
			}
		}
		if generic.UsesRemaining != nil && *generic.UsesRemaining < debitUses {
			return nil, &errs.InsufficientUsesError{
				ValueID:        generic.ID,
				RequestedDelta: -debitUses,
				UsesRemaining:  *generic.UsesRemaining,
			}
		}
		steps = append(steps, debitStep(generic, debitAmount, debitUses))
	}

	steps = append(steps, &entity.LightrailStep{
		ValueID:  attachedID,
		Action:   entity.ActionInsert,
		Amount:   grantBalance,
		Uses:     grantUses,
		NewValue: attached,
	})

	// The transaction id is derived too, so replays collide on either the
	// transaction or the Value insert and surface as already-attached.
	return &TransactionPlan{
		ID:              "attach-" + attachedID,
		TransactionType: entity.TypeAttach,
		Currency:        generic.Currency,
		Steps:           steps,
		CreatedBy:       createdBy,
	}, nil
}

func cloneInt64(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
