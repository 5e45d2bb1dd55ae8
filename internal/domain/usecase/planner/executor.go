package planner

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Giftbit/internal-rothschild-sub003/internal/domain/entity"
	errs "github.com/Giftbit/internal-rothschild-sub003/internal/domain/error"
	coreport "github.com/Giftbit/internal-rothschild-sub003/internal/domain/port/core"
	"github.com/Giftbit/internal-rothschild-sub003/internal/domain/port/persistence"
	procport "github.com/Giftbit/internal-rothschild-sub003/internal/domain/port/processor"
)

// ExecuteOptions controls one executor invocation.
type ExecuteOptions struct {
	AllowRemainder bool
	Simulate       bool
}

// Executor validates a plan's sufficiency and persists it inside one
// database transaction. Nothing the builder computed is trusted: every
// ledger step is re-verified against the row-locked Value, because other
// writers may have committed since planning.
type Executor struct {
	uow          persistence.UnitOfWork
	processor    procport.Processor
	timeProvider coreport.TimeProvider
	logger       coreport.Logger
}

// NewExecutor creates an Executor.
func NewExecutor(
	uow persistence.UnitOfWork,
	proc procport.Processor,
	timeProvider coreport.TimeProvider,
	logger coreport.Logger,
) *Executor {
	return &Executor{uow: uow, processor: proc, timeProvider: timeProvider, logger: logger}
}

// Execute runs the plan. Writes happen in a fixed order (transaction row,
// processor steps, ledger steps, internal steps) so partial-failure
// diagnosis is deterministic. Any error means the database transaction was
// rolled back; landed processor calls are recorded on the plan's steps for
// the driver to compensate.
func (e *Executor) Execute(ctx context.Context, plan *TransactionPlan, opts ExecuteOptions) (*entity.Transaction, error) {
	if plan.Totals != nil && plan.Totals.Remainder > 0 && !opts.AllowRemainder {
		return nil, fmt.Errorf("%w: plan leaves %d unpaid", errs.ErrInsufficientBalance, plan.Totals.Remainder)
	}

	if opts.Simulate {
		return e.simulate(ctx, plan)
	}

	txCtx, err := e.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			if rbErr := e.uow.Rollback(txCtx); rbErr != nil {
				e.logger.Error("rollback failed", map[string]any{
					"transaction_id": plan.ID,
					"error":          rbErr.Error(),
				})
			}
		}
	}()

	valueRepo := e.uow.GetValueRepository(txCtx)
	txRepo := e.uow.GetTransactionRepository(txCtx)

	now := e.timeProvider.Now()
	transaction := plan.Transaction(now, false)
	if err := txRepo.Create(txCtx, transaction); err != nil {
		return nil, err
	}

	// Chain the predecessor before any processor call so a concurrent
	// capture/void/reverse of the same target loses here, not after a charge.
	if plan.PreviousTransactionID != "" {
		if err := txRepo.SetNextTransaction(txCtx, plan.PreviousTransactionID, plan.ID); err != nil {
			return nil, mapChainConflict(err, plan)
		}
	}

	if err := e.executeStripeSteps(ctx, txCtx, txRepo, plan); err != nil {
		return nil, err
	}
	if err := e.executeLightrailSteps(txCtx, valueRepo, txRepo, plan); err != nil {
		return nil, err
	}
	if err := e.executeInternalSteps(txCtx, txRepo, plan); err != nil {
		return nil, err
	}

	if err := e.uow.Commit(txCtx); err != nil {
		return nil, err
	}
	committed = true

	e.logger.Info("transaction committed", map[string]any{
		"transaction_id":   plan.ID,
		"transaction_type": string(plan.TransactionType),
		"currency":         plan.Currency,
		"steps":            len(plan.Steps),
	})
	return transaction, nil
}

// executeStripeSteps performs the processor calls and persists their rows.
// The calls are not transactional with the database: each landed call is
// recorded on its step before anything else can fail.
func (e *Executor) executeStripeSteps(
	ctx, txCtx context.Context,
	txRepo persistence.TransactionRepository,
	plan *TransactionPlan,
) error {
	for i, step := range plan.Steps {
		s, ok := step.(*entity.StripeStep)
		if !ok {
			continue
		}
		switch s.Type {
		case entity.ChargeTypeCharge:
			result, err := e.processor.Charge(ctx, procport.ChargeRequest{
				Amount:         s.Amount,
				Currency:       plan.Currency,
				Source:         s.Source,
				CustomerID:     s.CustomerID,
				Capture:        plan.PendingVoidDate == nil,
				IdempotencyKey: uuid.NewString(),
			})
			if err != nil {
				return err
			}
			s.ChargeID = result.ChargeID
			s.Captured = result.Captured
		case entity.ChargeTypeCapture:
			result, err := e.processor.Capture(ctx, s.ChargeID, s.Amount)
			if err != nil {
				return err
			}
			s.Captured = true
			s.Amount = result.Amount
		case entity.ChargeTypeRefund:
			result, err := e.processor.Refund(ctx, s.ChargeID, string(plan.TransactionType))
			if err != nil {
				return err
			}
			s.RefundID = result.RefundID
		}
		if err := txRepo.InsertStep(txCtx, plan.ID, i, s); err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) executeLightrailSteps(
	txCtx context.Context,
	valueRepo persistence.ValueRepository,
	txRepo persistence.TransactionRepository,
	plan *TransactionPlan,
) error {
	for i, step := range plan.Steps {
		s, ok := step.(*entity.LightrailStep)
		if !ok {
			continue
		}
		switch s.Action {
		case entity.ActionInsert:
			if err := valueRepo.Create(txCtx, s.NewValue); err != nil {
				return err
			}
		case entity.ActionUpdate:
			if err := e.applyUpdateStep(txCtx, valueRepo, s); err != nil {
				return err
			}
		}
		if err := txRepo.InsertStep(txCtx, plan.ID, i, s); err != nil {
			return err
		}
	}
	return nil
}

// applyUpdateStep locks the Value row, re-verifies the plan's assumptions
// and sufficiency, and applies the deltas. A balance or uses count that
// moved since planning makes the whole plan stale.
func (e *Executor) applyUpdateStep(
	txCtx context.Context,
	valueRepo persistence.ValueRepository,
	s *entity.LightrailStep,
) error {
	locked, err := valueRepo.GetForUpdate(txCtx, s.ValueID)
	if err != nil {
		return err
	}
	if locked.Canceled && !s.AllowCanceled {
		return fmt.Errorf("%w: value %s is canceled", errs.ErrValueNotUsable, locked.ID)
	}
	if locked.Frozen && !s.AllowFrozen {
		return fmt.Errorf("%w: value %s is frozen", errs.ErrValueNotUsable, locked.ID)
	}

	if s.BalanceBefore != nil && (locked.Balance == nil || *locked.Balance != *s.BalanceBefore) {
		return errs.NewReplanableError(locked.ID, "balance changed since planning")
	}
	if s.UsesBefore != nil && (locked.UsesRemaining == nil || *locked.UsesRemaining != *s.UsesBefore) {
		return errs.NewReplanableError(locked.ID, "uses remaining changed since planning")
	}

	if locked.Balance != nil {
		newBalance := *locked.Balance + s.Amount
		if newBalance < 0 {
			return &errs.InsufficientBalanceError{
				ValueID:        locked.ID,
				RequestedDelta: s.Amount,
				CurrentBalance: *locked.Balance,
			}
		}
		locked.Balance = &newBalance
		s.BalanceAfter = &newBalance
	}
	if locked.UsesRemaining != nil {
		newUses := *locked.UsesRemaining + s.Uses
		if newUses < 0 {
			return &errs.InsufficientUsesError{
				ValueID:        locked.ID,
				RequestedDelta: s.Uses,
				UsesRemaining:  *locked.UsesRemaining,
			}
		}
		locked.UsesRemaining = &newUses
		s.UsesAfter = &newUses
	}

	return valueRepo.Update(txCtx, locked)
}

func (e *Executor) executeInternalSteps(
	txCtx context.Context,
	txRepo persistence.TransactionRepository,
	plan *TransactionPlan,
) error {
	for i, step := range plan.Steps {
		s, ok := step.(*entity.InternalStep)
		if !ok {
			continue
		}
		if s.Balance+s.Amount < 0 {
			return &errs.InsufficientBalanceError{
				ValueID:        s.InternalID,
				RequestedDelta: s.Amount,
				CurrentBalance: s.Balance,
			}
		}
		if err := txRepo.InsertStep(txCtx, plan.ID, i, s); err != nil {
			return err
		}
	}
	return nil
}

// simulate materializes the transaction the plan would produce without any
// writes: no rows, no locks, no processor calls. Sufficiency is still
// verified against current committed state so the caller gets a faithful
// preview.
func (e *Executor) simulate(ctx context.Context, plan *TransactionPlan) (*entity.Transaction, error) {
	valueRepo := e.uow.GetValueRepository(ctx)
	txRepo := e.uow.GetTransactionRepository(ctx)

	exists, err := txRepo.Exists(ctx, plan.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", errs.ErrTransactionExists, plan.ID)
	}

	for _, s := range entity.LightrailSteps(plan.Steps) {
		if s.Action != entity.ActionUpdate {
			continue
		}
		current, err := valueRepo.GetByID(ctx, s.ValueID)
		if err != nil {
			return nil, err
		}
		if current.Balance != nil {
			newBalance := *current.Balance + s.Amount
			if newBalance < 0 {
				return nil, &errs.InsufficientBalanceError{
					ValueID:        current.ID,
					RequestedDelta: s.Amount,
					CurrentBalance: *current.Balance,
				}
			}
			s.BalanceAfter = &newBalance
		}
		if current.UsesRemaining != nil {
			newUses := *current.UsesRemaining + s.Uses
			if newUses < 0 {
				return nil, &errs.InsufficientUsesError{
					ValueID:        current.ID,
					RequestedDelta: s.Uses,
					UsesRemaining:  *current.UsesRemaining,
				}
			}
			s.UsesAfter = &newUses
		}
	}

	return plan.Transaction(e.timeProvider.Now(), true), nil
}

// mapChainConflict translates a lost race on the chain pointer into the
// domain error matching the intent.
func mapChainConflict(err error, plan *TransactionPlan) error {
	if !errors.Is(err, errs.ErrConflict) {
		return err
	}
	switch plan.TransactionType {
	case entity.TypeReverse:
		return fmt.Errorf("%w: transaction %s was already reversed", errs.ErrTransactionNotReversible, plan.PreviousTransactionID)
	case entity.TypeCapture, entity.TypeVoid:
		return fmt.Errorf("%w: transaction %s was already captured or voided", errs.ErrTransactionNotPending, plan.PreviousTransactionID)
	default:
		return err
	}
}
