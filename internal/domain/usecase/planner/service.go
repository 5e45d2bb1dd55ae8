package planner

import (
	"context"
	"time"

	"github.com/Giftbit/internal-rothschild-sub003/internal/domain/entity"
	errs "github.com/Giftbit/internal-rothschild-sub003/internal/domain/error"
	coreport "github.com/Giftbit/internal-rothschild-sub003/internal/domain/port/core"
	"github.com/Giftbit/internal-rothschild-sub003/internal/domain/port/persistence"
	procport "github.com/Giftbit/internal-rothschild-sub003/internal/domain/port/processor"
	ruleport "github.com/Giftbit/internal-rothschild-sub003/internal/domain/port/rules"
)

// DefaultPendingWindow is how long a pending checkout stays capturable when
// the configuration doesn't override it.
const DefaultPendingWindow = 7 * 24 * time.Hour

// Service is the engine's public surface: one entry point per intent type,
// each wrapping its builder in the driver's retry/compensation loop.
type Service struct {
	uow      persistence.UnitOfWork
	builder  *Builder
	executor *Executor
	driver   *Driver
	logger   coreport.Logger
}

// NewService wires the selector, builder, executor and driver together.
func NewService(
	uow persistence.UnitOfWork,
	proc procport.Processor,
	evaluator ruleport.Evaluator,
	timeProvider coreport.TimeProvider,
	logger coreport.Logger,
	metrics MetricsRecorder,
	pendingWindow time.Duration,
	maxPlanAttempts int,
) *Service {
	if pendingWindow <= 0 {
		pendingWindow = DefaultPendingWindow
	}
	selector := NewSelector(uow, timeProvider, logger)
	builder := NewBuilder(uow, selector, evaluator, timeProvider, logger, pendingWindow)
	executor := NewExecutor(uow, proc, timeProvider, logger)
	driver := NewDriver(executor, proc, logger, metrics, maxPlanAttempts)

	s := &Service{
		uow:      uow,
		builder:  builder,
		executor: executor,
		driver:   driver,
		logger:   logger,
	}
	builder.WithAttacher(s)
	return s
}

// Checkout plans and executes a cart checkout.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (*entity.Transaction, error) {
	return s.driver.Execute(ctx, func(ctx context.Context) (*TransactionPlan, error) {
		return s.builder.BuildCheckout(ctx, req)
	}, ExecuteOptions{AllowRemainder: req.AllowRemainder, Simulate: req.Simulate})
}

// Credit plans and executes a balance/uses increase.
func (s *Service) Credit(ctx context.Context, req CreditRequest) (*entity.Transaction, error) {
	return s.driver.Execute(ctx, func(ctx context.Context) (*TransactionPlan, error) {
		return s.builder.BuildCredit(ctx, req)
	}, ExecuteOptions{Simulate: req.Simulate})
}

// Debit plans and executes a draw-down.
func (s *Service) Debit(ctx context.Context, req DebitRequest) (*entity.Transaction, error) {
	return s.driver.Execute(ctx, func(ctx context.Context) (*TransactionPlan, error) {
		return s.builder.BuildDebit(ctx, req)
	}, ExecuteOptions{AllowRemainder: req.AllowRemainder, Simulate: req.Simulate})
}

// Transfer plans and executes a two-party move.
func (s *Service) Transfer(ctx context.Context, req TransferRequest) (*entity.Transaction, error) {
	return s.driver.Execute(ctx, func(ctx context.Context) (*TransactionPlan, error) {
		return s.builder.BuildTransfer(ctx, req)
	}, ExecuteOptions{AllowRemainder: req.AllowRemainder, Simulate: req.Simulate})
}

// Attach attaches a generic code to a contact and returns the created
// per-contact Value with its attach transaction.
func (s *Service) Attach(ctx context.Context, req AttachRequest) (*entity.Value, *entity.Transaction, error) {
	var plan *TransactionPlan
	transaction, err := s.driver.Execute(ctx, func(ctx context.Context) (*TransactionPlan, error) {
		var buildErr error
		plan, buildErr = s.builder.BuildAttach(ctx, req)
		return plan, buildErr
	}, ExecuteOptions{})
	if err != nil {
		if errs.IsConflictError(err) && plan != nil {
			return nil, nil, errs.ErrValueAlreadyAttached
		}
		return nil, nil, err
	}

	attached := attachedValueOf(plan)
	return attached, transaction, nil
}

// Reverse negates a committed transaction.
func (s *Service) Reverse(ctx context.Context, req ReverseRequest) (*entity.Transaction, error) {
	return s.driver.Execute(ctx, func(ctx context.Context) (*TransactionPlan, error) {
		return s.builder.BuildReverse(ctx, req)
	}, ExecuteOptions{})
}

// Capture captures a pending transaction.
func (s *Service) Capture(ctx context.Context, req CaptureRequest) (*entity.Transaction, error) {
	return s.driver.Execute(ctx, func(ctx context.Context) (*TransactionPlan, error) {
		return s.builder.BuildCapture(ctx, req)
	}, ExecuteOptions{})
}

// Void releases a pending transaction.
func (s *Service) Void(ctx context.Context, req VoidRequest) (*entity.Transaction, error) {
	return s.driver.Execute(ctx, func(ctx context.Context) (*TransactionPlan, error) {
		return s.builder.BuildVoid(ctx, req)
	}, ExecuteOptions{})
}

// GetTransaction retrieves a committed transaction with its steps.
func (s *Service) GetTransaction(ctx context.Context, id string) (*entity.Transaction, error) {
	return s.uow.GetTransactionRepository(ctx).GetByID(ctx, id)
}

// ensureAttached implements the selector's auto-attach hook: checkout
// sources naming a generic code alongside a contact get the contact's
// derived Value, creating it on first use. A concurrent attach losing the
// unique-key race just reads the winner's row.
func (s *Service) ensureAttached(ctx context.Context, generic *entity.Value, contactID, createdBy string) (*entity.Value, error) {
	valueRepo := s.uow.GetValueRepository(ctx)
	attachedID := entity.AttachedValueID(generic.ID, contactID)

	existing, err := valueRepo.GetByID(ctx, attachedID)
	if err == nil {
		return existing, nil
	}
	if !errs.IsNotFoundError(err) {
		return nil, err
	}

	// Each attempt re-reads the generic Value so a replan after a pool
	// conflict plans from the fresh balance, not the caller's snapshot.
	_, execErr := s.driver.Execute(ctx, func(ctx context.Context) (*TransactionPlan, error) {
		g, err := valueRepo.GetByID(ctx, generic.ID)
		if err != nil {
			return nil, err
		}
		return s.builder.buildAttachPlan(g, contactID, createdBy)
	}, ExecuteOptions{})
	if execErr != nil && !errs.IsConflictError(execErr) {
		return nil, execErr
	}

	return valueRepo.GetByID(ctx, attachedID)
}

func attachedValueOf(plan *TransactionPlan) *entity.Value {
	for _, s := range entity.LightrailSteps(plan.Steps) {
		if s.Action == entity.ActionInsert {
			return s.NewValue
		}
	}
	return nil
}
