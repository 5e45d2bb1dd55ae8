package planner

import (
	"context"

	"github.com/Giftbit/internal-rothschild-sub003/internal/domain/entity"
	errs "github.com/Giftbit/internal-rothschild-sub003/internal/domain/error"
	coreport "github.com/Giftbit/internal-rothschild-sub003/internal/domain/port/core"
	procport "github.com/Giftbit/internal-rothschild-sub003/internal/domain/port/processor"
)

// defaultMaxPlanAttempts bounds the replan loop when no bound is configured.
// The conflict is expected to be resolved by the concurrent writer's own
// commit, so no backoff is needed.
const defaultMaxPlanAttempts = 3

// MetricsRecorder counts engine outcomes. Implemented with prometheus in
// infrastructure; NopMetrics for tests.
type MetricsRecorder interface {
	TransactionCommitted(transactionType entity.TransactionType)
	TransactionFailed(transactionType entity.TransactionType, errorCode int)
	ReplanRetried(transactionType entity.TransactionType)
	CompensationAttempted(outcome string)
}

// NopMetrics discards all observations.
type NopMetrics struct{}

func (NopMetrics) TransactionCommitted(entity.TransactionType)   {}
func (NopMetrics) TransactionFailed(entity.TransactionType, int) {}
func (NopMetrics) ReplanRetried(entity.TransactionType)          {}
func (NopMetrics) CompensationAttempted(string)                  {}

// PlanBuilderFunc builds a fresh plan from current committed state. The
// driver calls it again after each detected conflict.
type PlanBuilderFunc func(ctx context.Context) (*TransactionPlan, error)

// Driver wraps the builder and executor in a retry loop. Per execution the
// plan moves Planning → Executing → Committed, or back to Planning on a
// replanable conflict (bounded), or into compensation when a non-replanable
// failure left landed processor charges. Database effects of a failed
// attempt are already rolled back by the executor; only processor side
// effects need reversing here, synchronously, before the error surfaces.
type Driver struct {
	executor    *Executor
	processor   procport.Processor
	logger      coreport.Logger
	metrics     MetricsRecorder
	maxAttempts int
}

// NewDriver creates a Driver. A non-positive maxAttempts falls back to the
// default bound.
func NewDriver(executor *Executor, proc procport.Processor, logger coreport.Logger, metrics MetricsRecorder, maxAttempts int) *Driver {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxPlanAttempts
	}
	return &Driver{executor: executor, processor: proc, logger: logger, metrics: metrics, maxAttempts: maxAttempts}
}

// Execute drives one intent to a terminal state.
func (d *Driver) Execute(ctx context.Context, build PlanBuilderFunc, opts ExecuteOptions) (*entity.Transaction, error) {
	for attempt := 1; ; attempt++ {
		plan, err := build(ctx)
		if err != nil {
			return nil, err
		}

		transaction, err := d.executor.Execute(ctx, plan, opts)
		if err == nil {
			d.metrics.TransactionCommitted(plan.TransactionType)
			return transaction, nil
		}

		// Whatever happens next, landed charges from this attempt must not
		// leak: the database already rolled back, the processor cannot.
		if compErr := d.compensate(ctx, plan, err); compErr != nil {
			d.metrics.TransactionFailed(plan.TransactionType, errs.ErrorCode(compErr))
			return nil, compErr
		}

		if errs.IsReplanable(err) && attempt < d.maxAttempts {
			d.metrics.ReplanRetried(plan.TransactionType)
			d.logger.Info("plan conflicted, replanning", map[string]any{
				"transaction_id": plan.ID,
				"attempt":        attempt,
				"error":          err.Error(),
			})
			continue
		}

		d.metrics.TransactionFailed(plan.TransactionType, errs.ErrorCode(err))
		return nil, err
	}
}

// compensate reverses the processor side effects of a failed execution.
// Charges and captures are refunded. A landed refund cannot itself be
// reversed: that attempt ends in an irrecoverable error for operator
// attention, because ledger and processor can no longer be reconciled
// automatically.
func (d *Driver) compensate(ctx context.Context, plan *TransactionPlan, cause error) error {
	for _, s := range entity.StripeSteps(plan.Steps) {
		switch {
		case s.Type == entity.ChargeTypeRefund && s.RefundID != "":
			err := &errs.IrrecoverableError{TransactionID: plan.ID, ChargeID: s.ChargeID, Err: cause}
			d.logger.Error("refund landed before a failure and cannot be re-reversed; manual reconciliation required", err.LogFields())
			d.metrics.CompensationAttempted("irrecoverable")
			return err

		case s.Type == entity.ChargeTypeCharge && s.ChargeID != "",
			s.Type == entity.ChargeTypeCapture && s.Captured:
			if _, refundErr := d.processor.Refund(ctx, s.ChargeID, "transaction failed"); refundErr != nil {
				err := &errs.IrrecoverableError{TransactionID: plan.ID, ChargeID: s.ChargeID, Err: refundErr}
				d.logger.Error("compensating refund failed; manual reconciliation required", err.LogFields())
				d.metrics.CompensationAttempted("irrecoverable")
				return err
			}
			d.metrics.CompensationAttempted("refunded")
			d.logger.Warn("compensated charge after failed transaction", map[string]any{
				"transaction_id": plan.ID,
				"charge_id":      s.ChargeID,
				"amount":         s.Amount,
				"cause":          cause.Error(),
			})
			s.ChargeID = ""
			s.Captured = false
		}
	}
	return nil
}
