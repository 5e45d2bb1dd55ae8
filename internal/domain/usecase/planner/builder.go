package planner

import (
	"context"
	"fmt"
	"time"

	"github.com/Giftbit/internal-rothschild-sub003/internal/domain/entity"
	errs "github.com/Giftbit/internal-rothschild-sub003/internal/domain/error"
	coreport "github.com/Giftbit/internal-rothschild-sub003/internal/domain/port/core"
	"github.com/Giftbit/internal-rothschild-sub003/internal/domain/port/persistence"
	ruleport "github.com/Giftbit/internal-rothschild-sub003/internal/domain/port/rules"
)

// Builder turns inbound intents into TransactionPlans. It reads committed
// Value state; nothing it computes is trusted by the executor, which
// re-verifies sufficiency under locks.
type Builder struct {
	uow           persistence.UnitOfWork
	selector      *Selector
	evaluator     ruleport.Evaluator
	timeProvider  coreport.TimeProvider
	logger        coreport.Logger
	pendingWindow time.Duration
	att           attacher
}

// NewBuilder creates a plan builder. pendingWindow is how long a pending
// checkout stays capturable before its void deadline.
func NewBuilder(
	uow persistence.UnitOfWork,
	selector *Selector,
	evaluator ruleport.Evaluator,
	timeProvider coreport.TimeProvider,
	logger coreport.Logger,
	pendingWindow time.Duration,
) *Builder {
	return &Builder{
		uow:           uow,
		selector:      selector,
		evaluator:     evaluator,
		timeProvider:  timeProvider,
		logger:        logger,
		pendingWindow: pendingWindow,
	}
}

// WithAttacher wires the auto-attach hook used during source resolution.
func (b *Builder) WithAttacher(att attacher) *Builder {
	b.att = att
	return b
}

// valueDraw accumulates one resolved Value's contribution across line items.
type valueDraw struct {
	value *entity.Value
	// remaining is the undrawn pool for balance-tracked Values.
	remaining int64
	amount    int64
	used      bool
}

func newValueDraw(v *entity.Value) *valueDraw {
	d := &valueDraw{value: v}
	if v.Balance != nil {
		d.remaining = *v.Balance
	}
	return d
}

// usable reports whether the Value can still participate: a tracked balance
// must have pool left, tracked uses must have at least one use. A Value
// tracking neither a balance nor a balance rule carries no funds of its own
// (an unattached generic code) and can never pay.
func (d *valueDraw) usable() bool {
	if d.value.Balance == nil && d.value.BalanceRule == nil {
		return false
	}
	if d.value.UsesRemaining != nil && *d.value.UsesRemaining < 1 {
		return false
	}
	if d.value.Balance != nil && d.remaining <= 0 {
		return false
	}
	return true
}

// draw takes up to want from the Value for the given line item, honoring the
// balance pool or, for rule-valued Values, the per-item rule amount.
func (b *Builder) draw(d *valueDraw, item *entity.LineItem, want int64) (int64, error) {
	if want <= 0 || !d.usable() {
		return 0, nil
	}
	avail := want
	if d.value.BalanceRule != nil {
		ruleAmount, err := b.evaluator.EvaluateNumber(d.value.BalanceRule.Expression, lineItemContext(item))
		if err != nil {
			return 0, err
		}
		if ruleAmount < avail {
			avail = ruleAmount
		}
	} else if d.value.Balance != nil && d.remaining < avail {
		avail = d.remaining
	}
	if avail <= 0 {
		return 0, nil
	}
	d.amount += avail
	d.used = true
	if d.value.Balance != nil {
		d.remaining -= avail
	}
	return avail, nil
}

// eligible evaluates the Value's redemption rule against the line item.
// Values without a rule pay for anything.
func (b *Builder) eligible(v *entity.Value, item *entity.LineItem) (bool, error) {
	if v.RedemptionRule == nil {
		return true, nil
	}
	ok, err := b.evaluator.EvaluateBool(v.RedemptionRule.Expression, lineItemContext(item))
	if err != nil {
		return false, err
	}
	return ok, nil
}

// lineItemContext is the data a redemption or balance rule sees.
func lineItemContext(item *entity.LineItem) ruleport.Context {
	lt := map[string]any{}
	if item.LineTotal != nil {
		lt = map[string]any{
			"subtotal":  item.LineTotal.Subtotal,
			"taxable":   item.LineTotal.Taxable,
			"tax":       item.LineTotal.Tax,
			"discount":  item.LineTotal.Discount,
			"payable":   item.LineTotal.Payable,
			"remainder": item.LineTotal.Remainder,
		}
	}
	return ruleport.Context{
		"currentLineItem": map[string]any{
			"type":      string(item.Type),
			"productId": item.ProductID,
			"unitPrice": item.UnitPrice,
			"quantity":  item.Quantity,
			"taxRate":   item.TaxRate,
			"tags":      item.Tags,
			"metadata":  item.Metadata,
			"lineTotal": lt,
		},
	}
}

// step materializes a draw into its ledger step. Uses are consumed once per
// transaction a Value participates in, not once per line item.
func (d *valueDraw) step() *entity.LightrailStep {
	s := &entity.LightrailStep{
		ValueID:      d.value.ID,
		Action:       entity.ActionUpdate,
		Amount:       -d.amount,
		DiscountStep: d.value.Discount,
	}
	if d.value.Balance != nil {
		before := *d.value.Balance
		after := before - d.amount
		s.BalanceBefore = &before
		s.BalanceAfter = &after
	}
	if d.value.UsesRemaining != nil {
		before := *d.value.UsesRemaining
		after := before - 1
		s.Uses = -1
		s.UsesBefore = &before
		s.UsesAfter = &after
	}
	return s
}

func validateCommon(id, currency string) error {
	if err := entity.ValidateTransactionID(id); err != nil {
		return err
	}
	if currency == "" {
		return fmt.Errorf("%w: currency is required", errs.ErrInvalidCurrency)
	}
	return nil
}

// resolveSingleValue resolves a one-party source (credit/debit/transfer) to
// its concrete Value, checking currency but not usability guards that the
// specific builder owns.
func (b *Builder) resolveSingleValue(ctx context.Context, currency string, src PaymentSource) (*entity.Value, error) {
	valueRepo := b.uow.GetValueRepository(ctx)
	var v *entity.Value
	var err error
	switch {
	case src.ValueID != "":
		v, err = valueRepo.GetByID(ctx, src.ValueID)
	case src.Code != "":
		v, err = valueRepo.GetByCode(ctx, entity.HashCode(src.Code))
	default:
		return nil, fmt.Errorf("%w: source requires valueId or code", errs.ErrInvalidValueState)
	}
	if err != nil {
		return nil, err
	}
	if v.Currency != currency {
		return nil, fmt.Errorf("%w: value %s is %s, transaction is %s",
			errs.ErrInvalidCurrency, v.ID, v.Currency, currency)
	}
	return v, nil
}
