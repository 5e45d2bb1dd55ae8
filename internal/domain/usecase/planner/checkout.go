package planner

import (
	"context"
	"fmt"

	"github.com/Giftbit/internal-rothschild-sub003/internal/domain/entity"
	errs "github.com/Giftbit/internal-rothschild-sub003/internal/domain/error"
)

// BuildCheckout plans a cart checkout:
//
//  1. per-line subtotals, then pretax discount Values reduce the taxable
//     amount, then tax is applied per line with the requested rounding mode,
//  2. the remaining payable is walked source by source in deterministic
//     order: beforeLightrail internal sources, ledger Values, remaining
//     internal sources, then the processor,
//  3. totals are recomputed bottom-up from the emitted steps.
//
// An uncovered payable fails with insufficient balance unless the request
// allows a remainder.
func (b *Builder) BuildCheckout(ctx context.Context, req CheckoutRequest) (*TransactionPlan, error) {
	if err := validateCommon(req.ID, req.Currency); err != nil {
		return nil, err
	}
	if len(req.LineItems) == 0 {
		return nil, fmt.Errorf("%w: checkout requires at least one line item", errs.ErrInvalidValueState)
	}
	if err := ValidateRoundingMode(req.TaxRoundingMode); err != nil {
		return nil, err
	}
	mode := req.TaxRoundingMode
	if mode == "" {
		mode = DefaultRoundingMode
	}

	resolved, err := b.selector.Resolve(ctx, req.Currency, req.Sources, b.att, req.CreatedBy)
	if err != nil {
		return nil, err
	}

	items := initLineItems(req.LineItems)
	draws := make([]*valueDraw, 0, len(resolved.values))
	for _, v := range resolved.values {
		draws = append(draws, newValueDraw(v))
	}

	// Pretax phase: discount Values flagged pretax, then pretax internal
	// sources, reduce the taxable base.
	for _, d := range draws {
		if !d.value.Discount || !d.value.Pretax {
			continue
		}
		if err := b.applyDrawToItems(d, items, taxablePhase); err != nil {
			return nil, err
		}
	}
	internalDraws := make(map[int]int64, len(resolved.internal))
	for i, src := range resolved.internal {
		if src.Pretax {
			internalDraws[i] = applyInternalToItems(src, internalDraws[i], items, taxablePhase)
		}
	}

	// Tax, per line item, on the post-pretax-discount taxable amount.
	for _, item := range items {
		lt := item.LineTotal
		lt.Tax = calculateTax(lt.Taxable, item.TaxRate, mode)
		lt.Remainder = lt.Taxable + lt.Tax
	}

	// Post-tax phase, in application order.
	for i, src := range resolved.internal {
		if !src.Pretax && src.BeforeLightrail {
			internalDraws[i] = applyInternalToItems(src, internalDraws[i], items, remainderPhase)
		}
	}
	for _, d := range draws {
		if d.value.Discount && d.value.Pretax {
			continue
		}
		if err := b.applyDrawToItems(d, items, remainderPhase); err != nil {
			return nil, err
		}
	}
	for i, src := range resolved.internal {
		if !src.Pretax && !src.BeforeLightrail {
			internalDraws[i] = applyInternalToItems(src, internalDraws[i], items, remainderPhase)
		}
	}

	// The processor takes whatever payable is left.
	var stripeAmount int64
	if len(resolved.stripe) > 0 {
		for _, item := range items {
			stripeAmount += item.LineTotal.Remainder
			item.LineTotal.Remainder = 0
		}
	}

	steps := b.checkoutSteps(req, resolved, draws, internalDraws, stripeAmount)

	for _, item := range items {
		lt := item.LineTotal
		lt.Payable = lt.Subtotal + lt.Tax - lt.Discount
	}
	totals := computeTotals(items, steps)

	if totals.Remainder > 0 && !req.AllowRemainder {
		return nil, fmt.Errorf("%w: %d remains unpaid after all sources", errs.ErrInsufficientBalance, totals.Remainder)
	}

	plan := &TransactionPlan{
		ID:              req.ID,
		TransactionType: entity.TypeCheckout,
		Currency:        req.Currency,
		Steps:           steps,
		Totals:          totals,
		LineItems:       items,
		Metadata:        req.Metadata,
		CreatedBy:       req.CreatedBy,
	}
	plan.RootTransactionID = req.ID
	if req.Pending {
		deadline := b.timeProvider.Now().Add(b.pendingWindow)
		plan.PendingVoidDate = &deadline
	}
	return plan, nil
}

// drawPhase selects which running amount of a line item a draw reduces.
type drawPhase int

const (
	taxablePhase drawPhase = iota
	remainderPhase
)

func initLineItems(lineItems []*entity.LineItem) []*entity.LineItem {
	items := make([]*entity.LineItem, len(lineItems))
	for i, li := range lineItems {
		item := *li
		sub := item.Subtotal()
		item.LineTotal = &entity.LineTotal{Subtotal: sub, Taxable: sub}
		items[i] = &item
	}
	return items
}

// applyDrawToItems walks the line items and takes what the Value can and is
// eligible to cover in this phase.
func (b *Builder) applyDrawToItems(d *valueDraw, items []*entity.LineItem, phase drawPhase) error {
	for _, item := range items {
		lt := item.LineTotal
		want := lt.Remainder
		if phase == taxablePhase {
			want = lt.Taxable
		}
		if want <= 0 {
			continue
		}
		ok, err := b.eligible(d.value, item)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		got, err := b.draw(d, item, want)
		if err != nil {
			return err
		}
		if got == 0 {
			continue
		}
		if phase == taxablePhase {
			lt.Taxable -= got
		} else {
			lt.Remainder -= got
		}
		if d.value.Discount {
			lt.Discount += got
		}
	}
	return nil
}

// applyInternalToItems draws from an internal source's declared balance.
// drawn is what earlier phases already took from it.
func applyInternalToItems(src PaymentSource, drawn int64, items []*entity.LineItem, phase drawPhase) int64 {
	avail := src.Balance - drawn
	for _, item := range items {
		if avail <= 0 {
			break
		}
		lt := item.LineTotal
		want := lt.Remainder
		if phase == taxablePhase {
			want = lt.Taxable
		}
		if want <= 0 {
			continue
		}
		got := want
		if avail < got {
			got = avail
		}
		avail -= got
		drawn += got
		if phase == taxablePhase {
			lt.Taxable -= got
		} else {
			lt.Remainder -= got
		}
	}
	return drawn
}

// checkoutSteps assembles the plan's steps in economic application order:
// pretax ledger discounts sort ahead of tender within the ordered draws, so
// the ledger sequence is already correct; internal and processor steps slot
// around them per their flags.
func (b *Builder) checkoutSteps(
	req CheckoutRequest,
	resolved *resolvedSources,
	draws []*valueDraw,
	internalDraws map[int]int64,
	stripeAmount int64,
) []entity.Step {
	var steps []entity.Step

	appendInternal := func(filter func(PaymentSource) bool) {
		for i, src := range resolved.internal {
			amount := internalDraws[i]
			if amount == 0 || !filter(src) {
				continue
			}
			steps = append(steps, &entity.InternalStep{
				InternalID:      src.InternalID,
				Balance:         src.Balance,
				Amount:          -amount,
				Pretax:          src.Pretax,
				BeforeLightrail: src.BeforeLightrail,
			})
		}
	}

	appendInternal(func(s PaymentSource) bool { return s.Pretax || s.BeforeLightrail })
	for _, d := range draws {
		if d.used {
			steps = append(steps, d.step())
		}
	}
	appendInternal(func(s PaymentSource) bool { return !s.Pretax && !s.BeforeLightrail })

	if stripeAmount > 0 {
		src := resolved.stripe[0]
		step := &entity.StripeStep{
			Type:       entity.ChargeTypeCharge,
			Source:     src.Source,
			CustomerID: src.CustomerID,
			Amount:     stripeAmount,
		}
		if req.Pending {
			step.PendingAmount = stripeAmount
		}
		steps = append(steps, step)
	}
	return steps
}
