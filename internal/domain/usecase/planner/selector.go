package planner

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/Giftbit/internal-rothschild-sub003/internal/domain/entity"
	errs "github.com/Giftbit/internal-rothschild-sub003/internal/domain/error"
	coreport "github.com/Giftbit/internal-rothschild-sub003/internal/domain/port/core"
	"github.com/Giftbit/internal-rothschild-sub003/internal/domain/port/persistence"
)

// Selector resolves caller-supplied payment sources into concrete payable
// parties and computes the deterministic application order for ledger-rail
// sources.
type Selector struct {
	uow          persistence.UnitOfWork
	timeProvider coreport.TimeProvider
	logger       coreport.Logger
}

// NewSelector creates a Selector reading committed Value state.
func NewSelector(uow persistence.UnitOfWork, timeProvider coreport.TimeProvider, logger coreport.Logger) *Selector {
	return &Selector{uow: uow, timeProvider: timeProvider, logger: logger}
}

// resolvedSources partitions the request's sources by rail. Values are
// already in application order; stripe and internal sources keep caller order.
type resolvedSources struct {
	values   []*entity.Value
	internal []PaymentSource
	stripe   []PaymentSource
}

// attacher hooks generic-code auto-attach into resolution. The planner
// service implements it with the full attach flow (its own transaction).
type attacher interface {
	ensureAttached(ctx context.Context, generic *entity.Value, contactID, createdBy string) (*entity.Value, error)
}

// Resolve turns the request's sources into concrete parties. A contact
// source expands to all of the contact's usable Values for the currency; a
// generic code auto-attaches when a contact source is also present.
// Repeated references to the same Value collapse to a single draw against
// its one balance.
func (s *Selector) Resolve(ctx context.Context, currency string, sources []PaymentSource, att attacher, createdBy string) (*resolvedSources, error) {
	valueRepo := s.uow.GetValueRepository(ctx)
	now := s.timeProvider.Now()

	contactID := firstContactID(sources)

	resolved := &resolvedSources{}
	seen := map[string]bool{}
	for _, src := range sources {
		if err := src.validate(); err != nil {
			return nil, err
		}
		switch src.Rail {
		case entity.RailStripe:
			resolved.stripe = append(resolved.stripe, src)
		case entity.RailInternal:
			resolved.internal = append(resolved.internal, src)
		case entity.RailLightrail:
			values, err := s.resolveLightrailSource(ctx, valueRepo, src, contactID, currency, att, createdBy)
			if err != nil {
				return nil, err
			}
			for _, v := range values {
				if v.Currency != currency {
					return nil, fmt.Errorf("%w: value %s is %s, transaction is %s",
						errs.ErrInvalidCurrency, v.ID, v.Currency, currency)
				}
				if err := v.Usable(now); err != nil {
					// Values named directly must be usable; a contact's
					// expansion just skips unusable ones.
					if src.ValueID != "" || src.Code != "" {
						return nil, err
					}
					continue
				}
				if seen[v.ID] {
					continue
				}
				seen[v.ID] = true
				resolved.values = append(resolved.values, v)
			}
		}
	}

	resolved.values = OrderValues(resolved.values)
	return resolved, nil
}

func (s *Selector) resolveLightrailSource(
	ctx context.Context,
	valueRepo persistence.ValueRepository,
	src PaymentSource,
	contactID, currency string,
	att attacher,
	createdBy string,
) ([]*entity.Value, error) {
	switch {
	case src.ValueID != "":
		v, err := valueRepo.GetByID(ctx, src.ValueID)
		if err != nil {
			return nil, err
		}
		return []*entity.Value{v}, nil

	case src.Code != "":
		v, err := valueRepo.GetByCode(ctx, entity.HashCode(src.Code))
		if err != nil {
			return nil, err
		}
		if v.IsGenericCode && contactID != "" && att != nil {
			attached, err := att.ensureAttached(ctx, v, contactID, createdBy)
			if err != nil {
				return nil, err
			}
			return []*entity.Value{attached}, nil
		}
		return []*entity.Value{v}, nil

	case src.ContactID != "":
		values, err := valueRepo.ListByCurrencyAndContact(ctx, currency, src.ContactID)
		if err != nil && !errors.Is(err, errs.ErrValueNotFound) {
			return nil, err
		}
		return values, nil
	}
	return nil, nil
}

// OrderValues sorts ledger-rail candidates into their deterministic
// application order, independent of the order sources were supplied in:
//  1. discount Values first (they reduce the payable base before tender),
//  2. expiring Values before unexpiring, soonest endDate first (avoid
//     stranding value that will lapse),
//  3. unrestricted Values before redemption-rule-restricted ones (preserve
//     restricted Values for the items that need them).
//
// Ties retain resolution order. The input slice is not modified.
func OrderValues(values []*entity.Value) []*entity.Value {
	ordered := make([]*entity.Value, len(values))
	copy(ordered, values)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.Discount != b.Discount {
			return a.Discount
		}
		aEnds, bEnds := a.EndDate != nil, b.EndDate != nil
		if aEnds != bEnds {
			return aEnds
		}
		if aEnds && !a.EndDate.Equal(*b.EndDate) {
			return a.EndDate.Before(*b.EndDate)
		}
		aRuled, bRuled := a.RedemptionRule != nil, b.RedemptionRule != nil
		if aRuled != bRuled {
			return bRuled
		}
		return false
	})
	return ordered
}

func firstContactID(sources []PaymentSource) string {
	for _, src := range sources {
		if src.Rail == entity.RailLightrail && src.ContactID != "" {
			return src.ContactID
		}
	}
	return ""
}
