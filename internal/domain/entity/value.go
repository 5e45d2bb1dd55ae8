package entity

import (
	"fmt"
	"time"

	errs "github.com/Giftbit/internal-rothschild-sub003/internal/domain/error"
	coreport "github.com/Giftbit/internal-rothschild-sub003/internal/domain/port/core"
)

// Rule is an expression evaluated against a Value and a line-item context.
// Redemption rules must evaluate to a boolean; balance rules to a number of
// minor currency units.
type Rule struct {
	Expression  string `json:"rule"`
	Explanation string `json:"explanation,omitempty"`
}

// GenericCodeOptions configures what each contact receives when a shared
// generic code is attached to them.
type GenericCodeOptions struct {
	PerContactBalance *int64 `json:"perContactBalance,omitempty"`
	PerContactUses    *int64 `json:"perContactUses,omitempty"`
}

// Value is a balance- and/or usage-bearing account: a gift card, a credit,
// a promotion or a shared generic code. Balances are integer minor currency
// units. Balance mutations only ever happen through Transaction steps.
type Value struct {
	ID            string
	Currency      string
	Balance       *int64
	UsesRemaining *int64

	ProgramID  string
	IssuanceID string
	ContactID  string

	Active                  bool
	Frozen                  bool
	Canceled                bool
	Discount                bool
	Pretax                  bool
	DiscountSellerLiability *float64

	RedemptionRule *Rule
	BalanceRule    *Rule

	StartDate *time.Time
	EndDate   *time.Time

	CodeHashed          string
	CodeLast4           string
	IsGenericCode       bool
	GenericCodeOptions  *GenericCodeOptions
	AttachedFromValueID string

	CreatedAt time.Time
	UpdatedAt time.Time
	CreatedBy string
}

// ValueParams are the required fields for constructing a Value.
type ValueParams struct {
	ID       string
	Currency string
}

// ValueOptions are the optional fields for constructing a Value, with their
// defaults documented: a Value is active, not frozen, not a discount, and has
// no balance, uses, rules or validity window unless set here.
type ValueOptions struct {
	Balance                 *int64
	UsesRemaining           *int64
	ProgramID               string
	IssuanceID              string
	ContactID               string
	Inactive                bool
	Discount                bool
	Pretax                  bool
	DiscountSellerLiability *float64
	RedemptionRule          *Rule
	BalanceRule             *Rule
	StartDate               *time.Time
	EndDate                 *time.Time
	Code                    string
	IsGenericCode           bool
	GenericCodeOptions      *GenericCodeOptions
	AttachedFromValueID     string
	CreatedBy               string
}

// NewValue creates a Value from required params plus options, validating the
// combined state before returning it.
func NewValue(params ValueParams, opts ValueOptions, timeProvider coreport.TimeProvider) (*Value, error) {
	if params.ID == "" {
		return nil, fmt.Errorf("%w: id is required", errs.ErrInvalidValueState)
	}
	if params.Currency == "" {
		return nil, fmt.Errorf("%w: currency is required", errs.ErrInvalidCurrency)
	}

	now := timeProvider.Now()
	v := &Value{
		ID:                      params.ID,
		Currency:                params.Currency,
		Balance:                 opts.Balance,
		UsesRemaining:           opts.UsesRemaining,
		ProgramID:               opts.ProgramID,
		IssuanceID:              opts.IssuanceID,
		ContactID:               opts.ContactID,
		Active:                  !opts.Inactive,
		Discount:                opts.Discount,
		Pretax:                  opts.Pretax,
		DiscountSellerLiability: opts.DiscountSellerLiability,
		RedemptionRule:          opts.RedemptionRule,
		BalanceRule:             opts.BalanceRule,
		StartDate:               opts.StartDate,
		EndDate:                 opts.EndDate,
		IsGenericCode:           opts.IsGenericCode,
		GenericCodeOptions:      opts.GenericCodeOptions,
		AttachedFromValueID:     opts.AttachedFromValueID,
		CreatedAt:               now,
		UpdatedAt:               now,
		CreatedBy:               opts.CreatedBy,
	}

	if opts.Code != "" {
		v.CodeHashed = HashCode(opts.Code)
		v.CodeLast4 = CodeLast4(opts.Code)
	}

	if err := v.Validate(); err != nil {
		return nil, err
	}
	return v, nil
}

// Validate checks the cross-field invariants of the Value.
func (v *Value) Validate() error {
	if v.Balance != nil && v.BalanceRule != nil {
		return fmt.Errorf("%w: balance and balanceRule are mutually exclusive", errs.ErrInvalidValueState)
	}
	if v.Balance == nil && v.BalanceRule == nil && !v.hasPerContactGrant() {
		return fmt.Errorf("%w: one of balance or balanceRule must be set", errs.ErrInvalidValueState)
	}
	if v.DiscountSellerLiability != nil {
		if !v.Discount {
			return fmt.Errorf("%w: discountSellerLiability requires discount", errs.ErrInvalidValueState)
		}
		if *v.DiscountSellerLiability < 0 || *v.DiscountSellerLiability > 1 {
			return fmt.Errorf("%w: discountSellerLiability must be between 0 and 1", errs.ErrInvalidValueState)
		}
	}
	if v.ContactID != "" && v.IsGenericCode {
		return fmt.Errorf("%w: a generic code cannot be owned by a contact", errs.ErrInvalidValueState)
	}
	if v.StartDate != nil && v.EndDate != nil && v.StartDate.After(*v.EndDate) {
		return fmt.Errorf("%w: startDate must not be after endDate", errs.ErrInvalidValueState)
	}
	return nil
}

// hasPerContactGrant reports whether this is a shared generic code whose
// balance lives on the per-contact Values created by attach.
func (v *Value) hasPerContactGrant() bool {
	return v.IsGenericCode && v.GenericCodeOptions != nil
}

// Usable reports whether the Value can participate in a transaction at the
// given instant. A nil error means usable.
func (v *Value) Usable(now time.Time) error {
	switch {
	case v.Canceled:
		return fmt.Errorf("%w: value %s is canceled", errs.ErrValueNotUsable, v.ID)
	case v.Frozen:
		return fmt.Errorf("%w: value %s is frozen", errs.ErrValueNotUsable, v.ID)
	case !v.Active:
		return fmt.Errorf("%w: value %s is inactive", errs.ErrValueNotUsable, v.ID)
	case v.StartDate != nil && now.Before(*v.StartDate):
		return fmt.Errorf("%w: value %s is not yet redeemable", errs.ErrValueNotUsable, v.ID)
	case v.EndDate != nil && now.After(*v.EndDate):
		return fmt.Errorf("%w: value %s is expired", errs.ErrValueNotUsable, v.ID)
	}
	return nil
}

// BalanceOrZero returns the tracked balance, or 0 when the Value is
// rule-valued or untracked.
func (v *Value) BalanceOrZero() int64 {
	if v.Balance == nil {
		return 0
	}
	return *v.Balance
}
