package dto

import (
	"time"

	"github.com/Giftbit/internal-rothschild-sub003/internal/domain/entity"
)

// RuleDTO is the wire form of a redemption or balance rule
type RuleDTO struct {
	Rule        string `json:"rule" binding:"required"`
	Explanation string `json:"explanation,omitempty"`
}

// GenericCodeOptionsDTO is the wire form of per-contact attach grants
type GenericCodeOptionsDTO struct {
	PerContactBalance *int64 `json:"perContactBalance,omitempty"`
	PerContactUses    *int64 `json:"perContactUses,omitempty"`
}

// CreateValueRequest is the inbound payload for creating a Value
type CreateValueRequest struct {
	ID                      string                 `json:"id" binding:"required"`
	Currency                string                 `json:"currency" binding:"required"`
	Balance                 *int64                 `json:"balance,omitempty"`
	UsesRemaining           *int64                 `json:"usesRemaining,omitempty"`
	Code                    string                 `json:"code,omitempty"`
	GenerateCode            bool                   `json:"generateCode,omitempty"`
	IsGenericCode           bool                   `json:"isGenericCode,omitempty"`
	GenericCodeOptions      *GenericCodeOptionsDTO `json:"genericCodeOptions,omitempty"`
	ContactID               string                 `json:"contactId,omitempty"`
	ProgramID               string                 `json:"programId,omitempty"`
	IssuanceID              string                 `json:"issuanceId,omitempty"`
	Discount                bool                   `json:"discount,omitempty"`
	Pretax                  bool                   `json:"pretax,omitempty"`
	DiscountSellerLiability *float64               `json:"discountSellerLiability,omitempty"`
	RedemptionRule          *RuleDTO               `json:"redemptionRule,omitempty"`
	BalanceRule             *RuleDTO               `json:"balanceRule,omitempty"`
	StartDate               *time.Time             `json:"startDate,omitempty"`
	EndDate                 *time.Time             `json:"endDate,omitempty"`
}

// PatchValueRequest is the inbound payload for updating a Value's flags,
// rules and validity window
type PatchValueRequest struct {
	Active         *bool      `json:"active,omitempty"`
	Frozen         *bool      `json:"frozen,omitempty"`
	Canceled       *bool      `json:"canceled,omitempty"`
	Pretax         *bool      `json:"pretax,omitempty"`
	RedemptionRule *RuleDTO   `json:"redemptionRule,omitempty"`
	BalanceRule    *RuleDTO   `json:"balanceRule,omitempty"`
	StartDate      *time.Time `json:"startDate,omitempty"`
	EndDate        *time.Time `json:"endDate,omitempty"`
}

// ValueResponse is the outbound representation of a Value. The full code is
// never returned, only its last four characters.
type ValueResponse struct {
	ID                      string                 `json:"id"`
	Currency                string                 `json:"currency"`
	Balance                 *int64                 `json:"balance"`
	UsesRemaining           *int64                 `json:"usesRemaining"`
	Code                    string                 `json:"code,omitempty"`
	IsGenericCode           bool                   `json:"isGenericCode"`
	GenericCodeOptions      *GenericCodeOptionsDTO `json:"genericCodeOptions,omitempty"`
	ContactID               string                 `json:"contactId,omitempty"`
	ProgramID               string                 `json:"programId,omitempty"`
	IssuanceID              string                 `json:"issuanceId,omitempty"`
	AttachedFromValueID     string                 `json:"attachedFromValueId,omitempty"`
	Active                  bool                   `json:"active"`
	Frozen                  bool                   `json:"frozen"`
	Canceled                bool                   `json:"canceled"`
	Discount                bool                   `json:"discount"`
	Pretax                  bool                   `json:"pretax"`
	DiscountSellerLiability *float64               `json:"discountSellerLiability,omitempty"`
	RedemptionRule          *RuleDTO               `json:"redemptionRule,omitempty"`
	BalanceRule             *RuleDTO               `json:"balanceRule,omitempty"`
	StartDate               *time.Time             `json:"startDate,omitempty"`
	EndDate                 *time.Time             `json:"endDate,omitempty"`
	CreatedAt               time.Time              `json:"createdDate"`
	UpdatedAt               time.Time              `json:"updatedDate"`
	CreatedBy               string                 `json:"createdBy,omitempty"`
}

// ToRule converts a wire rule to the domain form
func (r *RuleDTO) ToRule() *entity.Rule {
	if r == nil {
		return nil
	}
	return &entity.Rule{Expression: r.Rule, Explanation: r.Explanation}
}

// ToGenericCodeOptions converts the wire options to the domain form
func (o *GenericCodeOptionsDTO) ToGenericCodeOptions() *entity.GenericCodeOptions {
	if o == nil {
		return nil
	}
	return &entity.GenericCodeOptions{
		PerContactBalance: o.PerContactBalance,
		PerContactUses:    o.PerContactUses,
	}
}

func ruleToDTO(r *entity.Rule) *RuleDTO {
	if r == nil {
		return nil
	}
	return &RuleDTO{Rule: r.Expression, Explanation: r.Explanation}
}

func genericCodeOptionsToDTO(o *entity.GenericCodeOptions) *GenericCodeOptionsDTO {
	if o == nil {
		return nil
	}
	return &GenericCodeOptionsDTO{
		PerContactBalance: o.PerContactBalance,
		PerContactUses:    o.PerContactUses,
	}
}

// NewValueResponse builds the wire representation of a Value
func NewValueResponse(v *entity.Value) ValueResponse {
	resp := ValueResponse{
		ID:                      v.ID,
		Currency:                v.Currency,
		Balance:                 v.Balance,
		UsesRemaining:           v.UsesRemaining,
		IsGenericCode:           v.IsGenericCode,
		GenericCodeOptions:      genericCodeOptionsToDTO(v.GenericCodeOptions),
		ContactID:               v.ContactID,
		ProgramID:               v.ProgramID,
		IssuanceID:              v.IssuanceID,
		AttachedFromValueID:     v.AttachedFromValueID,
		Active:                  v.Active,
		Frozen:                  v.Frozen,
		Canceled:                v.Canceled,
		Discount:                v.Discount,
		Pretax:                  v.Pretax,
		DiscountSellerLiability: v.DiscountSellerLiability,
		RedemptionRule:          ruleToDTO(v.RedemptionRule),
		BalanceRule:             ruleToDTO(v.BalanceRule),
		StartDate:               v.StartDate,
		EndDate:                 v.EndDate,
		CreatedAt:               v.CreatedAt,
		UpdatedAt:               v.UpdatedAt,
		CreatedBy:               v.CreatedBy,
	}
	if v.CodeLast4 != "" {
		resp.Code = entity.FormatCodeLast4(v.CodeLast4)
	}
	return resp
}
