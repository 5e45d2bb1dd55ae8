package value

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Giftbit/internal-rothschild-sub003/internal/domain/entity"
	errs "github.com/Giftbit/internal-rothschild-sub003/internal/domain/error"
	coreport "github.com/Giftbit/internal-rothschild-sub003/internal/domain/port/core"
	"github.com/Giftbit/internal-rothschild-sub003/internal/domain/port/persistence"
	ruleport "github.com/Giftbit/internal-rothschild-sub003/internal/domain/port/rules"
)

// Service owns the Value lifecycle outside of transaction planning: create,
// read, and administrative patch. Balance is never touched here; only
// Transaction steps mutate it.
type Service struct {
	uow          persistence.UnitOfWork
	evaluator    ruleport.Evaluator
	timeProvider coreport.TimeProvider
	logger       coreport.Logger
}

// NewService creates a Value service.
func NewService(
	uow persistence.UnitOfWork,
	evaluator ruleport.Evaluator,
	timeProvider coreport.TimeProvider,
	logger coreport.Logger,
) *Service {
	return &Service{uow: uow, evaluator: evaluator, timeProvider: timeProvider, logger: logger}
}

// CreateValueRequest carries the fields for a new Value.
type CreateValueRequest struct {
	ID                      string
	Currency                string
	Balance                 *int64
	UsesRemaining           *int64
	Code                    string
	GenerateCode            bool
	IsGenericCode           bool
	GenericCodeOptions      *entity.GenericCodeOptions
	ContactID               string
	ProgramID               string
	IssuanceID              string
	Discount                bool
	Pretax                  bool
	DiscountSellerLiability *float64
	RedemptionRule          *entity.Rule
	BalanceRule             *entity.Rule
	StartDate               *time.Time
	EndDate                 *time.Time
	CreatedBy               string
}

// Create validates and persists a new Value. A Value created with a balance
// also gets an initialBalance transaction in the same database transaction,
// so the ledger's history starts at the first minor unit.
func (s *Service) Create(ctx context.Context, req CreateValueRequest) (*entity.Value, error) {
	if err := s.validateRules(req.RedemptionRule, req.BalanceRule); err != nil {
		return nil, err
	}

	code := req.Code
	if req.GenerateCode && code == "" {
		code = generateCode()
	}

	v, err := entity.NewValue(
		entity.ValueParams{ID: req.ID, Currency: req.Currency},
		entity.ValueOptions{
			Balance:                 req.Balance,
			UsesRemaining:           req.UsesRemaining,
			ContactID:               req.ContactID,
			ProgramID:               req.ProgramID,
			IssuanceID:              req.IssuanceID,
			Discount:                req.Discount,
			Pretax:                  req.Pretax,
			DiscountSellerLiability: req.DiscountSellerLiability,
			RedemptionRule:          req.RedemptionRule,
			BalanceRule:             req.BalanceRule,
			StartDate:               req.StartDate,
			EndDate:                 req.EndDate,
			Code:                    code,
			IsGenericCode:           req.IsGenericCode,
			GenericCodeOptions:      req.GenericCodeOptions,
			CreatedBy:               req.CreatedBy,
		},
		s.timeProvider,
	)
	if err != nil {
		return nil, err
	}

	txCtx, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = s.uow.Rollback(txCtx)
		}
	}()

	valueRepo := s.uow.GetValueRepository(txCtx)
	if err := valueRepo.Create(txCtx, v); err != nil {
		return nil, err
	}

	if v.Balance != nil || v.UsesRemaining != nil {
		if err := s.recordInitialBalance(txCtx, v); err != nil {
			return nil, err
		}
	}

	if err := s.uow.Commit(txCtx); err != nil {
		return nil, err
	}
	committed = true

	s.logger.Info("value created", map[string]any{
		"value_id":     v.ID,
		"currency":     v.Currency,
		"generic_code": v.IsGenericCode,
		"code_last4":   entity.FormatCodeLast4(v.CodeLast4),
	})
	return v, nil
}

// recordInitialBalance writes the initialBalance transaction so the sum of
// all step deltas for the Value equals its current balance from day one.
func (s *Service) recordInitialBalance(txCtx context.Context, v *entity.Value) error {
	txRepo := s.uow.GetTransactionRepository(txCtx)
	transaction := &entity.Transaction{
		ID:              v.ID,
		TransactionType: entity.TypeInitialBalance,
		Currency:        v.Currency,
		CreatedAt:       v.CreatedAt,
		CreatedBy:       v.CreatedBy,
	}
	if err := txRepo.Create(txCtx, transaction); err != nil {
		return err
	}

	step := &entity.LightrailStep{
		ValueID: v.ID,
		Action:  entity.ActionInsert,
	}
	if v.Balance != nil {
		step.Amount = *v.Balance
		zero := int64(0)
		step.BalanceBefore = &zero
		step.BalanceAfter = v.Balance
	}
	if v.UsesRemaining != nil {
		step.Uses = *v.UsesRemaining
		zero := int64(0)
		step.UsesBefore = &zero
		step.UsesAfter = v.UsesRemaining
	}
	return txRepo.InsertStep(txCtx, transaction.ID, 0, step)
}

// Get retrieves a Value by id.
func (s *Service) Get(ctx context.Context, id string) (*entity.Value, error) {
	return s.uow.GetValueRepository(ctx).GetByID(ctx, id)
}

// GetByCode retrieves a Value by its full redeemable code.
func (s *Service) GetByCode(ctx context.Context, code string) (*entity.Value, error) {
	return s.uow.GetValueRepository(ctx).GetByCode(ctx, entity.HashCode(code))
}

// ListByContact retrieves a contact's Values for a currency.
func (s *Service) ListByContact(ctx context.Context, currency, contactID string) ([]*entity.Value, error) {
	return s.uow.GetValueRepository(ctx).ListByCurrencyAndContact(ctx, currency, contactID)
}

// PatchValueRequest names the administratively mutable fields. Balance and
// uses are deliberately absent.
type PatchValueRequest struct {
	Active         *bool
	Frozen         *bool
	Canceled       *bool
	Pretax         *bool
	RedemptionRule *entity.Rule
	BalanceRule    *entity.Rule
	StartDate      *time.Time
	EndDate        *time.Time
}

// Patch updates the Value's flags, rules and validity window. Cancellation
// is terminal: a canceled Value cannot be un-canceled.
func (s *Service) Patch(ctx context.Context, id string, req PatchValueRequest) (*entity.Value, error) {
	if err := s.validateRules(req.RedemptionRule, req.BalanceRule); err != nil {
		return nil, err
	}

	valueRepo := s.uow.GetValueRepository(ctx)
	v, err := valueRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Canceled != nil {
		if v.Canceled && !*req.Canceled {
			return nil, errs.ErrValueNotUsable
		}
		v.Canceled = *req.Canceled
	}
	if req.Active != nil {
		v.Active = *req.Active
	}
	if req.Frozen != nil {
		v.Frozen = *req.Frozen
	}
	if req.Pretax != nil {
		v.Pretax = *req.Pretax
	}
	if req.RedemptionRule != nil {
		v.RedemptionRule = req.RedemptionRule
	}
	if req.BalanceRule != nil {
		v.BalanceRule = req.BalanceRule
	}
	if req.StartDate != nil {
		v.StartDate = req.StartDate
	}
	if req.EndDate != nil {
		v.EndDate = req.EndDate
	}
	v.UpdatedAt = s.timeProvider.Now()

	if err := v.Validate(); err != nil {
		return nil, err
	}
	if err := valueRepo.Update(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// validateRules checks rule syntax eagerly so malformed expressions are
// rejected at write time, never at redemption time.
func (s *Service) validateRules(redemptionRule, balanceRule *entity.Rule) error {
	if redemptionRule != nil {
		if err := s.evaluator.Validate(redemptionRule.Expression); err != nil {
			return err
		}
	}
	if balanceRule != nil {
		if err := s.evaluator.Validate(balanceRule.Expression); err != nil {
			return err
		}
	}
	return nil
}

// generateCode produces a fullcode for Values created with generateCode.
func generateCode() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return raw[:20]
}
