package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Giftbit/internal-rothschild-sub003/internal/domain/entity"
	errs "github.com/Giftbit/internal-rothschild-sub003/internal/domain/error"
	coreport "github.com/Giftbit/internal-rothschild-sub003/internal/domain/port/core"
	"github.com/Giftbit/internal-rothschild-sub003/internal/infrastructure/adapter/model"
)

// TransactionRepository implements the append-only transaction store using
// GORM. Step payloads are rail-discriminated JSON documents.
type TransactionRepository struct {
	db              *gorm.DB
	logger          coreport.Logger
	errorClassifier *ErrorClassifier
}

// NewTransactionRepository creates a new TransactionRepository instance
func NewTransactionRepository(db *gorm.DB, logger coreport.Logger) *TransactionRepository {
	return &TransactionRepository{
		db:              db,
		logger:          logger,
		errorClassifier: NewErrorClassifier(),
	}
}

type lightrailStepPayload struct {
	ValueID       string `json:"valueId"`
	Action        string `json:"action"`
	Amount        int64  `json:"amount"`
	Uses          int64  `json:"uses,omitempty"`
	BalanceBefore *int64 `json:"balanceBefore,omitempty"`
	UsesBefore    *int64 `json:"usesBefore,omitempty"`
	BalanceAfter  *int64 `json:"balanceAfter,omitempty"`
	UsesAfter     *int64 `json:"usesAfter,omitempty"`
	AllowCanceled bool   `json:"allowCanceled,omitempty"`
	AllowFrozen   bool   `json:"allowFrozen,omitempty"`
	DiscountStep  bool   `json:"discountStep,omitempty"`
	NewValueID    string `json:"newValueId,omitempty"`
}

type stripeStepPayload struct {
	Type          string `json:"type"`
	Source        string `json:"source,omitempty"`
	CustomerID    string `json:"customerId,omitempty"`
	ChargeID      string `json:"chargeId,omitempty"`
	RefundID      string `json:"refundId,omitempty"`
	Captured      bool   `json:"captured,omitempty"`
	Amount        int64  `json:"amount"`
	PendingAmount int64  `json:"pendingAmount,omitempty"`
}

type internalStepPayload struct {
	InternalID      string `json:"internalId"`
	Balance         int64  `json:"balance"`
	Amount          int64  `json:"amount"`
	Pretax          bool   `json:"pretax,omitempty"`
	BeforeLightrail bool   `json:"beforeLightrail,omitempty"`
}

// Create inserts the transaction row without steps
func (r *TransactionRepository) Create(ctx context.Context, transaction *entity.Transaction) error {
	m := &model.Transaction{
		ID:                    transaction.ID,
		TransactionType:       string(transaction.TransactionType),
		Currency:              transaction.Currency,
		RootTransactionID:     transaction.RootTransactionID,
		PreviousTransactionID: transaction.PreviousTransactionID,
		PendingVoidDate:       transaction.PendingVoidDate,
		CreatedAt:             transaction.CreatedAt,
		CreatedBy:             transaction.CreatedBy,
	}
	if transaction.NextTransactionID != "" {
		m.NextTransactionID = &transaction.NextTransactionID
	}

	var err error
	if m.Totals, err = marshalJSONDocument(transaction.Totals); err != nil {
		return fmt.Errorf("%w: encoding totals: %s", errs.ErrInternalServer, err.Error())
	}
	if m.LineItems, err = marshalJSONDocument(transaction.LineItems); err != nil {
		return fmt.Errorf("%w: encoding line items: %s", errs.ErrInternalServer, err.Error())
	}
	if m.Metadata, err = marshalJSONDocument(transaction.Metadata); err != nil {
		return fmt.Errorf("%w: encoding metadata: %s", errs.ErrInternalServer, err.Error())
	}

	result := r.db.WithContext(ctx).Create(m)
	if result.Error != nil {
		if r.errorClassifier.IsDuplicateKeyError(result.Error) {
			r.logger.Debug("transaction id already exists", map[string]any{
				"transaction_id": transaction.ID,
			})
			return errs.ErrTransactionExists
		}
		r.logger.Error("database error when creating transaction", map[string]any{
			"transaction_id": transaction.ID,
			"error":          result.Error.Error(),
		})
		return fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, result.Error.Error())
	}
	return nil
}

// InsertStep appends one step row to a transaction
func (r *TransactionRepository) InsertStep(ctx context.Context, transactionID string, index int, step entity.Step) error {
	m := model.TransactionStep{
		TransactionID: transactionID,
		StepIndex:     index,
		Rail:          string(step.Rail()),
	}

	var payload any
	switch s := step.(type) {
	case *entity.LightrailStep:
		m.ValueID = s.ValueID
		p := lightrailStepPayload{
			ValueID:       s.ValueID,
			Action:        string(s.Action),
			Amount:        s.Amount,
			Uses:          s.Uses,
			BalanceBefore: s.BalanceBefore,
			UsesBefore:    s.UsesBefore,
			BalanceAfter:  s.BalanceAfter,
			UsesAfter:     s.UsesAfter,
			AllowCanceled: s.AllowCanceled,
			AllowFrozen:   s.AllowFrozen,
			DiscountStep:  s.DiscountStep,
		}
		if s.NewValue != nil {
			p.NewValueID = s.NewValue.ID
		}
		payload = p
	case *entity.StripeStep:
		payload = stripeStepPayload{
			Type:          string(s.Type),
			Source:        s.Source,
			CustomerID:    s.CustomerID,
			ChargeID:      s.ChargeID,
			RefundID:      s.RefundID,
			Captured:      s.Captured,
			Amount:        s.Amount,
			PendingAmount: s.PendingAmount,
		}
	case *entity.InternalStep:
		payload = internalStepPayload{
			InternalID:      s.InternalID,
			Balance:         s.Balance,
			Amount:          s.Amount,
			Pretax:          s.Pretax,
			BeforeLightrail: s.BeforeLightrail,
		}
	default:
		return fmt.Errorf("%w: unknown step rail %q", errs.ErrInternalServer, step.Rail())
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: encoding step payload: %s", errs.ErrInternalServer, err.Error())
	}
	m.Payload = string(b)

	result := r.db.WithContext(ctx).Create(&m)
	if result.Error != nil {
		r.logger.Error("database error when inserting step", map[string]any{
			"transaction_id": transactionID,
			"step_index":     index,
			"error":          result.Error.Error(),
		})
		return fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, result.Error.Error())
	}
	return nil
}

// GetByID retrieves a transaction with its steps in insertion order
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*entity.Transaction, error) {
	var m model.Transaction
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&m)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, errs.ErrTransactionNotFound
		}
		r.logger.Error("database error when getting transaction", map[string]any{
			"transaction_id": id,
			"error":          result.Error.Error(),
		})
		return nil, fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, result.Error.Error())
	}

	var stepModels []model.TransactionStep
	result = r.db.WithContext(ctx).
		Where("transaction_id = ?", id).
		Order("step_index ASC").
		Find(&stepModels)
	if result.Error != nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, result.Error.Error())
	}

	return r.modelToEntity(&m, stepModels)
}

// Exists checks for a transaction id without loading it
func (r *TransactionRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&model.Transaction{}).Where("id = ?", id).Count(&count)
	if result.Error != nil {
		return false, fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, result.Error.Error())
	}
	return count > 0, nil
}

// SetNextTransaction records the chain pointer, exactly once
func (r *TransactionRepository) SetNextTransaction(ctx context.Context, id, nextID string) error {
	result := r.db.WithContext(ctx).Model(&model.Transaction{}).
		Where("id = ? AND next_transaction_id IS NULL", id).
		Update("next_transaction_id", nextID)
	if result.Error != nil {
		r.logger.Error("database error when setting next transaction", map[string]any{
			"transaction_id": id,
			"error":          result.Error.Error(),
		})
		return fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, result.Error.Error())
	}
	if result.RowsAffected == 0 {
		exists, err := r.Exists(ctx, id)
		if err != nil {
			return err
		}
		if !exists {
			return errs.ErrTransactionNotFound
		}
		r.logger.Debug("chain pointer already set", map[string]any{
			"transaction_id": id,
		})
		return errs.ErrConflict
	}
	return nil
}

// modelToEntity converts a transaction model plus step rows to an entity
func (r *TransactionRepository) modelToEntity(m *model.Transaction, stepModels []model.TransactionStep) (*entity.Transaction, error) {
	t := &entity.Transaction{
		ID:                    m.ID,
		TransactionType:       entity.TransactionType(m.TransactionType),
		Currency:              m.Currency,
		RootTransactionID:     m.RootTransactionID,
		PreviousTransactionID: m.PreviousTransactionID,
		PendingVoidDate:       m.PendingVoidDate,
		CreatedAt:             m.CreatedAt,
		CreatedBy:             m.CreatedBy,
	}
	if m.NextTransactionID != nil {
		t.NextTransactionID = *m.NextTransactionID
	}
	if err := unmarshalJSONColumn(m.Totals, &t.Totals); err != nil {
		return nil, fmt.Errorf("%w: corrupt totals on transaction %s: %s", errs.ErrInternalServer, m.ID, err.Error())
	}
	if m.LineItems != nil && *m.LineItems != "" {
		if err := json.Unmarshal([]byte(*m.LineItems), &t.LineItems); err != nil {
			return nil, fmt.Errorf("%w: corrupt line items on transaction %s: %s", errs.ErrInternalServer, m.ID, err.Error())
		}
	}
	if m.Metadata != nil && *m.Metadata != "" {
		if err := json.Unmarshal([]byte(*m.Metadata), &t.Metadata); err != nil {
			return nil, fmt.Errorf("%w: corrupt metadata on transaction %s: %s", errs.ErrInternalServer, m.ID, err.Error())
		}
	}

	for i := range stepModels {
		step, err := r.stepModelToEntity(&stepModels[i])
		if err != nil {
			return nil, err
		}
		t.Steps = append(t.Steps, step)
	}
	return t, nil
}

func (r *TransactionRepository) stepModelToEntity(m *model.TransactionStep) (entity.Step, error) {
	switch entity.Rail(m.Rail) {
	case entity.RailLightrail:
		var p lightrailStepPayload
		if err := json.Unmarshal([]byte(m.Payload), &p); err != nil {
			return nil, fmt.Errorf("%w: corrupt step payload on transaction %s: %s", errs.ErrInternalServer, m.TransactionID, err.Error())
		}
		return &entity.LightrailStep{
			ValueID:       p.ValueID,
			Action:        entity.StepAction(p.Action),
			Amount:        p.Amount,
			Uses:          p.Uses,
			BalanceBefore: p.BalanceBefore,
			UsesBefore:    p.UsesBefore,
			BalanceAfter:  p.BalanceAfter,
			UsesAfter:     p.UsesAfter,
			AllowCanceled: p.AllowCanceled,
			AllowFrozen:   p.AllowFrozen,
			DiscountStep:  p.DiscountStep,
		}, nil
	case entity.RailStripe:
		var p stripeStepPayload
		if err := json.Unmarshal([]byte(m.Payload), &p); err != nil {
			return nil, fmt.Errorf("%w: corrupt step payload on transaction %s: %s", errs.ErrInternalServer, m.TransactionID, err.Error())
		}
		return &entity.StripeStep{
			Type:          entity.ChargeType(p.Type),
			Source:        p.Source,
			CustomerID:    p.CustomerID,
			ChargeID:      p.ChargeID,
			RefundID:      p.RefundID,
			Captured:      p.Captured,
			Amount:        p.Amount,
			PendingAmount: p.PendingAmount,
		}, nil
	case entity.RailInternal:
		var p internalStepPayload
		if err := json.Unmarshal([]byte(m.Payload), &p); err != nil {
			return nil, fmt.Errorf("%w: corrupt step payload on transaction %s: %s", errs.ErrInternalServer, m.TransactionID, err.Error())
		}
		return &entity.InternalStep{
			InternalID:      p.InternalID,
			Balance:         p.Balance,
			Amount:          p.Amount,
			Pretax:          p.Pretax,
			BeforeLightrail: p.BeforeLightrail,
		}, nil
	}
	return nil, fmt.Errorf("%w: unknown step rail %q", errs.ErrInternalServer, m.Rail)
}

// marshalJSONDocument encodes a nullable document column, treating nil maps
// and slices as NULL.
func marshalJSONDocument(v any) (*string, error) {
	switch d := v.(type) {
	case *entity.Totals:
		if d == nil {
			return nil, nil
		}
	case []*entity.LineItem:
		if d == nil {
			return nil, nil
		}
	case map[string]any:
		if d == nil {
			return nil, nil
		}
	case nil:
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}
