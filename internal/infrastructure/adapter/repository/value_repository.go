package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Giftbit/internal-rothschild-sub003/internal/domain/entity"
	errs "github.com/Giftbit/internal-rothschild-sub003/internal/domain/error"
	coreport "github.com/Giftbit/internal-rothschild-sub003/internal/domain/port/core"
	"github.com/Giftbit/internal-rothschild-sub003/internal/infrastructure/adapter/model"
)

// ValueRepository implements the Value persistence contract using GORM.
type ValueRepository struct {
	db              *gorm.DB
	logger          coreport.Logger
	errorClassifier *ErrorClassifier
}

// NewValueRepository creates a new ValueRepository instance
func NewValueRepository(db *gorm.DB, logger coreport.Logger) *ValueRepository {
	return &ValueRepository{
		db:              db,
		logger:          logger,
		errorClassifier: NewErrorClassifier(),
	}
}

// modelToEntity converts a Value model to an entity
func (r *ValueRepository) modelToEntity(m *model.Value) (*entity.Value, error) {
	v := &entity.Value{
		ID:                      m.ID,
		Currency:                m.Currency,
		Balance:                 m.Balance,
		UsesRemaining:           m.UsesRemaining,
		ProgramID:               m.ProgramID,
		IssuanceID:              m.IssuanceID,
		ContactID:               m.ContactID,
		Active:                  m.Active,
		Frozen:                  m.Frozen,
		Canceled:                m.Canceled,
		Discount:                m.Discount,
		Pretax:                  m.Pretax,
		DiscountSellerLiability: m.DiscountSellerLiability,
		StartDate:               m.StartDate,
		EndDate:                 m.EndDate,
		CodeLast4:               m.CodeLast4,
		IsGenericCode:           m.IsGenericCode,
		AttachedFromValueID:     m.AttachedFromValueID,
		CreatedAt:               m.CreatedAt,
		UpdatedAt:               m.UpdatedAt,
		CreatedBy:               m.CreatedBy,
	}
	if m.CodeHashed != nil {
		v.CodeHashed = *m.CodeHashed
	}
	if err := unmarshalJSONColumn(m.RedemptionRule, &v.RedemptionRule); err != nil {
		return nil, fmt.Errorf("%w: corrupt redemption rule on value %s: %s", errs.ErrInternalServer, m.ID, err.Error())
	}
	if err := unmarshalJSONColumn(m.BalanceRule, &v.BalanceRule); err != nil {
		return nil, fmt.Errorf("%w: corrupt balance rule on value %s: %s", errs.ErrInternalServer, m.ID, err.Error())
	}
	if err := unmarshalJSONColumn(m.GenericCodeOptions, &v.GenericCodeOptions); err != nil {
		return nil, fmt.Errorf("%w: corrupt generic code options on value %s: %s", errs.ErrInternalServer, m.ID, err.Error())
	}
	return v, nil
}

// entityToModel converts a Value entity to its database model
func (r *ValueRepository) entityToModel(v *entity.Value) (*model.Value, error) {
	m := &model.Value{
		ID:                      v.ID,
		Currency:                v.Currency,
		Balance:                 v.Balance,
		UsesRemaining:           v.UsesRemaining,
		ProgramID:               v.ProgramID,
		IssuanceID:              v.IssuanceID,
		ContactID:               v.ContactID,
		Active:                  v.Active,
		Frozen:                  v.Frozen,
		Canceled:                v.Canceled,
		Discount:                v.Discount,
		Pretax:                  v.Pretax,
		DiscountSellerLiability: v.DiscountSellerLiability,
		StartDate:               v.StartDate,
		EndDate:                 v.EndDate,
		CodeLast4:               v.CodeLast4,
		IsGenericCode:           v.IsGenericCode,
		AttachedFromValueID:     v.AttachedFromValueID,
		CreatedAt:               v.CreatedAt,
		UpdatedAt:               v.UpdatedAt,
		CreatedBy:               v.CreatedBy,
	}
	if v.CodeHashed != "" {
		m.CodeHashed = &v.CodeHashed
	}
	var err error
	if m.RedemptionRule, err = marshalJSONColumn(v.RedemptionRule); err != nil {
		return nil, fmt.Errorf("%w: encoding redemption rule: %s", errs.ErrInternalServer, err.Error())
	}
	if m.BalanceRule, err = marshalJSONColumn(v.BalanceRule); err != nil {
		return nil, fmt.Errorf("%w: encoding balance rule: %s", errs.ErrInternalServer, err.Error())
	}
	if m.GenericCodeOptions, err = marshalJSONColumn(v.GenericCodeOptions); err != nil {
		return nil, fmt.Errorf("%w: encoding generic code options: %s", errs.ErrInternalServer, err.Error())
	}
	return m, nil
}

// GetByID retrieves a Value by id
func (r *ValueRepository) GetByID(ctx context.Context, id string) (*entity.Value, error) {
	var m model.Value
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&m)
	if result.Error != nil {
		return nil, r.handleReadError("getting value", result.Error, id)
	}
	return r.modelToEntity(&m)
}

// GetForUpdate retrieves a Value by id holding a row-level exclusive lock
func (r *ValueRepository) GetForUpdate(ctx context.Context, id string) (*entity.Value, error) {
	var m model.Value
	result := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&m)
	if result.Error != nil {
		return nil, r.handleReadError("locking value", result.Error, id)
	}
	return r.modelToEntity(&m)
}

// GetByCode retrieves a Value by its hashed redeemable code
func (r *ValueRepository) GetByCode(ctx context.Context, codeHashed string) (*entity.Value, error) {
	var m model.Value
	result := r.db.WithContext(ctx).Where("code_hashed = ?", codeHashed).First(&m)
	if result.Error != nil {
		return nil, r.handleReadError("getting value by code", result.Error, "")
	}
	return r.modelToEntity(&m)
}

// ListByCurrencyAndContact retrieves a contact's Values for a currency
func (r *ValueRepository) ListByCurrencyAndContact(ctx context.Context, currency, contactID string) ([]*entity.Value, error) {
	var ms []model.Value
	result := r.db.WithContext(ctx).
		Where("contact_id = ? AND currency = ?", contactID, currency).
		Order("created_at DESC").
		Find(&ms)
	if result.Error != nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, result.Error.Error())
	}

	values := make([]*entity.Value, 0, len(ms))
	for i := range ms {
		v, err := r.modelToEntity(&ms[i])
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

// Create inserts a new Value
func (r *ValueRepository) Create(ctx context.Context, value *entity.Value) error {
	m, err := r.entityToModel(value)
	if err != nil {
		return err
	}

	result := r.db.WithContext(ctx).Create(m)
	if result.Error != nil {
		if r.errorClassifier.IsDuplicateKeyError(result.Error) {
			switch {
			case r.errorClassifier.mentionsColumn(result.Error, "code_hashed"):
				r.logger.Warn("value code already in use", map[string]any{"value_id": value.ID})
				return errs.ErrValueCodeExists
			case value.AttachedFromValueID != "":
				r.logger.Debug("attach collision on derived value id", map[string]any{"value_id": value.ID})
				return errs.ErrValueAlreadyAttached
			default:
				r.logger.Warn("value id already exists", map[string]any{"value_id": value.ID})
				return errs.ErrConflict
			}
		}
		r.logger.Error("database error when creating value", map[string]any{
			"value_id": value.ID,
			"error":    result.Error.Error(),
		})
		return fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, result.Error.Error())
	}
	return nil
}

// Update persists the Value's mutable columns
func (r *ValueRepository) Update(ctx context.Context, value *entity.Value) error {
	m, err := r.entityToModel(value)
	if err != nil {
		return err
	}

	result := r.db.WithContext(ctx).Model(&model.Value{}).
		Where("id = ?", value.ID).
		Updates(map[string]any{
			"balance":         m.Balance,
			"uses_remaining":  m.UsesRemaining,
			"active":          m.Active,
			"frozen":          m.Frozen,
			"canceled":        m.Canceled,
			"pretax":          m.Pretax,
			"redemption_rule": m.RedemptionRule,
			"balance_rule":    m.BalanceRule,
			"start_date":      m.StartDate,
			"end_date":        m.EndDate,
			"updated_at":      m.UpdatedAt,
		})
	if result.Error != nil {
		r.logger.Error("database error when updating value", map[string]any{
			"value_id": value.ID,
			"error":    result.Error.Error(),
		})
		return fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, result.Error.Error())
	}
	if result.RowsAffected == 0 {
		return errs.ErrValueNotFound
	}
	return nil
}

func (r *ValueRepository) handleReadError(operation string, err error, valueID string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.ErrValueNotFound
	}
	r.logger.Error(fmt.Sprintf("database error when %s", operation), map[string]any{
		"value_id": valueID,
		"error":    err.Error(),
	})
	return fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, err.Error())
}

// marshalJSONColumn encodes a nullable document column.
func marshalJSONColumn(v any) (*string, error) {
	if isNilPointer(v) {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}

// unmarshalJSONColumn decodes a nullable document column into out, which must
// be a pointer to the target pointer (left nil when the column is NULL).
func unmarshalJSONColumn(column *string, out any) error {
	if column == nil || *column == "" {
		return nil
	}
	return json.Unmarshal([]byte(*column), out)
}

func isNilPointer(v any) bool {
	switch p := v.(type) {
	case *entity.Rule:
		return p == nil
	case *entity.GenericCodeOptions:
		return p == nil
	case nil:
		return true
	}
	return false
}
