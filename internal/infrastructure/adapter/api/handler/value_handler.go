package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	domainerr "github.com/Giftbit/internal-rothschild-sub003/internal/domain/error"
	coreport "github.com/Giftbit/internal-rothschild-sub003/internal/domain/port/core"
	valueUseCase "github.com/Giftbit/internal-rothschild-sub003/internal/domain/usecase/value"
	"github.com/Giftbit/internal-rothschild-sub003/internal/infrastructure/adapter/api/dto"
)

// ValueHandler handles Value lifecycle HTTP requests
type ValueHandler struct {
	valueService *valueUseCase.Service
	logger       coreport.Logger
}

// NewValueHandler creates a new value handler instance
func NewValueHandler(valueService *valueUseCase.Service, logger coreport.Logger) *ValueHandler {
	return &ValueHandler{
		valueService: valueService,
		logger:       logger,
	}
}

// Create handles POST /values
func (h *ValueHandler) Create(c *gin.Context) {
	var req dto.CreateValueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Code:    domainerr.ErrorCode(domainerr.ErrInvalidValueState),
			Message: "Invalid request format: " + err.Error(),
		})
		return
	}

	value, err := h.valueService.Create(c.Request.Context(), valueUseCase.CreateValueRequest{
		ID:                      req.ID,
		Currency:                req.Currency,
		Balance:                 req.Balance,
		UsesRemaining:           req.UsesRemaining,
		Code:                    req.Code,
		GenerateCode:            req.GenerateCode,
		IsGenericCode:           req.IsGenericCode,
		GenericCodeOptions:      req.GenericCodeOptions.ToGenericCodeOptions(),
		ContactID:               req.ContactID,
		ProgramID:               req.ProgramID,
		IssuanceID:              req.IssuanceID,
		Discount:                req.Discount,
		Pretax:                  req.Pretax,
		DiscountSellerLiability: req.DiscountSellerLiability,
		RedemptionRule:          req.RedemptionRule.ToRule(),
		BalanceRule:             req.BalanceRule.ToRule(),
		StartDate:               req.StartDate,
		EndDate:                 req.EndDate,
		CreatedBy:               c.GetHeader("X-User-ID"),
	})
	if err != nil {
		c.JSON(dto.HTTPStatus(err), dto.NewErrorResponse(err))
		return
	}

	c.JSON(http.StatusCreated, dto.NewValueResponse(value))
}

// Get handles GET /values/:valueId
func (h *ValueHandler) Get(c *gin.Context) {
	value, err := h.valueService.Get(c.Request.Context(), c.Param("valueId"))
	if err != nil {
		c.JSON(dto.HTTPStatus(err), dto.NewErrorResponse(err))
		return
	}
	c.JSON(http.StatusOK, dto.NewValueResponse(value))
}

// GetByCode handles GET /values?code=...
func (h *ValueHandler) GetByCode(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Code:    domainerr.ErrorCode(domainerr.ErrInvalidValueState),
			Message: "Missing required query parameter: code",
		})
		return
	}

	value, err := h.valueService.GetByCode(c.Request.Context(), code)
	if err != nil {
		c.JSON(dto.HTTPStatus(err), dto.NewErrorResponse(err))
		return
	}
	c.JSON(http.StatusOK, dto.NewValueResponse(value))
}

// ListByContact handles GET /contacts/:contactId/values?currency=...
func (h *ValueHandler) ListByContact(c *gin.Context) {
	currency := c.Query("currency")
	if currency == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Code:    domainerr.ErrorCode(domainerr.ErrInvalidCurrency),
			Message: "Missing required query parameter: currency",
		})
		return
	}

	values, err := h.valueService.ListByContact(c.Request.Context(), currency, c.Param("contactId"))
	if err != nil {
		c.JSON(dto.HTTPStatus(err), dto.NewErrorResponse(err))
		return
	}

	resp := make([]dto.ValueResponse, 0, len(values))
	for _, v := range values {
		resp = append(resp, dto.NewValueResponse(v))
	}
	c.JSON(http.StatusOK, resp)
}

// Patch handles PATCH /values/:valueId
func (h *ValueHandler) Patch(c *gin.Context) {
	var req dto.PatchValueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Code:    domainerr.ErrorCode(domainerr.ErrInvalidValueState),
			Message: "Invalid request format: " + err.Error(),
		})
		return
	}

	value, err := h.valueService.Patch(c.Request.Context(), c.Param("valueId"), valueUseCase.PatchValueRequest{
		Active:         req.Active,
		Frozen:         req.Frozen,
		Canceled:       req.Canceled,
		Pretax:         req.Pretax,
		RedemptionRule: req.RedemptionRule.ToRule(),
		BalanceRule:    req.BalanceRule.ToRule(),
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
	})
	if err != nil {
		c.JSON(dto.HTTPStatus(err), dto.NewErrorResponse(err))
		return
	}

	c.JSON(http.StatusOK, dto.NewValueResponse(value))
}
