package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Giftbit/internal-rothschild-sub003/internal/domain/entity"
	domainerr "github.com/Giftbit/internal-rothschild-sub003/internal/domain/error"
	coreport "github.com/Giftbit/internal-rothschild-sub003/internal/domain/port/core"
	"github.com/Giftbit/internal-rothschild-sub003/internal/domain/usecase/planner"
	"github.com/Giftbit/internal-rothschild-sub003/internal/infrastructure/adapter/api/dto"
)

// TransactionHandler handles transaction HTTP requests
type TransactionHandler struct {
	plannerService *planner.Service
	logger         coreport.Logger
}

// NewTransactionHandler creates a new transaction handler instance
func NewTransactionHandler(plannerService *planner.Service, logger coreport.Logger) *TransactionHandler {
	return &TransactionHandler{
		plannerService: plannerService,
		logger:         logger,
	}
}

func (h *TransactionHandler) bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{
		Code:    domainerr.ErrorCode(domainerr.ErrInvalidTransactionID),
		Message: "Invalid request format: " + err.Error(),
	})
}

// Checkout handles POST /transactions/checkout
func (h *TransactionHandler) Checkout(c *gin.Context) {
	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	sources := make([]planner.PaymentSource, 0, len(req.Sources))
	for _, s := range req.Sources {
		sources = append(sources, s.ToPaymentSource())
	}
	transaction, err := h.plannerService.Checkout(c.Request.Context(), planner.CheckoutRequest{
		ID:              req.ID,
		Currency:        req.Currency,
		LineItems:       toLineItems(req.LineItems),
		Sources:         sources,
		AllowRemainder:  req.AllowRemainder,
		Simulate:        req.Simulate,
		Pending:         req.Pending,
		TaxRoundingMode: planner.RoundingMode(req.TaxRoundingMode),
		Metadata:        req.Metadata,
		CreatedBy:       c.GetHeader("X-User-ID"),
	})
	if err != nil {
		c.JSON(dto.HTTPStatus(err), dto.NewErrorResponse(err))
		return
	}

	c.JSON(transactionStatus(req.Simulate), dto.NewTransactionResponse(transaction))
}

// Credit handles POST /transactions/credit
func (h *TransactionHandler) Credit(c *gin.Context) {
	var req dto.CreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	transaction, err := h.plannerService.Credit(c.Request.Context(), planner.CreditRequest{
		ID:          req.ID,
		Currency:    req.Currency,
		Destination: req.Destination.ToPaymentSource(),
		Amount:      req.Amount,
		Uses:        req.Uses,
		Simulate:    req.Simulate,
		Metadata:    req.Metadata,
		CreatedBy:   c.GetHeader("X-User-ID"),
	})
	if err != nil {
		c.JSON(dto.HTTPStatus(err), dto.NewErrorResponse(err))
		return
	}

	c.JSON(transactionStatus(req.Simulate), dto.NewTransactionResponse(transaction))
}

// Debit handles POST /transactions/debit
func (h *TransactionHandler) Debit(c *gin.Context) {
	var req dto.DebitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	transaction, err := h.plannerService.Debit(c.Request.Context(), planner.DebitRequest{
		ID:             req.ID,
		Currency:       req.Currency,
		Source:         req.Source.ToPaymentSource(),
		Amount:         req.Amount,
		Uses:           req.Uses,
		AllowRemainder: req.AllowRemainder,
		Simulate:       req.Simulate,
		Metadata:       req.Metadata,
		CreatedBy:      c.GetHeader("X-User-ID"),
	})
	if err != nil {
		c.JSON(dto.HTTPStatus(err), dto.NewErrorResponse(err))
		return
	}

	c.JSON(transactionStatus(req.Simulate), dto.NewTransactionResponse(transaction))
}

// Transfer handles POST /transactions/transfer
func (h *TransactionHandler) Transfer(c *gin.Context) {
	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	transaction, err := h.plannerService.Transfer(c.Request.Context(), planner.TransferRequest{
		ID:             req.ID,
		Currency:       req.Currency,
		Source:         req.Source.ToPaymentSource(),
		Destination:    req.Destination.ToPaymentSource(),
		Amount:         req.Amount,
		AllowRemainder: req.AllowRemainder,
		Simulate:       req.Simulate,
		Metadata:       req.Metadata,
		CreatedBy:      c.GetHeader("X-User-ID"),
	})
	if err != nil {
		c.JSON(dto.HTTPStatus(err), dto.NewErrorResponse(err))
		return
	}

	c.JSON(transactionStatus(req.Simulate), dto.NewTransactionResponse(transaction))
}

// Reverse handles POST /transactions/:transactionId/reverse
func (h *TransactionHandler) Reverse(c *gin.Context) {
	var req dto.ReverseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	transaction, err := h.plannerService.Reverse(c.Request.Context(), planner.ReverseRequest{
		ID:                   req.ID,
		TransactionToReverse: c.Param("transactionId"),
		Metadata:             req.Metadata,
		CreatedBy:            c.GetHeader("X-User-ID"),
	})
	if err != nil {
		c.JSON(dto.HTTPStatus(err), dto.NewErrorResponse(err))
		return
	}

	c.JSON(http.StatusCreated, dto.NewTransactionResponse(transaction))
}

// Capture handles POST /transactions/:transactionId/capture
func (h *TransactionHandler) Capture(c *gin.Context) {
	var req dto.CaptureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	transaction, err := h.plannerService.Capture(c.Request.Context(), planner.CaptureRequest{
		ID:                   req.ID,
		PendingTransactionID: c.Param("transactionId"),
		Metadata:             req.Metadata,
		CreatedBy:            c.GetHeader("X-User-ID"),
	})
	if err != nil {
		c.JSON(dto.HTTPStatus(err), dto.NewErrorResponse(err))
		return
	}

	c.JSON(http.StatusCreated, dto.NewTransactionResponse(transaction))
}

// Void handles POST /transactions/:transactionId/void
func (h *TransactionHandler) Void(c *gin.Context) {
	var req dto.VoidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	transaction, err := h.plannerService.Void(c.Request.Context(), planner.VoidRequest{
		ID:                   req.ID,
		PendingTransactionID: c.Param("transactionId"),
		Metadata:             req.Metadata,
		CreatedBy:            c.GetHeader("X-User-ID"),
	})
	if err != nil {
		c.JSON(dto.HTTPStatus(err), dto.NewErrorResponse(err))
		return
	}

	c.JSON(http.StatusCreated, dto.NewTransactionResponse(transaction))
}

// Get handles GET /transactions/:transactionId
func (h *TransactionHandler) Get(c *gin.Context) {
	transaction, err := h.plannerService.GetTransaction(c.Request.Context(), c.Param("transactionId"))
	if err != nil {
		c.JSON(dto.HTTPStatus(err), dto.NewErrorResponse(err))
		return
	}
	c.JSON(http.StatusOK, dto.NewTransactionResponse(transaction))
}

// Attach handles POST /contacts/:contactId/values/attach
func (h *TransactionHandler) Attach(c *gin.Context) {
	var req dto.AttachRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	value, _, err := h.plannerService.Attach(c.Request.Context(), planner.AttachRequest{
		ContactID: c.Param("contactId"),
		ValueID:   req.ValueID,
		Code:      req.Code,
		CreatedBy: c.GetHeader("X-User-ID"),
	})
	if err != nil {
		c.JSON(dto.HTTPStatus(err), dto.NewErrorResponse(err))
		return
	}

	c.JSON(http.StatusOK, dto.NewValueResponse(value))
}

func transactionStatus(simulated bool) int {
	if simulated {
		return http.StatusOK
	}
	return http.StatusCreated
}

func toLineItems(items []dto.LineItemDTO) []*entity.LineItem {
	out := make([]*entity.LineItem, 0, len(items))
	for _, item := range items {
		out = append(out, item.ToLineItem())
	}
	return out
}
