package controllers

import (
	"net/http"

	"github.com/campusops/erp/internal/app/models/dto"
	"github.com/campusops/erp/internal/app/services"
	"github.com/campusops/erp/internal/middleware"
	"github.com/campusops/erp/internal/pkg/payments"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// FeeController handles fee ledgers and payments
type FeeController struct {
	feeService *services.FeeService
	logger     zerolog.Logger
}

// NewFeeController creates a new FeeController
func NewFeeController(feeService *services.FeeService, logger zerolog.Logger) *FeeController {
	return &FeeController{feeService: feeService, logger: logger}
}

// GetLedger returns a student's fee ledger
// @Summary Get fee ledger
// @Tags fees
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student profile ID"
// @Success 200 {object} dto.APIResponse{data=dto.FeeLedgerResponse}
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /students/{id}/fees [get]
func (c *FeeController) GetLedger(ctx *gin.Context) {
	principal, ok := currentPrincipal(ctx)
	if !ok {
		return
	}
	id := ctx.Param("id")
	if err := principal.CanAccessStudent(id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ledger, err := c.feeService.GetLedger(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(ledger, ""))
}

// RecordPayment records an offline payment against a ledger
// @Summary Record a payment
// @Tags fees
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student profile ID"
// @Param request body dto.RecordPaymentRequest true "Payment"
// @Success 201 {object} dto.APIResponse{data=dto.FeeLedgerResponse}
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Reference already recorded"
// @Router /students/{id}/fees/payments [post]
func (c *FeeController) RecordPayment(ctx *gin.Context) {
	var req dto.RecordPaymentRequest
	if !bindJSON(ctx, &req) {
		return
	}

	ledger, err := c.feeService.RecordPayment(ctx.Request.Context(), ctx.Param("id"), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(ledger, "Payment recorded"))
}

// Checkout opens an online payment for the outstanding balance
// @Summary Pay fees online
// @Tags fees
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student profile ID"
// @Success 201 {object} dto.APIResponse{data=dto.CheckoutResponse}
// @Failure 400 {object} dto.ErrorResponse "Nothing to pay"
// @Failure 403 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse "Online payments not configured"
// @Router /students/{id}/fees/checkout [post]
func (c *FeeController) Checkout(ctx *gin.Context) {
	principal, ok := currentPrincipal(ctx)
	if !ok {
		return
	}
	id := ctx.Param("id")
	if err := principal.CanAccessStudent(id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	checkout, err := c.feeService.Checkout(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(checkout, "Checkout created"))
}

// PaymentNotification receives the gateway's HTTP notification
// @Summary Payment gateway notification
// @Description Called by the payment gateway. The signature is verified and a settled payment is recorded once.
// @Tags fees
// @Accept json
// @Produce json
// @Param request body payments.Notification true "Gateway notification"
// @Success 200 {object} dto.APIResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid signature or order"
// @Router /payments/notifications [post]
func (c *FeeController) PaymentNotification(ctx *gin.Context) {
	var n payments.Notification
	if !bindJSON(ctx, &n) {
		return
	}

	if err := c.feeService.HandlePaymentNotification(ctx.Request.Context(), &n); err != nil {
		c.logger.Warn().Err(err).Str("orderId", n.OrderID).Msg("Payment notification rejected")
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil, "Notification processed"))
}
