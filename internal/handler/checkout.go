package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"housetally-backend/internal/client"
	"housetally-backend/internal/dto"
	"housetally-backend/internal/middleware"
	"housetally-backend/internal/service"
)

type CheckoutHandler struct {
	checkoutService service.CheckoutService
	logger          *zap.Logger
}

func NewCheckoutHandler(checkoutService service.CheckoutService, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
		logger:          logger,
	}
}

func (h *CheckoutHandler) CreateKitOrder(c echo.Context) error {
	ctx := c.Request().Context()
	userID := middleware.UserID(c)

	var req dto.CreateKitOrderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}
	if req.KitID == "" {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "kitId is required"})
	}

	result, err := h.checkoutService.InitiateKitOrder(ctx, userID, req.KitID)
	if err != nil {
		return h.renderError(c, err)
	}

	return c.JSON(http.StatusOK, dto.CreateOrderResponse{
		OrderID:     result.OrderID,
		ApprovalURL: result.ApprovalURL,
	})
}

func (h *CheckoutHandler) CreatePremiumOrder(c echo.Context) error {
	ctx := c.Request().Context()
	userID := middleware.UserID(c)

	result, err := h.checkoutService.InitiatePremiumOrder(ctx, userID)
	if err != nil {
		return h.renderError(c, err)
	}

	return c.JSON(http.StatusOK, dto.CreateOrderResponse{
		OrderID:     result.OrderID,
		ApprovalURL: result.ApprovalURL,
	})
}

func (h *CheckoutHandler) CaptureKitOrder(c echo.Context) error {
	ctx := c.Request().Context()
	userID := middleware.UserID(c)

	var req dto.CaptureKitOrderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}
	if req.OrderID == "" || req.KitID == "" {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "orderId and kitId are required"})
	}

	result, err := h.checkoutService.CaptureKitOrder(ctx, userID, req.OrderID, req.KitID)
	if err != nil {
		return h.renderError(c, err)
	}

	return c.JSON(http.StatusOK, dto.CaptureOrderResponse{
		Success:          true,
		TransactionID:    result.TransactionID,
		AlreadyProcessed: result.AlreadyProcessed,
	})
}

func (h *CheckoutHandler) CapturePremiumOrder(c echo.Context) error {
	ctx := c.Request().Context()
	userID := middleware.UserID(c)

	var req dto.CapturePremiumOrderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}
	if req.OrderID == "" {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "orderId is required"})
	}

	result, err := h.checkoutService.CapturePremiumOrder(ctx, userID, req.OrderID)
	if err != nil {
		return h.renderError(c, err)
	}

	return c.JSON(http.StatusOK, dto.CaptureOrderResponse{
		Success:          true,
		TransactionID:    result.TransactionID,
		AlreadyProcessed: result.AlreadyProcessed,
	})
}

// HandleReturn is the provider's redirect target after the user approves the
// order. Capture stays client-triggered: the app polls and calls the capture
// endpoint itself, so this page only confirms approval.
func (h *CheckoutHandler) HandleReturn(c echo.Context) error {
	html := `
	<!DOCTYPE html>
	<html>
	<head><meta charset="utf-8"><title>Payment approved</title></head>
	<body style="font-family: Arial, sans-serif; text-align: center; margin-top: 80px;">
		<h2>Payment approved</h2>
		<p>You can return to the app — your purchase is being finalized.</p>
	</body>
	</html>
	`
	return c.HTML(http.StatusOK, html)
}

func (h *CheckoutHandler) HandleCancel(c echo.Context) error {
	html := `
	<!DOCTYPE html>
	<html>
	<head><meta charset="utf-8"><title>Payment cancelled</title></head>
	<body style="font-family: Arial, sans-serif; text-align: center; margin-top: 80px;">
		<h2>Payment cancelled</h2>
		<p>No charge was made. You can return to the app.</p>
	</body>
	</html>
	`
	return c.HTML(http.StatusOK, html)
}

// renderError maps the checkout error taxonomy onto HTTP statuses. 4xx means
// retrying is pointless; 5xx means the capture call may safely be retried.
func (h *CheckoutHandler) renderError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrProductNotFound):
		return c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "product not found"})
	case errors.Is(err, service.ErrOrderNotFound):
		return c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "order not found"})
	case errors.Is(err, service.ErrFreeProduct):
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "product is free and cannot be purchased"})
	case errors.Is(err, service.ErrAlreadyOwned):
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "product already owned"})
	}

	var paymentFailed *service.PaymentFailedError
	if errors.As(err, &paymentFailed) {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "payment failed",
			Details: map[string]string{"providerStatus": paymentFailed.ProviderStatus},
		})
	}

	var untracked *service.UntrackedCaptureError
	if errors.As(err, &untracked) {
		// Already logged at error level by the reconciler; this is possible
		// unrecorded revenue and must not look like success.
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "capture could not be reconciled",
			Details: map[string]string{"orderId": untracked.ProviderOrderID},
		})
	}

	var providerErr *client.ProviderError
	if errors.As(err, &providerErr) {
		h.logger.Error("provider request failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "payment provider error",
			Details: map[string]interface{}{"status": providerErr.StatusCode, "body": providerErr.Body},
		})
	}

	var persistence *service.PersistenceError
	if errors.As(err, &persistence) {
		h.logger.Error("datastore operation failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal error"})
	}

	h.logger.Error("checkout request failed", zap.Error(err))
	return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal error"})
}
