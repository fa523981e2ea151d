package controller

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/sellsutra/ms-go-orders/app/factory"
	"github.com/sellsutra/ms-go-orders/app/service"
	"github.com/sellsutra/ms-go-orders/app/types"
)

const (
	gatewaySignatureHeader = "X-Gateway-Signature"
	gatewayMessageIDHeader = "X-Gateway-Message-Id"
)

type WebhookController struct {
	orderService *service.OrderService
	logger       logrus.FieldLogger
}

func NewWebhookController(orderService *service.OrderService) *WebhookController {
	return &WebhookController{
		orderService: orderService,
		logger:       factory.NewModuleLogger("webhook-controller"),
	}
}

// HandleGatewayWebhook answers only HTTP status codes to the gateway:
// 200 for processed and already-processed, 4xx for deliveries the
// sender must not retry, 500 when a retry is wanted.
func (c *WebhookController) HandleGatewayWebhook(ctx echo.Context) error {
	rawBody, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, &types.ErrorResponse{Error: "failed to read body"})
	}

	signature := strings.TrimSpace(ctx.Request().Header.Get(gatewaySignatureHeader))
	if signature == "" {
		return ctx.JSON(http.StatusBadRequest, &types.ErrorResponse{Error: "signature header is required"})
	}
	messageID := strings.TrimSpace(ctx.Request().Header.Get(gatewayMessageIDHeader))

	result, err := c.orderService.HandleGatewayWebhook(ctx.Request().Context(), rawBody, signature, messageID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			return ctx.JSON(http.StatusBadRequest, &types.ErrorResponse{Error: err.Error()})
		case errors.Is(err, service.ErrInvalidSignature):
			return ctx.JSON(http.StatusUnauthorized, &types.ErrorResponse{Error: err.Error()})
		case errors.Is(err, service.ErrPaymentNotFound), errors.Is(err, service.ErrOrderNotFound):
			return ctx.JSON(http.StatusNotFound, &types.ErrorResponse{Error: err.Error()})
		case errors.Is(err, service.ErrTerminalStateConflict), errors.Is(err, service.ErrConflict):
			return ctx.JSON(http.StatusConflict, &types.ErrorResponse{Error: err.Error()})
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Gateway webhook failed")
			return ctx.JSON(http.StatusInternalServerError, &types.ErrorResponse{Error: "internal server error"})
		}
	}

	status := "processed"
	if result.Duplicate {
		status = "already_processed"
	}
	if result.Ignored {
		status = "ignored"
	}
	return ctx.JSON(http.StatusOK, &types.WebhookAckResponse{Status: status, EventId: result.EventID})
}
