package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/sellsutra/ms-go-orders/app/auth"
	"github.com/sellsutra/ms-go-orders/app/entity"
	"github.com/sellsutra/ms-go-orders/app/factory"
	"github.com/sellsutra/ms-go-orders/app/mapper"
	"github.com/sellsutra/ms-go-orders/app/service"
	"github.com/sellsutra/ms-go-orders/app/types"
)

type OrderController struct {
	orderService *service.OrderService
	logger       logrus.FieldLogger
}

func NewOrderController(orderService *service.OrderService) *OrderController {
	return &OrderController{
		orderService: orderService,
		logger:       factory.NewModuleLogger("orders-controller"),
	}
}

func (c *OrderController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

func (c *OrderController) CreateOrder(ctx echo.Context) error {
	req, err := types.NewCreateOrderRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	identity := auth.IdentityFromContext(ctx)
	if identity == nil || identity.SellerID == 0 {
		return c.writeError(ctx, http.StatusForbidden, "seller account required")
	}

	items := make([]entity.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, entity.OrderItem{
			Name:           item.Name,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
		})
	}

	order, err := c.orderService.CreateOrder(ctx.Request().Context(), service.CreateOrderInput{
		SellerID:       identity.SellerID,
		CustomerName:   req.CustomerName,
		CustomerPhone:  req.CustomerPhone,
		Currency:       req.Currency,
		Items:          items,
		PaymentMethod:  entity.PaymentMethod(req.PaymentMethod),
		GatewayOrderID: req.GatewayOrderID,
	})
	if err != nil {
		return c.writeServiceError(ctx, err, "Create order failed")
	}

	return ctx.JSON(http.StatusCreated, &types.OrderEnvelopeResponse{Order: mapper.OrderToResponse(order)})
}

func (c *OrderController) GetOrder(ctx echo.Context) error {
	req, err := types.NewOrderIDRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	order, err := c.orderService.GetOrder(ctx.Request().Context(), req.ID)
	if err != nil {
		return c.writeServiceError(ctx, err, "Get order failed")
	}
	if !c.actorOwnsOrder(ctx, order) {
		return c.writeError(ctx, http.StatusForbidden, "forbidden")
	}

	return ctx.JSON(http.StatusOK, &types.OrderEnvelopeResponse{Order: mapper.OrderToResponse(order)})
}

func (c *OrderController) GetTimeline(ctx echo.Context) error {
	req, err := types.NewOrderIDRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	order, err := c.orderService.GetOrder(ctx.Request().Context(), req.ID)
	if err != nil {
		return c.writeServiceError(ctx, err, "Get timeline failed")
	}
	if !c.actorOwnsOrder(ctx, order) {
		return c.writeError(ctx, http.StatusForbidden, "forbidden")
	}

	entries, err := c.orderService.GetTimeline(ctx.Request().Context(), req.ID)
	if err != nil {
		return c.writeServiceError(ctx, err, "Get timeline failed")
	}

	return ctx.JSON(http.StatusOK, mapper.TimelineToResponse(req.ID, entries))
}

// ListPayments returns every settlement attempt for an order, including
// rejected and failed rows, newest last.
func (c *OrderController) ListPayments(ctx echo.Context) error {
	req, err := types.NewOrderIDRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	order, err := c.orderService.GetOrder(ctx.Request().Context(), req.ID)
	if err != nil {
		return c.writeServiceError(ctx, err, "List payments failed")
	}
	if !c.actorOwnsOrder(ctx, order) {
		return c.writeError(ctx, http.StatusForbidden, "forbidden")
	}

	payments, err := c.orderService.ListPayments(ctx.Request().Context(), req.ID)
	if err != nil {
		return c.writeServiceError(ctx, err, "List payments failed")
	}

	return ctx.JSON(http.StatusOK, mapper.PaymentsToResponse(req.ID, payments))
}

// SubmitPaymentProof is the public buyer surface: no session required,
// but the order must exist and not be settled already.
func (c *OrderController) SubmitPaymentProof(ctx echo.Context) error {
	req, err := types.NewPaymentProofRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	_, err = c.orderService.ApplyTransition(ctx.Request().Context(), req.ID, service.BuyerProofSubmitted{
		TransactionID: req.TransactionID,
		ScreenshotURL: req.ScreenshotURL,
		Notes:         req.Notes,
	})
	if err != nil {
		return c.writeServiceError(ctx, err, "Submit payment proof failed")
	}

	// Buyers get a generic acknowledgement, not order state.
	return ctx.JSON(http.StatusOK, &types.MessageResponse{Message: "Payment proof received, awaiting verification"})
}

func (c *OrderController) ConfirmPayment(ctx echo.Context) error {
	req, err := types.NewConfirmPaymentRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	existing, err := c.orderService.GetOrder(ctx.Request().Context(), req.ID)
	if err != nil {
		return c.writeServiceError(ctx, err, "Confirm payment failed")
	}
	if !c.actorOwnsOrder(ctx, existing) {
		return c.writeError(ctx, http.StatusForbidden, "forbidden")
	}

	identity := auth.IdentityFromContext(ctx)
	var transition service.Transition
	if req.Action == "confirm" {
		transition = service.SellerConfirmPayment{ActorID: identity.ActorID, Notes: req.Notes}
	} else {
		transition = service.SellerRejectPayment{ActorID: identity.ActorID, Notes: req.Notes}
	}

	order, err := c.orderService.ApplyTransition(ctx.Request().Context(), req.ID, transition)
	if err != nil {
		return c.writeServiceError(ctx, err, "Confirm payment failed")
	}

	return ctx.JSON(http.StatusOK, &types.OrderEnvelopeResponse{Order: mapper.OrderToResponse(order)})
}

func (c *OrderController) CODCollect(ctx echo.Context) error {
	req, err := types.NewCODCollectRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	existing, err := c.orderService.GetOrder(ctx.Request().Context(), req.ID)
	if err != nil {
		return c.writeServiceError(ctx, err, "COD collect failed")
	}
	if !c.actorOwnsOrder(ctx, existing) {
		return c.writeError(ctx, http.StatusForbidden, "forbidden")
	}

	identity := auth.IdentityFromContext(ctx)
	order, err := c.orderService.ApplyTransition(ctx.Request().Context(), req.ID, service.CODCollected{
		ActorID:     identity.ActorID,
		CollectedBy: req.CollectedBy,
		Notes:       req.Notes,
	})
	if err != nil {
		return c.writeServiceError(ctx, err, "COD collect failed")
	}

	return ctx.JSON(http.StatusOK, &types.OrderEnvelopeResponse{Order: mapper.OrderToResponse(order)})
}

func (c *OrderController) CancelOrder(ctx echo.Context) error {
	req, err := types.NewCancelOrderRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	existing, err := c.orderService.GetOrder(ctx.Request().Context(), req.ID)
	if err != nil {
		return c.writeServiceError(ctx, err, "Cancel order failed")
	}
	if !c.actorOwnsOrder(ctx, existing) {
		return c.writeError(ctx, http.StatusForbidden, "forbidden")
	}

	identity := auth.IdentityFromContext(ctx)
	order, err := c.orderService.ApplyTransition(ctx.Request().Context(), req.ID, service.CancelOrder{
		ActorID: identity.ActorID,
		Reason:  req.Reason,
	})
	if err != nil {
		return c.writeServiceError(ctx, err, "Cancel order failed")
	}

	return ctx.JSON(http.StatusOK, &types.OrderEnvelopeResponse{Order: mapper.OrderToResponse(order)})
}

func (c *OrderController) AdminResolve(ctx echo.Context) error {
	req, err := types.NewAdminResolveRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	identity := auth.IdentityFromContext(ctx)
	var transition service.Transition
	switch req.Action {
	case "mark_paid":
		transition = service.AdminMarkPaid{ActorID: identity.ActorID, Note: req.Note}
	case "mark_failed":
		transition = service.AdminMarkFailed{ActorID: identity.ActorID, Note: req.Note}
	default:
		transition = service.AdminRequestInfo{ActorID: identity.ActorID, Note: req.Note}
	}

	order, err := c.orderService.ApplyTransition(ctx.Request().Context(), req.ID, transition)
	if err != nil {
		return c.writeServiceError(ctx, err, "Admin resolve failed")
	}

	return ctx.JSON(http.StatusOK, &types.OrderEnvelopeResponse{Order: mapper.OrderToResponse(order)})
}

func (c *OrderController) RotateWebhookSecret(ctx echo.Context) error {
	req, err := types.NewRotateWebhookSecretRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	if err := c.orderService.RotateWebhookSecret(ctx.Request().Context(), req.SellerID, req.Secret); err != nil {
		return c.writeServiceError(ctx, err, "Rotate webhook secret failed")
	}

	return ctx.JSON(http.StatusOK, &types.MessageResponse{Message: "Webhook secret rotated"})
}

// actorOwnsOrder gates every per-order seller endpoint, reads and
// writes alike. Admins pass; other sellers never see or touch an
// order that is not theirs.
func (c *OrderController) actorOwnsOrder(ctx echo.Context, order *entity.Order) bool {
	identity := auth.IdentityFromContext(ctx)
	if identity == nil {
		return false
	}
	if identity.Role == auth.RoleAdmin {
		return true
	}
	return identity.SellerID == order.SellerID
}

func (c *OrderController) writeServiceError(ctx echo.Context, err error, logMessage string) error {
	switch {
	case errors.Is(err, service.ErrValidation):
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrOrderNotFound), errors.Is(err, service.ErrPaymentNotFound):
		return c.writeError(ctx, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrConflict), errors.Is(err, service.ErrTerminalStateConflict):
		return c.writeError(ctx, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrForbidden):
		return c.writeError(ctx, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrMaintenance):
		return c.writeError(ctx, http.StatusServiceUnavailable, err.Error())
	default:
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error(logMessage)
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}
}

func (c *OrderController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}
