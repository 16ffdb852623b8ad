package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"bookstore-service/internal/auth"
	"bookstore-service/internal/entity"
	"bookstore-service/internal/service"
)

const headerIdempotentKey = "Idempotent-Key"

type OrderService interface {
	CreateOrder(ctx context.Context, in service.CreateOrderInput) (*service.PlacedOrder, error)
	GetOrder(ctx context.Context, id int64, claims *auth.Claims) (*service.OrderView, error)
	GetOrderDetail(ctx context.Context, id int64) (*service.OrderView, error)
	ListOrders(ctx context.Context) ([]entity.OrderDetail, error)
	UpdatePaymentStatus(ctx context.Context, id int64, status string) (entity.PaymentStatus, error)
}

type OrderHandler struct {
	orderService OrderService
}

func NewOrderHandler(orderService OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// CreateOrder places an order for the caller --> POST /api/orders
func (h *OrderHandler) CreateOrder(c echo.Context) error {
	claims := claimsFrom(c)

	req := createOrderRequest{}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("Invalid request payload"))
	}
	if len(req.Items) == 0 {
		return c.JSON(http.StatusBadRequest, errorBody("No items provided"))
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("Invalid item structure"))
	}

	in := service.CreateOrderInput{
		UserID:         claims.UserID,
		Items:          make([]service.OrderItemInput, 0, len(req.Items)),
		IdempotencyKey: c.Request().Header.Get(headerIdempotentKey),
	}
	for _, item := range req.Items {
		in.Items = append(in.Items, service.OrderItemInput{BookID: item.BookID, Type: item.Type})
	}

	placed, err := h.orderService.CreateOrder(c.Request().Context(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toPlacedOrderResponse(placed))
}

// GetOrder returns one of the caller's orders; managers may read any --> GET /api/orders/:id
func (h *OrderHandler) GetOrder(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("Invalid ID"))
	}

	view, err := h.orderService.GetOrder(c.Request().Context(), id, claimsFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toOrderView(view))
}
