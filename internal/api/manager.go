package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ManagerHandler serves /api/manager. Every route sits behind RequireRole(manager).
type ManagerHandler struct {
	orderService OrderService
	bookService  BookService
}

func NewManagerHandler(orderService OrderService, bookService BookService) *ManagerHandler {
	return &ManagerHandler{orderService: orderService, bookService: bookService}
}

// ListOrders --> GET /api/manager/orders
func (h *ManagerHandler) ListOrders(c echo.Context) error {
	orders, err := h.orderService.ListOrders(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}

	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"orders": out,
		"count":  len(out),
	})
}

// GetOrder --> GET /api/manager/orders/:id
func (h *ManagerHandler) GetOrder(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("Invalid ID"))
	}

	view, err := h.orderService.GetOrderDetail(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toOrderView(view))
}

// UpdatePaymentStatus --> PATCH /api/manager/orders/:id/payment-status
func (h *ManagerHandler) UpdatePaymentStatus(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("Invalid ID"))
	}

	req := paymentStatusRequest{}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("Invalid request payload"))
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("Missing payment_status field"))
	}

	status, err := h.orderService.UpdatePaymentStatus(c.Request().Context(), id, req.PaymentStatus)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":        "Payment status updated successfully",
		"order_id":       id,
		"payment_status": status,
	})
}

// ListBooks includes unavailable books --> GET /api/manager/books
func (h *ManagerHandler) ListBooks(c echo.Context) error {
	books, err := h.bookService.ListAllBooks(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"books": toBookResponses(books),
		"count": len(books),
	})
}

const missingBookFields = "Missing required fields. Required: title, author, price_buy, price_rent"

// CreateBook --> POST /api/manager/books
func (h *ManagerHandler) CreateBook(c echo.Context) error {
	req := bookRequest{}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("Invalid request payload"))
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody(missingBookFields))
	}

	book, err := h.bookService.CreateBook(c.Request().Context(), req.input(true))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message": "Book added successfully",
		"book_id": book.ID,
		"title":   book.Title,
		"author":  book.Author,
	})
}

// UpdateBook replaces a book; a missing book is reported before the payload
// is checked --> PUT /api/manager/books/:id
func (h *ManagerHandler) UpdateBook(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("Invalid ID"))
	}
	ctx := c.Request().Context()

	if _, err := h.bookService.GetBook(ctx, id); err != nil {
		return respondError(c, err)
	}

	req := updateBookRequest{}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("Invalid request payload"))
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody(missingBookFields+", available"))
	}

	book, err := h.bookService.UpdateBook(ctx, id, req.input(*req.Available))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Book updated successfully",
		"book_id": book.ID,
	})
}
