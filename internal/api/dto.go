package api

import (
	"time"

	"github.com/shopspring/decimal"

	"bookstore-service/internal/entity"
	"bookstore-service/internal/service"
)

// Request bodies. Presence is checked by the validator, value rules by the services.

type registerRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type orderItemRequest struct {
	BookID int64  `json:"book_id" validate:"required"`
	Type   string `json:"type" validate:"required"`
}

type createOrderRequest struct {
	Items []orderItemRequest `json:"items" validate:"dive"`
}

type paymentStatusRequest struct {
	PaymentStatus string `json:"payment_status" validate:"required"`
}

type bookRequest struct {
	Title     string           `json:"title" validate:"required"`
	Author    string           `json:"author" validate:"required"`
	PriceBuy  *decimal.Decimal `json:"price_buy" validate:"required"`
	PriceRent *decimal.Decimal `json:"price_rent" validate:"required"`
}

type updateBookRequest struct {
	bookRequest
	Available *bool `json:"available" validate:"required"`
}

func (r bookRequest) input(available bool) service.BookInput {
	return service.BookInput{
		Title:     r.Title,
		Author:    r.Author,
		PriceBuy:  *r.PriceBuy,
		PriceRent: *r.PriceRent,
		Available: available,
	}
}

// Responses. Money leaves the API as plain JSON numbers.

type userResponse struct {
	ID       int64       `json:"id"`
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Role     entity.Role `json:"role"`
}

type bookResponse struct {
	ID        int64   `json:"id"`
	Title     string  `json:"title"`
	Author    string  `json:"author"`
	PriceBuy  float64 `json:"price_buy"`
	PriceRent float64 `json:"price_rent"`
	Available bool    `json:"available"`
}

func toBookResponse(b entity.Book) bookResponse {
	return bookResponse{
		ID:        b.ID,
		Title:     b.Title,
		Author:    b.Author,
		PriceBuy:  b.PriceBuy.InexactFloat64(),
		PriceRent: b.PriceRent.InexactFloat64(),
		Available: b.Available,
	}
}

func toBookResponses(books []entity.Book) []bookResponse {
	out := make([]bookResponse, 0, len(books))
	for _, b := range books {
		out = append(out, toBookResponse(b))
	}
	return out
}

type orderResponse struct {
	ID            int64                `json:"id"`
	UserID        int64                `json:"user_id"`
	TotalAmount   float64              `json:"total_amount"`
	PaymentStatus entity.PaymentStatus `json:"payment_status"`
	CreatedAt     time.Time            `json:"created_at"`
	Username      string               `json:"username"`
	Email         string               `json:"email"`
}

func toOrderResponse(o entity.OrderDetail) orderResponse {
	return orderResponse{
		ID:            o.ID,
		UserID:        o.UserID,
		TotalAmount:   o.TotalAmount.InexactFloat64(),
		PaymentStatus: o.PaymentStatus,
		CreatedAt:     o.CreatedAt,
		Username:      o.Username,
		Email:         o.Email,
	}
}

type orderItemResponse struct {
	ID       int64           `json:"id"`
	OrderID  int64           `json:"order_id"`
	BookID   int64           `json:"book_id"`
	ItemType entity.ItemType `json:"item_type"`
	Price    float64         `json:"price"`
	Title    string          `json:"title"`
	Author   string          `json:"author"`
}

type orderViewResponse struct {
	Order orderResponse       `json:"order"`
	Items []orderItemResponse `json:"items"`
}

func toOrderView(v *service.OrderView) orderViewResponse {
	items := make([]orderItemResponse, 0, len(v.Items))
	for _, it := range v.Items {
		items = append(items, orderItemResponse{
			ID:       it.ID,
			OrderID:  it.OrderID,
			BookID:   it.BookID,
			ItemType: it.ItemType,
			Price:    it.Price.InexactFloat64(),
			Title:    it.Title,
			Author:   it.Author,
		})
	}
	return orderViewResponse{Order: toOrderResponse(*v.Order), Items: items}
}

type placedItemResponse struct {
	BookID int64           `json:"book_id"`
	Title  string          `json:"title"`
	Author string          `json:"author"`
	Type   entity.ItemType `json:"type"`
	Price  float64         `json:"price"`
}

type placedOrderResponse struct {
	OrderID       int64                `json:"order_id"`
	Items         []placedItemResponse `json:"items"`
	TotalAmount   float64              `json:"total_amount"`
	PaymentStatus entity.PaymentStatus `json:"payment_status"`
	EmailSent     bool                 `json:"email_sent"`
	Message       string               `json:"message"`
}

func toPlacedOrderResponse(p *service.PlacedOrder) placedOrderResponse {
	items := make([]placedItemResponse, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, placedItemResponse{
			BookID: it.BookID,
			Title:  it.Title,
			Author: it.Author,
			Type:   it.Type,
			Price:  it.Price.InexactFloat64(),
		})
	}
	msg := "Order created successfully (email sent)"
	if !p.EmailSent {
		msg = "Order created successfully (email not sent)"
	}
	return placedOrderResponse{
		OrderID:       p.Order.ID,
		Items:         items,
		TotalAmount:   p.Order.TotalAmount.InexactFloat64(),
		PaymentStatus: p.Order.PaymentStatus,
		EmailSent:     p.EmailSent,
		Message:       msg,
	}
}
