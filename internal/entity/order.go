package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "Pending"
	PaymentPaid      PaymentStatus = "Paid"
	PaymentCancelled PaymentStatus = "Cancelled"
)

// PaymentStatuses lists every value payment_status may hold, in display order.
var PaymentStatuses = []PaymentStatus{PaymentPending, PaymentPaid, PaymentCancelled}

func (s PaymentStatus) Valid() bool {
	for _, v := range PaymentStatuses {
		if s == v {
			return true
		}
	}
	return false
}

var paymentNext = map[PaymentStatus]map[PaymentStatus]bool{
	PaymentPending:   {PaymentPaid: true, PaymentCancelled: true},
	PaymentPaid:      {},
	PaymentCancelled: {},
}

// CanTransition reports whether from -> to is allowed by the strict payment graph.
// Setting a status to its current value is always allowed.
func CanTransition(from, to PaymentStatus) bool {
	return from == to || paymentNext[from][to]
}

type ItemType string

const (
	ItemBuy  ItemType = "buy"
	ItemRent ItemType = "rent"
)

// ParseItemType accepts "buy" or "rent" in any letter case.
func ParseItemType(s string) (ItemType, bool) {
	switch t := ItemType(strings.ToLower(strings.TrimSpace(s))); t {
	case ItemBuy, ItemRent:
		return t, true
	default:
		return "", false
	}
}

type Order struct {
	ID            int64           `db:"id" json:"id"`
	UserID        int64           `db:"user_id" json:"user_id"`
	TotalAmount   decimal.Decimal `db:"total_amount" json:"total_amount"`
	PaymentStatus PaymentStatus   `db:"payment_status" json:"payment_status"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// OrderDetail is an order joined with its owner.
type OrderDetail struct {
	Order
	Username string `db:"username" json:"username"`
	Email    string `db:"email" json:"email"`
}

type OrderItem struct {
	ID       int64           `db:"id" json:"id"`
	OrderID  int64           `db:"order_id" json:"order_id"`
	BookID   int64           `db:"book_id" json:"book_id"`
	ItemType ItemType        `db:"item_type" json:"item_type"`
	Price    decimal.Decimal `db:"price" json:"price"`
}

// OrderItemDetail is an order item joined with the book it references.
type OrderItemDetail struct {
	OrderItem
	Title  string `db:"title" json:"title"`
	Author string `db:"author" json:"author"`
}

/*
Mysql Table

CREATE TABLE orders (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	user_id BIGINT NOT NULL,
	total_amount DECIMAL(10,2) NOT NULL,
	payment_status ENUM('Pending', 'Paid', 'Cancelled') NOT NULL DEFAULT 'Pending',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
);

CREATE TABLE order_items (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	order_id BIGINT NOT NULL,
	book_id BIGINT NOT NULL,
	item_type ENUM('buy', 'rent') NOT NULL,
	price DECIMAL(10,2) NOT NULL,
	FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE,
	FOREIGN KEY (book_id) REFERENCES books(id)
);

*/
