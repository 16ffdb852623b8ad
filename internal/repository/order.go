package repository

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"bookstore-service/internal/entity"
)

const orderDetailColumns = `o.id, o.user_id, o.total_amount, o.payment_status, o.created_at, u.username, u.email`

type OrderRepository struct {
	db *sqlx.DB
}

func NewOrderRepository(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{db}
}

// CreateOrder inserts the order and all of its items in one transaction.
// Either every row is written or none is. The generated id is stored on
// order and on each item.
func (r *OrderRepository) CreateOrder(ctx context.Context, order *entity.Order, items []entity.OrderItem) (int64, error) {
	if len(items) == 0 {
		return 0, errors.New("create order: no items")
	}

	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		orderQuery := `INSERT INTO orders (user_id, total_amount, payment_status) VALUES (?, ?, ?)`
		res, err := tx.ExecContext(ctx, orderQuery, order.UserID, order.TotalAmount, order.PaymentStatus)
		if err != nil {
			return errors.Wrap(err, "insert order")
		}
		orderID, err := res.LastInsertId()
		if err != nil {
			return errors.Wrap(err, "insert order")
		}

		// Insert order items with batch
		itemQuery := `INSERT INTO order_items (order_id, book_id, item_type, price) VALUES `
		placeholders := make([]string, 0, len(items))
		values := make([]interface{}, 0, len(items)*4)
		for _, item := range items {
			placeholders = append(placeholders, "(?, ?, ?, ?)")
			values = append(values, orderID, item.BookID, item.ItemType, item.Price)
		}
		if _, err := tx.ExecContext(ctx, itemQuery+strings.Join(placeholders, ", "), values...); err != nil {
			return errors.Wrap(err, "insert order items")
		}

		order.ID = orderID
		for i := range items {
			items[i].OrderID = orderID
		}
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "create order")
	}
	return order.ID, nil
}

// CreateOrderItem adds a single item to an existing order.
func (r *OrderRepository) CreateOrderItem(ctx context.Context, item *entity.OrderItem) (int64, error) {
	query := `INSERT INTO order_items (order_id, book_id, item_type, price) VALUES (?, ?, ?, ?)`
	id, err := insert(ctx, r.db, query, item.OrderID, item.BookID, item.ItemType, item.Price)
	if err != nil {
		return 0, errors.Wrap(err, "create order item")
	}
	return id, nil
}

func (r *OrderRepository) GetOrderByID(ctx context.Context, id int64) (*entity.OrderDetail, error) {
	query := `SELECT ` + orderDetailColumns + `
		FROM orders o
		JOIN users u ON o.user_id = u.id
		WHERE o.id = ?`
	order, err := fetchOne[entity.OrderDetail](ctx, r.db, query, id)
	return order, errors.Wrap(err, "get order by id")
}

func (r *OrderRepository) GetOrderItems(ctx context.Context, orderID int64) ([]entity.OrderItemDetail, error) {
	query := `SELECT oi.id, oi.order_id, oi.book_id, oi.item_type, oi.price, b.title, b.author
		FROM order_items oi
		JOIN books b ON oi.book_id = b.id
		WHERE oi.order_id = ?
		ORDER BY oi.id`
	items, err := fetchAll[entity.OrderItemDetail](ctx, r.db, query, orderID)
	return items, errors.Wrap(err, "get order items")
}

func (r *OrderRepository) ListOrders(ctx context.Context) ([]entity.OrderDetail, error) {
	query := `SELECT ` + orderDetailColumns + `
		FROM orders o
		JOIN users u ON o.user_id = u.id
		ORDER BY o.created_at DESC, o.id DESC`
	orders, err := fetchAll[entity.OrderDetail](ctx, r.db, query)
	return orders, errors.Wrap(err, "list orders")
}

func (r *OrderRepository) UpdatePaymentStatus(ctx context.Context, id int64, status entity.PaymentStatus) (int64, error) {
	query := `UPDATE orders SET payment_status = ? WHERE id = ?`
	n, err := update(ctx, r.db, query, status, id)
	return n, errors.Wrap(err, "update payment status")
}
