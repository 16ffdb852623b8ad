package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"bookstore-service/internal/auth"
	"bookstore-service/internal/entity"
	"bookstore-service/internal/events"
	"bookstore-service/internal/mailer"
)

// maxConcurrentLookups bounds the book lookups issued for one order.
const maxConcurrentLookups = 4

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *entity.Order, items []entity.OrderItem) (int64, error)
	GetOrderByID(ctx context.Context, id int64) (*entity.OrderDetail, error)
	GetOrderItems(ctx context.Context, orderID int64) ([]entity.OrderItemDetail, error)
	ListOrders(ctx context.Context) ([]entity.OrderDetail, error)
	UpdatePaymentStatus(ctx context.Context, id int64, status entity.PaymentStatus) (int64, error)
}

type BookFinder interface {
	GetBookByID(ctx context.Context, id int64) (*entity.Book, error)
}

type UserFinder interface {
	GetUserByID(ctx context.Context, id int64) (*entity.User, error)
}

type EventPublisher interface {
	OrderCreated(ctx context.Context, order entity.Order, items []entity.OrderItem) error
	PaymentStatusChanged(ctx context.Context, orderID int64, from, to entity.PaymentStatus) error
}

// IdempotencyGuard is satisfied by *idempotency.RedisGuard.
type IdempotencyGuard interface {
	Acquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

type OrderService struct {
	orders   OrderRepository
	books    BookFinder
	users    UserFinder
	receipts mailer.Sender
	events   EventPublisher
	guard    IdempotencyGuard

	// strictPayments rejects payment status changes outside entity.CanTransition.
	strictPayments bool
	now            func() time.Time
}

// NewOrderService wires the order workflow. receipts and publisher may be nil,
// in which case receipts are never sent and events are dropped. guard may be nil
// to disable idempotency keys.
func NewOrderService(orders OrderRepository, books BookFinder, users UserFinder, receipts mailer.Sender, publisher EventPublisher, guard IdempotencyGuard, strictPayments bool) *OrderService {
	if receipts == nil {
		receipts = mailer.Disabled{}
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &OrderService{
		orders:         orders,
		books:          books,
		users:          users,
		receipts:       receipts,
		events:         publisher,
		guard:          guard,
		strictPayments: strictPayments,
		now:            time.Now,
	}
}

type OrderItemInput struct {
	BookID int64
	Type   string
}

type CreateOrderInput struct {
	UserID         int64
	Items          []OrderItemInput
	IdempotencyKey string
}

// PlacedItem is an order line as priced at checkout.
type PlacedItem struct {
	BookID int64
	Title  string
	Author string
	Type   entity.ItemType
	Price  decimal.Decimal
}

type PlacedOrder struct {
	Order     entity.Order
	Items     []PlacedItem
	EmailSent bool
}

/*
Books are looked up concurrently, but the outcome does not depend on which
lookup finishes first: after all lookups are done the items are checked in
request order and the first missing or unavailable book fails the request.
Nothing is written until every item passed, and the order row and its items
are inserted in one transaction.
*/

// CreateOrder prices every item from the current catalog and stores the order.
// The receipt email is best-effort and only reflected in PlacedOrder.EmailSent.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*PlacedOrder, error) {
	if len(in.Items) == 0 {
		return nil, validationError("No items provided")
	}

	types := make([]entity.ItemType, len(in.Items))
	for i, item := range in.Items {
		if item.BookID <= 0 || strings.TrimSpace(item.Type) == "" {
			return nil, validationError("Invalid item structure")
		}
		t, ok := entity.ParseItemType(item.Type)
		if !ok {
			return nil, validationError(`Invalid item type: %s. Must be "buy" or "rent"`, strings.ToLower(item.Type))
		}
		types[i] = t
	}

	books, err := s.lookupBooks(ctx, in.Items)
	if err != nil {
		logger.Error().Err(err).Int64("user_id", in.UserID).Msg("Error looking up books for order")
		return nil, dependencyError("Failed to create order", err)
	}

	placed := make([]PlacedItem, len(in.Items))
	rows := make([]entity.OrderItem, len(in.Items))
	total := decimal.Zero
	for i, item := range in.Items {
		book := books[i]
		if book == nil {
			return nil, notFoundError("Book with ID %d not found", item.BookID)
		}
		if !book.Available {
			return nil, validationError(`Book "%s" is not available`, book.Title)
		}

		price := book.PriceFor(types[i])
		total = total.Add(price)
		placed[i] = PlacedItem{BookID: book.ID, Title: book.Title, Author: book.Author, Type: types[i], Price: price}
		rows[i] = entity.OrderItem{BookID: book.ID, ItemType: types[i], Price: price}
	}

	release, err := s.acquire(ctx, in.UserID, in.IdempotencyKey)
	if err != nil {
		return nil, err
	}

	order := entity.Order{
		UserID:        in.UserID,
		TotalAmount:   total,
		PaymentStatus: entity.PaymentPending,
		CreatedAt:     s.now(),
	}
	if _, err := s.orders.CreateOrder(ctx, &order, rows); err != nil {
		release()
		logger.Error().Err(err).Int64("user_id", in.UserID).Msg("Error creating order")
		return nil, dependencyError("Failed to create order", err)
	}
	logger.Info().Int64("order_id", order.ID).Int64("user_id", in.UserID).Str("total", total.StringFixed(2)).Msg("Order created")

	result := &PlacedOrder{Order: order, Items: placed}
	result.EmailSent = s.sendReceipt(ctx, order, placed)

	if err := s.events.OrderCreated(ctx, order, rows); err != nil {
		logger.Warn().Err(err).Int64("order_id", order.ID).Msg("Error publishing order event")
	}
	return result, nil
}

// lookupBooks returns the book for each item in item order; absent books are nil.
func (s *OrderService) lookupBooks(ctx context.Context, items []OrderItemInput) ([]*entity.Book, error) {
	books := make([]*entity.Book, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLookups)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			book, err := s.books.GetBookByID(gctx, item.BookID)
			if err != nil {
				return err
			}
			books[i] = book
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return books, nil
}

// acquire claims the idempotency key for this user. The returned func releases
// it and is safe to call when no key was claimed. A guard that cannot be reached
// does not block checkout.
func (s *OrderService) acquire(ctx context.Context, userID int64, key string) (func(), error) {
	noop := func() {}
	key = strings.TrimSpace(key)
	if s.guard == nil || key == "" {
		return noop, nil
	}

	scoped := fmt.Sprintf("%d:%s", userID, key)
	ok, err := s.guard.Acquire(ctx, scoped)
	if err != nil {
		logger.Warn().Err(err).Int64("user_id", userID).Msg("Idempotency guard unavailable, continuing without it")
		return noop, nil
	}
	if !ok {
		return nil, conflictError("duplicate order request")
	}
	return func() {
		if err := s.guard.Release(context.WithoutCancel(ctx), scoped); err != nil {
			logger.Warn().Err(err).Int64("user_id", userID).Msg("Error releasing idempotency key")
		}
	}, nil
}

func (s *OrderService) sendReceipt(ctx context.Context, order entity.Order, items []PlacedItem) bool {
	user, err := s.users.GetUserByID(ctx, order.UserID)
	if err != nil || user == nil {
		logger.Warn().Err(err).Int64("order_id", order.ID).Msg("Cannot load customer for receipt")
		return false
	}

	receipt := mailer.Receipt{
		OrderID:       order.ID,
		Customer:      user.Username,
		CreatedAt:     order.CreatedAt,
		Total:         order.TotalAmount,
		PaymentStatus: order.PaymentStatus,
		Items:         make([]mailer.ReceiptItem, 0, len(items)),
	}
	for _, it := range items {
		receipt.Items = append(receipt.Items, mailer.ReceiptItem{Title: it.Title, Author: it.Author, Type: it.Type, Price: it.Price})
	}

	if err := s.receipts.Send(ctx, user.Email, receipt); err != nil {
		logger.Warn().Err(err).Int64("order_id", order.ID).Msg("Receipt not sent")
		return false
	}
	return true
}

type OrderView struct {
	Order *entity.OrderDetail
	Items []entity.OrderItemDetail
}

// GetOrder returns the order if the caller owns it or is a manager.
// A missing order is reported before any access check.
func (s *OrderService) GetOrder(ctx context.Context, id int64, claims *auth.Claims) (*OrderView, error) {
	order, err := s.loadOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanAccessOrder(claims, &order.Order) {
		return nil, authorizationError("Access denied")
	}
	return s.withItems(ctx, order)
}

// GetOrderDetail returns any order. Callers must have checked the manager role.
func (s *OrderService) GetOrderDetail(ctx context.Context, id int64) (*OrderView, error) {
	order, err := s.loadOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.withItems(ctx, order)
}

func (s *OrderService) loadOrder(ctx context.Context, id int64) (*entity.OrderDetail, error) {
	order, err := s.orders.GetOrderByID(ctx, id)
	if err != nil {
		return nil, dependencyError("Failed to retrieve order", err)
	}
	if order == nil {
		return nil, notFoundError("Order not found")
	}
	return order, nil
}

func (s *OrderService) withItems(ctx context.Context, order *entity.OrderDetail) (*OrderView, error) {
	items, err := s.orders.GetOrderItems(ctx, order.ID)
	if err != nil {
		return nil, dependencyError("Failed to retrieve order", err)
	}
	return &OrderView{Order: order, Items: items}, nil
}

// ListOrders returns every order, newest first.
func (s *OrderService) ListOrders(ctx context.Context) ([]entity.OrderDetail, error) {
	orders, err := s.orders.ListOrders(ctx)
	if err != nil {
		return nil, dependencyError("Failed to retrieve orders", err)
	}
	return orders, nil
}

// UpdatePaymentStatus sets the payment status of an order. Any of the three
// statuses may replace any other unless strict transitions are enabled.
func (s *OrderService) UpdatePaymentStatus(ctx context.Context, id int64, status string) (entity.PaymentStatus, error) {
	next := entity.PaymentStatus(status)
	if !next.Valid() {
		allowed := make([]string, len(entity.PaymentStatuses))
		for i, st := range entity.PaymentStatuses {
			allowed[i] = string(st)
		}
		return "", validationError("Invalid payment status. Allowed values: %s", strings.Join(allowed, ", "))
	}

	order, err := s.loadOrder(ctx, id)
	if err != nil {
		return "", err
	}
	prev := order.PaymentStatus
	if s.strictPayments && !entity.CanTransition(prev, next) {
		return "", validationError("Cannot change payment status from %s to %s", prev, next)
	}

	if _, err := s.orders.UpdatePaymentStatus(ctx, id, next); err != nil {
		logger.Error().Err(err).Int64("order_id", id).Msg("Error updating payment status")
		return "", dependencyError("Failed to update payment status", err)
	}
	logger.Info().Int64("order_id", id).Str("from", string(prev)).Str("to", string(next)).Msg("Payment status updated")

	if prev != next {
		if err := s.events.PaymentStatusChanged(ctx, id, prev, next); err != nil {
			logger.Warn().Err(err).Int64("order_id", id).Msg("Error publishing payment event")
		}
	}
	return next, nil
}
