package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookstore-service/internal/auth"
	"bookstore-service/internal/entity"
	"bookstore-service/internal/mailer"
	"bookstore-service/internal/service/servicetest"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []mailer.Receipt
	to   []string
	err  error
}

func (s *recordingSender) Send(_ context.Context, to string, r mailer.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, r)
	s.to = append(s.to, to)
	return nil
}

type recordingEvents struct {
	created []int64
	changed []entity.PaymentStatus
	err     error
}

func (e *recordingEvents) OrderCreated(_ context.Context, order entity.Order, _ []entity.OrderItem) error {
	e.created = append(e.created, order.ID)
	return e.err
}

func (e *recordingEvents) PaymentStatusChanged(_ context.Context, _ int64, _, to entity.PaymentStatus) error {
	e.changed = append(e.changed, to)
	return e.err
}

type memGuard struct {
	keys     map[string]bool
	released []string
	err      error
}

func (g *memGuard) Acquire(_ context.Context, key string) (bool, error) {
	if g.err != nil {
		return false, g.err
	}
	if g.keys[key] {
		return false, nil
	}
	g.keys[key] = true
	return true, nil
}

func (g *memGuard) Release(_ context.Context, key string) error {
	delete(g.keys, key)
	g.released = append(g.released, key)
	return nil
}

type orderFixture struct {
	store    *servicetest.Store
	sender   *recordingSender
	events   *recordingEvents
	guard    *memGuard
	svc      *OrderService
	customer *entity.User
	hobbit   int64
	dune     int64
	hidden   int64
}

func newOrderFixture(t *testing.T, strict bool) *orderFixture {
	t.Helper()
	f := &orderFixture{
		store:  servicetest.NewStore(),
		sender: &recordingSender{},
		events: &recordingEvents{},
		guard:  &memGuard{keys: map[string]bool{}},
	}
	ctx := context.Background()
	id, err := f.store.CreateUser(ctx, &entity.User{Username: "alice", Email: "a@x.com", Role: entity.RoleCustomer})
	require.NoError(t, err)
	f.customer, _ = f.store.GetUserByID(ctx, id)

	f.hobbit = f.store.PutBook(entity.Book{Title: "Hobbit", Author: "Tolkien", PriceBuy: price("9.99"), PriceRent: price("2.99"), Available: true})
	f.dune = f.store.PutBook(entity.Book{Title: "Dune", Author: "Herbert", PriceBuy: price("12.50"), PriceRent: price("4.25"), Available: true})
	f.hidden = f.store.PutBook(entity.Book{Title: "Silmarillion", Author: "Tolkien", PriceBuy: price("15"), PriceRent: price("5"), Available: false})

	f.svc = NewOrderService(f.store, f.store, f.store, f.sender, f.events, f.guard, strict)
	return f
}

func (f *orderFixture) create(t *testing.T, items ...OrderItemInput) *PlacedOrder {
	t.Helper()
	placed, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{UserID: f.customer.ID, Items: items})
	require.NoError(t, err)
	return placed
}

func TestCreateOrder(t *testing.T) {
	f := newOrderFixture(t, false)

	placed := f.create(t,
		OrderItemInput{BookID: f.hobbit, Type: "BUY"},
		OrderItemInput{BookID: f.dune, Type: "rent"},
	)

	assert.NotZero(t, placed.Order.ID)
	assert.Equal(t, entity.PaymentPending, placed.Order.PaymentStatus)
	assert.Equal(t, "14.24", placed.Order.TotalAmount.StringFixed(2))
	require.Len(t, placed.Items, 2)
	assert.Equal(t, entity.ItemBuy, placed.Items[0].Type)
	assert.Equal(t, "Hobbit", placed.Items[0].Title)
	assert.Equal(t, "4.25", placed.Items[1].Price.StringFixed(2))

	assert.True(t, placed.EmailSent)
	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, "a@x.com", f.sender.to[0])
	assert.Equal(t, placed.Order.ID, f.sender.sent[0].OrderID)
	assert.Equal(t, "alice", f.sender.sent[0].Customer)

	assert.Equal(t, []int64{placed.Order.ID}, f.events.created)
}

func TestOrderTotalIsSnapshot(t *testing.T) {
	f := newOrderFixture(t, false)
	ctx := context.Background()

	placed := f.create(t, OrderItemInput{BookID: f.hobbit, Type: "buy"})

	_, err := f.store.UpdateBook(ctx, &entity.Book{ID: f.hobbit, Title: "Hobbit", Author: "Tolkien", PriceBuy: price("99"), PriceRent: price("9"), Available: true})
	require.NoError(t, err)

	view, err := f.svc.GetOrderDetail(ctx, placed.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, "9.99", view.Order.TotalAmount.StringFixed(2))
	require.Len(t, view.Items, 1)
	assert.Equal(t, "9.99", view.Items[0].Price.StringFixed(2))
}

func TestCreateOrderRejectsWholeRequest(t *testing.T) {
	tests := []struct {
		name  string
		items func(f *orderFixture) []OrderItemInput
		kind  Kind
		msg   string
	}{
		{
			name:  "no items",
			items: func(*orderFixture) []OrderItemInput { return nil },
			kind:  KindValidation,
			msg:   "No items provided",
		},
		{
			name: "missing type",
			items: func(f *orderFixture) []OrderItemInput {
				return []OrderItemInput{{BookID: f.hobbit}}
			},
			kind: KindValidation,
			msg:  "Invalid item structure",
		},
		{
			name: "bad type",
			items: func(f *orderFixture) []OrderItemInput {
				return []OrderItemInput{{BookID: f.hobbit, Type: "Lease"}}
			},
			kind: KindValidation,
			msg:  `Invalid item type: lease. Must be "buy" or "rent"`,
		},
		{
			name: "unknown book after a valid one",
			items: func(f *orderFixture) []OrderItemInput {
				return []OrderItemInput{{BookID: f.hobbit, Type: "buy"}, {BookID: 999, Type: "buy"}}
			},
			kind: KindNotFound,
			msg:  "Book with ID 999 not found",
		},
		{
			name: "unavailable book",
			items: func(f *orderFixture) []OrderItemInput {
				return []OrderItemInput{{BookID: f.dune, Type: "rent"}, {BookID: f.hidden, Type: "buy"}}
			},
			kind: KindValidation,
			msg:  `Book "Silmarillion" is not available`,
		},
		{
			name: "first failing item wins",
			items: func(f *orderFixture) []OrderItemInput {
				return []OrderItemInput{{BookID: f.hidden, Type: "buy"}, {BookID: 999, Type: "buy"}}
			},
			kind: KindValidation,
			msg:  `Book "Silmarillion" is not available`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOrderFixture(t, false)
			_, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{UserID: f.customer.ID, Items: tt.items(f)})
			require.Error(t, err)
			assert.Equal(t, tt.kind, KindOf(err))
			assert.Equal(t, tt.msg, MessageOf(err))
			assert.Zero(t, f.store.OrderCount(), "no partial order is stored")
			assert.Empty(t, f.sender.sent)
		})
	}
}

func TestCreateOrderEmailFailureDoesNotFailOrder(t *testing.T) {
	f := newOrderFixture(t, false)
	f.sender.err = errors.New("smtp: 535 authentication failed")
	f.events.err = errors.New("kafka: broker unavailable")

	placed := f.create(t, OrderItemInput{BookID: f.hobbit, Type: "buy"})
	assert.False(t, placed.EmailSent)
	assert.Equal(t, 1, f.store.OrderCount())
}

func TestCreateOrderWithoutMailer(t *testing.T) {
	f := newOrderFixture(t, false)
	svc := NewOrderService(f.store, f.store, f.store, nil, nil, nil, false)

	placed, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		UserID: f.customer.ID,
		Items:  []OrderItemInput{{BookID: f.hobbit, Type: "buy"}},
	})
	require.NoError(t, err)
	assert.False(t, placed.EmailSent)
}

func TestCreateOrderIdempotencyKey(t *testing.T) {
	f := newOrderFixture(t, false)
	ctx := context.Background()
	in := CreateOrderInput{
		UserID:         f.customer.ID,
		Items:          []OrderItemInput{{BookID: f.hobbit, Type: "buy"}},
		IdempotencyKey: "checkout-1",
	}

	_, err := f.svc.CreateOrder(ctx, in)
	require.NoError(t, err)

	_, err = f.svc.CreateOrder(ctx, in)
	require.Error(t, err)
	assert.Equal(t, KindConflict, KindOf(err))
	assert.Equal(t, "duplicate order request", MessageOf(err))
	assert.Equal(t, 1, f.store.OrderCount())

	// keys are scoped per user
	in.UserID = f.customer.ID + 100
	_, err = f.svc.CreateOrder(ctx, in)
	require.NoError(t, err)
}

func TestCreateOrderReleasesKeyOnFailure(t *testing.T) {
	f := newOrderFixture(t, false)
	f.svc.orders = failingOrders{f.store}

	_, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		UserID:         f.customer.ID,
		Items:          []OrderItemInput{{BookID: f.hobbit, Type: "buy"}},
		IdempotencyKey: "k",
	})
	require.Error(t, err)
	assert.Equal(t, KindDependency, KindOf(err))
	assert.Len(t, f.guard.released, 1)
	assert.Empty(t, f.guard.keys)
}

func TestCreateOrderGuardUnavailable(t *testing.T) {
	f := newOrderFixture(t, false)
	f.guard.err = errors.New("redis: connection refused")

	_, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		UserID:         f.customer.ID,
		Items:          []OrderItemInput{{BookID: f.hobbit, Type: "buy"}},
		IdempotencyKey: "k",
	})
	require.NoError(t, err)
}

type failingOrders struct {
	*servicetest.Store
}

func (failingOrders) CreateOrder(context.Context, *entity.Order, []entity.OrderItem) (int64, error) {
	return 0, errors.New("insert order: deadlock")
}

func TestGetOrderAccess(t *testing.T) {
	f := newOrderFixture(t, false)
	placed := f.create(t, OrderItemInput{BookID: f.hobbit, Type: "buy"})
	ctx := context.Background()

	owner := &auth.Claims{UserID: f.customer.ID, Username: "alice", Role: entity.RoleCustomer}
	stranger := &auth.Claims{UserID: f.customer.ID + 1, Username: "mallory", Role: entity.RoleCustomer}
	manager := &auth.Claims{UserID: f.customer.ID + 2, Username: "boss", Role: entity.RoleManager}

	view, err := f.svc.GetOrder(ctx, placed.Order.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, "alice", view.Order.Username)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "Hobbit", view.Items[0].Title)

	_, err = f.svc.GetOrder(ctx, placed.Order.ID, manager)
	require.NoError(t, err)

	_, err = f.svc.GetOrder(ctx, placed.Order.ID, stranger)
	assert.Equal(t, KindAuthorization, KindOf(err))
	assert.Equal(t, "Access denied", MessageOf(err))

	_, err = f.svc.GetOrder(ctx, placed.Order.ID+1000, stranger)
	assert.Equal(t, KindNotFound, KindOf(err), "missing order is reported before access")
}

func TestListOrdersNewestFirst(t *testing.T) {
	f := newOrderFixture(t, false)
	first := f.create(t, OrderItemInput{BookID: f.hobbit, Type: "buy"})
	second := f.create(t, OrderItemInput{BookID: f.dune, Type: "rent"})

	orders, err := f.svc.ListOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, second.Order.ID, orders[0].ID)
	assert.Equal(t, first.Order.ID, orders[1].ID)
}

func TestUpdatePaymentStatus(t *testing.T) {
	f := newOrderFixture(t, false)
	placed := f.create(t, OrderItemInput{BookID: f.hobbit, Type: "buy"})
	ctx := context.Background()

	status, err := f.svc.UpdatePaymentStatus(ctx, placed.Order.ID, "Paid")
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentPaid, status)

	// permissive by default
	_, err = f.svc.UpdatePaymentStatus(ctx, placed.Order.ID, "Pending")
	require.NoError(t, err)
	assert.Equal(t, []entity.PaymentStatus{entity.PaymentPaid, entity.PaymentPending}, f.events.changed)

	_, err = f.svc.UpdatePaymentStatus(ctx, placed.Order.ID, "Shipped")
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Equal(t, "Invalid payment status. Allowed values: Pending, Paid, Cancelled", MessageOf(err))

	_, err = f.svc.UpdatePaymentStatus(ctx, placed.Order.ID, "paid")
	assert.Equal(t, KindValidation, KindOf(err), "status values are case sensitive")

	_, err = f.svc.UpdatePaymentStatus(ctx, 12345, "Paid")
	assert.Equal(t, KindNotFound, KindOf(err))

	_, err = f.svc.UpdatePaymentStatus(ctx, 12345, "Bogus")
	assert.Equal(t, KindValidation, KindOf(err), "value is checked before existence")
}

func TestUpdatePaymentStatusStrict(t *testing.T) {
	f := newOrderFixture(t, true)
	placed := f.create(t, OrderItemInput{BookID: f.hobbit, Type: "buy"})
	ctx := context.Background()

	_, err := f.svc.UpdatePaymentStatus(ctx, placed.Order.ID, "Paid")
	require.NoError(t, err)

	_, err = f.svc.UpdatePaymentStatus(ctx, placed.Order.ID, "Paid")
	require.NoError(t, err, "same status is allowed")

	_, err = f.svc.UpdatePaymentStatus(ctx, placed.Order.ID, "Pending")
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Equal(t, "Cannot change payment status from Paid to Pending", MessageOf(err))
	assert.Equal(t, []entity.PaymentStatus{entity.PaymentPaid}, f.events.changed)
}
