package repository

import (
	"context"
	"os"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookstore-service/internal/entity"
	"bookstore-service/migrations"
)

// setupDB connects to MYSQL_DSN, applies the migrations and skips the test
// when no database is reachable. The DSN must include parseTime=true.
func setupDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:@tcp(127.0.0.1:3306)/bookstore_test?parseTime=true&multiStatements=true"
	}

	db, err := sqlx.Open("mysql", dsn)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		t.Skipf("MySQL not available: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, migrations.Up(dsn))
	return db
}

func unique(prefix string) string {
	return prefix + uuid.NewString()[:8]
}

func mustDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestUserRepository(t *testing.T) {
	db := setupDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	name := unique("user_")
	user := &entity.User{Username: name, Email: name + "@example.com", PasswordHash: "hash", Role: entity.RoleCustomer}
	id, err := repo.CreateUser(ctx, user)
	require.NoError(t, err)
	assert.NotZero(t, id)

	byName, err := repo.GetUserByUsername(ctx, name)
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, id, byName.ID)
	assert.Equal(t, entity.RoleCustomer, byName.Role)
	assert.False(t, byName.CreatedAt.IsZero())

	byEmail, err := repo.GetUserByEmail(ctx, name+"@EXAMPLE.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, id, byEmail.ID)

	byID, err := repo.GetUserByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, name, byID.Username)

	missing, err := repo.GetUserByUsername(ctx, unique("nobody_"))
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = repo.CreateUser(ctx, user)
	assert.Error(t, err, "duplicate username is rejected by the unique key")

	n, err := repo.UpdateRole(ctx, name, entity.RoleManager)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	byID, err = repo.GetUserByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entity.RoleManager, byID.Role)
}

func TestBookRepository(t *testing.T) {
	db := setupDB(t)
	repo := NewBookRepository(db)
	ctx := context.Background()

	tag := unique("tag")
	book := &entity.Book{Title: "The " + tag + " Hobbit", Author: "Tolkien", PriceBuy: mustDecimal("9.99"), PriceRent: mustDecimal("2.99")}
	id, err := repo.CreateBook(ctx, book)
	require.NoError(t, err)

	got, err := repo.GetBookByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Available, "new books are available")
	assert.Equal(t, "9.99", got.PriceBuy.StringFixed(2))

	found, err := repo.SearchAvailableBooks(ctx, tag)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, id, found[0].ID)

	none, err := repo.SearchAvailableBooks(ctx, tag+"%")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none, "wildcards in the keyword are literal")

	got.Available = false
	got.PriceBuy = mustDecimal("11.50")
	_, err = repo.UpdateBook(ctx, got)
	require.NoError(t, err)

	found, err = repo.SearchAvailableBooks(ctx, tag)
	require.NoError(t, err)
	assert.Empty(t, found)

	available, err := repo.ListAvailableBooks(ctx)
	require.NoError(t, err)
	for _, b := range available {
		assert.NotEqual(t, id, b.ID)
	}

	all, err := repo.ListAllBooks(ctx)
	require.NoError(t, err)
	var seen bool
	for _, b := range all {
		if b.ID == id {
			seen = true
			assert.Equal(t, "11.50", b.PriceBuy.StringFixed(2))
		}
	}
	assert.True(t, seen)

	missing, err := repo.GetBookByID(ctx, -1)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestOrderRepository(t *testing.T) {
	db := setupDB(t)
	users := NewUserRepository(db)
	books := NewBookRepository(db)
	orders := NewOrderRepository(db)
	ctx := context.Background()

	name := unique("buyer_")
	userID, err := users.CreateUser(ctx, &entity.User{Username: name, Email: name + "@example.com", PasswordHash: "h", Role: entity.RoleCustomer})
	require.NoError(t, err)
	bookID, err := books.CreateBook(ctx, &entity.Book{Title: unique("Dune "), Author: "Herbert", PriceBuy: mustDecimal("12.00"), PriceRent: mustDecimal("4.00")})
	require.NoError(t, err)

	order := &entity.Order{UserID: userID, TotalAmount: mustDecimal("16.00"), PaymentStatus: entity.PaymentPending}
	items := []entity.OrderItem{
		{BookID: bookID, ItemType: entity.ItemBuy, Price: mustDecimal("12.00")},
		{BookID: bookID, ItemType: entity.ItemRent, Price: mustDecimal("4.00")},
	}
	orderID, err := orders.CreateOrder(ctx, order, items)
	require.NoError(t, err)
	assert.Equal(t, orderID, order.ID)
	assert.Equal(t, orderID, items[1].OrderID)

	detail, err := orders.GetOrderByID(ctx, orderID)
	require.NoError(t, err)
	require.NotNil(t, detail)
	assert.Equal(t, name, detail.Username)
	assert.Equal(t, entity.PaymentPending, detail.PaymentStatus)
	assert.Equal(t, "16.00", detail.TotalAmount.StringFixed(2))

	lines, err := orders.GetOrderItems(ctx, orderID)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "Herbert", lines[0].Author)
	assert.Equal(t, entity.ItemRent, lines[1].ItemType)

	extraID, err := orders.CreateOrderItem(ctx, &entity.OrderItem{OrderID: orderID, BookID: bookID, ItemType: entity.ItemRent, Price: mustDecimal("4.00")})
	require.NoError(t, err)
	assert.NotZero(t, extraID)
	lines, err = orders.GetOrderItems(ctx, orderID)
	require.NoError(t, err)
	assert.Len(t, lines, 3)

	n, err := orders.UpdatePaymentStatus(ctx, orderID, entity.PaymentPaid)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	list, err := orders.ListOrders(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, list)
	assert.Equal(t, orderID, list[0].ID, "newest order first")
	assert.Equal(t, entity.PaymentPaid, list[0].PaymentStatus)

	missing, err := orders.GetOrderByID(ctx, -1)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCreateOrderIsAtomic(t *testing.T) {
	db := setupDB(t)
	users := NewUserRepository(db)
	orders := NewOrderRepository(db)
	ctx := context.Background()

	name := unique("atomic_")
	userID, err := users.CreateUser(ctx, &entity.User{Username: name, Email: name + "@example.com", PasswordHash: "h", Role: entity.RoleCustomer})
	require.NoError(t, err)

	var before int
	require.NoError(t, db.GetContext(ctx, &before, `SELECT COUNT(*) FROM orders WHERE user_id = ?`, userID))

	// book -1 violates the foreign key, so the item insert fails after the order row was written
	order := &entity.Order{UserID: userID, TotalAmount: mustDecimal("1.00"), PaymentStatus: entity.PaymentPending}
	_, err = orders.CreateOrder(ctx, order, []entity.OrderItem{{BookID: -1, ItemType: entity.ItemBuy, Price: mustDecimal("1.00")}})
	require.Error(t, err)

	var after int
	require.NoError(t, db.GetContext(ctx, &after, `SELECT COUNT(*) FROM orders WHERE user_id = ?`, userID))
	assert.Equal(t, before, after, "order row is rolled back with its items")
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\% off\_now\\`, escapeLike(`50% off_now\`))
}
