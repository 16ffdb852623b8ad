// Package servicetest provides an in-memory store implementing the service
// repository interfaces, for tests that do not need MySQL.
package servicetest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"

	"bookstore-service/internal/entity"
)

// ErrDuplicate mimics the MySQL unique key violation.
var ErrDuplicate = &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}

// Store is a map-backed users, books and orders repository. Setting Err makes
// every method fail with it.
type Store struct {
	mu sync.Mutex

	Err error

	users  map[int64]entity.User
	books  map[int64]entity.Book
	orders map[int64]entity.Order
	items  map[int64][]entity.OrderItem
	nextID int64
	calls  map[string]int
	epoch  time.Time
}

func NewStore() *Store {
	return &Store{
		users:  map[int64]entity.User{},
		books:  map[int64]entity.Book{},
		orders: map[int64]entity.Order{},
		items:  map[int64][]entity.OrderItem{},
		calls:  map[string]int{},
		epoch:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Calls reports how many times the named method ran.
func (s *Store) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

func (s *Store) enter(method string) error {
	s.calls[method]++
	return s.Err
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) CreateUser(_ context.Context, user *entity.User) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CreateUser"); err != nil {
		return 0, err
	}
	for _, u := range s.users {
		if u.Username == user.Username || strings.EqualFold(u.Email, user.Email) {
			return 0, ErrDuplicate
		}
	}
	u := *user
	u.ID = s.id()
	u.CreatedAt = s.epoch.Add(time.Duration(u.ID) * time.Second)
	s.users[u.ID] = u
	return u.ID, nil
}

func (s *Store) findUser(match func(entity.User) bool) *entity.User {
	for _, u := range s.users {
		if match(u) {
			out := u
			return &out
		}
	}
	return nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetUserByUsername"); err != nil {
		return nil, err
	}
	return s.findUser(func(u entity.User) bool { return u.Username == username }), nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetUserByEmail"); err != nil {
		return nil, err
	}
	return s.findUser(func(u entity.User) bool { return strings.EqualFold(u.Email, email) }), nil
}

func (s *Store) GetUserByID(_ context.Context, id int64) (*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetUserByID"); err != nil {
		return nil, err
	}
	return s.findUser(func(u entity.User) bool { return u.ID == id }), nil
}

// SetRole changes a stored user's role.
func (s *Store) SetRole(username string, role entity.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, u := range s.users {
		if u.Username == username {
			u.Role = role
			s.users[id] = u
		}
	}
}

func (s *Store) sortedBooks(match func(entity.Book) bool) []entity.Book {
	out := []entity.Book{}
	for _, b := range s.books {
		if match(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title == out[j].Title {
			return out[i].ID < out[j].ID
		}
		return out[i].Title < out[j].Title
	})
	return out
}

func (s *Store) ListAvailableBooks(_ context.Context) ([]entity.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ListAvailableBooks"); err != nil {
		return nil, err
	}
	return s.sortedBooks(func(b entity.Book) bool { return b.Available }), nil
}

func (s *Store) ListAllBooks(_ context.Context) ([]entity.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ListAllBooks"); err != nil {
		return nil, err
	}
	return s.sortedBooks(func(entity.Book) bool { return true }), nil
}

func (s *Store) SearchAvailableBooks(_ context.Context, keyword string) ([]entity.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("SearchAvailableBooks"); err != nil {
		return nil, err
	}
	kw := strings.ToLower(keyword)
	return s.sortedBooks(func(b entity.Book) bool {
		return b.Available && (strings.Contains(strings.ToLower(b.Title), kw) || strings.Contains(strings.ToLower(b.Author), kw))
	}), nil
}

func (s *Store) GetBookByID(_ context.Context, id int64) (*entity.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetBookByID"); err != nil {
		return nil, err
	}
	b, ok := s.books[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (s *Store) CreateBook(_ context.Context, book *entity.Book) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CreateBook"); err != nil {
		return 0, err
	}
	b := *book
	b.ID = s.id()
	b.Available = true
	s.books[b.ID] = b
	return b.ID, nil
}

// PutBook stores a book as is, keeping its availability flag.
func (s *Store) PutBook(book entity.Book) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	book.ID = s.id()
	s.books[book.ID] = book
	return book.ID
}

func (s *Store) UpdateBook(_ context.Context, book *entity.Book) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("UpdateBook"); err != nil {
		return 0, err
	}
	if _, ok := s.books[book.ID]; !ok {
		return 0, nil
	}
	s.books[book.ID] = *book
	return 1, nil
}

func (s *Store) CreateOrder(_ context.Context, order *entity.Order, items []entity.OrderItem) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CreateOrder"); err != nil {
		return 0, err
	}
	order.ID = s.id()
	order.CreatedAt = s.epoch.Add(time.Duration(order.ID) * time.Second)
	stored := make([]entity.OrderItem, len(items))
	for i := range items {
		items[i].OrderID = order.ID
		items[i].ID = s.id()
		stored[i] = items[i]
	}
	s.orders[order.ID] = *order
	s.items[order.ID] = stored
	return order.ID, nil
}

// OrderCount reports how many orders were stored.
func (s *Store) OrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func (s *Store) detail(o entity.Order) entity.OrderDetail {
	d := entity.OrderDetail{Order: o}
	if u, ok := s.users[o.UserID]; ok {
		d.Username = u.Username
		d.Email = u.Email
	}
	return d
}

func (s *Store) GetOrderByID(_ context.Context, id int64) (*entity.OrderDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetOrderByID"); err != nil {
		return nil, err
	}
	o, ok := s.orders[id]
	if !ok {
		return nil, nil
	}
	d := s.detail(o)
	return &d, nil
}

func (s *Store) GetOrderItems(_ context.Context, orderID int64) ([]entity.OrderItemDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetOrderItems"); err != nil {
		return nil, err
	}
	out := []entity.OrderItemDetail{}
	for _, it := range s.items[orderID] {
		b := s.books[it.BookID]
		out = append(out, entity.OrderItemDetail{OrderItem: it, Title: b.Title, Author: b.Author})
	}
	return out, nil
}

func (s *Store) ListOrders(_ context.Context) ([]entity.OrderDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ListOrders"); err != nil {
		return nil, err
	}
	out := []entity.OrderDetail{}
	for _, o := range s.orders {
		out = append(out, s.detail(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *Store) UpdatePaymentStatus(_ context.Context, id int64, status entity.PaymentStatus) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("UpdatePaymentStatus"); err != nil {
		return 0, err
	}
	o, ok := s.orders[id]
	if !ok {
		return 0, nil
	}
	o.PaymentStatus = status
	s.orders[id] = o
	return 1, nil
}
