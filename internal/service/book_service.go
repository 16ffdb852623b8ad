package service

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"bookstore-service/internal/entity"
)

const (
	DefaultCatalogTTL = 30 * time.Second
	catalogKeyPrefix  = "books:"
)

type BookRepository interface {
	ListAvailableBooks(ctx context.Context) ([]entity.Book, error)
	ListAllBooks(ctx context.Context) ([]entity.Book, error)
	SearchAvailableBooks(ctx context.Context, keyword string) ([]entity.Book, error)
	GetBookByID(ctx context.Context, id int64) (*entity.Book, error)
	CreateBook(ctx context.Context, book *entity.Book) (int64, error)
	UpdateBook(ctx context.Context, book *entity.Book) (int64, error)
}

// CatalogCache is satisfied by *cache.Cache[[]entity.Book].
type CatalogCache interface {
	Get(key string) ([]entity.Book, bool)
	Set(key string, value []entity.Book, ttl time.Duration)
	Clear()
}

type BookService struct {
	books BookRepository
	cache CatalogCache
	ttl   time.Duration
}

func NewBookService(books BookRepository, cache CatalogCache, ttl time.Duration) *BookService {
	if ttl <= 0 {
		ttl = DefaultCatalogTTL
	}
	return &BookService{books: books, cache: cache, ttl: ttl}
}

// ListBooks returns available books ordered by title, filtered by a
// case-insensitive substring of title or author when keyword is not empty.
// cached reports whether the result was served from the catalog cache.
// The returned slice is shared with the cache and must not be modified.
func (s *BookService) ListBooks(ctx context.Context, keyword string) (books []entity.Book, cached bool, err error) {
	keyword = strings.TrimSpace(keyword)
	key := catalogKeyPrefix + keyword

	if hit, ok := s.cache.Get(key); ok {
		return hit, true, nil
	}

	if keyword == "" {
		books, err = s.books.ListAvailableBooks(ctx)
	} else {
		books, err = s.books.SearchAvailableBooks(ctx, keyword)
	}
	if err != nil {
		logger.Error().Err(err).Str("keyword", keyword).Msg("Error listing books")
		return nil, false, dependencyError("Failed to retrieve books", err)
	}

	s.cache.Set(key, books, s.ttl)
	return books, false, nil
}

func (s *BookService) GetBook(ctx context.Context, id int64) (*entity.Book, error) {
	book, err := s.books.GetBookByID(ctx, id)
	if err != nil {
		return nil, dependencyError("Failed to retrieve book", err)
	}
	if book == nil {
		return nil, notFoundError("Book not found")
	}
	return book, nil
}

// ListAllBooks includes unavailable books and bypasses the cache.
func (s *BookService) ListAllBooks(ctx context.Context) ([]entity.Book, error) {
	books, err := s.books.ListAllBooks(ctx)
	if err != nil {
		return nil, dependencyError("Failed to retrieve books", err)
	}
	return books, nil
}

type BookInput struct {
	Title     string
	Author    string
	PriceBuy  decimal.Decimal
	PriceRent decimal.Decimal
	Available bool
}

func (in BookInput) normalize() (BookInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Author = strings.TrimSpace(in.Author)
	if !in.PriceBuy.IsPositive() || !in.PriceRent.IsPositive() {
		return in, validationError("Prices must be greater than 0")
	}
	if in.Title == "" || in.Author == "" {
		return in, validationError("Title and author cannot be empty")
	}
	return in, nil
}

// CreateBook adds an available book to the catalog.
func (s *BookService) CreateBook(ctx context.Context, in BookInput) (*entity.Book, error) {
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}

	book := &entity.Book{
		Title:     in.Title,
		Author:    in.Author,
		PriceBuy:  in.PriceBuy,
		PriceRent: in.PriceRent,
		Available: true,
	}
	id, err := s.books.CreateBook(ctx, book)
	if err != nil {
		logger.Error().Err(err).Msg("Error creating book")
		return nil, dependencyError("Failed to add book", err)
	}
	book.ID = id

	s.cache.Clear()
	logger.Info().Int64("book_id", id).Msg("Book created, catalog cache cleared")
	return book, nil
}

// UpdateBook replaces every editable field of an existing book.
func (s *BookService) UpdateBook(ctx context.Context, id int64, in BookInput) (*entity.Book, error) {
	if _, err := s.GetBook(ctx, id); err != nil {
		return nil, err
	}
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}

	book := &entity.Book{
		ID:        id,
		Title:     in.Title,
		Author:    in.Author,
		PriceBuy:  in.PriceBuy,
		PriceRent: in.PriceRent,
		Available: in.Available,
	}
	// MySQL reports 0 affected rows for an unchanged row, so the count is not
	// used as an existence check.
	if _, err := s.books.UpdateBook(ctx, book); err != nil {
		logger.Error().Err(err).Int64("book_id", id).Msg("Error updating book")
		return nil, dependencyError("Failed to update book", err)
	}

	s.cache.Clear()
	logger.Info().Int64("book_id", id).Msg("Book updated, catalog cache cleared")
	return book, nil
}
