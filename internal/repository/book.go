package repository

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"bookstore-service/internal/entity"
)

const bookColumns = `id, title, author, price_buy, price_rent, available`

type BookRepository struct {
	db *sqlx.DB
}

func NewBookRepository(db *sqlx.DB) *BookRepository {
	return &BookRepository{db}
}

func (r *BookRepository) ListAvailableBooks(ctx context.Context) ([]entity.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE available = TRUE ORDER BY title`
	books, err := fetchAll[entity.Book](ctx, r.db, query)
	return books, errors.Wrap(err, "list available books")
}

func (r *BookRepository) ListAllBooks(ctx context.Context) ([]entity.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books ORDER BY title`
	books, err := fetchAll[entity.Book](ctx, r.db, query)
	return books, errors.Wrap(err, "list all books")
}

// SearchAvailableBooks matches keyword as a case-insensitive substring of title or author.
func (r *BookRepository) SearchAvailableBooks(ctx context.Context, keyword string) ([]entity.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books
		WHERE available = TRUE
		AND (LOWER(title) LIKE ? OR LOWER(author) LIKE ?)
		ORDER BY title`
	pattern := "%" + escapeLike(strings.ToLower(keyword)) + "%"
	books, err := fetchAll[entity.Book](ctx, r.db, query, pattern, pattern)
	return books, errors.Wrap(err, "search books")
}

func (r *BookRepository) GetBookByID(ctx context.Context, id int64) (*entity.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE id = ?`
	book, err := fetchOne[entity.Book](ctx, r.db, query, id)
	return book, errors.Wrap(err, "get book by id")
}

func (r *BookRepository) CreateBook(ctx context.Context, book *entity.Book) (int64, error) {
	query := `INSERT INTO books (title, author, price_buy, price_rent) VALUES (?, ?, ?, ?)`
	id, err := insert(ctx, r.db, query, book.Title, book.Author, book.PriceBuy, book.PriceRent)
	if err != nil {
		return 0, errors.Wrap(err, "create book")
	}
	return id, nil
}

func (r *BookRepository) UpdateBook(ctx context.Context, book *entity.Book) (int64, error) {
	query := `UPDATE books SET title = ?, author = ?, price_buy = ?, price_rent = ?, available = ? WHERE id = ?`
	n, err := update(ctx, r.db, query, book.Title, book.Author, book.PriceBuy, book.PriceRent, book.Available, book.ID)
	return n, errors.Wrap(err, "update book")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
