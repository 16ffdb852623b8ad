package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"bookstore-service/internal/entity"
	"bookstore-service/internal/service"
)

type BookService interface {
	ListBooks(ctx context.Context, keyword string) ([]entity.Book, bool, error)
	GetBook(ctx context.Context, id int64) (*entity.Book, error)
	ListAllBooks(ctx context.Context) ([]entity.Book, error)
	CreateBook(ctx context.Context, in service.BookInput) (*entity.Book, error)
	UpdateBook(ctx context.Context, id int64, in service.BookInput) (*entity.Book, error)
}

type BookHandler struct {
	bookService BookService
}

func NewBookHandler(bookService BookService) *BookHandler {
	return &BookHandler{bookService: bookService}
}

// ListBooks returns the available catalog, optionally filtered --> GET /api/books?q=
func (h *BookHandler) ListBooks(c echo.Context) error {
	books, cached, err := h.bookService.ListBooks(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"books":  toBookResponses(books),
		"count":  len(books),
		"cached": cached,
	})
}

// GetBook --> GET /api/books/:id
func (h *BookHandler) GetBook(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("Invalid ID"))
	}

	book, err := h.bookService.GetBook(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toBookResponse(*book))
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, strconv.ErrRange
	}
	return id, nil
}
