package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"bookstore-service/internal/entity"
)

type RouterConfig struct {
	Tokens      TokenVerifier
	CORSOrigins []string
	// RateLimit is requests per second per client IP; 0 disables limiting.
	RateLimit float64
	RateBurst int
}

type Handlers struct {
	Auth    *AuthHandler
	Books   *BookHandler
	Orders  *OrderHandler
	Manager *ManagerHandler
}

func NewRouter(cfg RouterConfig, h Handlers) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()
	e.HTTPErrorHandler = HTTPErrorHandler

	e.Use(middleware.Recover())
	e.Use(requestID())
	e.Use(requestLogger())
	if cfg.RateLimit > 0 {
		e.Use(rateLimiter(cfg.RateLimit, cfg.RateBurst))
	}

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, headerIdempotentKey},
	}))

	e.GET("/", index)
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
	})

	api := e.Group("/api")

	api.POST("/auth/register", h.Auth.Register)
	api.POST("/auth/login", h.Auth.Login)

	api.GET("/books", h.Books.ListBooks)
	api.GET("/books/:id", h.Books.GetBook)

	authenticated := Authenticate(cfg.Tokens)

	orders := api.Group("/orders", authenticated)
	orders.POST("", h.Orders.CreateOrder)
	orders.GET("/:id", h.Orders.GetOrder)

	manager := api.Group("/manager", authenticated, RequireRole(entity.RoleManager))
	manager.GET("/orders", h.Manager.ListOrders)
	manager.GET("/orders/:id", h.Manager.GetOrder)
	manager.PATCH("/orders/:id/payment-status", h.Manager.UpdatePaymentStatus)
	manager.GET("/books", h.Manager.ListBooks)
	manager.POST("/books", h.Manager.CreateBook)
	manager.PUT("/books/:id", h.Manager.UpdateBook)

	return e
}

func index(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Online Bookstore API",
		"version": "1.0",
		"endpoints": map[string]string{
			"auth":    "/api/auth/register, /api/auth/login",
			"books":   "/api/books",
			"orders":  "/api/orders",
			"manager": "/api/manager/orders, /api/manager/books",
		},
	})
}
