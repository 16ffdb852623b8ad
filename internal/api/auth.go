package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"bookstore-service/internal/entity"
	"bookstore-service/internal/service"
)

type AuthService interface {
	Register(ctx context.Context, in service.RegisterInput) (*entity.User, error)
	Login(ctx context.Context, username, password string) (*service.LoginResult, error)
}

type AuthHandler struct {
	authService AuthService
}

func NewAuthHandler(authService AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register creates a customer account --> POST /api/auth/register
func (h *AuthHandler) Register(c echo.Context) error {
	req := registerRequest{}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("Invalid request payload"))
	}
	if err := c.Validate(&req); err != nil {
		if failedTag(err) == "email" {
			return c.JSON(http.StatusBadRequest, errorBody("Invalid email address"))
		}
		return c.JSON(http.StatusBadRequest, errorBody("Missing required fields"))
	}

	user, err := h.authService.Register(c.Request().Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message":  "User registered successfully",
		"user_id":  user.ID,
		"username": user.Username,
	})
}

// Login issues a session token --> POST /api/auth/login
func (h *AuthHandler) Login(c echo.Context) error {
	req := loginRequest{}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("Invalid request payload"))
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("Missing username or password"))
	}

	res, err := h.authService.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"token": res.Token,
		"user": userResponse{
			ID:       res.User.ID,
			Username: res.User.Username,
			Email:    res.User.Email,
			Role:     res.User.Role,
		},
	})
}
