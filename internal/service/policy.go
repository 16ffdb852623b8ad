package service

import (
	"bookstore-service/internal/auth"
	"bookstore-service/internal/entity"
)

// CanAccessOrder reports whether the caller may view the order: its owner or any manager.
func CanAccessOrder(claims *auth.Claims, order *entity.Order) bool {
	if claims == nil || order == nil {
		return false
	}
	return claims.Role == entity.RoleManager || claims.UserID == order.UserID
}
