package api

import (
	"context"
	"net/http"
	"strings"

	"showdesk/internal/auth"
)

type contextKey string

const staffIDKey contextKey = "staffID"

type AuthMiddleware struct {
	jwtService *auth.JWTService
}

func NewAuthMiddleware(jwtService *auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{jwtService: jwtService}
}

func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			unauthorized(w, "Authorization header required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			unauthorized(w, "Invalid authorization header format")
			return
		}

		claims, err := m.jwtService.ValidateAccessToken(parts[1])
		if err != nil {
			unauthorized(w, "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), staffIDKey, claims.StaffID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetStaffID(r *http.Request) string {
	if v := r.Context().Value(staffIDKey); v != nil {
		if staffID, ok := v.(string); ok {
			return staffID
		}
	}
	return ""
}
