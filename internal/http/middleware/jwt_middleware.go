package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rendevo/booking-api/internal/http/response"
	"github.com/rendevo/booking-api/internal/platform/auth"
)

type ctxKey string

const CtxClaims ctxKey = "claims"

func RequireJWT(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authz := r.Header.Get("Authorization")
		if !strings.HasPrefix(authz, "Bearer ") {
			response.Unauthorized(w, "invalid authorization header")
			return
		}
		raw := strings.TrimPrefix(authz, "Bearer ")
		claims, err := auth.Parse(raw)
		if err != nil {
			response.Unauthorized(w, "invalid authorization token")
			return
		}
		ctx := context.WithValue(r.Context(), CtxClaims, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func Claims(r *http.Request) *auth.Claims {
	v := r.Context().Value(CtxClaims)
	if v == nil {
		return nil
	}
	return v.(*auth.Claims)
}
