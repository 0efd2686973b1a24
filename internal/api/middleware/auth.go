package middleware

import (
	"context"
	"net/http"

	"codeduel/internal/common"
	"codeduel/internal/common/security"
	"codeduel/internal/domain/model"

	"github.com/go-chi/jwtauth/v5"
)

type contextKey string

const (
	UserIDCtxKey   contextKey = "userID"
	UserRoleCtxKey contextKey = "userRole"
)

// Authenticator rejects requests without a valid token and stores the
// caller's id and role in the context.
func Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, err := withIdentity(r.Context())
		if err != nil {
			common.RespondWithError(w, http.StatusUnauthorized, err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalAuth stores the caller's identity when a valid token is present
// and lets anonymous requests through.
func OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ctx, err := withIdentity(r.Context()); err == nil {
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}

func withIdentity(ctx context.Context) (context.Context, error) {
	token, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		if token == nil {
			return nil, common.Errorf("authorization token required")
		}
		return nil, common.Errorf("invalid token: %v", err)
	}
	if token == nil {
		return nil, common.Errorf("invalid token")
	}

	userID, err := security.GetUserIDFromClaims(claims)
	if err != nil {
		return nil, common.Errorf("invalid token claims: %v", err)
	}
	userRole, err := security.GetUserRoleFromClaims(claims)
	if err != nil {
		return nil, common.Errorf("invalid token claims: %v", err)
	}

	ctx = context.WithValue(ctx, UserIDCtxKey, userID)
	ctx = context.WithValue(ctx, UserRoleCtxKey, userRole)
	return ctx, nil
}

func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, ok := r.Context().Value(UserRoleCtxKey).(string)
		if !ok || role != model.RoleAdmin {
			common.RespondWithError(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDCtxKey).(string)
	return userID, ok
}

func GetUserRoleFromContext(ctx context.Context) (string, bool) {
	userRole, ok := ctx.Value(UserRoleCtxKey).(string)
	return userRole, ok
}
