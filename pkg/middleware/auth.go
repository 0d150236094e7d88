package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	apperrors "github.com/laocai-wudi/chunmpre.cn/pkg/errors"
	"github.com/laocai-wudi/chunmpre.cn/pkg/httputil"
	"github.com/laocai-wudi/chunmpre.cn/pkg/logger"
)

type contextKeyType string

const (
	adminIDKey contextKeyType = "admin_id"
	roleKey    contextKeyType = "role"
)

// RoleAdmin is the only role the catalog back office knows.
const RoleAdmin = "admin"

// ErrInvalidToken is returned by validators for an unknown bearer token.
var ErrInvalidToken = errors.New("invalid token")

// Claims identify the caller behind a bearer token.
type Claims struct {
	AdminID string `json:"admin_id"`
	Role    string `json:"role"`
}

// TokenValidator resolves a bearer token into claims.
type TokenValidator func(token string) (*Claims, error)

// StaticTokenValidator accepts exactly one configured token and maps it to
// the admin role. An empty configured token rejects everything.
func StaticTokenValidator(token, adminID string) TokenValidator {
	expected := []byte(token)
	return func(got string) (*Claims, error) {
		if len(expected) == 0 || subtle.ConstantTimeCompare(expected, []byte(got)) != 1 {
			return nil, ErrInvalidToken
		}
		return &Claims{AdminID: adminID, Role: RoleAdmin}, nil
	}
}

// Auth validates the Authorization bearer token and stores the claims in the
// request context.
func Auth(validate TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				httputil.WriteError(w, r, apperrors.Unauthorized("missing authorization header"), nil)
				return
			}

			scheme, token, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
				httputil.WriteError(w, r, apperrors.Unauthorized("invalid authorization header format"), nil)
				return
			}

			claims, err := validate(strings.TrimSpace(token))
			if err != nil {
				httputil.WriteError(w, r, apperrors.Unauthorized("invalid or expired token"), nil)
				return
			}

			ctx := context.WithValue(r.Context(), adminIDKey, claims.AdminID)
			ctx = context.WithValue(ctx, roleKey, claims.Role)
			ctx = logger.WithAdminID(ctx, claims.AdminID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects authenticated callers whose role is not listed.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	roleSet := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		roleSet[r] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := roleSet[RoleFromContext(r.Context())]; !ok {
				httputil.WriteError(w, r, apperrors.Forbidden("insufficient permissions"), nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AdminIDFromContext returns the authenticated admin id, or "".
func AdminIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(adminIDKey).(string); ok {
		return id
	}
	return ""
}

// RoleFromContext returns the authenticated role, or "".
func RoleFromContext(ctx context.Context) string {
	if role, ok := ctx.Value(roleKey).(string); ok {
		return role
	}
	return ""
}
