package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/thinkmirai/auth-gateway/internal/http/response"
	"github.com/thinkmirai/auth-gateway/internal/observability"
	"github.com/thinkmirai/auth-gateway/internal/security"
)

type contextKey string

const ClaimsContextKey contextKey = "claims"

const AccessTokenCookie = "mirai_auth_token"

// Auth resolves the access token from the auth cookie or an Authorization
// bearer header and puts the verified claims on the request context.
// Expired tokens get a distinct signal so clients know to refresh; every
// other failure looks the same.
func Auth(jwtMgr *security.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := security.GetCookie(r, AccessTokenCookie)
			if raw == "" {
				auth := r.Header.Get("Authorization")
				if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
					raw = strings.TrimSpace(auth[7:])
				}
			}
			if raw == "" {
				observability.RecordTokenValidation(r.Context(), "access", "missing")
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing access token")
				return
			}
			claims, err := jwtMgr.Verify(raw, security.TokenKindAccess)
			if err != nil {
				if errors.Is(err, security.ErrTokenExpired) {
					observability.RecordTokenValidation(r.Context(), "access", "expired")
					response.Error(w, r, http.StatusForbidden, "TOKEN_EXPIRED", "access token expired")
					return
				}
				observability.RecordTokenValidation(r.Context(), "access", "invalid")
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid access token")
				return
			}
			observability.RecordTokenValidation(r.Context(), "access", "valid")
			ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func ClaimsFromContext(ctx context.Context) (*security.Claims, bool) {
	c, ok := ctx.Value(ClaimsContextKey).(*security.Claims)
	return c, ok
}
