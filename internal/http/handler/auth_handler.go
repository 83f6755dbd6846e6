package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/thinkmirai/auth-gateway/internal/http/middleware"
	"github.com/thinkmirai/auth-gateway/internal/http/response"
	"github.com/thinkmirai/auth-gateway/internal/identity"
	"github.com/thinkmirai/auth-gateway/internal/repository"
	"github.com/thinkmirai/auth-gateway/internal/security"
	"github.com/thinkmirai/auth-gateway/internal/service"
)

const RefreshTokenCookie = "mirai_refresh_token"

type CookieConfig struct {
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type AuthHandler struct {
	auth    service.AuthServiceInterface
	cookies CookieConfig
}

func NewAuthHandler(auth service.AuthServiceInterface, cookies CookieConfig) *AuthHandler {
	return &AuthHandler{auth: auth, cookies: cookies}
}

type loginRequest struct {
	IDToken string `json:"id_token"`
	Email   string `json:"email"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IDToken == "" || req.Email == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "id_token and email are required")
		return
	}
	result, err := h.auth.Login(r.Context(), service.LoginInput{
		ProviderToken: req.IDToken,
		Email:         req.Email,
		Device:        r.UserAgent(),
		IPAddress:     clientAddr(r),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.setTokenCookie(w, middleware.AccessTokenCookie, result.AccessToken, h.cookies.AccessTTL)
	h.setTokenCookie(w, RefreshTokenCookie, result.RefreshToken, h.cookies.RefreshTTL)
	response.JSON(w, r, http.StatusOK, map[string]any{
		"access_token": result.AccessToken,
		"account":      result.Account,
	})
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "email and password are required")
		return
	}
	result, err := h.auth.Register(r.Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusCreated, map[string]any{
		"account":           result.Account,
		"verification_sent": result.VerificationSent,
	})
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	raw := security.GetCookie(r, RefreshTokenCookie)
	if raw == "" {
		var req struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			raw = req.RefreshToken
		}
	}
	if raw == "" {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "refresh token missing")
		return
	}
	access, err := h.auth.Refresh(r.Context(), raw)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.setTokenCookie(w, middleware.AccessTokenCookie, access, h.cookies.AccessTTL)
	response.JSON(w, r, http.StatusOK, map[string]any{"access_token": access})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing access token")
		return
	}
	if err := h.auth.Logout(r.Context(), claims); err != nil {
		writeServiceError(w, r, err)
		return
	}
	// Revocation already happened server-side; cookie cleanup is best effort.
	h.clearTokenCookies(w)
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "logged_out"})
}

func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing access token")
		return
	}
	if err := h.auth.LogoutAll(r.Context(), claims); err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.clearTokenCookies(w)
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "logged_out_everywhere"})
}

// Introspect serves other ThinkMirAI services resolving a bearer token to
// local identifiers.
func (h *AuthHandler) Introspect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "token is required")
		return
	}
	result, err := h.auth.Introspect(r.Context(), req.Token)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"valid": true, "identity": result})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing access token")
		return
	}
	account, err := h.auth.Me(r.Context(), claims)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, account)
}

func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "email is required")
		return
	}
	if err := h.auth.ResendVerification(r.Context(), req.Email); err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "verification_sent"})
}

func (h *AuthHandler) setTokenCookie(w http.ResponseWriter, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandler) clearTokenCookies(w http.ResponseWriter) {
	for _, name := range []string{middleware.AccessTokenCookie, RefreshTokenCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   h.cookies.Secure,
			SameSite: http.SameSiteStrictMode,
		})
	}
}

func clientAddr(r *http.Request) string {
	// chi's RealIP middleware rewrites RemoteAddr from forwarding headers.
	return r.RemoteAddr
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrAccountLocked):
		// Uniform signal: no threshold or remaining-time detail.
		response.Error(w, r, http.StatusTooManyRequests, "TOO_MANY_ATTEMPTS", "too many failed attempts, try again later")
	case errors.Is(err, service.ErrInvalidCredential), errors.Is(err, service.ErrIdentityMismatch):
		response.Error(w, r, http.StatusUnauthorized, "INVALID_CREDENTIAL", "invalid credentials")
	case errors.Is(err, service.ErrEmailNotVerified):
		response.Error(w, r, http.StatusForbidden, "EMAIL_NOT_VERIFIED", "email verification required")
	case errors.Is(err, security.ErrTokenExpired):
		response.Error(w, r, http.StatusForbidden, "TOKEN_EXPIRED", "token expired")
	case errors.Is(err, security.ErrTokenInvalid):
		response.Error(w, r, http.StatusUnauthorized, "TOKEN_INVALID", "invalid token")
	case errors.Is(err, service.ErrSessionRevoked):
		response.Error(w, r, http.StatusUnauthorized, "SESSION_REVOKED", "session revoked")
	case errors.Is(err, identity.ErrEmailTaken):
		response.Error(w, r, http.StatusConflict, "EMAIL_IN_USE", "email already registered")
	case errors.Is(err, repository.ErrAccountNotFound):
		response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "account not found")
	case errors.Is(err, repository.ErrSessionNotFound):
		response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "session not found")
	default:
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}
