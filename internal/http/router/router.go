package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/thinkmirai/auth-gateway/internal/http/handler"
	"github.com/thinkmirai/auth-gateway/internal/http/middleware"
	"github.com/thinkmirai/auth-gateway/internal/http/response"
	"github.com/thinkmirai/auth-gateway/internal/security"
)

type Dependencies struct {
	AuthHandler      *handler.AuthHandler
	SessionHandler   *handler.SessionHandler
	JWTManager       *security.JWTManager
	AuthRateLimitRPM int
	APIRateLimitRPM  int
}

func New(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestLogger)
	r.Use(middleware.SecurityHeaders)
	r.Use(NewAPILimiter(dep.APIRateLimitRPM))

	authLimiter := NewAuthLimiter(dep.AuthRateLimitRPM)
	requireAuth := middleware.Auth(dep.JWTManager)

	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/auth", func(r chi.Router) {
		r.With(authLimiter).Post("/signup", dep.AuthHandler.Register)
		r.With(authLimiter).Post("/login", dep.AuthHandler.Login)
		r.With(authLimiter).Post("/refresh", dep.AuthHandler.Refresh)
		r.With(authLimiter).Post("/verify-email/resend", dep.AuthHandler.ResendVerification)
		r.Post("/verify", dep.AuthHandler.Introspect)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/me", dep.AuthHandler.Me)
			r.Post("/logout", dep.AuthHandler.Logout)
			r.Post("/logout-all", dep.AuthHandler.LogoutAll)
			r.Get("/sessions", dep.SessionHandler.List)
			r.Delete("/sessions/{sessionID}", dep.SessionHandler.Revoke)
			r.Get("/history", dep.SessionHandler.History)
		})
	})

	return r
}

func NewAPILimiter(rpm int) func(http.Handler) http.Handler {
	return middleware.NewRateLimiter(rpm, time.Minute, "api").Middleware()
}

func NewAuthLimiter(rpm int) func(http.Handler) http.Handler {
	return middleware.NewRateLimiter(rpm, time.Minute, "auth").Middleware()
}
