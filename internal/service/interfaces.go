package service

import (
	"context"

	"github.com/thinkmirai/auth-gateway/internal/domain"
	"github.com/thinkmirai/auth-gateway/internal/security"
)

type AuthServiceInterface interface {
	Login(ctx context.Context, in LoginInput) (*LoginResult, error)
	Register(ctx context.Context, in RegisterInput) (*RegisterResult, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, claims *security.Claims) error
	LogoutAll(ctx context.Context, claims *security.Claims) error
	Introspect(ctx context.Context, rawToken string) (*Introspection, error)
	Me(ctx context.Context, claims *security.Claims) (*AccountView, error)
	ResendVerification(ctx context.Context, email string) error
}

type SessionServiceInterface interface {
	List(ctx context.Context, claims *security.Claims) ([]SessionView, error)
	Revoke(ctx context.Context, claims *security.Claims, sessionID string) (string, error)
	History(ctx context.Context, claims *security.Claims, limit int) ([]domain.LoginHistory, error)
}
