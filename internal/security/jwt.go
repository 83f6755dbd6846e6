package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

var (
	// ErrTokenExpired means the token was well formed and properly signed
	// but is past its expiry. Callers may prompt a refresh.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid covers everything else: malformed, forged, wrong
	// signing secret, wrong kind. Callers must force re-authentication.
	ErrTokenInvalid = errors.New("token invalid")
)

type Claims struct {
	TokenType string `json:"token_type"`
	Email     string `json:"email"`
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// JWTManager signs and verifies access and refresh tokens. The two kinds use
// independent secrets, so a refresh token presented where an access token is
// expected fails signature verification outright.
type JWTManager struct {
	issuer        string
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewJWTManager(issuer, accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *JWTManager {
	return &JWTManager{
		issuer:        issuer,
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

// WithClock replaces the wall clock used for issuance and expiry checks.
func (m *JWTManager) WithClock(now func() time.Time) *JWTManager {
	m.now = now
	return m
}

func (m *JWTManager) IssueAccess(subjectID, email, sessionID string) (string, error) {
	return m.sign(TokenKindAccess, m.accessSecret, m.accessTTL, subjectID, email, sessionID)
}

func (m *JWTManager) IssueRefresh(subjectID, email, sessionID string) (string, error) {
	return m.sign(TokenKindRefresh, m.refreshSecret, m.refreshTTL, subjectID, email, sessionID)
}

func (m *JWTManager) sign(kind TokenKind, secret []byte, ttl time.Duration, subjectID, email, sessionID string) (string, error) {
	now := m.now()
	claims := Claims{
		TokenType: string(kind),
		Email:     email,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   subjectID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// Verify validates signature and expiry against the secret for kind.
func (m *JWTManager) Verify(raw string, kind TokenKind) (*Claims, error) {
	secret := m.accessSecret
	if kind == TokenKindRefresh {
		secret = m.refreshSecret
	}
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing algorithm")
		}
		return secret, nil
	}, jwt.WithIssuer(m.issuer), jwt.WithTimeFunc(m.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !tok.Valid || claims.TokenType != string(kind) || claims.SessionID == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
