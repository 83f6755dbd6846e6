package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/thinkmirai/auth-gateway/internal/domain"
	"github.com/thinkmirai/auth-gateway/internal/identity"
	"github.com/thinkmirai/auth-gateway/internal/notify"
	"github.com/thinkmirai/auth-gateway/internal/observability"
	"github.com/thinkmirai/auth-gateway/internal/repository"
	"github.com/thinkmirai/auth-gateway/internal/security"
)

var (
	ErrAccountLocked     = errors.New("account locked")
	ErrIdentityMismatch  = errors.New("identity mismatch")
	ErrEmailNotVerified  = errors.New("email not verified")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrSessionRevoked    = errors.New("session revoked")
	ErrPlatformFault     = errors.New("transient platform fault")
)

const (
	reasonInvalidCredential = "invalid_credential"
	reasonIdentityMismatch  = "identity_mismatch"

	introspectMissTTL = 30 * time.Second
)

// AccountView is the public projection of an account, safe to return to
// clients and downstream services.
type AccountView struct {
	ID            string `json:"id"`
	ExternalUID   string `json:"external_uid"`
	Email         string `json:"email"`
	FullName      string `json:"full_name,omitempty"`
	ProfilePic    string `json:"profile_pic,omitempty"`
	EmailVerified bool   `json:"email_verified"`
}

type LoginInput struct {
	ProviderToken string
	Email         string
	Device        string
	IPAddress     string
}

type LoginResult struct {
	AccessToken  string
	RefreshToken string
	Account      AccountView
}

type RegisterInput struct {
	Email    string
	Password string
	FullName string
}

type RegisterResult struct {
	Account          AccountView
	VerificationSent bool
}

// Introspection lets downstream services resolve their local identity from
// a bearer token.
type Introspection struct {
	AccountID   string `json:"account_id"`
	ExternalUID string `json:"external_uid"`
	Email       string `json:"email"`
	SessionID   string `json:"session_id"`
}

type AuthServiceDeps struct {
	Accounts    repository.AccountRepository
	Sessions    repository.SessionRepository
	History     repository.LoginHistoryRepository
	Tracker     *AttemptTracker
	Tokens      *security.JWTManager
	Verifier    identity.Verifier
	Provisioner identity.Provisioner
	Notifier    notify.Notifier
	MissCache   IntrospectMissCache
}

// AuthService coordinates external verification, attempt tracking, the
// session registry and token issuance.
type AuthService struct {
	accounts    repository.AccountRepository
	sessions    repository.SessionRepository
	history     repository.LoginHistoryRepository
	tracker     *AttemptTracker
	tokens      *security.JWTManager
	verifier    identity.Verifier
	provisioner identity.Provisioner
	notifier    notify.Notifier
	missCache   IntrospectMissCache
	now         func() time.Time
}

func NewAuthService(deps AuthServiceDeps) *AuthService {
	missCache := deps.MissCache
	if missCache == nil {
		missCache = NewNoopMissCache()
	}
	return &AuthService{
		accounts:    deps.Accounts,
		sessions:    deps.Sessions,
		history:     deps.History,
		tracker:     deps.Tracker,
		tokens:      deps.Tokens,
		verifier:    deps.Verifier,
		provisioner: deps.Provisioner,
		notifier:    deps.Notifier,
		missCache:   missCache,
		now:         time.Now,
	}
}

func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

// Login runs the full login protocol. The lockout check deliberately comes
// before the provider call: a locked account never costs an external
// round-trip, and the response time does not depend on credential validity.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	identityKey := normalizeEmail(in.Email)

	account, err := s.accounts.FindByEmail(identityKey)
	if err != nil && !errors.Is(err, repository.ErrAccountNotFound) {
		return nil, s.platformFault(ctx, "login", err)
	}

	if s.tracker.IsLocked(account) {
		observability.RecordLoginAttempt(ctx, "locked")
		observability.Audit(ctx, "login.rejected_locked", "identity", identityKey, "ip", in.IPAddress)
		return nil, ErrAccountLocked
	}

	verified, err := s.verifier.VerifyCredential(ctx, in.ProviderToken)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) || errors.Is(err, identity.ErrTokenInvalid) {
			if rerr := s.tracker.RecordFailure(ctx, identityKey, in.IPAddress, in.Device, reasonInvalidCredential, account); rerr != nil {
				return nil, s.platformFault(ctx, "login", rerr)
			}
			observability.RecordLoginAttempt(ctx, "invalid_credential")
			return nil, ErrInvalidCredential
		}
		return nil, s.platformFault(ctx, "login", err)
	}

	// The provider vouched for the credential, but the claimed email must
	// match the verified identity; otherwise someone is presenting a valid
	// token for a different account.
	if !strings.EqualFold(verified.Email, identityKey) {
		if rerr := s.tracker.RecordFailure(ctx, identityKey, in.IPAddress, in.Device, reasonIdentityMismatch, account); rerr != nil {
			return nil, s.platformFault(ctx, "login", rerr)
		}
		observability.RecordLoginAttempt(ctx, "identity_mismatch")
		observability.Audit(ctx, "login.identity_mismatch", "identity", identityKey, "ip", in.IPAddress)
		return nil, ErrIdentityMismatch
	}

	if !verified.EmailVerified {
		// Not a credential failure: the caller should complete email
		// verification, so no attempt is recorded.
		observability.RecordLoginAttempt(ctx, "email_not_verified")
		return nil, ErrEmailNotVerified
	}

	// Attempts must be cleared before any session exists for this login.
	if err := s.tracker.Reset(ctx, identityKey); err != nil {
		return nil, s.platformFault(ctx, "login", err)
	}

	account, err = s.upsertAccount(ctx, verified)
	if err != nil {
		return nil, s.platformFault(ctx, "login", err)
	}

	session, err := s.sessions.Create(account.ID, in.Device, in.IPAddress, s.now().UTC())
	if err != nil {
		return nil, s.platformFault(ctx, "login", err)
	}

	if err := s.history.Append(&domain.LoginHistory{
		AccountID: account.ID,
		SessionID: session.ID,
		Device:    in.Device,
		IPAddress: in.IPAddress,
		LoginAt:   session.LoginAt,
	}); err != nil {
		slog.WarnContext(ctx, "login history append failed", "account_id", account.ID, "error", err)
	}

	access, err := s.tokens.IssueAccess(account.ExternalUID, account.Email, session.ID)
	if err != nil {
		return nil, s.platformFault(ctx, "login", err)
	}
	refresh, err := s.tokens.IssueRefresh(account.ExternalUID, account.Email, session.ID)
	if err != nil {
		return nil, s.platformFault(ctx, "login", err)
	}

	observability.RecordLoginAttempt(ctx, "success")
	observability.Audit(ctx, "login.success",
		"account_id", account.ID,
		"session_id", session.ID,
		"ip", in.IPAddress,
	)
	return &LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
		Account:      viewOf(account),
	}, nil
}

// Register provisions the identity at the provider, stores the local
// account and requests a verification message. A failed send keeps the
// account and flags the result instead of rolling back.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	emailKey := normalizeEmail(in.Email)

	if _, err := s.accounts.FindByEmail(emailKey); err == nil {
		return nil, identity.ErrEmailTaken
	} else if !errors.Is(err, repository.ErrAccountNotFound) {
		return nil, s.platformFault(ctx, "register", err)
	}

	subjectID, err := s.provisioner.Provision(ctx, identity.NewAccount{
		Email:    emailKey,
		Password: in.Password,
		FullName: in.FullName,
	})
	if err != nil {
		if errors.Is(err, identity.ErrEmailTaken) {
			return nil, err
		}
		return nil, s.platformFault(ctx, "register", err)
	}

	account := &domain.Account{
		ID:          uuid.NewString(),
		ExternalUID: subjectID,
		Email:       emailKey,
		FullName:    in.FullName,
		SignupAt:    s.now().UTC(),
	}
	if err := s.accounts.Create(account); err != nil {
		return nil, s.platformFault(ctx, "register", err)
	}
	if err := s.missCache.Invalidate(ctx); err != nil {
		slog.WarnContext(ctx, "introspect miss cache invalidation failed", "error", err)
	}

	result := &RegisterResult{Account: viewOf(account), VerificationSent: true}
	if err := s.notifier.SendVerificationMessage(ctx, account.Email, account.FullName); err != nil {
		slog.WarnContext(ctx, "verification message failed", "email", account.Email, "error", err)
		result.VerificationSent = false
	}

	observability.Audit(ctx, "account.registered", "account_id", account.ID)
	return result, nil
}

// Refresh exchanges a valid refresh token for a new access token bound to
// the same session. Only the access token is reissued; the refresh token's
// own expiry is the hard ceiling on how long a session renews without a
// full login.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.tokens.Verify(refreshToken, security.TokenKindRefresh)
	if err != nil {
		observability.RecordTokenValidation(ctx, "refresh", tokenOutcome(err))
		observability.RecordRefreshAttempt(ctx, "rejected")
		return "", err
	}
	observability.RecordTokenValidation(ctx, "refresh", "valid")

	account, session, err := s.resolveActiveSession(ctx, claims)
	if err != nil {
		observability.RecordRefreshAttempt(ctx, "rejected")
		return "", err
	}

	access, err := s.tokens.IssueAccess(account.ExternalUID, account.Email, session.ID)
	if err != nil {
		return "", s.platformFault(ctx, "refresh", err)
	}
	observability.RecordRefreshAttempt(ctx, "success")
	return access, nil
}

// Logout deactivates the session bound to the presented claims. Revocation
// happens server-side; whatever happens to cookies afterwards is the
// transport's problem.
func (s *AuthService) Logout(ctx context.Context, claims *security.Claims) error {
	account, session, err := s.resolveActiveSession(ctx, claims)
	if err != nil {
		observability.RecordLogout(ctx, "single", "rejected")
		return err
	}
	if _, err := s.sessions.Deactivate(account.ID, session.ID, s.now().UTC()); err != nil {
		return s.platformFault(ctx, "logout", err)
	}
	observability.RecordLogout(ctx, "single", "success")
	observability.Audit(ctx, "logout", "account_id", account.ID, "session_id", session.ID)
	return nil
}

// LogoutAll deactivates every session for the account behind the claims.
func (s *AuthService) LogoutAll(ctx context.Context, claims *security.Claims) error {
	account, _, err := s.resolveActiveSession(ctx, claims)
	if err != nil {
		observability.RecordLogout(ctx, "all", "rejected")
		return err
	}
	revoked, err := s.sessions.DeactivateAll(account.ID, s.now().UTC())
	if err != nil {
		return s.platformFault(ctx, "logout_all", err)
	}
	observability.RecordLogout(ctx, "all", "success")
	observability.Audit(ctx, "logout.all", "account_id", account.ID, "sessions_revoked", revoked)
	return nil
}

// Introspect validates a bearer token for another service and returns the
// identifiers it needs to resolve the local user. A token whose session was
// deactivated is revoked no matter how valid its signature still is.
func (s *AuthService) Introspect(ctx context.Context, rawToken string) (*Introspection, error) {
	claims, err := s.tokens.Verify(rawToken, security.TokenKindAccess)
	if err != nil {
		observability.RecordTokenValidation(ctx, "access", tokenOutcome(err))
		observability.RecordIntrospection(ctx, "rejected")
		return nil, err
	}
	observability.RecordTokenValidation(ctx, "access", "valid")

	if hit, cerr := s.missCache.Get(ctx, claims.Subject); cerr != nil {
		slog.WarnContext(ctx, "introspect miss cache read failed", "error", cerr)
	} else if hit {
		observability.RecordIntrospection(ctx, "unknown_subject")
		return nil, repository.ErrAccountNotFound
	}

	account, err := s.accounts.FindByExternalUID(claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			if cerr := s.missCache.Set(ctx, claims.Subject, introspectMissTTL); cerr != nil {
				slog.WarnContext(ctx, "introspect miss cache write failed", "error", cerr)
			}
			observability.RecordIntrospection(ctx, "unknown_subject")
			return nil, err
		}
		return nil, s.platformFault(ctx, "introspect", err)
	}

	if _, err := s.sessions.FindActive(account.ID, claims.SessionID); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			observability.RecordIntrospection(ctx, "session_revoked")
			return nil, ErrSessionRevoked
		}
		return nil, s.platformFault(ctx, "introspect", err)
	}

	observability.RecordIntrospection(ctx, "success")
	return &Introspection{
		AccountID:   account.ID,
		ExternalUID: account.ExternalUID,
		Email:       account.Email,
		SessionID:   claims.SessionID,
	}, nil
}

// Me returns the public account view for an authenticated caller.
func (s *AuthService) Me(ctx context.Context, claims *security.Claims) (*AccountView, error) {
	account, _, err := s.resolveActiveSession(ctx, claims)
	if err != nil {
		return nil, err
	}
	v := viewOf(account)
	return &v, nil
}

// ResendVerification re-requests the verification message for an account
// that has not completed email verification yet.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	account, err := s.accounts.FindByEmail(normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return err
		}
		return s.platformFault(ctx, "resend_verification", err)
	}
	if err := s.notifier.SendVerificationMessage(ctx, account.Email, account.FullName); err != nil {
		return fmt.Errorf("send verification message: %w", err)
	}
	return nil
}

func (s *AuthService) resolveActiveSession(ctx context.Context, claims *security.Claims) (*domain.Account, *domain.Session, error) {
	account, err := s.accounts.FindByExternalUID(claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, nil, err
		}
		return nil, nil, s.platformFault(ctx, "resolve_session", err)
	}
	session, err := s.sessions.FindActive(account.ID, claims.SessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, nil, ErrSessionRevoked
		}
		return nil, nil, s.platformFault(ctx, "resolve_session", err)
	}
	return account, session, nil
}

func (s *AuthService) upsertAccount(ctx context.Context, verified *identity.VerifiedIdentity) (*domain.Account, error) {
	now := s.now().UTC()
	account, err := s.accounts.FindByExternalUID(verified.SubjectID)
	if errors.Is(err, repository.ErrAccountNotFound) {
		account = &domain.Account{
			ID:            uuid.NewString(),
			ExternalUID:   verified.SubjectID,
			Email:         normalizeEmail(verified.Email),
			FullName:      verified.DisplayName,
			ProfilePic:    verified.PictureURL,
			EmailVerified: verified.EmailVerified,
			SignupAt:      now,
			LastLoginAt:   &now,
		}
		if err := s.accounts.Create(account); err != nil {
			return nil, err
		}
		if cerr := s.missCache.Invalidate(ctx); cerr != nil {
			slog.WarnContext(ctx, "introspect miss cache invalidation failed", "error", cerr)
		}
		return account, nil
	}
	if err != nil {
		return nil, err
	}
	account.LastLoginAt = &now
	account.EmailVerified = verified.EmailVerified
	if verified.DisplayName != "" {
		account.FullName = verified.DisplayName
	}
	if verified.PictureURL != "" {
		account.ProfilePic = verified.PictureURL
	}
	if err := s.accounts.Update(account); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *AuthService) platformFault(ctx context.Context, op string, err error) error {
	slog.ErrorContext(ctx, "platform fault", "op", op, "error", err)
	return fmt.Errorf("%w: %s: %v", ErrPlatformFault, op, err)
}

func viewOf(a *domain.Account) AccountView {
	return AccountView{
		ID:            a.ID,
		ExternalUID:   a.ExternalUID,
		Email:         a.Email,
		FullName:      a.FullName,
		ProfilePic:    a.ProfilePic,
		EmailVerified: a.EmailVerified,
	}
}

func tokenOutcome(err error) string {
	if errors.Is(err, security.ErrTokenExpired) {
		return "expired"
	}
	return "invalid"
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
