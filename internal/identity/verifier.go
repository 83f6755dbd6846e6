// Package identity abstracts the external identity provider. The gateway
// never checks primary credentials itself; it hands the provider-issued
// token to the provider and trusts the claims that come back.
package identity

import (
	"context"
	"errors"
)

var (
	// ErrNotFound means the credential does not resolve to any identity.
	ErrNotFound = errors.New("identity not found")
	// ErrTokenInvalid means the provider rejected the credential itself.
	ErrTokenInvalid = errors.New("identity token invalid")
	// ErrEmailTaken is returned by Provision when the email is registered.
	ErrEmailTaken = errors.New("email already registered")
)

type VerifiedIdentity struct {
	SubjectID     string
	Email         string
	DisplayName   string
	PictureURL    string
	EmailVerified bool
}

type Verifier interface {
	VerifyCredential(ctx context.Context, rawToken string) (*VerifiedIdentity, error)
}

type NewAccount struct {
	Email    string
	Password string
	FullName string
}

// Provisioner creates identities at the provider. The password passes
// through; it is never persisted on this side.
type Provisioner interface {
	Provision(ctx context.Context, in NewAccount) (subjectID string, err error)
}
