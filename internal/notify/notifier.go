// Package notify delivers outbound account messages. Delivery is
// fire-and-forget from the orchestrator's perspective: a failed send
// degrades the outcome but never rolls identity state back.
package notify

import "context"

type Notifier interface {
	SendVerificationMessage(ctx context.Context, email, displayName string) error
}
