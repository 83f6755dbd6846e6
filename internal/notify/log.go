package notify

import (
	"context"
	"log/slog"
)

// LogNotifier stands in when no mail transport is configured.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier { return &LogNotifier{} }

func (n *LogNotifier) SendVerificationMessage(ctx context.Context, email, _ string) error {
	slog.InfoContext(ctx, "verification message suppressed, mail not configured", "email", email)
	return nil
}
