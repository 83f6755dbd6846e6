package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/thinkmirai/auth-gateway/internal/domain"
)

func TestLoginHistoryOrderAndLimit(t *testing.T) {
	db := newTestDB(t)
	accounts := NewAccountRepository(db)
	history := NewLoginHistoryRepository(db)
	account := createTestAccount(t, accounts, "user@example.com")

	base := time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		err := history.Append(&domain.LoginHistory{
			AccountID: account.ID,
			SessionID: uuid.NewString(),
			Device:    fmt.Sprintf("device-%d", i),
			IPAddress: "203.0.113.1",
			LoginAt:   base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	entries, err := history.ListByAccountID(account.ID, 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}
	if entries[0].Device != "device-4" {
		t.Fatalf("newest first: got %q", entries[0].Device)
	}

	// Zero limit falls back to the default page size.
	entries, err = history.ListByAccountID(account.ID, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 5 {
		t.Fatalf("entries with default limit = %d, want 5", len(entries))
	}
}
