package repository

import (
	"fmt"
	"strings"
	"testing"

	"github.com/thinkmirai/auth-gateway/internal/domain"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&domain.Account{},
		&domain.Session{},
		&domain.FailedLogin{},
		&domain.LoginHistory{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
