// Package testutil holds shared helpers for tests that need a datastore.
package testutil

import (
	"context"
	"testing"
	"time"

	"gatepass/internal/database"
	"gatepass/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewSQLiteDB returns an in-memory database with the gate-pass schema applied.
// The pool is pinned to one connection so every query sees the same memory database.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite pool: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.EnsureSchema(context.Background(), db); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return db
}

// StrPtr returns a pointer to s.
func StrPtr(s string) *string {
	return &s
}

// CreateUser inserts a user with the given username, role, status and phone.
// An empty phone leaves the column NULL.
func CreateUser(t *testing.T, db *gorm.DB, username, role, status, phone string) *models.User {
	t.Helper()
	u := &models.User{
		Username: username,
		Name:     username,
		Password: "x",
		Role:     role,
		Status:   status,
	}
	if phone != "" {
		u.Phone = StrPtr(phone)
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

// CreateRequest inserts a request in the given state. Later calls get later timestamps.
func CreateRequest(t *testing.T, db *gorm.DB, username, requestType string, status models.RequestStatus, at time.Time) *models.Request {
	t.Helper()
	r := &models.Request{
		Username:    username,
		Type:        requestType,
		Purpose:     "test",
		Role:        models.DefaultUserRole,
		Status:      status,
		RequestedAt: at,
	}
	if err := db.Create(r).Error; err != nil {
		t.Fatalf("create request for %s: %v", username, err)
	}
	return r
}

// ReloadUser fetches the current row for username.
func ReloadUser(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()
	var u models.User
	if err := db.Where("username = ?", username).First(&u).Error; err != nil {
		t.Fatalf("reload user %s: %v", username, err)
	}
	return u
}

// ReloadRequest fetches the current row for id.
func ReloadRequest(t *testing.T, db *gorm.DB, id uint) models.Request {
	t.Helper()
	var r models.Request
	if err := db.First(&r, id).Error; err != nil {
		t.Fatalf("reload request %d: %v", id, err)
	}
	return r
}
