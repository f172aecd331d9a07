package database

import (
	"context"
	"fmt"
	"log/slog"

	"gatepass/internal/middleware"
	"gatepass/internal/models"

	"gorm.io/gorm"
)

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
	id SERIAL PRIMARY KEY,
	username VARCHAR(50) UNIQUE NOT NULL,
	name VARCHAR(100) NOT NULL,
	password TEXT NOT NULL,
	image TEXT,
	phone VARCHAR(15),
	role VARCHAR(50) DEFAULT 'Student',
	status VARCHAR(20) DEFAULT 'in',
	offences INTEGER DEFAULT 0,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`

const createRequestsTable = `
CREATE TABLE IF NOT EXISTS requests (
	id SERIAL PRIMARY KEY,
	username VARCHAR(255) NOT NULL,
	type VARCHAR(20) NOT NULL,
	image TEXT,
	purpose TEXT NOT NULL,
	role VARCHAR(20) DEFAULT 'Student',
	status VARCHAR(20) DEFAULT 'Pending',
	requested_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`

const createRequestsIndex = `CREATE INDEX IF NOT EXISTS idx_requests_username_status ON requests (username, status)`

// PersistentModels lists the models backed by tables.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Request{},
	}
}

// EnsureSchema creates the tables if they are absent. It is safe to run on every start.
// PostgreSQL gets the canonical DDL; other dialects (SQLite in tests) use AutoMigrate.
func EnsureSchema(ctx context.Context, db *gorm.DB) error {
	if db.Dialector.Name() != "postgres" {
		if err := db.WithContext(ctx).AutoMigrate(PersistentModels()...); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
		return nil
	}

	for _, stmt := range []string{createUsersTable, createRequestsTable, createRequestsIndex} {
		if err := db.WithContext(ctx).Exec(stmt).Error; err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	middleware.Logger.Info("Tables created or already exist", slog.String("dialect", db.Dialector.Name()))
	return nil
}
