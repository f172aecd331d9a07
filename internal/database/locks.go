package database

import (
	"fmt"

	"gorm.io/gorm"
)

// UserLockKey is the advisory lock key serializing check-then-act sequences for one user.
func UserLockKey(username string) string {
	return "gatepass:user:" + username
}

// LockUser takes a transaction-scoped advisory lock for username. The lock is
// released when tx commits or rolls back. On dialects without advisory locks
// (SQLite serializes writers itself) it is a no-op.
func LockUser(tx *gorm.DB, username string) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", UserLockKey(username)).Error; err != nil {
		return fmt.Errorf("lock user %q: %w", username, err)
	}
	return nil
}
