package database

import (
	"context"
	"fmt"
	"time"
)

// HasRole reports whether userID holds role.
func (db *DB) HasRole(ctx context.Context, userID, role string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM user_roles WHERE user_id = ? AND role = ?`
	if err := db.queryRow(ctx, query, userID, role).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check role: %w", err)
	}
	return count > 0, nil
}

// GrantRole is idempotent.
func (db *DB) GrantRole(ctx context.Context, userID, role string) error {
	query := `INSERT INTO user_roles (user_id, role, created_at) VALUES (?, ?, ?)
              ON CONFLICT (user_id, role) DO NOTHING`
	if _, err := db.exec(ctx, query, userID, role, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to grant role: %w", err)
	}
	return nil
}

func (db *DB) RevokeRole(ctx context.Context, userID, role string) error {
	query := `DELETE FROM user_roles WHERE user_id = ? AND role = ?`
	if _, err := db.exec(ctx, query, userID, role); err != nil {
		return fmt.Errorf("failed to revoke role: %w", err)
	}
	return nil
}
