package db

import (
	"database/sql"
	"fmt"
)

// migrations is a list of SQL statements applied in order after schema
// creation. Each migration must be idempotent. Append new migrations at
// the end.
var migrations = []string{
	// Migration 1: index movements by item for history queries.
	`CREATE INDEX IF NOT EXISTS idx_movements_item
	     ON stock_movements(stock_item_id)`,
	// Migration 2: index requests by assignee for inbox queries.
	`CREATE INDEX IF NOT EXISTS idx_requests_assigned
	     ON inventory_requests(assigned_to) WHERE completed_at IS NULL`,
}

// Migrate creates the schema and runs the migrations.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
