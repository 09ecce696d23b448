package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/medrep/promostock/internal/model"
)

// Shared seed helpers for the package tests.

func seedUser(t *testing.T, db *sql.DB, username string, role model.Role) *model.User {
	t.Helper()
	user, err := CreateUser(context.Background(), db, username, "", "hash", role)
	if err != nil {
		t.Fatalf("seeding user %s: %v", username, err)
	}
	return user
}

func seedCategory(t *testing.T, db *sql.DB, name string) *model.Category {
	t.Helper()
	category, err := CreateCategory(context.Background(), db, name)
	if err != nil {
		t.Fatalf("seeding category %s: %v", name, err)
	}
	return category
}

func seedItem(t *testing.T, db *sql.DB, name string, quantity int) *model.StockItem {
	t.Helper()
	category := seedCategory(t, db, name+" category")
	item, err := CreateItem(context.Background(), db, ItemParams{
		Name:       name,
		CategoryID: category.ID,
		Quantity:   quantity,
	})
	if err != nil {
		t.Fatalf("seeding item %s: %v", name, err)
	}
	return item
}

// allocate inserts an allocation row directly, bypassing the transfer
// engine, so store behavior can be tested in isolation.
func allocate(t *testing.T, db *sql.DB, itemID, userID int64, quantity int) {
	t.Helper()
	_, err := db.Exec(
		`INSERT INTO stock_allocations (stock_item_id, user_id, quantity) VALUES (?, ?, ?)`,
		itemID, userID, quantity,
	)
	if err != nil {
		t.Fatalf("seeding allocation: %v", err)
	}
}
