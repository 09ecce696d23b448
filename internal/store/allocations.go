package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/medrep/promostock/internal/model"
)

const allocationColumns = `a.id, a.stock_item_id, a.user_id, a.quantity,
	a.allocated_by, a.allocated_at,
	i.name AS item_name, u.username`

const allocationJoins = `FROM stock_allocations a
	JOIN stock_items i ON i.id = a.stock_item_id
	JOIN users u ON u.id = a.user_id`

// GetAllocation returns the allocation for an (item, user) pair, or nil
// if the user holds none of the item.
func GetAllocation(ctx context.Context, db *sql.DB, itemID, userID int64) (*model.StockAllocation, error) {
	a := &model.StockAllocation{}
	err := db.QueryRowContext(ctx,
		`SELECT `+allocationColumns+` `+allocationJoins+`
		 WHERE a.stock_item_id = ? AND a.user_id = ?`, itemID, userID,
	).Scan(&a.ID, &a.StockItemID, &a.UserID, &a.Quantity, &a.AllocatedBy, &a.AllocatedAt,
		&a.ItemName, &a.Username)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting allocation: %w", err)
	}
	return a, nil
}

// ListAllocations returns allocations, optionally filtered by item or user.
func ListAllocations(ctx context.Context, db *sql.DB, itemID, userID int64) ([]model.StockAllocation, error) {
	query := `SELECT ` + allocationColumns + ` ` + allocationJoins + ` WHERE 1=1`
	var args []any

	if itemID > 0 {
		query += ` AND a.stock_item_id = ?`
		args = append(args, itemID)
	}
	if userID > 0 {
		query += ` AND a.user_id = ?`
		args = append(args, userID)
	}

	query += ` ORDER BY i.name, u.username`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing allocations: %w", err)
	}
	defer rows.Close()

	var allocations []model.StockAllocation
	for rows.Next() {
		var a model.StockAllocation
		if err := rows.Scan(&a.ID, &a.StockItemID, &a.UserID, &a.Quantity, &a.AllocatedBy, &a.AllocatedAt,
			&a.ItemName, &a.Username); err != nil {
			return nil, fmt.Errorf("scanning allocation: %w", err)
		}
		allocations = append(allocations, a)
	}
	return allocations, rows.Err()
}

// AllocatedTotal returns the sum of all allocations for an item.
func AllocatedTotal(ctx context.Context, db *sql.DB, itemID int64) (int, error) {
	var total int
	err := db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(quantity), 0) FROM stock_allocations WHERE stock_item_id = ?`,
		itemID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("summing allocations: %w", err)
	}
	return total, nil
}

// CentralAvailable returns the derived undistributed quantity for an
// item: the nominal total minus everything currently allocated. The
// central figure is never stored directly.
func CentralAvailable(ctx context.Context, db *sql.DB, itemID int64) (int, error) {
	var available int
	err := db.QueryRowContext(ctx,
		`SELECT i.quantity - COALESCE((
		     SELECT SUM(a.quantity) FROM stock_allocations a WHERE a.stock_item_id = i.id
		 ), 0)
		 FROM stock_items i WHERE i.id = ?`, itemID,
	).Scan(&available)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("stock item not found")
	}
	if err != nil {
		return 0, fmt.Errorf("computing central availability: %w", err)
	}
	return available, nil
}

// CountAllocations returns the number of allocation rows, optionally
// limited to one item. Used by tests and integrity checks.
func CountAllocations(ctx context.Context, db *sql.DB, itemID int64) (int, error) {
	query := `SELECT COUNT(*) FROM stock_allocations`
	var args []any
	if itemID > 0 {
		query += ` WHERE stock_item_id = ?`
		args = append(args, itemID)
	}

	var count int
	if err := db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting allocations: %w", err)
	}
	return count, nil
}
