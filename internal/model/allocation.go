package model

import "time"

// StockAllocation is the portion of a stock item currently held by a
// specific user, outside the central pool. At most one row exists per
// (item, user) pair; a row whose quantity reaches zero is deleted
// rather than kept at zero.
type StockAllocation struct {
	ID          int64     `json:"id"`
	StockItemID int64     `json:"stock_item_id"`
	UserID      int64     `json:"user_id"`
	Quantity    int       `json:"quantity"`
	AllocatedBy *int64    `json:"allocated_by,omitempty"`
	AllocatedAt time.Time `json:"allocated_at"`

	// Joined fields (not always populated).
	ItemName string `json:"item_name,omitempty"`
	Username string `json:"username,omitempty"`
}
