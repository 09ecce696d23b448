package engine

import (
	"errors"
	"fmt"
)

// Sentinel errors returned before any mutation happens.
var (
	// ErrItemNotFound means the stock item does not exist or is deleted.
	ErrItemNotFound = errors.New("stock item not found")

	// ErrInvalidQuantity means the requested quantity is not a positive integer.
	ErrInvalidQuantity = errors.New("quantity must be positive")

	// ErrSameParty means source and destination are the same party.
	ErrSameParty = errors.New("source and destination must differ")
)

// InsufficientCentralStockError is returned when the central pool's
// derived availability cannot cover the requested quantity.
type InsufficientCentralStockError struct {
	StockItemID int64
	Available   int
	Requested   int
}

func (e *InsufficientCentralStockError) Error() string {
	return fmt.Sprintf("insufficient central stock for item %d: %d available, %d requested",
		e.StockItemID, e.Available, e.Requested)
}

// InsufficientUserStockError is returned when a user's allocation
// cannot cover the requested quantity.
type InsufficientUserStockError struct {
	StockItemID int64
	UserID      int64
	Available   int
	Requested   int
}

func (e *InsufficientUserStockError) Error() string {
	return fmt.Sprintf("insufficient stock held by user %d for item %d: %d available, %d requested",
		e.UserID, e.StockItemID, e.Available, e.Requested)
}
