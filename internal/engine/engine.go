// Package engine implements the stock transfer engine: atomic quantity
// moves between the central pool and per-user allocations, with an
// append-only movement record for every successful call.
package engine

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/medrep/promostock/internal/model"
	"github.com/medrep/promostock/internal/store"
)

// Execute moves quantity units of a stock item from one party to
// another. All reads and writes happen in a single transaction: either
// the allocation rows are updated, exactly one movement row is
// appended, and the registry invariant still holds, or nothing changes
// and a typed error is returned.
//
// The item's nominal quantity is never touched: the central pool's
// availability is always derived as quantity minus the sum of
// allocations.
func Execute(ctx context.Context, db *sql.DB, itemID int64, quantity int, from, to model.Party, actorID int64, notes string) (*model.StockMovement, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if from == to {
		return nil, ErrSameParty
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	itemQty, err := lockItem(ctx, tx, itemID)
	if err != nil {
		return nil, err
	}

	// Source-of-funds branch.
	if from.IsCentral() {
		var allocated int
		err = tx.QueryRowContext(ctx,
			`SELECT COALESCE(SUM(quantity), 0) FROM stock_allocations WHERE stock_item_id = ?`,
			itemID,
		).Scan(&allocated)
		if err != nil {
			return nil, fmt.Errorf("summing allocations: %w", err)
		}

		available := itemQty - allocated
		if available < quantity {
			return nil, &InsufficientCentralStockError{
				StockItemID: itemID,
				Available:   available,
				Requested:   quantity,
			}
		}
	} else {
		if err := debitAllocation(ctx, tx, itemID, from.UserID(), quantity); err != nil {
			return nil, err
		}
	}

	if !to.IsCentral() {
		if err := creditAllocation(ctx, tx, itemID, to.UserID(), quantity, actorID); err != nil {
			return nil, err
		}
	}

	movementID, err := appendMovement(ctx, tx, itemID, from, to, quantity, actorID, notes)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transfer: %w", err)
	}

	return store.GetMovement(ctx, db, movementID)
}

// GrantFromCentral allocates quantity units to a user without checking
// the central pool's derived availability. Approvals use it as a
// deliberate soft fallback when central bookkeeping is imprecise, so a
// request does not hard-fail on an undercounted pool. A movement row
// with a central source is still appended; any resulting over-allocation
// is detectable via store.CheckAllocationIntegrity.
func GrantFromCentral(ctx context.Context, db *sql.DB, itemID int64, quantity int, toUserID, actorID int64, notes string) (*model.StockMovement, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := lockItem(ctx, tx, itemID); err != nil {
		return nil, err
	}

	if err := creditAllocation(ctx, tx, itemID, toUserID, quantity, actorID); err != nil {
		return nil, err
	}

	movementID, err := appendMovement(ctx, tx, itemID, model.CentralPool(), model.UserParty(toUserID), quantity, actorID, notes)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing grant: %w", err)
	}

	return store.GetMovement(ctx, db, movementID)
}

// lockItem loads the item's nominal quantity inside the transaction,
// failing with ErrItemNotFound for unknown or deleted items.
func lockItem(ctx context.Context, tx *sql.Tx, itemID int64) (int, error) {
	var quantity int
	err := tx.QueryRowContext(ctx,
		`SELECT quantity FROM stock_items WHERE id = ? AND deleted_at IS NULL`, itemID,
	).Scan(&quantity)
	if err == sql.ErrNoRows {
		return 0, ErrItemNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("loading stock item: %w", err)
	}
	return quantity, nil
}

// debitAllocation removes quantity units from a user's allocation,
// deleting the row when the balance reaches exactly zero. No
// zero-quantity rows persist.
func debitAllocation(ctx context.Context, tx *sql.Tx, itemID, userID int64, quantity int) error {
	var held int
	err := tx.QueryRowContext(ctx,
		`SELECT quantity FROM stock_allocations WHERE stock_item_id = ? AND user_id = ?`,
		itemID, userID,
	).Scan(&held)
	if err == sql.ErrNoRows {
		held = 0
	} else if err != nil {
		return fmt.Errorf("loading source allocation: %w", err)
	}

	if held < quantity {
		return &InsufficientUserStockError{
			StockItemID: itemID,
			UserID:      userID,
			Available:   held,
			Requested:   quantity,
		}
	}

	remaining := held - quantity
	if remaining == 0 {
		_, err = tx.ExecContext(ctx,
			`DELETE FROM stock_allocations WHERE stock_item_id = ? AND user_id = ?`,
			itemID, userID,
		)
	} else {
		_, err = tx.ExecContext(ctx,
			`UPDATE stock_allocations SET quantity = ? WHERE stock_item_id = ? AND user_id = ?`,
			remaining, itemID, userID,
		)
	}
	if err != nil {
		return fmt.Errorf("debiting source allocation: %w", err)
	}
	return nil
}

// creditAllocation adds quantity units to a user's allocation, creating
// the row if the user holds none of the item yet.
func creditAllocation(ctx context.Context, tx *sql.Tx, itemID, userID int64, quantity int, actorID int64) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO stock_allocations (stock_item_id, user_id, quantity, allocated_by)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (stock_item_id, user_id) DO UPDATE SET quantity = quantity + ?`,
		itemID, userID, quantity, actorID, quantity,
	)
	if err != nil {
		return fmt.Errorf("crediting destination allocation: %w", err)
	}
	return nil
}

// appendMovement records the transfer in the append-only movement log.
func appendMovement(ctx context.Context, tx *sql.Tx, itemID int64, from, to model.Party, quantity int, actorID int64, notes string) (int64, error) {
	result, err := tx.ExecContext(ctx,
		`INSERT INTO stock_movements (stock_item_id, from_user_id, to_user_id, quantity, moved_by, notes)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		itemID, from.Ref(), to.Ref(), quantity, actorID, notes,
	)
	if err != nil {
		return 0, fmt.Errorf("recording movement: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting movement id: %w", err)
	}
	return id, nil
}
