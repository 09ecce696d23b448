package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/medrep/promostock/internal/model"
)

const movementColumns = `m.id, m.stock_item_id, m.from_user_id, m.to_user_id,
	m.quantity, m.moved_by, m.notes, m.moved_at,
	i.name AS item_name,
	COALESCE(fu.username, '') AS from_username,
	COALESCE(tu.username, '') AS to_username`

const movementJoins = `FROM stock_movements m
	JOIN stock_items i ON i.id = m.stock_item_id
	LEFT JOIN users fu ON fu.id = m.from_user_id
	LEFT JOIN users tu ON tu.id = m.to_user_id`

// GetMovement returns a movement by ID.
func GetMovement(ctx context.Context, db *sql.DB, id int64) (*model.StockMovement, error) {
	m := &model.StockMovement{}
	var notes sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT `+movementColumns+` `+movementJoins+` WHERE m.id = ?`, id,
	).Scan(&m.ID, &m.StockItemID, &m.FromUserID, &m.ToUserID,
		&m.Quantity, &m.MovedBy, &notes, &m.MovedAt,
		&m.ItemName, &m.FromUsername, &m.ToUsername)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting movement: %w", err)
	}
	m.Notes = notes.String
	return m, nil
}

// ListMovements returns movements, optionally filtered by item or by a
// user on either side of the transfer.
func ListMovements(ctx context.Context, db *sql.DB, itemID, userID int64) ([]model.StockMovement, error) {
	query := `SELECT ` + movementColumns + ` ` + movementJoins + ` WHERE 1=1`
	var args []any

	if itemID > 0 {
		query += ` AND m.stock_item_id = ?`
		args = append(args, itemID)
	}
	if userID > 0 {
		query += ` AND (m.from_user_id = ? OR m.to_user_id = ?)`
		args = append(args, userID, userID)
	}

	query += ` ORDER BY m.moved_at DESC, m.id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing movements: %w", err)
	}
	defer rows.Close()

	return scanMovements(rows)
}

func scanMovements(rows *sql.Rows) ([]model.StockMovement, error) {
	var movements []model.StockMovement
	for rows.Next() {
		var m model.StockMovement
		var notes sql.NullString
		if err := rows.Scan(&m.ID, &m.StockItemID, &m.FromUserID, &m.ToUserID,
			&m.Quantity, &m.MovedBy, &notes, &m.MovedAt,
			&m.ItemName, &m.FromUsername, &m.ToUsername); err != nil {
			return nil, fmt.Errorf("scanning movement: %w", err)
		}
		m.Notes = notes.String
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

// CountMovements returns the number of movement rows, optionally
// limited to one item.
func CountMovements(ctx context.Context, db *sql.DB, itemID int64) (int, error) {
	query := `SELECT COUNT(*) FROM stock_movements`
	var args []any
	if itemID > 0 {
		query += ` WHERE stock_item_id = ?`
		args = append(args, itemID)
	}

	var count int
	if err := db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting movements: %w", err)
	}
	return count, nil
}
