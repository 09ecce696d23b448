package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/medrep/promostock/internal/model"
)

// ItemParams holds the writable fields of a stock item.
type ItemParams struct {
	Name         string
	CategoryID   int64
	SpecialtyID  *int64
	Quantity     int
	PriceCents   int64
	Expiry       *time.Time
	UniqueNumber string
	Notes        string
	CreatedBy    *int64
}

const itemColumns = `i.id, i.name, i.category_id, i.specialty_id, i.quantity,
	i.price_cents, i.expiry, i.unique_number, i.notes, i.image_mime,
	i.created_by, i.created_at, i.updated_at, i.deleted_at,
	c.name AS category_name, COALESCE(s.name, '') AS specialty_name`

const itemJoins = `FROM stock_items i
	JOIN categories c ON c.id = i.category_id
	LEFT JOIN specialties s ON s.id = i.specialty_id`

// CreateItem creates a new stock item.
func CreateItem(ctx context.Context, db *sql.DB, p ItemParams) (*model.StockItem, error) {
	if p.Quantity < 0 {
		return nil, fmt.Errorf("quantity must not be negative")
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO stock_items
		     (name, category_id, specialty_id, quantity, price_cents, expiry, unique_number, notes, created_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.CategoryID, p.SpecialtyID, p.Quantity, p.PriceCents, p.Expiry, p.UniqueNumber, p.Notes, p.CreatedBy,
	)
	if err != nil {
		return nil, fmt.Errorf("creating stock item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting stock item id: %w", err)
	}

	return GetItem(ctx, db, id)
}

// GetItem returns a stock item by ID.
func GetItem(ctx context.Context, db *sql.DB, id int64) (*model.StockItem, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` `+itemJoins+` WHERE i.id = ?`, id,
	)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting stock item: %w", err)
	}
	return item, nil
}

// ListItems returns all non-deleted stock items, optionally filtered by category.
func ListItems(ctx context.Context, db *sql.DB, categoryID int64) ([]model.StockItem, error) {
	query := `SELECT ` + itemColumns + ` ` + itemJoins + ` WHERE i.deleted_at IS NULL`
	var args []any

	if categoryID > 0 {
		query += ` AND i.category_id = ?`
		args = append(args, categoryID)
	}

	query += ` ORDER BY i.name`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing stock items: %w", err)
	}
	defer rows.Close()

	var items []model.StockItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning stock item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*model.StockItem, error) {
	item := &model.StockItem{}
	var uniqueNumber, notes, imageMime sql.NullString
	err := row.Scan(&item.ID, &item.Name, &item.CategoryID, &item.SpecialtyID, &item.Quantity,
		&item.PriceCents, &item.Expiry, &uniqueNumber, &notes, &imageMime,
		&item.CreatedBy, &item.CreatedAt, &item.UpdatedAt, &item.DeletedAt,
		&item.CategoryName, &item.SpecialtyName)
	if err != nil {
		return nil, err
	}
	item.UniqueNumber = uniqueNumber.String
	item.Notes = notes.String
	item.ImageMime = imageMime.String
	return item, nil
}

// UpdateItem updates a stock item's metadata. The nominal quantity is
// not updated here; use AdjustItemQuantity so the allocation invariant
// is enforced.
func UpdateItem(ctx context.Context, db *sql.DB, id int64, p ItemParams) error {
	_, err := db.ExecContext(ctx,
		`UPDATE stock_items
		 SET name = ?, category_id = ?, specialty_id = ?, price_cents = ?,
		     expiry = ?, unique_number = ?, notes = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		p.Name, p.CategoryID, p.SpecialtyID, p.PriceCents, p.Expiry, p.UniqueNumber, p.Notes, id,
	)
	if err != nil {
		return fmt.Errorf("updating stock item: %w", err)
	}
	return nil
}

// AdjustItemQuantity changes an item's nominal central-pool total by
// delta (positive for newly received stock, negative for permanent
// removal). The total must always cover outstanding allocations, so a
// reduction below the allocated sum is rejected.
func AdjustItemQuantity(ctx context.Context, db *sql.DB, id int64, delta int) error {
	if delta == 0 {
		return fmt.Errorf("delta must be non-zero")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var current int
	err = tx.QueryRowContext(ctx,
		`SELECT quantity FROM stock_items WHERE id = ? AND deleted_at IS NULL`, id,
	).Scan(&current)
	if err == sql.ErrNoRows {
		return fmt.Errorf("stock item not found")
	}
	if err != nil {
		return fmt.Errorf("checking current quantity: %w", err)
	}

	var allocated int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(quantity), 0) FROM stock_allocations WHERE stock_item_id = ?`, id,
	).Scan(&allocated)
	if err != nil {
		return fmt.Errorf("summing allocations: %w", err)
	}

	newQty := current + delta
	if newQty < allocated {
		return fmt.Errorf("cannot reduce total to %d: %d units are allocated to users", newQty, allocated)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE stock_items SET quantity = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		newQty, id,
	)
	if err != nil {
		return fmt.Errorf("adjusting item quantity: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing adjustment: %w", err)
	}
	return nil
}

// DeleteItem soft-deletes a stock item. Rows referenced by allocations
// or movements are never physically removed.
func DeleteItem(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(ctx,
		`UPDATE stock_items SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting stock item: %w", err)
	}
	return nil
}

// SetItemImage sets a stock item's image data.
func SetItemImage(ctx context.Context, db *sql.DB, id int64, image []byte, mime string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE stock_items SET image = ?, image_mime = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		image, mime, id,
	)
	if err != nil {
		return fmt.Errorf("setting item image: %w", err)
	}
	return nil
}

// GetItemImage returns a stock item's image data and MIME type.
func GetItemImage(ctx context.Context, db *sql.DB, id int64) ([]byte, string, error) {
	var image []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT image, image_mime FROM stock_items WHERE id = ?`, id,
	).Scan(&image, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting item image: %w", err)
	}
	return image, mime.String, nil
}
