package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ItemSummary is a dashboard row for one stock item: the nominal total,
// how much of it is allocated, and the derived central remainder.
type ItemSummary struct {
	StockItemID  int64      `json:"stock_item_id"`
	Name         string     `json:"name"`
	CategoryName string     `json:"category_name"`
	Quantity     int        `json:"quantity"`
	Allocated    int        `json:"allocated"`
	Available    int        `json:"available"`
	ValueCents   int64      `json:"value_cents"`
	Expiry       *time.Time `json:"expiry,omitempty"`
}

// UserHoldings aggregates one user's allocations.
type UserHoldings struct {
	UserID     int64  `json:"user_id"`
	Username   string `json:"username"`
	ItemCount  int    `json:"item_count"`
	TotalUnits int    `json:"total_units"`
}

// MovementVolume is the number of transfers and units moved per day.
type MovementVolume struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
	Units int    `json:"units"`
}

// ItemSummaries returns the per-item dashboard overview.
func ItemSummaries(ctx context.Context, db *sql.DB) ([]ItemSummary, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT i.id, i.name, c.name,
		        i.quantity,
		        COALESCE(a.allocated, 0),
		        i.quantity - COALESCE(a.allocated, 0),
		        i.quantity * i.price_cents,
		        i.expiry
		 FROM stock_items i
		 JOIN categories c ON c.id = i.category_id
		 LEFT JOIN (
		     SELECT stock_item_id, SUM(quantity) AS allocated
		     FROM stock_allocations GROUP BY stock_item_id
		 ) a ON a.stock_item_id = i.id
		 WHERE i.deleted_at IS NULL
		 ORDER BY i.name`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying item summaries: %w", err)
	}
	defer rows.Close()

	var summaries []ItemSummary
	for rows.Next() {
		var s ItemSummary
		if err := rows.Scan(&s.StockItemID, &s.Name, &s.CategoryName,
			&s.Quantity, &s.Allocated, &s.Available, &s.ValueCents, &s.Expiry); err != nil {
			return nil, fmt.Errorf("scanning item summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// UserHoldingSummaries returns per-user allocation totals.
func UserHoldingSummaries(ctx context.Context, db *sql.DB) ([]UserHoldings, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT u.id, u.username, COUNT(a.id), COALESCE(SUM(a.quantity), 0)
		 FROM users u
		 JOIN stock_allocations a ON a.user_id = u.id
		 WHERE u.deleted_at IS NULL
		 GROUP BY u.id, u.username
		 ORDER BY u.username`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying user holdings: %w", err)
	}
	defer rows.Close()

	var holdings []UserHoldings
	for rows.Next() {
		var h UserHoldings
		if err := rows.Scan(&h.UserID, &h.Username, &h.ItemCount, &h.TotalUnits); err != nil {
			return nil, fmt.Errorf("scanning user holdings: %w", err)
		}
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}

// MovementVolumes returns daily transfer counts since the given time.
func MovementVolumes(ctx context.Context, db *sql.DB, since time.Time) ([]MovementVolume, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT date(moved_at), COUNT(*), SUM(quantity)
		 FROM stock_movements
		 WHERE moved_at >= ?
		 GROUP BY date(moved_at)
		 ORDER BY date(moved_at)`, since,
	)
	if err != nil {
		return nil, fmt.Errorf("querying movement volumes: %w", err)
	}
	defer rows.Close()

	var volumes []MovementVolume
	for rows.Next() {
		var v MovementVolume
		if err := rows.Scan(&v.Day, &v.Count, &v.Units); err != nil {
			return nil, fmt.Errorf("scanning movement volume: %w", err)
		}
		volumes = append(volumes, v)
	}
	return volumes, rows.Err()
}

// ExpiringItems returns non-deleted items whose expiry falls within the
// given number of days from now.
func ExpiringItems(ctx context.Context, db *sql.DB, withinDays int) ([]ItemSummary, error) {
	cutoff := time.Now().AddDate(0, 0, withinDays)
	rows, err := db.QueryContext(ctx,
		`SELECT i.id, i.name, c.name,
		        i.quantity,
		        COALESCE(a.allocated, 0),
		        i.quantity - COALESCE(a.allocated, 0),
		        i.quantity * i.price_cents,
		        i.expiry
		 FROM stock_items i
		 JOIN categories c ON c.id = i.category_id
		 LEFT JOIN (
		     SELECT stock_item_id, SUM(quantity) AS allocated
		     FROM stock_allocations GROUP BY stock_item_id
		 ) a ON a.stock_item_id = i.id
		 WHERE i.deleted_at IS NULL AND i.expiry IS NOT NULL AND i.expiry <= ?
		 ORDER BY i.expiry`, cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("querying expiring items: %w", err)
	}
	defer rows.Close()

	var items []ItemSummary
	for rows.Next() {
		var s ItemSummary
		if err := rows.Scan(&s.StockItemID, &s.Name, &s.CategoryName,
			&s.Quantity, &s.Allocated, &s.Available, &s.ValueCents, &s.Expiry); err != nil {
			return nil, fmt.Errorf("scanning expiring item: %w", err)
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

// LowCentralStock returns items whose derived central availability is
// at or below the threshold.
func LowCentralStock(ctx context.Context, db *sql.DB, threshold int) ([]ItemSummary, error) {
	summaries, err := ItemSummaries(ctx, db)
	if err != nil {
		return nil, err
	}

	var low []ItemSummary
	for _, s := range summaries {
		if s.Available <= threshold {
			low = append(low, s)
		}
	}
	return low, nil
}

// CheckAllocationIntegrity returns the ids of items whose outstanding
// allocations exceed the nominal total. A non-empty result is a
// data-integrity violation; it is reported, never silently corrected.
func CheckAllocationIntegrity(ctx context.Context, db *sql.DB) ([]int64, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT i.id
		 FROM stock_items i
		 JOIN (
		     SELECT stock_item_id, SUM(quantity) AS allocated
		     FROM stock_allocations GROUP BY stock_item_id
		 ) a ON a.stock_item_id = i.id
		 WHERE a.allocated > i.quantity`,
	)
	if err != nil {
		return nil, fmt.Errorf("checking allocation integrity: %w", err)
	}
	defer rows.Close()

	var violations []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning integrity violation: %w", err)
		}
		violations = append(violations, id)
	}
	return violations, rows.Err()
}
