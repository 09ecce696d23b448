package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/medrep/promostock/internal/model"
)

// RequestParams holds the fields needed to create an inventory request.
type RequestParams struct {
	Type            string
	RequestedBy     int64
	AssignedTo      *int64
	FinalAssignee   *int64
	ShareFromUserID *int64
	ShareToUserID   *int64
	Notes           string
	FileURL         string
	Items           []model.RequestItem
}

// CreateRequest creates a request and its line items in one transaction.
// The request starts in the pending state with a generated reference.
func CreateRequest(ctx context.Context, db *sql.DB, p RequestParams) (*model.InventoryRequest, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	reference := uuid.NewString()
	result, err := tx.ExecContext(ctx,
		`INSERT INTO inventory_requests
		     (reference, type, status, requested_by, assigned_to, final_assignee,
		      share_from_user_id, share_to_user_id, notes, file_url)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		reference, p.Type, model.RequestStatusPending, p.RequestedBy, p.AssignedTo,
		p.FinalAssignee, p.ShareFromUserID, p.ShareToUserID, p.Notes, p.FileURL,
	)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting request id: %w", err)
	}

	for _, item := range p.Items {
		var itemName any
		if item.ItemName != "" {
			itemName = item.ItemName
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO request_items (request_id, stock_item_id, item_name, quantity, notes)
			 VALUES (?, ?, ?, ?, ?)`,
			id, item.StockItemID, itemName, item.Quantity, item.Notes,
		)
		if err != nil {
			return nil, fmt.Errorf("creating request item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing request: %w", err)
	}

	return GetRequest(ctx, db, id)
}

const requestColumns = `r.id, r.reference, r.type, r.status, r.requested_by,
	r.assigned_to, r.final_assignee, r.share_from_user_id, r.share_to_user_id,
	r.notes, r.secondary_notes, r.file_url, r.created_at, r.updated_at, r.completed_at,
	ru.username AS requested_by_name, COALESCE(au.username, '') AS assigned_to_name`

const requestJoins = `FROM inventory_requests r
	JOIN users ru ON ru.id = r.requested_by
	LEFT JOIN users au ON au.id = r.assigned_to`

// GetRequest returns a request with its line items.
func GetRequest(ctx context.Context, db *sql.DB, id int64) (*model.InventoryRequest, error) {
	r := &model.InventoryRequest{}
	var notes, secondaryNotes, fileURL sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT `+requestColumns+` `+requestJoins+` WHERE r.id = ?`, id,
	).Scan(&r.ID, &r.Reference, &r.Type, &r.Status, &r.RequestedBy,
		&r.AssignedTo, &r.FinalAssignee, &r.ShareFromUserID, &r.ShareToUserID,
		&notes, &secondaryNotes, &fileURL, &r.CreatedAt, &r.UpdatedAt, &r.CompletedAt,
		&r.RequestedByName, &r.AssignedToName)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting request: %w", err)
	}
	r.Notes = notes.String
	r.SecondaryNotes = secondaryNotes.String
	r.FileURL = fileURL.String

	items, err := GetRequestItems(ctx, db, id)
	if err != nil {
		return nil, err
	}
	r.Items = items
	return r, nil
}

// GetRequestItems returns the line items of a request.
func GetRequestItems(ctx context.Context, db *sql.DB, requestID int64) ([]model.RequestItem, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, request_id, stock_item_id, item_name, quantity, notes
		 FROM request_items WHERE request_id = ? ORDER BY id`, requestID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing request items: %w", err)
	}
	defer rows.Close()

	var items []model.RequestItem
	for rows.Next() {
		var item model.RequestItem
		var itemName, itemNotes sql.NullString
		if err := rows.Scan(&item.ID, &item.RequestID, &item.StockItemID, &itemName, &item.Quantity, &itemNotes); err != nil {
			return nil, fmt.Errorf("scanning request item: %w", err)
		}
		item.ItemName = itemName.String
		item.Notes = itemNotes.String
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListRequests returns requests, optionally filtered by status,
// requester, or current assignee. Line items are not populated.
func ListRequests(ctx context.Context, db *sql.DB, status string, requestedBy, assignedTo int64) ([]model.InventoryRequest, error) {
	query := `SELECT ` + requestColumns + ` ` + requestJoins + ` WHERE 1=1`
	var args []any

	if status != "" {
		query += ` AND r.status = ?`
		args = append(args, status)
	}
	if requestedBy > 0 {
		query += ` AND r.requested_by = ?`
		args = append(args, requestedBy)
	}
	if assignedTo > 0 {
		query += ` AND r.assigned_to = ?`
		args = append(args, assignedTo)
	}

	query += ` ORDER BY r.created_at DESC, r.id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing requests: %w", err)
	}
	defer rows.Close()

	var requests []model.InventoryRequest
	for rows.Next() {
		var r model.InventoryRequest
		var notes, secondaryNotes, fileURL sql.NullString
		if err := rows.Scan(&r.ID, &r.Reference, &r.Type, &r.Status, &r.RequestedBy,
			&r.AssignedTo, &r.FinalAssignee, &r.ShareFromUserID, &r.ShareToUserID,
			&notes, &secondaryNotes, &fileURL, &r.CreatedAt, &r.UpdatedAt, &r.CompletedAt,
			&r.RequestedByName, &r.AssignedToName); err != nil {
			return nil, fmt.Errorf("scanning request: %w", err)
		}
		r.Notes = notes.String
		r.SecondaryNotes = secondaryNotes.String
		r.FileURL = fileURL.String
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

// CloseRequest moves a request to a terminal status (approved or
// denied), stamps completed_at, and records resolution notes.
func CloseRequest(ctx context.Context, db *sql.DB, id int64, status, notes string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE inventory_requests
		 SET status = ?, secondary_notes = CASE WHEN ? != '' THEN ? ELSE secondary_notes END,
		     completed_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		status, notes, notes, id,
	)
	if err != nil {
		return fmt.Errorf("closing request: %w", err)
	}
	return nil
}

// ForwardRequest moves an inventory_share request to pending_secondary,
// reassigning it to the final assignee.
func ForwardRequest(ctx context.Context, db *sql.DB, id, assignedTo int64, secondaryNotes string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE inventory_requests
		 SET status = ?, assigned_to = ?, secondary_notes = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		model.RequestStatusPendingSecondary, assignedTo, secondaryNotes, id,
	)
	if err != nil {
		return fmt.Errorf("forwarding request: %w", err)
	}
	return nil
}

// MarkRequestCompleted flips an approved request to completed. Only the
// status and timestamps change; no transfer logic runs.
func MarkRequestCompleted(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(ctx,
		`UPDATE inventory_requests
		 SET status = ?, completed_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		model.RequestStatusCompleted, id,
	)
	if err != nil {
		return fmt.Errorf("completing request: %w", err)
	}
	return nil
}
