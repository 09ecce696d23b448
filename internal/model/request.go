package model

import "time"

// Request types.
const (
	RequestTypePrepareOrder     = "prepare_order"
	RequestTypeReceiveInventory = "receive_inventory"
	RequestTypeInventoryShare   = "inventory_share"
)

// Request statuses. Approved and denied are terminal except that an
// approved request may later be marked completed (timestamp only).
const (
	RequestStatusPending          = "pending"
	RequestStatusPendingSecondary = "pending_secondary"
	RequestStatusApproved         = "approved"
	RequestStatusDenied           = "denied"
	RequestStatusCompleted        = "completed"
)

// ValidRequestType reports whether t is a known request type.
func ValidRequestType(t string) bool {
	switch t {
	case RequestTypePrepareOrder, RequestTypeReceiveInventory, RequestTypeInventoryShare:
		return true
	}
	return false
}

// InventoryRequest is a user request for stock, moving through the
// approval workflow before any transfer executes.
type InventoryRequest struct {
	ID              int64      `json:"id"`
	Reference       string     `json:"reference"`
	Type            string     `json:"type"`
	Status          string     `json:"status"`
	RequestedBy     int64      `json:"requested_by"`
	AssignedTo      *int64     `json:"assigned_to,omitempty"`
	FinalAssignee   *int64     `json:"final_assignee,omitempty"`
	ShareFromUserID *int64     `json:"share_from_user_id,omitempty"`
	ShareToUserID   *int64     `json:"share_to_user_id,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	SecondaryNotes  string     `json:"secondary_notes,omitempty"`
	FileURL         string     `json:"file_url,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`

	Items []RequestItem `json:"items,omitempty"`

	// Joined fields (not always populated).
	RequestedByName string `json:"requested_by_name,omitempty"`
	AssignedToName  string `json:"assigned_to_name,omitempty"`
}

// RequestItem is one line of a request: either a catalog item reference
// or a free-text item name, never both empty.
type RequestItem struct {
	ID          int64  `json:"id"`
	RequestID   int64  `json:"request_id"`
	StockItemID *int64 `json:"stock_item_id,omitempty"`
	ItemName    string `json:"item_name,omitempty"`
	Quantity    int    `json:"quantity"`
	Notes       string `json:"notes,omitempty"`
}
