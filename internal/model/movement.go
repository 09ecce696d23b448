package model

import (
	"strconv"
	"time"
)

// Party identifies one side of a stock movement: either the central
// pool or a specific user. The zero value is the central pool.
type Party struct {
	userID int64
}

// CentralPool returns the party representing undistributed stock.
func CentralPool() Party {
	return Party{}
}

// UserParty returns the party for a specific user.
func UserParty(userID int64) Party {
	return Party{userID: userID}
}

// IsCentral reports whether the party is the central pool.
func (p Party) IsCentral() bool {
	return p.userID == 0
}

// UserID returns the user id, or 0 for the central pool.
func (p Party) UserID() int64 {
	return p.userID
}

// Ref returns the user id as a nullable reference for persistence,
// nil meaning the central pool.
func (p Party) Ref() *int64 {
	if p.userID == 0 {
		return nil
	}
	id := p.userID
	return &id
}

func (p Party) String() string {
	if p.IsCentral() {
		return "central"
	}
	return "user:" + strconv.FormatInt(p.userID, 10)
}

// StockMovement is one immutable record of a quantity transfer between
// two parties. Rows are never updated or deleted.
type StockMovement struct {
	ID          int64     `json:"id"`
	StockItemID int64     `json:"stock_item_id"`
	FromUserID  *int64    `json:"from_user_id,omitempty"` // nil = central pool
	ToUserID    *int64    `json:"to_user_id,omitempty"`   // nil = central pool
	Quantity    int       `json:"quantity"`
	MovedBy     *int64    `json:"moved_by,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	MovedAt     time.Time `json:"moved_at"`

	// Joined fields (not always populated).
	ItemName     string `json:"item_name,omitempty"`
	FromUsername string `json:"from_username,omitempty"`
	ToUsername   string `json:"to_username,omitempty"`
}

// From returns the source party.
func (m *StockMovement) From() Party {
	if m.FromUserID == nil {
		return CentralPool()
	}
	return UserParty(*m.FromUserID)
}

// To returns the destination party.
func (m *StockMovement) To() Party {
	if m.ToUserID == nil {
		return CentralPool()
	}
	return UserParty(*m.ToUserID)
}
