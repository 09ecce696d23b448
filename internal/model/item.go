package model

import "time"

// StockItem is a promotional material in the master catalog. Quantity is
// the nominal central-pool total: units ever introduced minus units
// permanently removed. It is not reduced by allocating units to users;
// allocations are tracked separately and the undistributed remainder is
// always derived.
type StockItem struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	CategoryID   int64      `json:"category_id"`
	SpecialtyID  *int64     `json:"specialty_id,omitempty"`
	Quantity     int        `json:"quantity"`
	PriceCents   int64      `json:"price_cents"`
	Expiry       *time.Time `json:"expiry,omitempty"`
	UniqueNumber string     `json:"unique_number,omitempty"`
	Notes        string     `json:"notes,omitempty"`
	ImageMime    string     `json:"image_mime,omitempty"`
	CreatedBy    *int64     `json:"created_by,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`

	// Joined fields (not always populated).
	CategoryName  string `json:"category_name,omitempty"`
	SpecialtyName string `json:"specialty_name,omitempty"`
}

// Category groups stock items (leaflets, giveaways, samples, ...).
type Category struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Specialty is a medical specialty a material targets.
type Specialty struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
