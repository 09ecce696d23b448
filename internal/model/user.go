package model

import (
	"fmt"
	"time"
)

// User represents an authentication user.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	FullName     string     `json:"full_name,omitempty"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	CreatedAt    time.Time  `json:"created_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// Role is a closed enum of application roles.
type Role string

const (
	RoleCEO            Role = "ceo"
	RoleAdmin          Role = "admin"
	RoleProductManager Role = "product_manager"
	RoleStockKeeper    Role = "stock_keeper"
	RoleMarketer       Role = "marketer"
	RoleSalesManager   Role = "sales_manager"
	RoleMedicalRep     Role = "medical_rep"
)

// Roles lists every valid role.
var Roles = []Role{
	RoleCEO,
	RoleAdmin,
	RoleProductManager,
	RoleStockKeeper,
	RoleMarketer,
	RoleSalesManager,
	RoleMedicalRep,
}

// Permissions is the typed permission matrix entry for a role.
type Permissions struct {
	ManageUsers      bool // create, edit and delete accounts
	ManageCatalog    bool // create and edit stock items and categories
	MoveStock        bool // execute direct transfers between parties
	OverrideApproval bool // act on requests not assigned to them
	ViewAnalytics    bool // dashboard summary endpoints
}

// rolePermissions maps each role to its permissions. Unknown roles
// resolve to the zero value, so lookups fail closed.
var rolePermissions = map[Role]Permissions{
	RoleCEO:            {ManageUsers: true, ManageCatalog: true, MoveStock: true, OverrideApproval: true, ViewAnalytics: true},
	RoleAdmin:          {ManageUsers: true, ManageCatalog: true, MoveStock: true, OverrideApproval: true, ViewAnalytics: true},
	RoleProductManager: {ManageCatalog: true, ViewAnalytics: true},
	RoleStockKeeper:    {MoveStock: true, OverrideApproval: true, ViewAnalytics: true},
	RoleMarketer:       {ViewAnalytics: true},
	RoleSalesManager:   {ViewAnalytics: true},
	RoleMedicalRep:     {},
}

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	_, ok := rolePermissions[r]
	return ok
}

// Permissions returns the permission set for the role.
func (r Role) Permissions() Permissions {
	return rolePermissions[r]
}

// ValidatePassword checks minimum password requirements.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	return nil
}
