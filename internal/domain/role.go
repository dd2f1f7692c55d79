package domain

import "time"

// Role is a named collection of permissions assignable to users.
type Role struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Permissions []Permission `json:"permissions,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Permission is a single named capability, e.g. "create:ads".
type Permission struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Well-known role names used by the seeder and authorization checks.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleSeller  = "seller"
	RoleBuyer   = "buyer"
)

// Well-known permission names.
const (
	PermCreateAds    = "create:ads"
	PermReadAds      = "read:ads"
	PermUpdateAds    = "update:ads"
	PermDeleteAds    = "delete:ads"
	PermManageUsers  = "manage:users"
	PermManageRoles  = "manage:roles"
	PermManageSystem = "manage:system"
)
