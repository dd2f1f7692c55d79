package domain

import (
	"time"
)

// Account tier constants. The tier governs how many ads a user may publish.
const (
	TierBase     = "base"
	TierPremium  = "premium"
	TierInternal = "internal"
)

// User represents a registered user in the system.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	AccountTier  string    `json:"account_tier"`
	IsActive     bool      `json:"is_active"`
	Roles        []Role    `json:"roles,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RoleNames returns the names of the user's roles in their original order.
func (u *User) RoleNames() []string {
	names := make([]string, len(u.Roles))
	for i, r := range u.Roles {
		names[i] = r.Name
	}
	return names
}

// PublicProfile is the safe subset of a user returned to clients on login.
// It never carries the password hash or the resolved permission set.
type PublicProfile struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	FirstName   string   `json:"first_name"`
	LastName    string   `json:"last_name"`
	AccountTier string   `json:"account_tier"`
	Roles       []string `json:"roles"`
}

// Profile returns the public-safe view of the user.
func (u *User) Profile() PublicProfile {
	return PublicProfile{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		AccountTier: u.AccountTier,
		Roles:       u.RoleNames(),
	}
}

// RefreshToken represents a stored refresh token for a user session.
type RefreshToken struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	TokenHash string     `json:"-"`
	ExpiresAt time.Time  `json:"expires_at"`
	CreatedAt time.Time  `json:"created_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// TokenPair holds an access and refresh token pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// IsValidTier checks whether the given string is a known account tier.
func IsValidTier(tier string) bool {
	switch tier {
	case TierBase, TierPremium, TierInternal:
		return true
	}
	return false
}
