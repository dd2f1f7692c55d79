package auth

import (
	"github.com/prodigy2/autoRiaClone/internal/domain"
	apperrors "github.com/prodigy2/autoRiaClone/pkg/errors"
)

// AuthClaims is the resolved identity of a user: their roles and the
// union of every permission those roles grant.
type AuthClaims struct {
	SubjectID       string
	Email           string
	RoleNames       []string
	PermissionNames []string
}

// HasPermission reports whether the resolved claims include the permission.
func (c AuthClaims) HasPermission(name string) bool {
	for _, p := range c.PermissionNames {
		if p == name {
			return true
		}
	}
	return false
}

// Resolve flattens a user's roles into AuthClaims. Permissions are the
// deduplicated union across all roles, kept in first-seen order. A user
// with no roles resolves to empty slices, not nil lookups downstream.
func Resolve(user *domain.User) (AuthClaims, error) {
	if user == nil {
		return AuthClaims{}, apperrors.NotFound("user", "unknown")
	}

	roleNames := make([]string, 0, len(user.Roles))
	permNames := make([]string, 0)
	seen := make(map[string]struct{})

	for _, role := range user.Roles {
		roleNames = append(roleNames, role.Name)
		for _, perm := range role.Permissions {
			if _, ok := seen[perm.Name]; ok {
				continue
			}
			seen[perm.Name] = struct{}{}
			permNames = append(permNames, perm.Name)
		}
	}

	return AuthClaims{
		SubjectID:       user.ID,
		Email:           user.Email,
		RoleNames:       roleNames,
		PermissionNames: permNames,
	}, nil
}
