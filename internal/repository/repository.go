// Package repository defines the persistence interfaces consumed by the
// service layer. Implementations live in the postgres subpackage.
package repository

import (
	"context"

	"github.com/prodigy2/autoRiaClone/internal/domain"
)

// UserRepository manages users. Reads return users with roles and role
// permissions eagerly loaded.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, limit, offset int) ([]domain.User, int, error)
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id string) error
	AssignRole(ctx context.Context, userID, roleID string) error
	RemoveRole(ctx context.Context, userID, roleID string) error
}

// RefreshTokenRepository stores hashed refresh tokens for session rotation.
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *domain.RefreshToken) error
	GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)
	Revoke(ctx context.Context, id string) error
	RevokeAllForUser(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// RoleRepository manages roles and their permission assignments.
type RoleRepository interface {
	Create(ctx context.Context, role *domain.Role) error
	GetByID(ctx context.Context, id string) (*domain.Role, error)
	GetByName(ctx context.Context, name string) (*domain.Role, error)
	List(ctx context.Context) ([]domain.Role, error)
	Update(ctx context.Context, role *domain.Role) error
	Delete(ctx context.Context, id string) error
	AddPermission(ctx context.Context, roleID, permissionID string) error
	RemovePermission(ctx context.Context, roleID, permissionID string) error
}

// PermissionRepository manages the permission catalog.
type PermissionRepository interface {
	Create(ctx context.Context, perm *domain.Permission) error
	GetByName(ctx context.Context, name string) (*domain.Permission, error)
	List(ctx context.Context) ([]domain.Permission, error)
}

// RejectionOutcome is the post-increment state of an ad after a content
// violation was recorded.
type RejectionOutcome struct {
	RejectionCount int
	Status         string
}

// AdRepository manages car sale listings.
type AdRepository interface {
	Create(ctx context.Context, ad *domain.Ad) error
	GetByID(ctx context.Context, id string) (*domain.Ad, error)
	ListActive(ctx context.Context, limit, offset int) ([]domain.Ad, int, error)
	ListBySeller(ctx context.Context, sellerID string, limit, offset int) ([]domain.Ad, int, error)

	// CountBySeller counts every listing the seller has ever created,
	// regardless of status.
	CountBySeller(ctx context.Context, sellerID string) (int, error)

	// Update writes the ad fields guarded by its version column and
	// returns a conflict error when the row changed underneath.
	Update(ctx context.Context, ad *domain.Ad) error

	// RecordRejection atomically increments the ad's rejection counter
	// and flips the status to rejected once the counter reaches the
	// threshold, all in one statement.
	RecordRejection(ctx context.Context, adID string, threshold int) (RejectionOutcome, error)

	IncrementViews(ctx context.Context, adID string) error
	Delete(ctx context.Context, id string) error
}

// CarBrandRepository manages the car brand catalog.
type CarBrandRepository interface {
	Create(ctx context.Context, brand *domain.CarBrand) error
	GetByName(ctx context.Context, name string) (*domain.CarBrand, error)
	List(ctx context.Context) ([]domain.CarBrand, error)
}

// CarModelRepository manages car models within brands.
type CarModelRepository interface {
	Create(ctx context.Context, model *domain.CarModel) error
	GetByID(ctx context.Context, id string) (*domain.CarModel, error)
	ListByBrand(ctx context.Context, brandID string) ([]domain.CarModel, error)
}

// CurrencyRateRepository stores fetched exchange rates.
type CurrencyRateRepository interface {
	Save(ctx context.Context, rate *domain.CurrencyRate) error
	Latest(ctx context.Context, base, target string) (*domain.CurrencyRate, error)
}
