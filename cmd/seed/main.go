// Command seed populates a fresh database with the role and permission
// catalog, a starter car catalog and an admin account. It is idempotent
// and safe to rerun.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/prodigy2/autoRiaClone/internal/config"
	"github.com/prodigy2/autoRiaClone/internal/domain"
	"github.com/prodigy2/autoRiaClone/internal/repository"
	"github.com/prodigy2/autoRiaClone/internal/repository/postgres"
	"github.com/prodigy2/autoRiaClone/migrations"
	"github.com/prodigy2/autoRiaClone/pkg/database"
	apperrors "github.com/prodigy2/autoRiaClone/pkg/errors"
	"github.com/prodigy2/autoRiaClone/pkg/logger"
)

var rolePermissions = map[string][]string{
	domain.RoleAdmin: {
		domain.PermCreateAds, domain.PermReadAds, domain.PermUpdateAds, domain.PermDeleteAds,
		domain.PermManageUsers, domain.PermManageRoles, domain.PermManageSystem,
	},
	domain.RoleManager: {
		domain.PermReadAds, domain.PermUpdateAds, domain.PermDeleteAds, domain.PermManageUsers,
	},
	domain.RoleSeller: {
		domain.PermCreateAds, domain.PermReadAds, domain.PermUpdateAds, domain.PermDeleteAds,
	},
	domain.RoleBuyer: {
		domain.PermReadAds,
	},
}

var permissionDescriptions = map[string]string{
	domain.PermCreateAds:    "create car listings",
	domain.PermReadAds:      "read car listings",
	domain.PermUpdateAds:    "update own car listings",
	domain.PermDeleteAds:    "delete own car listings",
	domain.PermManageUsers:  "manage user accounts",
	domain.PermManageRoles:  "manage roles and permissions",
	domain.PermManageSystem: "manage platform settings",
}

var carCatalog = map[string][]string{
	"Audi":       {"A4", "A6", "Q5", "Q7"},
	"BMW":        {"3 Series", "5 Series", "X3", "X5"},
	"Ford":       {"Focus", "Mondeo", "Kuga"},
	"Renault":    {"Logan", "Megane", "Duster"},
	"Toyota":     {"Corolla", "Camry", "RAV4", "Land Cruiser"},
	"Volkswagen": {"Golf", "Passat", "Tiguan", "Touareg"},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.New("autoria-seed", cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	pgCfg := cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, log)
	if err != nil {
		log.Error("failed to connect to postgres", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
		log.Error("failed to run migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := seed(ctx, pool, log); err != nil {
		log.Error("seeding failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("seeding complete")
}

func seed(ctx context.Context, pool database.DBTX, log *slog.Logger) error {
	roleRepo := postgres.NewRoleRepository(pool)
	permRepo := postgres.NewPermissionRepository(pool)
	userRepo := postgres.NewUserRepository(pool)
	brandRepo := postgres.NewCarBrandRepository(pool)
	modelRepo := postgres.NewCarModelRepository(pool)

	perms, err := seedPermissions(ctx, permRepo, log)
	if err != nil {
		return err
	}

	roles, err := seedRoles(ctx, roleRepo, perms, log)
	if err != nil {
		return err
	}

	if err := seedAdmin(ctx, userRepo, roles, log); err != nil {
		return err
	}

	return seedCarCatalog(ctx, brandRepo, modelRepo, log)
}

func seedPermissions(ctx context.Context, repo repository.PermissionRepository, log *slog.Logger) (map[string]string, error) {
	ids := make(map[string]string, len(permissionDescriptions))
	for name, description := range permissionDescriptions {
		existing, err := repo.GetByName(ctx, name)
		if err == nil {
			ids[name] = existing.ID
			continue
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}

		perm := &domain.Permission{
			ID:          uuid.New().String(),
			Name:        name,
			Description: description,
			CreatedAt:   time.Now().UTC(),
		}
		if err := repo.Create(ctx, perm); err != nil {
			return nil, err
		}
		ids[name] = perm.ID
		log.Info("permission created", slog.String("name", name))
	}
	return ids, nil
}

func seedRoles(ctx context.Context, repo repository.RoleRepository, permIDs map[string]string, log *slog.Logger) (map[string]string, error) {
	ids := make(map[string]string, len(rolePermissions))
	for name, permNames := range rolePermissions {
		role, err := repo.GetByName(ctx, name)
		if errors.Is(err, apperrors.ErrNotFound) {
			now := time.Now().UTC()
			role = &domain.Role{
				ID:        uuid.New().String(),
				Name:      name,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := repo.Create(ctx, role); err != nil {
				return nil, err
			}
			log.Info("role created", slog.String("name", name))
		} else if err != nil {
			return nil, err
		}
		ids[name] = role.ID

		for _, permName := range permNames {
			// AddPermission is a no-op for assignments that already exist.
			if err := repo.AddPermission(ctx, role.ID, permIDs[permName]); err != nil {
				return nil, err
			}
		}
	}
	return ids, nil
}

func seedAdmin(ctx context.Context, repo repository.UserRepository, roleIDs map[string]string, log *slog.Logger) error {
	const adminEmail = "admin@autoria.local"

	existing, err := repo.GetByEmail(ctx, adminEmail)
	if err == nil {
		return repo.AssignRole(ctx, existing.ID, roleIDs[domain.RoleAdmin])
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return err
	}

	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if password == "" {
		password = "change-me-immediately"
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	admin := &domain.User{
		ID:           uuid.New().String(),
		Email:        adminEmail,
		PasswordHash: string(hash),
		FirstName:    "Platform",
		LastName:     "Admin",
		AccountTier:  domain.TierInternal,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repo.Create(ctx, admin); err != nil {
		return err
	}
	log.Info("admin account created", slog.String("email", adminEmail))

	return repo.AssignRole(ctx, admin.ID, roleIDs[domain.RoleAdmin])
}

func seedCarCatalog(ctx context.Context, brands repository.CarBrandRepository, models repository.CarModelRepository, log *slog.Logger) error {
	existingModels := make(map[string]bool)
	for brandName, modelNames := range carCatalog {
		brand, err := brands.GetByName(ctx, brandName)
		if errors.Is(err, apperrors.ErrNotFound) {
			brand = &domain.CarBrand{
				ID:        uuid.New().String(),
				Name:      brandName,
				CreatedAt: time.Now().UTC(),
			}
			if err := brands.Create(ctx, brand); err != nil {
				return err
			}
			log.Info("car brand created", slog.String("name", brandName))
		} else if err != nil {
			return err
		}

		known, err := models.ListByBrand(ctx, brand.ID)
		if err != nil {
			return err
		}
		for _, m := range known {
			existingModels[brand.ID+"/"+m.Name] = true
		}

		for _, modelName := range modelNames {
			if existingModels[brand.ID+"/"+modelName] {
				continue
			}
			model := &domain.CarModel{
				ID:        uuid.New().String(),
				BrandID:   brand.ID,
				Name:      modelName,
				CreatedAt: time.Now().UTC(),
			}
			if err := models.Create(ctx, model); err != nil {
				return err
			}
		}
	}
	return nil
}
