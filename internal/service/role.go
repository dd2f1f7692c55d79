package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/prodigy2/autoRiaClone/internal/domain"
	"github.com/prodigy2/autoRiaClone/internal/repository"
	apperrors "github.com/prodigy2/autoRiaClone/pkg/errors"
)

// RoleService manages the role and permission catalog.
type RoleService struct {
	roleRepo repository.RoleRepository
	permRepo repository.PermissionRepository
	logger   *slog.Logger
}

// NewRoleService creates a new role service.
func NewRoleService(roleRepo repository.RoleRepository, permRepo repository.PermissionRepository, logger *slog.Logger) *RoleService {
	return &RoleService{
		roleRepo: roleRepo,
		permRepo: permRepo,
		logger:   logger,
	}
}

// CreateRoleInput holds the parameters for creating a role.
type CreateRoleInput struct {
	Name        string
	Description string
}

// CreateRole creates a new named role.
func (s *RoleService) CreateRole(ctx context.Context, input CreateRoleInput) (*domain.Role, error) {
	input.Name = strings.ToLower(strings.TrimSpace(input.Name))
	if input.Name == "" {
		return nil, apperrors.InvalidInput("name is required")
	}

	now := time.Now().UTC()
	role := &domain.Role{
		ID:          uuid.New().String(),
		Name:        input.Name,
		Description: input.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.roleRepo.Create(ctx, role); err != nil {
		return nil, fmt.Errorf("create role: %w", err)
	}

	s.logger.InfoContext(ctx, "role created",
		slog.String("role_id", role.ID),
		slog.String("name", role.Name),
	)

	return role, nil
}

// GetRole retrieves a role with its permissions.
func (s *RoleService) GetRole(ctx context.Context, id string) (*domain.Role, error) {
	role, err := s.roleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get role by id: %w", err)
	}
	return role, nil
}

// ListRoles returns all roles with their permissions.
func (s *RoleService) ListRoles(ctx context.Context) ([]domain.Role, error) {
	roles, err := s.roleRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return roles, nil
}

// DeleteRole removes a role.
func (s *RoleService) DeleteRole(ctx context.Context, id string) error {
	if err := s.roleRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete role: %w", err)
	}

	s.logger.InfoContext(ctx, "role deleted",
		slog.String("role_id", id),
	)

	return nil
}

// GrantPermission attaches a named permission to a role.
func (s *RoleService) GrantPermission(ctx context.Context, roleID, permissionName string) error {
	perm, err := s.permRepo.GetByName(ctx, permissionName)
	if err != nil {
		return fmt.Errorf("get permission by name: %w", err)
	}

	if err := s.roleRepo.AddPermission(ctx, roleID, perm.ID); err != nil {
		return fmt.Errorf("add permission: %w", err)
	}

	s.logger.InfoContext(ctx, "permission granted",
		slog.String("role_id", roleID),
		slog.String("permission", permissionName),
	)

	return nil
}

// RevokePermission detaches a named permission from a role.
func (s *RoleService) RevokePermission(ctx context.Context, roleID, permissionName string) error {
	perm, err := s.permRepo.GetByName(ctx, permissionName)
	if err != nil {
		return fmt.Errorf("get permission by name: %w", err)
	}

	if err := s.roleRepo.RemovePermission(ctx, roleID, perm.ID); err != nil {
		return fmt.Errorf("remove permission: %w", err)
	}

	return nil
}

// ListPermissions returns the full permission catalog.
func (s *RoleService) ListPermissions(ctx context.Context) ([]domain.Permission, error) {
	perms, err := s.permRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	return perms, nil
}
