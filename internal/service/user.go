package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/prodigy2/autoRiaClone/internal/auth"
	"github.com/prodigy2/autoRiaClone/internal/domain"
	"github.com/prodigy2/autoRiaClone/internal/event"
	"github.com/prodigy2/autoRiaClone/internal/repository"
	apperrors "github.com/prodigy2/autoRiaClone/pkg/errors"
)

// DefaultBcryptCost is the bcrypt cost used for password hashing. Tests
// override it to keep hashing fast.
const DefaultBcryptCost = 12

// UserService implements registration, authentication and account management.
type UserService struct {
	userRepo   repository.UserRepository
	tokenRepo  repository.RefreshTokenRepository
	roleRepo   repository.RoleRepository
	jwtManager *auth.JWTManager
	producer   *event.Producer
	logger     *slog.Logger
	bcryptCost int
}

// NewUserService creates a new user service.
func NewUserService(
	userRepo repository.UserRepository,
	tokenRepo repository.RefreshTokenRepository,
	roleRepo repository.RoleRepository,
	jwtManager *auth.JWTManager,
	producer *event.Producer,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		userRepo:   userRepo,
		tokenRepo:  tokenRepo,
		roleRepo:   roleRepo,
		jwtManager: jwtManager,
		producer:   producer,
		logger:     logger,
		bcryptCost: DefaultBcryptCost,
	}
}

// SetBcryptCost overrides the hashing cost, used by tests.
func (s *UserService) SetBcryptCost(cost int) {
	s.bcryptCost = cost
}

// RegisterInput holds the parameters for registering a user.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Register creates a new base-tier user with the buyer role.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if input.Email == "" {
		return nil, apperrors.InvalidInput("email is required")
	}
	if len(input.Password) < 8 {
		return nil, apperrors.InvalidInput("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        input.Email,
		PasswordHash: string(hash),
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		AccountTier:  domain.TierBase,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	if role, err := s.roleRepo.GetByName(ctx, domain.RoleBuyer); err == nil {
		if err := s.userRepo.AssignRole(ctx, user.ID, role.ID); err != nil {
			s.logger.ErrorContext(ctx, "failed to assign default role",
				slog.String("user_id", user.ID),
				slog.String("error", err.Error()),
			)
		} else {
			user.Roles = []domain.Role{*role}
		}
	}

	if err := s.producer.PublishUserRegistered(ctx, event.UserRegisteredData{
		UserID:      user.ID,
		Email:       user.Email,
		AccountTier: user.AccountTier,
	}); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		// Do not fail the operation if event publishing fails.
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, nil
}

// LoginResult is what a successful login returns: tokens plus the public
// profile of the account.
type LoginResult struct {
	Tokens  domain.TokenPair
	Profile domain.PublicProfile
}

// Login authenticates by email and password and issues a token pair. The
// access token embeds the account's roles and resolved permissions.
func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("invalid email or password")
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	if !user.IsActive {
		return nil, apperrors.Unauthorized("account is deactivated")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.Unauthorized("invalid email or password")
	}

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user logged in",
		slog.String("user_id", user.ID),
	)

	return &LoginResult{
		Tokens:  *tokens,
		Profile: user.Profile(),
	}, nil
}

// RefreshTokens rotates a refresh token: the presented token is revoked and
// a new pair is issued. Claims are re-resolved so permission changes take
// effect on rotation.
func (s *UserService) RefreshTokens(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	stored, err := s.tokenRepo.GetByHash(ctx, hashToken(refreshToken))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("refresh token not recognized")
		}
		return nil, fmt.Errorf("get refresh token: %w", err)
	}

	if stored.RevokedAt != nil {
		// A revoked token being replayed means it leaked. Kill the
		// whole session family.
		if err := s.tokenRepo.RevokeAllForUser(ctx, stored.UserID); err != nil {
			s.logger.ErrorContext(ctx, "failed to revoke token family",
				slog.String("user_id", stored.UserID),
				slog.String("error", err.Error()),
			)
		}
		return nil, apperrors.Unauthorized("refresh token already used")
	}

	if time.Now().UTC().After(stored.ExpiresAt) {
		return nil, apperrors.Unauthorized("refresh token expired")
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}

	if err := s.tokenRepo.Revoke(ctx, stored.ID); err != nil {
		return nil, fmt.Errorf("revoke refresh token: %w", err)
	}

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	return tokens, nil
}

// Logout revokes every refresh token the user holds.
func (s *UserService) Logout(ctx context.Context, userID string) error {
	if err := s.tokenRepo.RevokeAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged out",
		slog.String("user_id", userID),
	)

	return nil
}

// GetUser retrieves a user by ID.
func (s *UserService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return user, nil
}

// UpdateProfileInput holds the parameters for a profile update. Nil fields
// are left unchanged.
type UpdateProfileInput struct {
	FirstName *string
	LastName  *string
}

// UpdateProfile edits the user's own profile fields.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}

	if input.FirstName != nil {
		user.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		user.LastName = *input.LastName
	}
	user.UpdatedAt = time.Now().UTC()

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	return user, nil
}

// ChangePassword verifies the old password, stores the new hash and revokes
// every open session.
func (s *UserService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if len(newPassword) < 8 {
		return apperrors.InvalidInput("password must be at least 8 characters")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user by id: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return apperrors.Unauthorized("current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user.PasswordHash = string(hash)
	user.UpdatedAt = time.Now().UTC()

	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	if err := s.tokenRepo.RevokeAllForUser(ctx, userID); err != nil {
		s.logger.ErrorContext(ctx, "failed to revoke sessions after password change",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "password changed",
		slog.String("user_id", userID),
	)

	return nil
}

// UpgradeToPremium flips the account tier to premium, lifting the listing
// quota.
func (s *UserService) UpgradeToPremium(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}

	if user.AccountTier == domain.TierPremium {
		return user, nil
	}
	if user.AccountTier == domain.TierInternal {
		return nil, apperrors.InvalidInput("internal accounts cannot change tier")
	}

	user.AccountTier = domain.TierPremium
	user.UpdatedAt = time.Now().UTC()

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.logger.InfoContext(ctx, "account upgraded to premium",
		slog.String("user_id", userID),
	)

	return user, nil
}

// ListUsers returns a page of users for administration.
func (s *UserService) ListUsers(ctx context.Context, limit, offset int) ([]domain.User, int, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	users, total, err := s.userRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	return users, total, nil
}

// DeleteUser removes a user account.
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	if err := s.userRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	s.logger.InfoContext(ctx, "user deleted",
		slog.String("user_id", id),
	)

	return nil
}

// AssignRole grants a named role to a user.
func (s *UserService) AssignRole(ctx context.Context, userID, roleName string) error {
	role, err := s.roleRepo.GetByName(ctx, roleName)
	if err != nil {
		return fmt.Errorf("get role by name: %w", err)
	}

	if err := s.userRepo.AssignRole(ctx, userID, role.ID); err != nil {
		return fmt.Errorf("assign role: %w", err)
	}

	s.logger.InfoContext(ctx, "role assigned",
		slog.String("user_id", userID),
		slog.String("role", roleName),
	)

	return nil
}

// issueTokens resolves the user's claims and writes a fresh token pair.
func (s *UserService) issueTokens(ctx context.Context, user *domain.User) (*domain.TokenPair, error) {
	claims, err := auth.Resolve(user)
	if err != nil {
		return nil, fmt.Errorf("resolve claims: %w", err)
	}

	access, err := s.jwtManager.GenerateAccessToken(claims)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	refresh, tokenID, expiresAt, err := s.jwtManager.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	if err := s.tokenRepo.Create(ctx, &domain.RefreshToken{
		ID:        tokenID,
		UserID:    user.ID,
		TokenHash: hashToken(refresh),
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

// hashToken returns the hex SHA-256 of a token. Only the hash is stored so
// a database leak does not expose live sessions.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
